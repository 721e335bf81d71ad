package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/attendance-hub/attendance-engine/internal/domain/achievement"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// catalogFile is the YAML layout of an achievement catalog:
//
//	achievements:
//	  - id: regular
//	    title: Regular
//	    description: Overall attendance of at least 75%
//	    criteria:
//	      type: min_overall
//	      value: 75
type catalogFile struct {
	Achievements []catalogEntry `yaml:"achievements"`
}

type catalogEntry struct {
	ID          string                  `yaml:"id"`
	Title       string                  `yaml:"title"`
	Description string                  `yaml:"description"`
	Criteria    achievement.RawCriteria `yaml:"criteria"`
}

// LoadAchievementCatalog reads definitions from a YAML file.
func LoadAchievementCatalog(path string) ([]achievement.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read achievement catalog: %w", err)
	}
	return ParseAchievementCatalog(data)
}

// ParseAchievementCatalog decodes a catalog. Unknown fields, duplicate ids
// and criteria that do not parse are rejected.
func ParseAchievementCatalog(data []byte) ([]achievement.Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode achievement catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Achievements))
	defs := make([]achievement.Definition, 0, len(file.Achievements))
	for i, e := range file.Achievements {
		if e.ID == "" {
			return nil, fmt.Errorf("achievement #%d: id is required", i+1)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("achievement %q: duplicate id", e.ID)
		}
		seen[e.ID] = struct{}{}

		criteria, err := achievement.ParseCriteria(e.Criteria)
		if err != nil {
			return nil, fmt.Errorf("achievement %q: %w", e.ID, err)
		}
		title := e.Title
		if title == "" {
			title = e.ID
		}
		defs = append(defs, achievement.Definition{
			ID:          e.ID,
			Title:       title,
			Description: e.Description,
			Criteria:    criteria,
		})
	}
	return defs, nil
}
