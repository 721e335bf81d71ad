package memory

import (
	"context"
	"sort"

	"github.com/attendance-hub/attendance-engine/internal/domain/achievement"
	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
)

// AchievementRepository implements achievement.Repository.
type AchievementRepository struct {
	db *Store
}

var _ achievement.Repository = (*AchievementRepository)(nil)

// List returns definitions ordered by id.
func (r *AchievementRepository) List(_ context.Context) ([]achievement.Definition, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]achievement.Definition, 0, len(r.db.achievements))
	for _, d := range r.db.achievements {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns a definition by id.
func (r *AchievementRepository) Get(_ context.Context, id string) (*achievement.Definition, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	d, ok := r.db.achievements[id]
	if !ok {
		return nil, shared.ErrAchievementNotFound
	}
	return &d, nil
}

// Upsert replaces the definition with the same id.
func (r *AchievementRepository) Upsert(_ context.Context, d achievement.Definition) error {
	if d.ID == "" {
		return shared.NewDomainError("achievement", "Upsert", shared.ErrInvalidID, "achievement id is required")
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.achievements[d.ID] = d
	return nil
}
