// Package achievement evaluates admin-authored achievement rules against a
// student's attendance history. Unlock state is always derived and never stored.
package achievement

import (
	"encoding/json"
	"fmt"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
)

// Type names a criteria variant.
type Type string

const (
	TypePerfectSubject      Type = "perfect_subject"
	TypeMinOverall          Type = "min_overall"
	TypeNoAbsentDays        Type = "no_absent_days"
	TypeAllSubjectsMin      Type = "all_subjects_min"
	TypeMinSubjectsAboveX   Type = "min_subjects_above_x"
	TypeMaxAbsentDaysStreak Type = "max_absent_days_streak"
)

// Criteria is a closed set of rule variants. Only types in this package implement it.
type Criteria interface {
	Type() Type
	isCriteria()
}

// PerfectSubject unlocks when some subject has sessions and 100% attendance.
type PerfectSubject struct{}

// MinOverall unlocks when overall percentage >= Value.
type MinOverall struct{ Value int }

// NoAbsentDays unlocks when no Absent mark falls within the last Days calendar days.
type NoAbsentDays struct{ Days int }

// AllSubjectsMin unlocks when every subject with sessions is at or above Value.
type AllSubjectsMin struct{ Value int }

// MinSubjectsAboveX unlocks when at least Count subjects reach Percentage.
type MinSubjectsAboveX struct {
	Percentage int
	Count      int
}

// MaxAbsentDaysStreak unlocks when the longest run of consecutive absent
// days does not exceed Days.
type MaxAbsentDaysStreak struct{ Days int }

// UnknownCriteria holds a rule this version cannot evaluate. It never unlocks.
type UnknownCriteria struct{ Raw RawCriteria }

func (PerfectSubject) Type() Type      { return TypePerfectSubject }
func (MinOverall) Type() Type          { return TypeMinOverall }
func (NoAbsentDays) Type() Type        { return TypeNoAbsentDays }
func (AllSubjectsMin) Type() Type      { return TypeAllSubjectsMin }
func (MinSubjectsAboveX) Type() Type   { return TypeMinSubjectsAboveX }
func (MaxAbsentDaysStreak) Type() Type { return TypeMaxAbsentDaysStreak }
func (u UnknownCriteria) Type() Type   { return Type(u.Raw.Type) }

func (PerfectSubject) isCriteria()      {}
func (MinOverall) isCriteria()          {}
func (NoAbsentDays) isCriteria()        {}
func (AllSubjectsMin) isCriteria()      {}
func (MinSubjectsAboveX) isCriteria()   {}
func (MaxAbsentDaysStreak) isCriteria() {}
func (UnknownCriteria) isCriteria()     {}

// RawCriteria is the stored form: {type, value?, percentage?, count?}.
type RawCriteria struct {
	Type       string `json:"type" yaml:"type"`
	Value      *int   `json:"value,omitempty" yaml:"value,omitempty"`
	Percentage *int   `json:"percentage,omitempty" yaml:"percentage,omitempty"`
	Count      *int   `json:"count,omitempty" yaml:"count,omitempty"`
}

func intPtr(v int) *int { return &v }

// ParseCriteria converts the stored form into a variant. Unknown types and
// missing or out-of-range parameters yield UnknownCriteria together with an
// error wrapping shared.ErrInvalidCriteria; callers log the error and keep
// the UnknownCriteria so evaluation stays fail-safe.
func ParseCriteria(raw RawCriteria) (Criteria, error) {
	unknown := UnknownCriteria{Raw: raw}

	percent := func(p *int, name string) (int, error) {
		if p == nil || *p < 0 || *p > 100 {
			return 0, shared.NewDomainError("achievement", "ParseCriteria", shared.ErrMissingCriteriaArg,
				fmt.Sprintf("%s: %s must be a percentage between 0 and 100", raw.Type, name))
		}
		return *p, nil
	}
	positive := func(p *int, name string) (int, error) {
		if p == nil || *p < 1 {
			return 0, shared.NewDomainError("achievement", "ParseCriteria", shared.ErrMissingCriteriaArg,
				fmt.Sprintf("%s: %s must be a positive integer", raw.Type, name))
		}
		return *p, nil
	}

	switch Type(raw.Type) {
	case TypePerfectSubject:
		return PerfectSubject{}, nil

	case TypeMinOverall:
		v, err := percent(raw.Value, "value")
		if err != nil {
			return unknown, err
		}
		return MinOverall{Value: v}, nil

	case TypeNoAbsentDays:
		v, err := positive(raw.Value, "value")
		if err != nil {
			return unknown, err
		}
		return NoAbsentDays{Days: v}, nil

	case TypeAllSubjectsMin:
		v, err := percent(raw.Value, "value")
		if err != nil {
			return unknown, err
		}
		return AllSubjectsMin{Value: v}, nil

	case TypeMinSubjectsAboveX:
		p, err := percent(raw.Percentage, "percentage")
		if err != nil {
			return unknown, err
		}
		c, err := positive(raw.Count, "count")
		if err != nil {
			return unknown, err
		}
		return MinSubjectsAboveX{Percentage: p, Count: c}, nil

	case TypeMaxAbsentDaysStreak:
		// A zero-day streak limit is meaningful: it unlocks only for students
		// who were never absent on a whole day.
		if raw.Value == nil || *raw.Value < 0 {
			return unknown, shared.NewDomainError("achievement", "ParseCriteria", shared.ErrMissingCriteriaArg,
				fmt.Sprintf("%s: value must be a non-negative integer", raw.Type))
		}
		return MaxAbsentDaysStreak{Days: *raw.Value}, nil
	}

	return unknown, shared.NewDomainError("achievement", "ParseCriteria", shared.ErrUnknownCriteriaType,
		fmt.Sprintf("unknown criteria type %q", raw.Type))
}

// Encode returns the stored form of a variant.
func Encode(c Criteria) RawCriteria {
	switch c := c.(type) {
	case PerfectSubject:
		return RawCriteria{Type: string(TypePerfectSubject)}
	case MinOverall:
		return RawCriteria{Type: string(TypeMinOverall), Value: intPtr(c.Value)}
	case NoAbsentDays:
		return RawCriteria{Type: string(TypeNoAbsentDays), Value: intPtr(c.Days)}
	case AllSubjectsMin:
		return RawCriteria{Type: string(TypeAllSubjectsMin), Value: intPtr(c.Value)}
	case MinSubjectsAboveX:
		return RawCriteria{Type: string(TypeMinSubjectsAboveX), Percentage: intPtr(c.Percentage), Count: intPtr(c.Count)}
	case MaxAbsentDaysStreak:
		return RawCriteria{Type: string(TypeMaxAbsentDaysStreak), Value: intPtr(c.Days)}
	case UnknownCriteria:
		return c.Raw
	}
	return RawCriteria{}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITION
// ══════════════════════════════════════════════════════════════════════════════

// Definition is an admin-authored achievement.
type Definition struct {
	ID          string
	Title       string
	Description string
	Criteria    Criteria
}

type definitionJSON struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Criteria    RawCriteria `json:"criteria"`
}

// MarshalJSON writes the criteria in stored form.
func (d Definition) MarshalJSON() ([]byte, error) {
	return json.Marshal(definitionJSON{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Criteria:    Encode(d.Criteria),
	})
}

// UnmarshalJSON accepts any criteria payload; invalid rules decode to UnknownCriteria.
func (d *Definition) UnmarshalJSON(data []byte) error {
	var raw definitionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.ID, d.Title, d.Description = raw.ID, raw.Title, raw.Description
	d.Criteria, _ = ParseCriteria(raw.Criteria)
	return nil
}

// NewDefinition parses raw criteria into a definition, returning the parse
// error alongside a definition that is still safe to evaluate.
func NewDefinition(id, title, description string, raw RawCriteria) (Definition, error) {
	c, err := ParseCriteria(raw)
	return Definition{ID: id, Title: title, Description: description, Criteria: c}, err
}
