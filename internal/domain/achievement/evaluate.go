package achievement

import (
	"context"
	"time"
)

// Status is the derived unlock state of one achievement for one student.
type Status struct {
	AchievementID string `json:"achievement_id"`
	Title         string `json:"title"`
	Unlocked      bool   `json:"unlocked"`
}

// Evaluate applies a rule to a history. An empty history is evaluated like
// any other: its tallies are zero and it has no subjects and no absent days,
// so absence rules and all_subjects_min hold while perfect_subject and
// min_subjects_above_x do not. UnknownCriteria never unlocks.
func Evaluate(c Criteria, h History, today time.Time) bool {
	switch c := c.(type) {
	case PerfectSubject:
		for _, t := range h.Subjects {
			if t.HasData() && t.Percentage == 100 {
				return true
			}
		}
		return false

	case MinOverall:
		return h.Overall.Percentage >= c.Value

	case NoAbsentDays:
		return !h.AbsentWithin(c.Days, today)

	case AllSubjectsMin:
		for _, t := range h.Subjects {
			if t.HasData() && t.Percentage < c.Value {
				return false
			}
		}
		return true

	case MinSubjectsAboveX:
		n := 0
		for _, t := range h.Subjects {
			if t.HasData() && t.Percentage >= c.Percentage {
				n++
			}
		}
		return n >= c.Count

	case MaxAbsentDaysStreak:
		return h.LongestAbsentStreak() <= c.Days

	case UnknownCriteria:
		return false
	}
	return false
}

// EvaluateAll evaluates every definition in order.
func EvaluateAll(defs []Definition, h History, today time.Time) []Status {
	out := make([]Status, 0, len(defs))
	for _, d := range defs {
		out = append(out, Status{
			AchievementID: d.ID,
			Title:         d.Title,
			Unlocked:      Evaluate(d.Criteria, h, today),
		})
	}
	return out
}

// Repository stores achievement definitions.
type Repository interface {
	// List returns every definition ordered by id. Rows whose criteria fail
	// to parse come back as UnknownCriteria.
	List(ctx context.Context) ([]Definition, error)

	// Get returns shared.ErrAchievementNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Definition, error)

	// Upsert creates or replaces a definition by id.
	Upsert(ctx context.Context, d Definition) error
}
