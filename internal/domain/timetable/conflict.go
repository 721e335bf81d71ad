package timetable

import (
	"fmt"
	"strings"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
)

// ConflictError reports every existing slot that blocks a candidate.
type ConflictError struct {
	Candidate Slot
	Conflicts []Slot
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	ids := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		ids = append(ids, fmt.Sprintf("%s(%s %s-%s)", c.ID, c.Day, c.Start, c.End))
	}
	return fmt.Sprintf("timetable.Save: slot conflicts with %d existing slot(s): %s",
		len(e.Conflicts), strings.Join(ids, ", "))
}

// Is makes errors.Is(err, shared.ErrConflict) succeed.
func (e *ConflictError) Is(target error) bool {
	return target == shared.ErrConflict
}

// CheckConflict returns the slots in existing that conflict with candidate.
// A slot never conflicts with itself: entries sharing the candidate's ID are
// skipped, so editing a slot only checks it against the others.
// The result is empty when the candidate may be saved.
func CheckConflict(candidate Slot, existing []Slot) []Slot {
	var conflicts []Slot
	for _, other := range existing {
		if candidate.ID != "" && other.ID == candidate.ID {
			continue
		}
		if candidate.ConflictsWith(other) {
			conflicts = append(conflicts, other)
		}
	}
	return conflicts
}

// NewConflictError wraps conflicts into an error, or returns nil when there are none.
func NewConflictError(candidate Slot, conflicts []Slot) error {
	if len(conflicts) == 0 {
		return nil
	}
	return &ConflictError{Candidate: candidate, Conflicts: conflicts}
}
