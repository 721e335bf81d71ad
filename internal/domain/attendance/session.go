// Package attendance contains the session lifecycle, the per-student mark
// ledger and the pure aggregation rules that turn marks into percentages.
package attendance

import (
	"time"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/internal/domain/timetable"
	"github.com/attendance-hub/attendance-engine/pkg/timeutil"
)

// State is the lifecycle state of a (slot, date) pair.
type State string

const (
	// StateNone means no session has been materialized for the pair yet.
	StateNone State = "none"
	// StateOpen accepts mark writes.
	StateOpen State = "open"
	// StateLocked is terminal; marks are read-only.
	StateLocked State = "locked"
)

// Session is a dated materialization of a timetable slot.
// Class, subject and batch are copied from the slot when the session is
// created, so later slot edits never change who a past session addressed.
type Session struct {
	ID        string     `json:"id"`
	SlotID    string     `json:"slot_id"`
	Date      time.Time  `json:"date"`
	ClassID   string     `json:"class_id"`
	SubjectID string     `json:"subject_id"`
	BatchID   string     `json:"batch_id,omitempty"`
	Locked    bool       `json:"locked"`
	CreatedAt time.Time  `json:"created_at"`
	LockedAt  *time.Time `json:"locked_at,omitempty"`
}

// NewSession materializes slot on date. The date must fall on the slot's weekday.
func NewSession(id string, slot timetable.Slot, date time.Time, now time.Time) (*Session, error) {
	date = timeutil.Normalize(date)
	day, ok := timetable.DayOfWeekOf(date)
	if !ok || day != slot.Day {
		return nil, shared.ErrWrongWeekday
	}
	return &Session{
		ID:        id,
		SlotID:    slot.ID,
		Date:      date,
		ClassID:   slot.ClassID,
		SubjectID: slot.SubjectID,
		BatchID:   slot.BatchID,
		CreatedAt: now,
	}, nil
}

// State returns the session's lifecycle state.
func (s *Session) State() State {
	if s == nil {
		return StateNone
	}
	if s.Locked {
		return StateLocked
	}
	return StateOpen
}

// LectureType returns theory for class-wide sessions and practical for batch sessions.
func (s *Session) LectureType() timetable.LectureType {
	return timetable.LectureTypeOf(s.BatchID)
}

// Scope returns the population this session addresses.
func (s *Session) Scope() Scope {
	return Scope{ClassID: s.ClassID, BatchID: s.BatchID}
}

// Lock transitions OPEN -> LOCKED. Locking twice fails.
func (s *Session) Lock(now time.Time) error {
	if s.Locked {
		return shared.ErrSessionAlreadyLocked
	}
	s.Locked = true
	s.LockedAt = &now
	return nil
}

// EnsureWritable fails with shared.ErrSessionIsLocked once the session is locked.
func (s *Session) EnsureWritable() error {
	if s.Locked {
		return shared.ErrSessionIsLocked
	}
	return nil
}

// CanDelete allows deletion only for an open session with no marks whose
// date has not passed yet.
func (s *Session) CanDelete(markCount int, today time.Time) error {
	if s.Locked {
		return shared.ErrSessionIsLocked
	}
	if markCount > 0 {
		return shared.ErrSessionHasMarks
	}
	if s.Date.Before(timeutil.Normalize(today)) {
		return shared.ErrSessionDateElapsed
	}
	return nil
}

// LockPolicy tunes the OPEN -> LOCKED transition.
type LockPolicy struct {
	// RequireMarks rejects locking a session nobody has marked yet.
	RequireMarks bool
}

// Check applies the policy to a session about to be locked.
func (p LockPolicy) Check(markCount int) error {
	if p.RequireMarks && markCount == 0 {
		return shared.ErrSessionNotLockable
	}
	return nil
}
