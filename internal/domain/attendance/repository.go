package attendance

import (
	"context"
	"time"
)

// DeleteGuard decides whether a session may be deleted given its current
// mark count. Repositories evaluate it inside the delete transaction.
type DeleteGuard func(s Session, markCount int) error

// LockGuard is evaluated inside the lock transaction before the state change.
type LockGuard func(s Session, markCount int) error

// SessionRepository stores sessions keyed by (slot, date).
type SessionRepository interface {
	// Ensure inserts s unless a session for (s.SlotID, s.Date) exists, in
	// which case the stored one is returned. Safe under concurrent callers.
	Ensure(ctx context.Context, s *Session) (stored *Session, created bool, err error)

	// Get returns shared.ErrSessionNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Session, error)

	// GetBySlotAndDate looks up by natural key.
	GetBySlotAndDate(ctx context.Context, slotID string, date time.Time) (*Session, error)

	// Lock atomically moves an open session to locked.
	Lock(ctx context.Context, id string, at time.Time, guard LockGuard) (*Session, error)

	// Delete removes a session if guard allows it.
	Delete(ctx context.Context, id string, guard DeleteGuard) (*Session, error)

	// ListLocked returns locked sessions of a class, optionally filtered.
	ListLocked(ctx context.Context, classID string, filter Filter) ([]Session, error)
}

// MarkRepository is the mark ledger.
type MarkRepository interface {
	// Upsert writes a mark. The session's lock flag is re-read inside the
	// same transaction; a committed lock makes the write fail with
	// shared.ErrSessionIsLocked and leaves the ledger untouched.
	Upsert(ctx context.Context, m Mark) error

	// ListBySession returns the stored marks of a session.
	ListBySession(ctx context.Context, sessionID string) ([]Mark, error)

	// ListBySessions returns the stored marks of many sessions.
	ListBySessions(ctx context.Context, sessionIDs []string) ([]Mark, error)

	// CountBySession returns the number of stored marks.
	CountBySession(ctx context.Context, sessionID string) (int, error)
}

// EnrollmentRepository reads student placement.
type EnrollmentRepository interface {
	// FindByStudent returns shared.ErrStudentNotFound for unknown students.
	FindByStudent(ctx context.Context, studentID string) (*Enrollment, error)

	// ListByScope returns the students of a class, or of one batch of it,
	// ordered by name.
	ListByScope(ctx context.Context, scope Scope) ([]Enrollment, error)

	// Upsert creates or moves an enrollment.
	Upsert(ctx context.Context, e Enrollment) error
}

// HistoryRepository serves aggregation reads.
type HistoryRepository interface {
	// StudentRecords returns every session relevant to the student (theory
	// of their class and practicals of their batch) joined with their mark.
	// Open sessions may be included; aggregation drops them.
	StudentRecords(ctx context.Context, e Enrollment) ([]SessionRecord, error)
}
