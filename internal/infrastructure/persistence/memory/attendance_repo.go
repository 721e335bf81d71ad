package memory

import (
	"context"
	"sort"
	"time"

	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository implements attendance.SessionRepository.
type SessionRepository struct {
	db *Store
}

var _ attendance.SessionRepository = (*SessionRepository)(nil)

// Ensure inserts unless the (slot, date) key is taken.
func (r *SessionRepository) Ensure(_ context.Context, s *attendance.Session) (*attendance.Session, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := sessionKey{slotID: s.SlotID, date: timeutil.Normalize(s.Date)}
	if id, ok := r.db.sessionByKey[key]; ok {
		cp := *r.db.sessions[id]
		return &cp, false, nil
	}

	cp := *s
	cp.Date = key.date
	r.db.sessions[cp.ID] = &cp
	r.db.sessionByKey[key] = cp.ID

	out := cp
	return &out, true, nil
}

// Get returns a copy of the session.
func (r *SessionRepository) Get(_ context.Context, id string) (*attendance.Session, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	s, ok := r.db.sessions[id]
	if !ok {
		return nil, shared.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

// GetBySlotAndDate looks up by natural key.
func (r *SessionRepository) GetBySlotAndDate(_ context.Context, slotID string, date time.Time) (*attendance.Session, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	id, ok := r.db.sessionByKey[sessionKey{slotID: slotID, date: timeutil.Normalize(date)}]
	if !ok {
		return nil, shared.ErrSessionNotFound
	}
	cp := *r.db.sessions[id]
	return &cp, nil
}

// Lock runs guard and flips the flag under the write lock.
func (r *SessionRepository) Lock(_ context.Context, id string, at time.Time, guard attendance.LockGuard) (*attendance.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[id]
	if !ok {
		return nil, shared.ErrSessionNotFound
	}
	if s.Locked {
		return nil, shared.ErrSessionAlreadyLocked
	}
	if guard != nil {
		if err := guard(*s, r.db.markCountLocked(id)); err != nil {
			return nil, err
		}
	}
	if err := s.Lock(at); err != nil {
		return nil, err
	}
	cp := *s
	return &cp, nil
}

// Delete removes the session when guard allows it.
func (r *SessionRepository) Delete(_ context.Context, id string, guard attendance.DeleteGuard) (*attendance.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[id]
	if !ok {
		return nil, shared.ErrSessionNotFound
	}
	if guard != nil {
		if err := guard(*s, r.db.markCountLocked(id)); err != nil {
			return nil, err
		}
	}
	delete(r.db.sessions, id)
	delete(r.db.sessionByKey, sessionKey{slotID: s.SlotID, date: s.Date})
	return s, nil
}

// ListLocked returns the class's locked sessions passing filter.
func (r *SessionRepository) ListLocked(_ context.Context, classID string, filter attendance.Filter) ([]attendance.Session, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]attendance.Session, 0)
	for _, s := range r.db.sessions {
		if s.ClassID != classID || !s.Locked {
			continue
		}
		if filter.SubjectID != "" && s.SubjectID != filter.SubjectID {
			continue
		}
		if !s.LectureType().Matches(filter.LectureType) {
			continue
		}
		out = append(out, *s)
	}
	sortSessions(out)
	return out, nil
}

func sortSessions(s []attendance.Session) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].Date.Equal(s[j].Date) {
			return s[i].Date.Before(s[j].Date)
		}
		return s[i].ID < s[j].ID
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// MARKS
// ══════════════════════════════════════════════════════════════════════════════

// MarkRepository implements attendance.MarkRepository.
type MarkRepository struct {
	db *Store
}

var _ attendance.MarkRepository = (*MarkRepository)(nil)

// Upsert re-reads the lock flag under the same write lock as the write.
func (r *MarkRepository) Upsert(_ context.Context, m attendance.Mark) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[m.SessionID]
	if !ok {
		return shared.ErrSessionNotFound
	}
	if err := s.EnsureWritable(); err != nil {
		return err
	}
	cp := m
	r.db.marks[markKey{sessionID: m.SessionID, studentID: m.StudentID}] = &cp
	return nil
}

// ListBySession returns the session's stored marks ordered by student id.
func (r *MarkRepository) ListBySession(ctx context.Context, sessionID string) ([]attendance.Mark, error) {
	return r.ListBySessions(ctx, []string{sessionID})
}

// ListBySessions returns stored marks of all given sessions.
func (r *MarkRepository) ListBySessions(_ context.Context, sessionIDs []string) ([]attendance.Mark, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	wanted := make(map[string]struct{}, len(sessionIDs))
	for _, id := range sessionIDs {
		wanted[id] = struct{}{}
	}

	out := make([]attendance.Mark, 0)
	for k, m := range r.db.marks {
		if _, ok := wanted[k.sessionID]; ok {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SessionID != out[j].SessionID {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out, nil
}

// CountBySession returns the number of stored marks.
func (r *MarkRepository) CountBySession(_ context.Context, sessionID string) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.db.markCountLocked(sessionID), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENTS
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements attendance.EnrollmentRepository.
type EnrollmentRepository struct {
	db *Store
}

var _ attendance.EnrollmentRepository = (*EnrollmentRepository)(nil)

// FindByStudent returns the student's enrollment.
func (r *EnrollmentRepository) FindByStudent(_ context.Context, studentID string) (*attendance.Enrollment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	e, ok := r.db.enrollments[studentID]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	cp := *e
	return &cp, nil
}

// ListByScope returns students in scope ordered by name, then id.
func (r *EnrollmentRepository) ListByScope(_ context.Context, scope attendance.Scope) ([]attendance.Enrollment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]attendance.Enrollment, 0)
	for _, e := range r.db.enrollments {
		if scope.Includes(*e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StudentName != out[j].StudentName {
			return out[i].StudentName < out[j].StudentName
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out, nil
}

// Upsert stores the enrollment, replacing any previous placement.
func (r *EnrollmentRepository) Upsert(_ context.Context, e attendance.Enrollment) error {
	if e.StudentID == "" || e.ClassID == "" {
		return shared.NewDomainError("attendance", "UpsertEnrollment", shared.ErrInvalidInput, "student_id and class_id are required")
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cp := e
	r.db.enrollments[e.StudentID] = &cp
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HISTORY
// ══════════════════════════════════════════════════════════════════════════════

// HistoryRepository implements attendance.HistoryRepository.
type HistoryRepository struct {
	db *Store
}

var _ attendance.HistoryRepository = (*HistoryRepository)(nil)

// StudentRecords joins the student's marks onto the sessions in their scope.
func (r *HistoryRepository) StudentRecords(_ context.Context, e attendance.Enrollment) ([]attendance.SessionRecord, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	sessions := make([]attendance.Session, 0)
	for _, s := range r.db.sessions {
		if s.ClassID == e.ClassID {
			sessions = append(sessions, *s)
		}
	}
	sortSessions(sessions)

	marks := make([]attendance.Mark, 0)
	for k, m := range r.db.marks {
		if k.studentID == e.StudentID {
			marks = append(marks, *m)
		}
	}
	return attendance.StudentRecords(e, sessions, marks), nil
}
