package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/pkg/timeutil"
)

const selectSession = `SELECT id, slot_id, date, class_id, subject_id, batch_id, locked, created_at, locked_at FROM sessions`

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository implements attendance.SessionRepository.
type SessionRepository struct {
	conn *Connection
}

var _ attendance.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a SessionRepository.
func NewSessionRepository(conn *Connection) *SessionRepository {
	return &SessionRepository{conn: conn}
}

// Ensure inserts the session unless (slot, date) is taken. The unique
// constraint arbitrates concurrent callers; the loser reads the winner's row.
// A clash on the id alone is reported as shared.ErrAlreadyExists.
func (r *SessionRepository) Ensure(ctx context.Context, s *attendance.Session) (*attendance.Session, bool, error) {
	date := timeutil.Normalize(s.Date)
	stored, err := scanSession(r.conn.QueryRow(ctx, `
		INSERT INTO sessions (id, slot_id, date, class_id, subject_id, batch_id, locked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		ON CONFLICT (slot_id, date) DO NOTHING
		RETURNING id, slot_id, date, class_id, subject_id, batch_id, locked, created_at, locked_at
	`, s.ID, s.SlotID, date, s.ClassID, s.SubjectID, s.BatchID, s.CreatedAt))
	if err == nil {
		return stored, true, nil
	}
	if !IsNoRows(err) {
		return nil, false, storeError("EnsureSession", alreadyExists("EnsureSession", "session id already in use", err))
	}

	existing, err := r.GetBySlotAndDate(ctx, s.SlotID, date)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Get returns a session by id.
func (r *SessionRepository) Get(ctx context.Context, id string) (*attendance.Session, error) {
	s, err := scanSession(r.conn.QueryRow(ctx, selectSession+` WHERE id = $1`, id))
	if IsNoRows(err) {
		return nil, shared.ErrSessionNotFound
	}
	return s, storeError("GetSession", err)
}

// GetBySlotAndDate looks up by natural key.
func (r *SessionRepository) GetBySlotAndDate(ctx context.Context, slotID string, date time.Time) (*attendance.Session, error) {
	s, err := scanSession(r.conn.QueryRow(ctx, selectSession+` WHERE slot_id = $1 AND date = $2`,
		slotID, timeutil.Normalize(date)))
	if IsNoRows(err) {
		return nil, shared.ErrSessionNotFound
	}
	return s, storeError("GetSessionBySlot", err)
}

// Lock takes the row lock, which waits for in-flight mark writes holding
// FOR SHARE, then runs guard and flips the flag.
func (r *SessionRepository) Lock(ctx context.Context, id string, at time.Time, guard attendance.LockGuard) (*attendance.Session, error) {
	var out *attendance.Session
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		s, count, err := r.lockRow(ctx, tx, id)
		if err != nil {
			return err
		}
		if s.Locked {
			return shared.ErrSessionAlreadyLocked
		}
		if guard != nil {
			if err := guard(*s, count); err != nil {
				return err
			}
		}
		if err := s.Lock(at); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE sessions SET locked = TRUE, locked_at = $2 WHERE id = $1`, id, at); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, storeError("LockSession", err)
	}
	return out, nil
}

// Delete removes the session when guard allows it.
func (r *SessionRepository) Delete(ctx context.Context, id string, guard attendance.DeleteGuard) (*attendance.Session, error) {
	var out *attendance.Session
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		s, count, err := r.lockRow(ctx, tx, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(*s, count); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, storeError("DeleteSession", err)
	}
	return out, nil
}

func (r *SessionRepository) lockRow(ctx context.Context, tx pgx.Tx, id string) (*attendance.Session, int, error) {
	s, err := scanSession(tx.QueryRow(ctx, selectSession+` WHERE id = $1 FOR UPDATE`, id))
	if IsNoRows(err) {
		return nil, 0, shared.ErrSessionNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM attendance_marks WHERE session_id = $1`, id).Scan(&count); err != nil {
		return nil, 0, err
	}
	return s, count, nil
}

// ListLocked returns the class's locked sessions passing filter.
func (r *SessionRepository) ListLocked(ctx context.Context, classID string, filter attendance.Filter) ([]attendance.Session, error) {
	sql, args, err := lockedSessionsQuery(classID, filter).ToSql()
	if err != nil {
		return nil, err
	}
	return r.query(ctx, "ListLockedSessions", sql, args)
}

func (r *SessionRepository) query(ctx context.Context, op, sql string, args []interface{}) ([]attendance.Session, error) {
	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError(op, err)
	}
	sessions, err := collect(rows, scanSession)
	if err != nil {
		return nil, storeError(op, err)
	}
	return derefSessions(sessions), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MARK REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// MarkRepository implements attendance.MarkRepository.
type MarkRepository struct {
	conn *Connection
}

var _ attendance.MarkRepository = (*MarkRepository)(nil)

// NewMarkRepository creates a MarkRepository.
func NewMarkRepository(conn *Connection) *MarkRepository {
	return &MarkRepository{conn: conn}
}

// Upsert re-reads the lock flag under FOR SHARE in the same transaction as
// the write. A lock committed first makes the write fail; a lock started
// later waits for this transaction.
func (r *MarkRepository) Upsert(ctx context.Context, m attendance.Mark) error {
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		var locked bool
		err := tx.QueryRow(ctx, `SELECT locked FROM sessions WHERE id = $1 FOR SHARE`, m.SessionID).Scan(&locked)
		if IsNoRows(err) {
			return shared.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if locked {
			return shared.ErrSessionIsLocked
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO attendance_marks (session_id, student_id, status, edited_by, edited_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (session_id, student_id) DO UPDATE SET
				status = EXCLUDED.status,
				edited_by = EXCLUDED.edited_by,
				edited_at = EXCLUDED.edited_at
		`, m.SessionID, m.StudentID, string(m.Status), m.EditedBy, m.EditedAt)
		return err
	})
	return storeError("UpsertMark", err)
}

// ListBySession returns the session's stored marks ordered by student id.
func (r *MarkRepository) ListBySession(ctx context.Context, sessionID string) ([]attendance.Mark, error) {
	return r.ListBySessions(ctx, []string{sessionID})
}

// ListBySessions returns stored marks of all given sessions.
func (r *MarkRepository) ListBySessions(ctx context.Context, sessionIDs []string) ([]attendance.Mark, error) {
	if len(sessionIDs) == 0 {
		return []attendance.Mark{}, nil
	}
	sql, args, err := marksBySessionsQuery(sessionIDs).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError("ListMarks", err)
	}
	marks, err := collect(rows, scanMark)
	return marks, storeError("ListMarks", err)
}

// CountBySession returns the number of stored marks.
func (r *MarkRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM attendance_marks WHERE session_id = $1`, sessionID).Scan(&n)
	return n, storeError("CountMarks", err)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements attendance.EnrollmentRepository.
type EnrollmentRepository struct {
	conn *Connection
}

var _ attendance.EnrollmentRepository = (*EnrollmentRepository)(nil)

// NewEnrollmentRepository creates an EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

// FindByStudent returns the student's enrollment.
func (r *EnrollmentRepository) FindByStudent(ctx context.Context, studentID string) (*attendance.Enrollment, error) {
	e, err := scanEnrollment(r.conn.QueryRow(ctx,
		`SELECT student_id, student_name, class_id, batch_id FROM enrollments WHERE student_id = $1`, studentID))
	if IsNoRows(err) {
		return nil, shared.ErrStudentNotFound
	}
	if err != nil {
		return nil, storeError("FindEnrollment", err)
	}
	return &e, nil
}

// ListByScope returns students in scope ordered by name, then id.
func (r *EnrollmentRepository) ListByScope(ctx context.Context, scope attendance.Scope) ([]attendance.Enrollment, error) {
	sql, args, err := enrollmentsByScopeQuery(scope).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError("ListEnrollments", err)
	}
	out, err := collect(rows, scanEnrollment)
	return out, storeError("ListEnrollments", err)
}

// Upsert stores the enrollment, replacing any previous placement.
func (r *EnrollmentRepository) Upsert(ctx context.Context, e attendance.Enrollment) error {
	if strings.TrimSpace(e.StudentID) == "" || strings.TrimSpace(e.ClassID) == "" {
		return shared.NewDomainError("attendance", "UpsertEnrollment", shared.ErrInvalidInput, "student_id and class_id are required")
	}
	_, err := r.conn.Exec(ctx, `
		INSERT INTO enrollments (student_id, student_name, class_id, batch_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id) DO UPDATE SET
			student_name = EXCLUDED.student_name,
			class_id = EXCLUDED.class_id,
			batch_id = EXCLUDED.batch_id
	`, e.StudentID, e.StudentName, e.ClassID, e.BatchID)
	return storeError("UpsertEnrollment", err)
}

// ══════════════════════════════════════════════════════════════════════════════
// HISTORY REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// HistoryRepository implements attendance.HistoryRepository with one join.
type HistoryRepository struct {
	conn *Connection
}

var _ attendance.HistoryRepository = (*HistoryRepository)(nil)

// NewHistoryRepository creates a HistoryRepository.
func NewHistoryRepository(conn *Connection) *HistoryRepository {
	return &HistoryRepository{conn: conn}
}

// StudentRecords returns the sessions in the student's scope with their mark.
func (r *HistoryRepository) StudentRecords(ctx context.Context, e attendance.Enrollment) ([]attendance.SessionRecord, error) {
	sql, args, err := studentRecordsQuery(e).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError("StudentRecords", err)
	}
	records, err := collect(rows, func(row pgx.Row) (attendance.SessionRecord, error) {
		var rec attendance.SessionRecord
		var status string
		err := row.Scan(&rec.SessionID, &rec.Date, &rec.SubjectID, &rec.BatchID, &rec.Locked, &status)
		rec.Date = rec.Date.UTC()
		rec.Status = attendance.MarkStatus(status)
		return rec, err
	})
	return records, storeError("StudentRecords", err)
}
