package postgres

import (
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/domain/timetable"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUERY BUILDERS
// Filtered reads are assembled with squirrel; fixed statements stay inline
// in the repositories.
// ══════════════════════════════════════════════════════════════════════════════

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var (
	slotColumns       = []string{"id", "day_of_week", "start_minute", "end_minute", "class_id", "subject_id", "faculty_id", "batch_id", "created_at", "updated_at"}
	sessionColumns    = []string{"id", "slot_id", "date", "class_id", "subject_id", "batch_id", "locked", "created_at", "locked_at"}
	markColumns       = []string{"session_id", "student_id", "status", "edited_by", "edited_at"}
	enrollmentColumns = []string{"student_id", "student_name", "class_id", "batch_id"}
)

// lectureTypeCond narrows on batch presence; nil means no restriction.
func lectureTypeCond(column string, lt timetable.LectureType) squirrel.Sqlizer {
	switch lt {
	case timetable.LectureTheory:
		return squirrel.Eq{column: ""}
	case timetable.LecturePractical:
		return squirrel.NotEq{column: ""}
	}
	return nil
}

func slotsQuery(where squirrel.Sqlizer) squirrel.SelectBuilder {
	return psql.Select(slotColumns...).
		From("timetable_slots").
		Where(where).
		OrderBy("day_of_week", "start_minute", "id")
}

func lockedSessionsQuery(classID string, filter attendance.Filter) squirrel.SelectBuilder {
	q := psql.Select(sessionColumns...).
		From("sessions").
		Where(squirrel.Eq{"class_id": classID, "locked": true})
	if filter.SubjectID != "" {
		q = q.Where(squirrel.Eq{"subject_id": filter.SubjectID})
	}
	if cond := lectureTypeCond("batch_id", filter.LectureType); cond != nil {
		q = q.Where(cond)
	}
	return q.OrderBy("date", "id")
}

func marksBySessionsQuery(sessionIDs []string) squirrel.SelectBuilder {
	return psql.Select(markColumns...).
		From("attendance_marks").
		Where(squirrel.Eq{"session_id": sessionIDs}).
		OrderBy("session_id", "student_id")
}

func enrollmentsByScopeQuery(scope attendance.Scope) squirrel.SelectBuilder {
	q := psql.Select(enrollmentColumns...).
		From("enrollments").
		Where(squirrel.Eq{"class_id": scope.ClassID})
	if !scope.IsTheory() {
		q = q.Where(squirrel.Eq{"batch_id": scope.BatchID})
	}
	return q.OrderBy("student_name", "student_id")
}

// studentRecordsQuery joins the student's marks onto every session of their
// class that addresses them: theory sessions and their own batch's practicals.
func studentRecordsQuery(e attendance.Enrollment) squirrel.SelectBuilder {
	return psql.Select("s.id", "s.date", "s.subject_id", "s.batch_id", "s.locked", "COALESCE(m.status, 'unmarked')").
		From("sessions s").
		LeftJoin("attendance_marks m ON m.session_id = s.id AND m.student_id = ?", e.StudentID).
		Where(squirrel.Eq{"s.class_id": e.ClassID}).
		Where(squirrel.Or{squirrel.Eq{"s.batch_id": ""}, squirrel.Eq{"s.batch_id": e.BatchID}}).
		OrderBy("s.date", "s.id")
}

// ══════════════════════════════════════════════════════════════════════════════
// SCANNERS
// ══════════════════════════════════════════════════════════════════════════════

func scanSlot(row pgx.Row) (*timetable.Slot, error) {
	var s timetable.Slot
	var day, start, end int
	if err := row.Scan(&s.ID, &day, &start, &end, &s.ClassID, &s.SubjectID, &s.FacultyID, &s.BatchID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Day = timetable.DayOfWeek(day)
	s.Start = timetable.Clock(start)
	s.End = timetable.Clock(end)
	return &s, nil
}

func scanSession(row pgx.Row) (*attendance.Session, error) {
	var s attendance.Session
	if err := row.Scan(&s.ID, &s.SlotID, &s.Date, &s.ClassID, &s.SubjectID, &s.BatchID, &s.Locked, &s.CreatedAt, &s.LockedAt); err != nil {
		return nil, err
	}
	s.Date = s.Date.UTC()
	return &s, nil
}

func scanMark(row pgx.Row) (attendance.Mark, error) {
	var m attendance.Mark
	var status string
	err := row.Scan(&m.SessionID, &m.StudentID, &status, &m.EditedBy, &m.EditedAt)
	m.Status = attendance.MarkStatus(status)
	return m, err
}

func scanEnrollment(row pgx.Row) (attendance.Enrollment, error) {
	var e attendance.Enrollment
	err := row.Scan(&e.StudentID, &e.StudentName, &e.ClassID, &e.BatchID)
	return e, err
}

// collect drains rows through scan.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func derefSessions(in []*attendance.Session) []attendance.Session {
	out := make([]attendance.Session, len(in))
	for i, s := range in {
		out[i] = *s
	}
	return out
}
