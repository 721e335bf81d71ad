package query

import (
	"context"

	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/domain/timetable"
	"github.com/attendance-hub/attendance-engine/internal/infrastructure/metrics"
	"github.com/attendance-hub/attendance-engine/pkg/validate"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ATTENDANCE QUERY
// A student's attended/total/percentage over locked sessions in their scope,
// optionally narrowed to one subject and/or lecture type.
// ══════════════════════════════════════════════════════════════════════════════

// GetAttendanceQuery contains the query parameters.
type GetAttendanceQuery struct {
	StudentID string `json:"student_id" validate:"required"`

	// SubjectID narrows to one subject (empty = all subjects).
	SubjectID string `json:"subject_id"`

	// LectureType is theory, practical or both (empty = both).
	LectureType string `json:"lecture_type" validate:"lecture_type"`
}

// GetAttendanceResult is the filtered tally plus the per-subject breakdown.
type GetAttendanceResult struct {
	StudentID   string                    `json:"student_id"`
	ClassID     string                    `json:"class_id"`
	BatchID     string                    `json:"batch_id,omitempty"`
	SubjectID   string                    `json:"subject_id,omitempty"`
	LectureType timetable.LectureType     `json:"lecture_type"`
	Tally       attendance.Tally          `json:"tally"`
	Subjects    []attendance.SubjectTally `json:"subjects"`
}

// GetAttendanceHandler handles GetAttendanceQuery.
type GetAttendanceHandler struct {
	enrollments attendance.EnrollmentRepository
	history     attendance.HistoryRepository
}

// NewGetAttendanceHandler creates a new handler.
func NewGetAttendanceHandler(enrollments attendance.EnrollmentRepository, history attendance.HistoryRepository) *GetAttendanceHandler {
	return &GetAttendanceHandler{enrollments: enrollments, history: history}
}

// Handle computes the tallies. A student with no locked sessions gets 0/0 and 0%.
func (h *GetAttendanceHandler) Handle(ctx context.Context, q GetAttendanceQuery) (*GetAttendanceResult, error) {
	defer metrics.Timer("get_attendance")()

	if err := validate.Struct("query", "GetAttendance", q); err != nil {
		return nil, err
	}
	lt, err := timetable.ParseLectureType(q.LectureType)
	if err != nil {
		return nil, err
	}

	student, err := h.enrollments.FindByStudent(ctx, q.StudentID)
	if err != nil {
		return nil, wrapRepo("GetAttendance", err)
	}

	records, err := h.history.StudentRecords(ctx, *student)
	if err != nil {
		return nil, wrapRepo("GetAttendance", err)
	}

	filter := attendance.Filter{SubjectID: q.SubjectID, LectureType: lt}
	bySubject := attendance.AggregateBySubject(records, attendance.Filter{LectureType: lt})

	return &GetAttendanceResult{
		StudentID:   student.StudentID,
		ClassID:     student.ClassID,
		BatchID:     student.BatchID,
		SubjectID:   q.SubjectID,
		LectureType: lt,
		Tally:       attendance.Aggregate(records, filter),
		Subjects:    attendance.SortedSubjects(bySubject),
	}, nil
}
