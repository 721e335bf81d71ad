package command

import (
	"context"

	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/internal/infrastructure/metrics"
	"github.com/attendance-hub/attendance-engine/pkg/logger"
	"github.com/attendance-hub/attendance-engine/pkg/validate"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET MARK COMMAND
// Records one student's status in an open session. The last write before the
// lock wins; the repository re-reads the lock flag inside the write.
// ══════════════════════════════════════════════════════════════════════════════

// SetMarkCommand sets a single mark.
type SetMarkCommand struct {
	SessionID string `json:"session_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,mark_status"`
	EditedBy  string `json:"edited_by"`
}

// SetMarkHandler handles SetMarkCommand.
type SetMarkHandler struct {
	sessions    attendance.SessionRepository
	marks       attendance.MarkRepository
	enrollments attendance.EnrollmentRepository
	deps        Deps
}

// NewSetMarkHandler creates a new handler.
func NewSetMarkHandler(
	sessions attendance.SessionRepository,
	marks attendance.MarkRepository,
	enrollments attendance.EnrollmentRepository,
	deps Deps,
) *SetMarkHandler {
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.With(logger.Component("set_mark"))
	return &SetMarkHandler{sessions: sessions, marks: marks, enrollments: enrollments, deps: deps}
}

// Handle writes the mark.
//
// Errors: NotFound for an unknown session or student, NotEnrolled when the
// student is outside the session's class or batch, SessionLocked once the
// session is locked. A rejected write leaves the ledger unchanged.
func (h *SetMarkHandler) Handle(ctx context.Context, cmd SetMarkCommand) (*attendance.Mark, error) {
	mark, err := h.handle(ctx, cmd)
	metrics.ObserveMarkWrite(err)
	if err != nil {
		h.deps.Logger.Warn("mark rejected",
			logger.SessionID(cmd.SessionID),
			logger.StudentID(cmd.StudentID),
			logger.Err(err),
		)
		return nil, err
	}
	return mark, nil
}

func (h *SetMarkHandler) handle(ctx context.Context, cmd SetMarkCommand) (*attendance.Mark, error) {
	if err := validate.Struct("command", "SetMark", cmd); err != nil {
		return nil, err
	}
	status, err := attendance.ParseMarkStatus(cmd.Status)
	if err != nil {
		return nil, err
	}

	session, err := h.sessions.Get(ctx, cmd.SessionID)
	if err != nil {
		return nil, wrapRepo("SetMark", err)
	}
	if err := session.EnsureWritable(); err != nil {
		return nil, err
	}

	student, err := h.enrollments.FindByStudent(ctx, cmd.StudentID)
	if err != nil {
		return nil, wrapRepo("SetMark", err)
	}
	if !session.Scope().Includes(*student) {
		return nil, shared.ErrStudentNotEnrolled
	}

	mark := attendance.Mark{
		SessionID: session.ID,
		StudentID: student.StudentID,
		Status:    status,
		EditedBy:  cmd.EditedBy,
		EditedAt:  h.deps.Clock.Now(),
	}
	if err := h.marks.Upsert(ctx, mark); err != nil {
		return nil, wrapRepo("SetMark", err)
	}

	h.deps.publish(shared.NewMarkRecordedEvent(mark.SessionID, mark.StudentID, string(mark.Status), mark.EditedBy))
	return &mark, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BULK SET MARKS COMMAND
// Applies one status to every student in the session's scope. Each student is
// an independent write: a failure for one does not roll back the others.
// ══════════════════════════════════════════════════════════════════════════════

// BulkSetMarksCommand marks the whole session population.
type BulkSetMarksCommand struct {
	SessionID string `json:"session_id" validate:"required"`
	Status    string `json:"status" validate:"required,mark_status"`
	EditedBy  string `json:"edited_by"`
}

// BulkSetMarksResult lists the outcome for each student in scope.
type BulkSetMarksResult struct {
	SessionID string                     `json:"session_id"`
	Results   []attendance.StudentResult `json:"results"`
	Applied   int                        `json:"applied"`
	Failed    int                        `json:"failed"`
}

// BulkSetMarksHandler handles BulkSetMarksCommand.
type BulkSetMarksHandler struct {
	sessions    attendance.SessionRepository
	marks       attendance.MarkRepository
	enrollments attendance.EnrollmentRepository
	deps        Deps
}

// NewBulkSetMarksHandler creates a new handler.
func NewBulkSetMarksHandler(
	sessions attendance.SessionRepository,
	marks attendance.MarkRepository,
	enrollments attendance.EnrollmentRepository,
	deps Deps,
) *BulkSetMarksHandler {
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.With(logger.Component("bulk_set_marks"))
	return &BulkSetMarksHandler{sessions: sessions, marks: marks, enrollments: enrollments, deps: deps}
}

// Handle writes status for every student in scope, in roster order.
// A session that is already locked fails the whole call; a lock landing
// mid-way shows up as SessionLocked results for the remaining students.
func (h *BulkSetMarksHandler) Handle(ctx context.Context, cmd BulkSetMarksCommand) (*BulkSetMarksResult, error) {
	if err := validate.Struct("command", "BulkSetMarks", cmd); err != nil {
		return nil, err
	}
	status, err := attendance.ParseMarkStatus(cmd.Status)
	if err != nil {
		return nil, err
	}

	session, err := h.sessions.Get(ctx, cmd.SessionID)
	if err != nil {
		return nil, wrapRepo("BulkSetMarks", err)
	}
	if err := session.EnsureWritable(); err != nil {
		return nil, err
	}

	students, err := h.enrollments.ListByScope(ctx, session.Scope())
	if err != nil {
		return nil, wrapRepo("BulkSetMarks", err)
	}

	result := &BulkSetMarksResult{
		SessionID: session.ID,
		Results:   make([]attendance.StudentResult, 0, len(students)),
	}
	now := h.deps.Clock.Now()

	for _, s := range students {
		if err := ctx.Err(); err != nil {
			result.Results = append(result.Results, attendance.NewStudentResult(s.StudentID, err))
			result.Failed++
			continue
		}

		mark := attendance.Mark{
			SessionID: session.ID,
			StudentID: s.StudentID,
			Status:    status,
			EditedBy:  cmd.EditedBy,
			EditedAt:  now,
		}
		err := h.marks.Upsert(ctx, mark)
		metrics.ObserveMarkWrite(err)
		if err != nil {
			err = wrapRepo("BulkSetMarks", err)
			result.Failed++
		} else {
			result.Applied++
			h.deps.publish(shared.NewMarkRecordedEvent(mark.SessionID, mark.StudentID, string(mark.Status), mark.EditedBy))
		}
		result.Results = append(result.Results, attendance.NewStudentResult(s.StudentID, err))
	}

	h.deps.Logger.Info("bulk marks applied",
		logger.SessionID(session.ID),
		logger.String("status", string(status)),
		logger.Int("applied", result.Applied),
		logger.Int("failed", result.Failed),
	)
	return result, nil
}
