package query

import (
	"context"

	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/pkg/validate"
)

// GetSessionRosterQuery names a session.
type GetSessionRosterQuery struct {
	SessionID string `json:"session_id" validate:"required"`
}

// GetSessionRosterResult is the mark sheet of one session.
type GetSessionRosterResult struct {
	Session  attendance.Session       `json:"session"`
	State    attendance.State         `json:"state"`
	Entries  []attendance.RosterEntry `json:"entries"`
	Present  int                      `json:"present"`
	Absent   int                      `json:"absent"`
	Unmarked int                      `json:"unmarked"`
}

// GetSessionRosterHandler handles GetSessionRosterQuery.
type GetSessionRosterHandler struct {
	sessions    attendance.SessionRepository
	marks       attendance.MarkRepository
	enrollments attendance.EnrollmentRepository
}

// NewGetSessionRosterHandler creates a new handler.
func NewGetSessionRosterHandler(
	sessions attendance.SessionRepository,
	marks attendance.MarkRepository,
	enrollments attendance.EnrollmentRepository,
) *GetSessionRosterHandler {
	return &GetSessionRosterHandler{sessions: sessions, marks: marks, enrollments: enrollments}
}

// Handle lists every student in the session's scope with their status.
func (h *GetSessionRosterHandler) Handle(ctx context.Context, q GetSessionRosterQuery) (*GetSessionRosterResult, error) {
	if err := validate.Struct("query", "GetSessionRoster", q); err != nil {
		return nil, err
	}

	session, err := h.sessions.Get(ctx, q.SessionID)
	if err != nil {
		return nil, wrapRepo("GetSessionRoster", err)
	}
	students, err := h.enrollments.ListByScope(ctx, session.Scope())
	if err != nil {
		return nil, wrapRepo("GetSessionRoster", err)
	}
	marks, err := h.marks.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, wrapRepo("GetSessionRoster", err)
	}

	result := &GetSessionRosterResult{
		Session: *session,
		State:   session.State(),
		Entries: attendance.BuildRoster(students, marks),
	}
	for _, e := range result.Entries {
		switch e.Status {
		case attendance.Present:
			result.Present++
		case attendance.Absent:
			result.Absent++
		default:
			result.Unmarked++
		}
	}
	return result, nil
}
