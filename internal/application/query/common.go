// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"errors"

	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/pkg/logger"
	"github.com/attendance-hub/attendance-engine/pkg/timeutil"
)

// Deps bundles the collaborators shared by query handlers.
type Deps struct {
	Clock  timeutil.Clock
	Logger *logger.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = timeutil.SystemClock()
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	return d
}

func wrapRepo(op string, err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return shared.WrapError("query", op, shared.ErrServiceUnavailable, "repository failure", err)
}

// ClassReader loads everything needed to compute class-wide tallies.
type ClassReader struct {
	Enrollments attendance.EnrollmentRepository
	Sessions    attendance.SessionRepository
	Marks       attendance.MarkRepository
}

// Tallies returns the class roster and one tally per student, counting only
// locked sessions that pass filter and fall in each student's scope.
func (r ClassReader) Tallies(ctx context.Context, classID string, filter attendance.Filter) ([]attendance.Enrollment, map[string]attendance.Tally, error) {
	students, err := r.Enrollments.ListByScope(ctx, attendance.Scope{ClassID: classID})
	if err != nil {
		return nil, nil, err
	}

	sessions, err := r.Sessions.ListLocked(ctx, classID, filter)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	marks := []attendance.Mark{}
	if len(ids) > 0 {
		if marks, err = r.Marks.ListBySessions(ctx, ids); err != nil {
			return nil, nil, err
		}
	}

	return students, attendance.ClassTallies(students, sessions, marks, filter), nil
}
