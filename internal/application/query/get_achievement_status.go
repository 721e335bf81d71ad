package query

import (
	"context"

	"github.com/attendance-hub/attendance-engine/internal/domain/achievement"
	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/infrastructure/metrics"
	"github.com/attendance-hub/attendance-engine/pkg/logger"
	"github.com/attendance-hub/attendance-engine/pkg/timeutil"
	"github.com/attendance-hub/attendance-engine/pkg/validate"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACHIEVEMENT STATUS QUERY
// Unlock states are derived on every call from the student's locked history;
// nothing is persisted, so a late lock can only ever change the answer forward.
// ══════════════════════════════════════════════════════════════════════════════

// GetAchievementStatusQuery names the student.
type GetAchievementStatusQuery struct {
	StudentID string `json:"student_id" validate:"required"`
}

// GetAchievementStatusResult lists every definition with its unlock state.
type GetAchievementStatusResult struct {
	StudentID    string               `json:"student_id"`
	Achievements []achievement.Status `json:"achievements"`
	Unlocked     int                  `json:"unlocked"`
}

// GetAchievementStatusHandler handles GetAchievementStatusQuery.
type GetAchievementStatusHandler struct {
	enrollments  attendance.EnrollmentRepository
	history      attendance.HistoryRepository
	achievements achievement.Repository
	deps         Deps
}

// NewGetAchievementStatusHandler creates a new handler.
func NewGetAchievementStatusHandler(
	enrollments attendance.EnrollmentRepository,
	history attendance.HistoryRepository,
	achievements achievement.Repository,
	deps Deps,
) *GetAchievementStatusHandler {
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.With(logger.Component("achievement_status"))
	return &GetAchievementStatusHandler{
		enrollments:  enrollments,
		history:      history,
		achievements: achievements,
		deps:         deps,
	}
}

// Handle evaluates every definition for the student.
func (h *GetAchievementStatusHandler) Handle(ctx context.Context, q GetAchievementStatusQuery) (*GetAchievementStatusResult, error) {
	defer metrics.Timer("get_achievement_status")()

	if err := validate.Struct("query", "GetAchievementStatus", q); err != nil {
		return nil, err
	}

	student, err := h.enrollments.FindByStudent(ctx, q.StudentID)
	if err != nil {
		return nil, wrapRepo("GetAchievementStatus", err)
	}

	records, err := h.history.StudentRecords(ctx, *student)
	if err != nil {
		return nil, wrapRepo("GetAchievementStatus", err)
	}

	defs, err := h.achievements.List(ctx)
	if err != nil {
		return nil, wrapRepo("GetAchievementStatus", err)
	}
	for _, d := range defs {
		if u, ok := d.Criteria.(achievement.UnknownCriteria); ok {
			h.deps.Logger.Warn("achievement has unusable criteria",
				logger.String("achievement_id", d.ID),
				logger.String("criteria_type", u.Raw.Type),
			)
		}
	}

	statuses := achievement.EvaluateAll(defs, achievement.BuildHistory(records), timeutil.Today(h.deps.Clock))

	result := &GetAchievementStatusResult{StudentID: student.StudentID, Achievements: statuses}
	for _, s := range statuses {
		if s.Unlocked {
			result.Unlocked++
		}
	}
	return result, nil
}
