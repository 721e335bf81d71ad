package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/attendance-hub/attendance-engine/internal/domain/leaderboard"
	"github.com/attendance-hub/attendance-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// WARM LEADERBOARDS JOB
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRefresher recomputes boards for the classes taught on a day.
type LeaderboardRefresher interface {
	Today() time.Time
	ClassesOnDay(ctx context.Context, date time.Time) ([]string, error)
	RefreshLeaderboard(ctx context.Context, key leaderboard.Key) (*leaderboard.Board, error)
}

// WarmLeaderboardsJob recomputes the overall board of every class that has
// lectures today. A failing class does not stop the others.
type WarmLeaderboardsJob struct {
	engine LeaderboardRefresher
	logger *logger.Logger
}

// NewWarmLeaderboardsJob creates the job.
func NewWarmLeaderboardsJob(engine LeaderboardRefresher, log *logger.Logger) *WarmLeaderboardsJob {
	if log == nil {
		log = logger.Nop()
	}
	return &WarmLeaderboardsJob{engine: engine, logger: log}
}

// Name implements scheduler.Job.
func (j *WarmLeaderboardsJob) Name() string { return "warm_leaderboards" }

// Run implements scheduler.Job.
func (j *WarmLeaderboardsJob) Run(ctx context.Context) error {
	classes, err := j.engine.ClassesOnDay(ctx, j.engine.Today())
	if err != nil {
		return err
	}

	var errs []error
	for _, classID := range classes {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := j.engine.RefreshLeaderboard(ctx, leaderboard.Key{ClassID: classID}); err != nil {
			j.logger.Warn("leaderboard refresh failed", logger.ClassID(classID), logger.Err(err))
			errs = append(errs, err)
		}
	}
	j.logger.Info("leaderboards warmed", logger.Int("classes", len(classes)), logger.Int("failed", len(errs)))
	return errors.Join(errs...)
}
