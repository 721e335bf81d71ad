// Package jobs contains the engine's scheduled maintenance jobs.
package jobs

import (
	"context"
	"time"

	"github.com/attendance-hub/attendance-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MATERIALIZE SESSIONS JOB
// ══════════════════════════════════════════════════════════════════════════════

// SessionMaterializer creates the sessions of a day from the timetable.
type SessionMaterializer interface {
	Today() time.Time
	MaterializeDay(ctx context.Context, date time.Time) (int, error)
}

// MaterializeSessionsJob ensures today's sessions exist so markers find them
// ready in the morning. Re-running it is harmless.
type MaterializeSessionsJob struct {
	engine SessionMaterializer
	logger *logger.Logger
}

// NewMaterializeSessionsJob creates the job.
func NewMaterializeSessionsJob(engine SessionMaterializer, log *logger.Logger) *MaterializeSessionsJob {
	if log == nil {
		log = logger.Nop()
	}
	return &MaterializeSessionsJob{engine: engine, logger: log}
}

// Name implements scheduler.Job.
func (j *MaterializeSessionsJob) Name() string { return "materialize_sessions" }

// Run implements scheduler.Job.
func (j *MaterializeSessionsJob) Run(ctx context.Context) error {
	today := j.engine.Today()
	created, err := j.engine.MaterializeDay(ctx, today)
	if err != nil {
		return err
	}
	j.logger.Info("sessions materialized", logger.Date("date", today), logger.Int("created", created))
	return nil
}
