// Package scheduler runs the engine's periodic maintenance jobs on cron
// schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/attendance-hub/attendance-engine/internal/infrastructure/metrics"
	"github.com/attendance-hub/attendance-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job is a unit of scheduled work.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job. The context carries the per-run timeout and is
	// cancelled when the scheduler stops.
	Run(ctx context.Context) error
}

// JobResult describes one execution.
type JobResult struct {
	JobName   string
	StartedAt time.Time
	Duration  time.Duration
	Error     error
}

// Success reports whether the run finished without error.
func (r JobResult) Success() bool { return r.Error == nil }

// JobInfo is a snapshot of a registered job.
type JobInfo struct {
	Name     string
	Spec     string
	NextRun  time.Time
	LastRun  *JobResult
	RunCount int64
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrNilJob                  = errors.New("scheduler: job is nil")
	ErrJobAlreadyExists        = errors.New("scheduler: job already registered")
	ErrJobNotFound             = errors.New("scheduler: job not found")
	ErrInvalidSpec             = errors.New("scheduler: invalid cron spec")
	ErrSchedulerAlreadyRunning = errors.New("scheduler: already running")
	ErrSchedulerNotRunning     = errors.New("scheduler: not running")
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Config configures a Scheduler.
type Config struct {
	// Timezone schedules are evaluated in (default UTC).
	Timezone *time.Location

	// JobTimeout bounds a single run (default 5m).
	JobTimeout time.Duration

	Logger *logger.Logger
}

// Scheduler wraps a cron runner. Overlapping runs of the same job are
// skipped and panics are recovered by the cron chain.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *logger.Logger

	mu      sync.RWMutex
	jobs    map[string]*scheduledJob
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

type scheduledJob struct {
	job      Job
	spec     string
	entryID  cron.EntryID
	lastRun  *JobResult
	runCount int64
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	log := cfg.Logger.With(logger.Component("scheduler"))
	cronLog := cron.PrintfLogger(log)

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Timezone),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		timeout: cfg.JobTimeout,
		logger:  log,
		jobs:    make(map[string]*scheduledJob),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register schedules job on a standard 5-field cron spec.
func (s *Scheduler) Register(spec string, job Job) error {
	if job == nil {
		return ErrNilJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	sj := &scheduledJob{job: job, spec: spec}
	id, err := s.cron.AddFunc(spec, func() { s.run(s.ctx, sj) })
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidSpec, spec, err)
	}
	sj.entryID = id
	s.jobs[name] = sj

	s.logger.Info("job registered", logger.String("job", name), logger.String("spec", spec))
	return nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSchedulerAlreadyRunning
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("scheduler started", logger.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels in-flight runs and waits for them until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow executes a registered job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) (JobResult, error) {
	s.mu.RLock()
	sj, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return JobResult{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.run(ctx, sj), nil
}

// Jobs lists registered jobs ordered by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for name, sj := range s.jobs {
		info := JobInfo{
			Name:     name,
			Spec:     sj.spec,
			NextRun:  s.cron.Entry(sj.entryID).Next,
			RunCount: sj.runCount,
		}
		if sj.lastRun != nil {
			last := *sj.lastRun
			info.LastRun = &last
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) run(parent context.Context, sj *scheduledJob) JobResult {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	name := sj.job.Name()
	start := time.Now()
	err := sj.job.Run(ctx)
	result := JobResult{JobName: name, StartedAt: start, Duration: time.Since(start), Error: err}

	status := "success"
	if err != nil {
		status = "error"
		s.logger.Error("job failed", logger.String("job", name), logger.Latency(result.Duration), logger.Err(err))
	} else {
		s.logger.Info("job completed", logger.String("job", name), logger.Latency(result.Duration))
	}
	metrics.JobRuns.WithLabelValues(name, status).Inc()

	s.mu.Lock()
	sj.lastRun = &result
	sj.runCount++
	s.mu.Unlock()

	return result
}
