// Package metrics declares the engine's Prometheus collectors.
// Collectors register on the default registry at init time; the worker
// exposes them through promhttp.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
)

const namespace = "attendance"

// Mark write outcomes.
const (
	OutcomeApplied     = "applied"
	OutcomeLocked      = "locked"
	OutcomeNotEnrolled = "not_enrolled"
	OutcomeNotFound    = "not_found"
	OutcomeInvalid     = "invalid"
	OutcomeError       = "error"
)

var (
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_created_total",
		Help:      "Sessions materialized from timetable slots",
	})

	SessionsLocked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_locked_total",
		Help:      "Sessions transitioned to LOCKED",
	})

	MarkWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mark_writes_total",
		Help:      "Mark write attempts by outcome",
	}, []string{"outcome"})

	SlotConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "slot_conflicts_total",
		Help:      "Slot saves rejected by the conflict checker",
	})

	LeaderboardCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "leaderboard_cache_total",
		Help:      "Leaderboard cache lookups by result",
	}, []string{"result"})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_duration_seconds",
		Help:      "Duration of read-side computations",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"query"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Domain events published by type and origin",
	}, []string{"event_type", "origin"})

	EventHandlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_handler_duration_seconds",
		Help:      "Event handler execution time by type and status",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event_type", "status"})

	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Scheduled job executions by job and status",
	}, []string{"job", "status"})
)

// MarkOutcome maps a mark write error onto an outcome label.
func MarkOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeApplied
	case shared.IsSessionLocked(err):
		return OutcomeLocked
	case shared.IsNotEnrolled(err):
		return OutcomeNotEnrolled
	case shared.IsNotFound(err):
		return OutcomeNotFound
	case shared.IsValidation(err), errors.Is(err, shared.ErrValidation):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

// ObserveMarkWrite counts one mark write.
func ObserveMarkWrite(err error) {
	MarkWrites.WithLabelValues(MarkOutcome(err)).Inc()
}

// ObserveCache counts a leaderboard cache lookup.
func ObserveCache(hit bool) {
	if hit {
		LeaderboardCache.WithLabelValues("hit").Inc()
		return
	}
	LeaderboardCache.WithLabelValues("miss").Inc()
}

// Timer starts a duration observation for query; call the result when done.
func Timer(query string) func() {
	t := prometheus.NewTimer(QueryDuration.WithLabelValues(query))
	return func() { t.ObserveDuration() }
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
