package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
)

func TestMarkOutcome(t *testing.T) {
	assert.Equal(t, OutcomeApplied, MarkOutcome(nil))
	assert.Equal(t, OutcomeLocked, MarkOutcome(shared.ErrSessionIsLocked))
	assert.Equal(t, OutcomeNotEnrolled, MarkOutcome(shared.ErrStudentNotEnrolled))
	assert.Equal(t, OutcomeNotFound, MarkOutcome(shared.ErrSessionNotFound))
	assert.Equal(t, OutcomeInvalid, MarkOutcome(shared.ErrInvalidMarkStatus))
	assert.Equal(t, OutcomeError, MarkOutcome(errors.New("boom")))
}

func TestObserveMarkWrite(t *testing.T) {
	before := testutil.ToFloat64(MarkWrites.WithLabelValues(OutcomeLocked))
	ObserveMarkWrite(shared.ErrSessionIsLocked)
	assert.Equal(t, before+1, testutil.ToFloat64(MarkWrites.WithLabelValues(OutcomeLocked)))
}

func TestObserveCache(t *testing.T) {
	hits := testutil.ToFloat64(LeaderboardCache.WithLabelValues("hit"))
	misses := testutil.ToFloat64(LeaderboardCache.WithLabelValues("miss"))
	ObserveCache(true)
	ObserveCache(false)
	ObserveCache(false)
	assert.Equal(t, hits+1, testutil.ToFloat64(LeaderboardCache.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(LeaderboardCache.WithLabelValues("miss")))
}
