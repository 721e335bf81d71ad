package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendance-hub/attendance-engine/internal/domain/leaderboard"
)

type fakeEngine struct {
	today     time.Time
	created   int
	classes   []string
	failClass string
	refreshed []leaderboard.Key
	dates     []time.Time
}

func (f *fakeEngine) Today() time.Time { return f.today }

func (f *fakeEngine) MaterializeDay(_ context.Context, date time.Time) (int, error) {
	f.dates = append(f.dates, date)
	return f.created, nil
}

func (f *fakeEngine) ClassesOnDay(_ context.Context, date time.Time) ([]string, error) {
	f.dates = append(f.dates, date)
	return f.classes, nil
}

func (f *fakeEngine) RefreshLeaderboard(_ context.Context, key leaderboard.Key) (*leaderboard.Board, error) {
	f.refreshed = append(f.refreshed, key)
	if key.ClassID == f.failClass {
		return nil, errors.New("store down")
	}
	return &leaderboard.Board{ClassID: key.ClassID}, nil
}

var monday = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

func TestMaterializeSessionsJob(t *testing.T) {
	eng := &fakeEngine{today: monday, created: 3}
	job := NewMaterializeSessionsJob(eng, nil)

	assert.Equal(t, "materialize_sessions", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []time.Time{monday}, eng.dates)
}

func TestWarmLeaderboardsJob(t *testing.T) {
	eng := &fakeEngine{today: monday, classes: []string{"C", "D", "E"}, failClass: "D"}
	job := NewWarmLeaderboardsJob(eng, nil)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store down")
	assert.Equal(t, []leaderboard.Key{{ClassID: "C"}, {ClassID: "D"}, {ClassID: "E"}}, eng.refreshed)

	eng.failClass = ""
	eng.refreshed = nil
	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, eng.refreshed, 3)
}
