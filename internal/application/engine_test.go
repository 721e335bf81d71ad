package application

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendance-hub/attendance-engine/internal/application/command"
	"github.com/attendance-hub/attendance-engine/internal/domain/achievement"
	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/domain/leaderboard"
	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/internal/infrastructure/messaging"
	"github.com/attendance-hub/attendance-engine/internal/infrastructure/persistence/memory"
	"github.com/attendance-hub/attendance-engine/pkg/logger"
	"github.com/attendance-hub/attendance-engine/pkg/timeutil"
)

type boardCache struct {
	mu     sync.Mutex
	boards map[string]*leaderboard.Board
}

func (c *boardCache) Get(_ context.Context, key leaderboard.Key) (*leaderboard.Board, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boards[key.String()], nil
}

func (c *boardCache) Set(_ context.Context, key leaderboard.Key, b *leaderboard.Board, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boards[key.String()] = b
	return nil
}

func (c *boardCache) InvalidateClass(_ context.Context, classID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, b := range c.boards {
		if b.ClassID == classID {
			delete(c.boards, k)
		}
	}
	return nil
}

func (c *boardCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.boards)
}

// 2024-01-08 is a Monday.
var monday = time.Date(2024, time.January, 8, 9, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *boardCache) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	for _, e := range []attendance.Enrollment{
		{StudentID: "a", StudentName: "Alice", ClassID: "C", BatchID: "B1"},
		{StudentID: "b", StudentName: "Bob", ClassID: "C", BatchID: "B2"},
		{StudentID: "c", StudentName: "Cara", ClassID: "C", BatchID: "B1"},
	} {
		require.NoError(t, store.Enrollments().Upsert(ctx, e))
	}
	def, err := achievement.NewDefinition("regular", "Regular", "", achievement.RawCriteria{
		Type:  string(achievement.TypeMinOverall),
		Value: func(v int) *int { return &v }(75),
	})
	require.NoError(t, err)
	require.NoError(t, store.Achievements().Upsert(ctx, def))

	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{})
	t.Cleanup(func() { _ = bus.Close() })

	cache := &boardCache{boards: make(map[string]*leaderboard.Board)}
	engine, err := NewEngine(Repositories{
		Slots:        store.Slots(),
		Sessions:     store.Sessions(),
		Marks:        store.Marks(),
		Enrollments:  store.Enrollments(),
		History:      store.History(),
		Achievements: store.Achievements(),
	}, Options{
		Cache: cache,
		Bus:   bus,
		Clock: timeutil.FixedClock(monday),
	})
	require.NoError(t, err)
	return engine, cache
}

func TestEngine_DayLifecycle(t *testing.T) {
	engine, cache := newTestEngine(t)
	ctx := context.Background()
	today := engine.Today()

	slot, err := engine.SaveSlot(ctx, command.SaveSlotCommand{
		Day: 1, StartTime: "10:00", EndTime: "11:00", ClassID: "C", SubjectID: "math", FacultyID: "f1",
	})
	require.NoError(t, err)

	created, err := engine.MaterializeDay(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	again, err := engine.MaterializeDay(ctx, today)
	require.NoError(t, err)
	assert.Zero(t, again)

	sessionID, err := engine.CreateOrGetSession(ctx, slot.Slot.ID, today)
	require.NoError(t, err)

	require.NoError(t, engine.SetMark(ctx, sessionID, "a", attendance.Present, "f1"))
	require.NoError(t, engine.SetMark(ctx, sessionID, "b", attendance.Absent, "f1"))

	// Open sessions do not count yet.
	before, err := engine.GetAttendance(ctx, "a", "math", "")
	require.NoError(t, err)
	assert.Equal(t, attendance.Tally{}, before)

	stale, err := engine.GetLeaderboard(ctx, "C", "math", "")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.len())

	require.NoError(t, engine.LockSession(ctx, sessionID))
	assert.Zero(t, cache.len(), "lock invalidates the class's boards")

	err = engine.SetMark(ctx, sessionID, "c", attendance.Present, "f1")
	assert.True(t, shared.IsSessionLocked(err))

	tally, err := engine.GetAttendance(ctx, "a", "math", "")
	require.NoError(t, err)
	assert.Equal(t, attendance.NewTally(1, 1), tally)

	board, err := engine.GetLeaderboard(ctx, "C", "math", "")
	require.NoError(t, err)
	assert.NotSame(t, stale, board)
	require.Len(t, board.Entries, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{
		board.Entries[0].StudentID, board.Entries[1].StudentID, board.Entries[2].StudentID,
	})
	assert.Equal(t, leaderboard.Rank(3), board.Entries[2].Rank)

	statuses, err := engine.GetAchievementStatus(ctx, "a")
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Unlocked)

	defaulters, err := engine.GetDefaulters(ctx, "C", "math", 0)
	require.NoError(t, err)
	assert.Equal(t, 75, defaulters.Threshold)
	require.Len(t, defaulters.Defaulters, 2)
	assert.Equal(t, "b", defaulters.Defaulters[0].StudentID)
	assert.Equal(t, "c", defaulters.Defaulters[1].StudentID)

	err = engine.DeleteSlot(ctx, slot.Slot.ID)
	assert.ErrorIs(t, err, shared.ErrSlotInUse)
}

func TestEngine_SundayHasNoSessions(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	sunday := timeutil.Date(2024, time.January, 7)

	created, err := engine.MaterializeDay(ctx, sunday)
	require.NoError(t, err)
	assert.Zero(t, created)

	classes, err := engine.ClassesOnDay(ctx, sunday)
	require.NoError(t, err)
	assert.Empty(t, classes)
}

func TestEngine_ClassesOnDay(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	for _, cmd := range []command.SaveSlotCommand{
		{Day: 1, StartTime: "10:00", EndTime: "11:00", ClassID: "C", SubjectID: "math"},
		{Day: 1, StartTime: "11:00", EndTime: "12:00", ClassID: "C", SubjectID: "physics"},
		{Day: 1, StartTime: "10:00", EndTime: "11:00", ClassID: "D", SubjectID: "math"},
	} {
		_, err := engine.SaveSlot(ctx, cmd)
		require.NoError(t, err)
	}

	classes, err := engine.ClassesOnDay(ctx, engine.Today())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"C", "D"}, classes)
}

func TestNewEngine_WarnsWhenCacheCannotBeInvalidated(t *testing.T) {
	store := memory.NewStore()
	repos := Repositories{
		Slots:        store.Slots(),
		Sessions:     store.Sessions(),
		Marks:        store.Marks(),
		Enrollments:  store.Enrollments(),
		History:      store.History(),
		Achievements: store.Achievements(),
	}

	var buf bytes.Buffer
	log := logger.New(logger.Options{Output: &buf, Level: logger.LevelDebug})
	_, err := NewEngine(repos, Options{
		Cache:          &boardCache{boards: make(map[string]*leaderboard.Board)},
		LeaderboardTTL: time.Minute,
		Logger:         log,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "leaderboard cache has no event bus")

	buf.Reset()
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{})
	t.Cleanup(func() { _ = bus.Close() })
	_, err = NewEngine(repos, Options{
		Cache:  &boardCache{boards: make(map[string]*leaderboard.Board)},
		Bus:    bus,
		Logger: log,
	})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "leaderboard cache has no event bus")
}
