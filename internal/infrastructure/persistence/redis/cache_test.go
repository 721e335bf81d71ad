package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendance-hub/attendance-engine/internal/domain/leaderboard"
	"github.com/attendance-hub/attendance-engine/internal/domain/timetable"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, "test:"), mr
}

func TestCache_SetGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		N int `json:"n"`
	}
	require.NoError(t, c.Set(ctx, "k", payload{N: 7}, time.Minute))
	assert.True(t, mr.Exists("test:k"))

	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, 7, got.N)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestCache_Validation(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.Set(ctx, "", 1, 0), ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, 0), ErrCacheNilValue)
	assert.ErrorIs(t, c.Set(ctx, "k", 1, -time.Second), ErrCacheInvalidTTL)

	_, err := c.DeleteByPattern(ctx, "")
	assert.ErrorIs(t, err, ErrCacheKeyEmpty)
}

func TestCache_DeleteByPattern(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for _, k := range []string{"a:1", "a:2", "b:1"} {
		require.NoError(t, c.Set(ctx, k, k, 0))
	}
	n, err := c.DeleteByPattern(ctx, "a:*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists("test:a:1"))
	assert.True(t, mr.Exists("test:b:1"))
}

func TestLeaderboardCache_RoundTripAndInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	lc := NewLeaderboardCache(c)
	ctx := context.Background()

	math := leaderboard.Key{ClassID: "C", SubjectID: "math", LectureType: timetable.LectureTheory}
	all := leaderboard.Key{ClassID: "C"}
	other := leaderboard.Key{ClassID: "CX"}

	miss, err := lc.Get(ctx, math)
	require.NoError(t, err)
	assert.Nil(t, miss)

	board := &leaderboard.Board{
		ClassID:     "C",
		SubjectID:   "math",
		LectureType: timetable.LectureTheory,
		Entries: []leaderboard.Entry{
			{Rank: 1, StudentID: "a", StudentName: "Alice", Attended: 2, Total: 2, Percentage: 100},
		},
		GeneratedAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, lc.Set(ctx, math, board, time.Minute))
	require.NoError(t, lc.Set(ctx, all, &leaderboard.Board{ClassID: "C"}, time.Minute))
	require.NoError(t, lc.Set(ctx, other, &leaderboard.Board{ClassID: "CX"}, time.Minute))

	got, err := lc.Get(ctx, math)
	require.NoError(t, err)
	assert.Equal(t, board, got)

	require.NoError(t, lc.InvalidateClass(ctx, "C"))

	for _, k := range []leaderboard.Key{math, all} {
		b, err := lc.Get(ctx, k)
		require.NoError(t, err)
		assert.Nil(t, b, k.String())
	}
	kept, err := lc.Get(ctx, other)
	require.NoError(t, err)
	assert.NotNil(t, kept, "a class whose id shares a prefix is untouched")
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `a\*b\?\[c\]`, escapeGlob("a*b?[c]"))
}
