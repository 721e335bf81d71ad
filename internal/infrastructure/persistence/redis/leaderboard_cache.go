package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/attendance-hub/attendance-engine/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

const leaderboardPrefix = "leaderboard:"

// LeaderboardCache implements leaderboard.Cache. Boards live under
// leaderboard:<class>:<subject>:<type> so one class can be dropped by pattern.
type LeaderboardCache struct {
	cache *Cache
}

var _ leaderboard.Cache = (*LeaderboardCache)(nil)

// NewLeaderboardCache creates a leaderboard cache over cache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

// Get returns the cached board, or nil when absent.
func (l *LeaderboardCache) Get(ctx context.Context, key leaderboard.Key) (*leaderboard.Board, error) {
	var board leaderboard.Board
	err := l.cache.Get(ctx, boardKey(key), &board)
	if errors.Is(err, ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &board, nil
}

// Set stores board for ttl.
func (l *LeaderboardCache) Set(ctx context.Context, key leaderboard.Key, board *leaderboard.Board, ttl time.Duration) error {
	return l.cache.Set(ctx, boardKey(key), board, ttl)
}

// InvalidateClass drops every board of the class.
func (l *LeaderboardCache) InvalidateClass(ctx context.Context, classID string) error {
	_, err := l.cache.DeleteByPattern(ctx, leaderboardPrefix+escapeGlob(classID)+":*")
	return err
}

func boardKey(key leaderboard.Key) string {
	return leaderboardPrefix + key.String()
}

// escapeGlob quotes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}
