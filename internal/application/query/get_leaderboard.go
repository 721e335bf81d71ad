package query

import (
	"context"
	"time"

	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/domain/leaderboard"
	"github.com/attendance-hub/attendance-engine/internal/domain/timetable"
	"github.com/attendance-hub/attendance-engine/internal/infrastructure/metrics"
	"github.com/attendance-hub/attendance-engine/pkg/logger"
	"github.com/attendance-hub/attendance-engine/pkg/validate"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Ranks a class by attendance percentage. Practical boards rank each batch
// separately; theory and combined boards rank the whole class together.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultLeaderboardTTL bounds how long a cached board is served.
const DefaultLeaderboardTTL = 5 * time.Minute

// GetLeaderboardQuery contains the board parameters.
type GetLeaderboardQuery struct {
	ClassID string `json:"class_id" validate:"required"`

	// SubjectID narrows to one subject (empty = all subjects).
	SubjectID string `json:"subject_id"`

	// LectureType is theory, practical or both (empty = both).
	LectureType string `json:"lecture_type" validate:"lecture_type"`

	// Limit truncates each ranked section (0 = everyone).
	Limit int `json:"limit" validate:"min=0"`
}

// GetLeaderboardHandler handles GetLeaderboardQuery.
type GetLeaderboardHandler struct {
	reader ClassReader
	cache  leaderboard.Cache
	ttl    time.Duration
	deps   Deps
}

// NewGetLeaderboardHandler creates a new handler. cache may be nil.
func NewGetLeaderboardHandler(reader ClassReader, cache leaderboard.Cache, ttl time.Duration, deps Deps) *GetLeaderboardHandler {
	if ttl <= 0 {
		ttl = DefaultLeaderboardTTL
	}
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.With(logger.Component("get_leaderboard"))
	return &GetLeaderboardHandler{reader: reader, cache: cache, ttl: ttl, deps: deps}
}

// Handle returns the board, serving from cache when possible.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*leaderboard.Board, error) {
	if err := validate.Struct("query", "GetLeaderboard", q); err != nil {
		return nil, err
	}
	lt, err := timetable.ParseLectureType(q.LectureType)
	if err != nil {
		return nil, err
	}
	key := leaderboard.Key{ClassID: q.ClassID, SubjectID: q.SubjectID, LectureType: lt}

	board, err := h.load(ctx, key)
	if err != nil {
		return nil, err
	}
	return truncate(board, q.Limit), nil
}

// Refresh recomputes the board and overwrites the cached copy.
func (h *GetLeaderboardHandler) Refresh(ctx context.Context, key leaderboard.Key) (*leaderboard.Board, error) {
	board, err := h.compute(ctx, key)
	if err != nil {
		return nil, err
	}
	h.store(ctx, key, board)
	return board, nil
}

func (h *GetLeaderboardHandler) load(ctx context.Context, key leaderboard.Key) (*leaderboard.Board, error) {
	if h.cache != nil {
		cached, err := h.cache.Get(ctx, key)
		if err != nil {
			h.deps.Logger.Debug("leaderboard cache read failed", logger.String("key", key.String()), logger.Err(err))
		}
		metrics.ObserveCache(cached != nil)
		if cached != nil {
			return cached, nil
		}
	}

	board, err := h.compute(ctx, key)
	if err != nil {
		return nil, err
	}
	h.store(ctx, key, board)
	return board, nil
}

func (h *GetLeaderboardHandler) compute(ctx context.Context, key leaderboard.Key) (*leaderboard.Board, error) {
	defer metrics.Timer("get_leaderboard")()

	filter := attendance.Filter{SubjectID: key.SubjectID, LectureType: key.LectureType}
	students, tallies, err := h.reader.Tallies(ctx, key.ClassID, filter)
	if err != nil {
		return nil, wrapRepo("GetLeaderboard", err)
	}
	return leaderboard.Build(key, students, tallies, h.deps.Clock.Now()), nil
}

func (h *GetLeaderboardHandler) store(ctx context.Context, key leaderboard.Key, board *leaderboard.Board) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Set(ctx, key, board, h.ttl); err != nil {
		h.deps.Logger.Warn("leaderboard cache write failed", logger.String("key", key.String()), logger.Err(err))
	}
}

func truncate(b *leaderboard.Board, limit int) *leaderboard.Board {
	if limit <= 0 {
		return b
	}
	out := *b
	if len(out.Entries) > limit {
		out.Entries = out.Entries[:limit]
	}
	if len(out.Batches) > 0 {
		out.Batches = make([]leaderboard.BatchBoard, len(b.Batches))
		for i, batch := range b.Batches {
			if len(batch.Entries) > limit {
				batch.Entries = batch.Entries[:limit]
			}
			out.Batches[i] = batch
		}
	}
	return &out
}
