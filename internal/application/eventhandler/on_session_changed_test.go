package eventhandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendance-hub/attendance-engine/internal/domain/leaderboard"
	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
)

type spyCache struct {
	invalidated []string
	err         error
}

func (c *spyCache) Get(context.Context, leaderboard.Key) (*leaderboard.Board, error) { return nil, nil }

func (c *spyCache) Set(context.Context, leaderboard.Key, *leaderboard.Board, time.Duration) error {
	return nil
}

func (c *spyCache) InvalidateClass(_ context.Context, classID string) error {
	c.invalidated = append(c.invalidated, classID)
	return c.err
}

type spyBus struct {
	handlers map[shared.EventType]shared.EventHandler
}

func (b *spyBus) Subscribe(et shared.EventType, h shared.EventHandler) error {
	if b.handlers == nil {
		b.handlers = make(map[shared.EventType]shared.EventHandler)
	}
	b.handlers[et] = h
	return nil
}

func TestOnSessionChanged_InvalidatesClass(t *testing.T) {
	cache := &spyCache{}
	h := NewOnSessionChangedHandler(cache, nil)
	bus := &spyBus{}
	require.NoError(t, h.Register(bus))
	assert.Len(t, bus.handlers, 2)

	ev := shared.NewSessionEvent(shared.EventSessionLocked, "s1", "slot", "C", "math", "", time.Now())
	require.NoError(t, bus.handlers[shared.EventSessionLocked](ev))
	assert.Equal(t, []string{"C"}, cache.invalidated)
}

func TestOnSessionChanged_IgnoresForeignPayloads(t *testing.T) {
	cache := &spyCache{}
	h := NewOnSessionChangedHandler(cache, nil)

	err := h.Handle(shared.NewMarkRecordedEvent("s1", "a", "present", "f"))
	assert.NoError(t, err)
	assert.Empty(t, cache.invalidated)
}

func TestOnSessionChanged_PropagatesCacheErrors(t *testing.T) {
	cache := &spyCache{err: errors.New("redis down")}
	h := NewOnSessionChangedHandler(cache, nil)

	ev := shared.NewSessionEvent(shared.EventSessionDeleted, "s1", "slot", "C", "math", "", time.Now())
	assert.Error(t, h.Handle(ev))
}

func TestOnSessionChanged_NilCache(t *testing.T) {
	h := NewOnSessionChangedHandler(nil, nil)
	ev := shared.NewSessionEvent(shared.EventSessionLocked, "s1", "slot", "C", "math", "", time.Now())
	assert.NoError(t, h.Handle(ev))
}
