package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/pkg/retry"
)

func lockedEvent(classID string) shared.SessionEvent {
	return shared.NewSessionEvent(shared.EventSessionLocked, "s1", "slot", classID, "math", "", time.Now())
}

func TestInMemoryEventBus_SyncDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{})
	defer bus.Close()

	var got []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventSessionLocked, func(e shared.Event) error {
		got = append(got, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		got = append(got, "all:"+e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(lockedEvent("C")))
	require.NoError(t, bus.Publish(shared.NewMarkRecordedEvent("s1", "a", "present", "f")))

	assert.Equal(t, []shared.EventType{
		shared.EventSessionLocked,
		"all:" + shared.EventSessionLocked,
		"all:" + shared.EventMarkRecorded,
	}, got)
}

func TestInMemoryEventBus_RecoversPanics(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{})
	defer bus.Close()

	calls := 0
	require.NoError(t, bus.Subscribe(shared.EventSessionLocked, func(shared.Event) error { panic("boom") }))
	require.NoError(t, bus.Subscribe(shared.EventSessionLocked, func(shared.Event) error {
		calls++
		return nil
	}))

	assert.NoError(t, bus.Publish(lockedEvent("C")))
	assert.Equal(t, 1, calls)

	err := bus.execute(lockedEvent("C"), func(shared.Event) error { panic("boom") })
	assert.ErrorIs(t, err, ErrHandlerPanic)
}

func TestInMemoryEventBus_AsyncCloseWaits(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2})

	var n atomic.Int32
	require.NoError(t, bus.Subscribe(shared.EventSessionLocked, func(shared.Event) error {
		time.Sleep(5 * time.Millisecond)
		n.Add(1)
		return nil
	}))

	for i := 0; i < 4; i++ {
		require.NoError(t, bus.Publish(lockedEvent("C")))
	}
	require.NoError(t, bus.Close())
	assert.LessOrEqual(t, n.Load(), int32(4))

	assert.ErrorIs(t, bus.Publish(lockedEvent("C")), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventSessionLocked, func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestRedisEventBus_ReplaysRemoteEvents(t *testing.T) {
	bus := newRedisEventBus(RedisEventBusConfig{Channel: DefaultChannel, InstanceID: "me", Local: InMemoryEventBusConfig{}})
	defer bus.Close()

	var mu sync.Mutex
	var classes []string
	require.NoError(t, bus.Subscribe(shared.EventSessionLocked, func(e shared.Event) error {
		mu.Lock()
		defer mu.Unlock()
		classes = append(classes, e.Payload()["class_id"].(string))
		return nil
	}))

	envelope := func(instance, classID string) string {
		ev := lockedEvent(classID)
		b, err := json.Marshal(eventEnvelope{
			InstanceID:  instance,
			EventType:   ev.EventType(),
			AggregateID: ev.AggregateID(),
			OccurredAt:  ev.OccurredAt(),
			Payload:     ev.Payload(),
		})
		require.NoError(t, err)
		return string(b)
	}

	bus.handleMessage(envelope("other", "C"))
	bus.handleMessage(envelope("me", "D"))
	bus.handleMessage("{not json")

	assert.Equal(t, []string{"C"}, classes)
}

func TestRedisEventBus_FansOutAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	a, err := NewRedisEventBus(ctx, RedisEventBusConfig{Client: client, InstanceID: "a"})
	require.NoError(t, err)
	defer a.Close()
	b, err := NewRedisEventBus(ctx, RedisEventBusConfig{Client: client, InstanceID: "b"})
	require.NoError(t, err)
	defer b.Close()

	var localA, remoteB atomic.Int32
	require.NoError(t, a.Subscribe(shared.EventSessionLocked, func(shared.Event) error {
		localA.Add(1)
		return nil
	}))
	require.NoError(t, b.Subscribe(shared.EventSessionLocked, func(e shared.Event) error {
		if e.Payload()["class_id"] == "C" {
			remoteB.Add(1)
		}
		return nil
	}))

	require.NoError(t, a.Publish(lockedEvent("C")))

	assert.Equal(t, int32(1), localA.Load())
	assert.Eventually(t, func() bool { return remoteB.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	// a ignores its own echo.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), localA.Load())
}

func TestMiddleware_RetriesTransientFailures(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next shared.EventHandler) shared.EventHandler {
			return func(e shared.Event) error {
				order = append(order, name)
				return next(e)
			}
		}
	}

	bus := NewInMemoryEventBus(InMemoryEventBusConfig{
		Middleware: []Middleware{
			tag("outer"),
			RetryMiddleware(retry.WithMaxAttempts(3), retry.WithInitialDelay(time.Millisecond)),
		},
	})
	defer bus.Close()

	calls := 0
	require.NoError(t, bus.Subscribe(shared.EventSessionLocked, func(shared.Event) error {
		calls++
		if calls < 3 {
			return shared.WrapError("test", "op", shared.ErrServiceUnavailable, "down", errors.New("redis down"))
		}
		return nil
	}))
	require.NoError(t, bus.Publish(lockedEvent("C")))
	assert.Equal(t, 3, calls)
	assert.Equal(t, []string{"outer"}, order)

	permanent := 0
	require.NoError(t, bus.Subscribe(shared.EventSessionDeleted, func(shared.Event) error {
		permanent++
		return shared.ErrSessionNotFound
	}))
	require.NoError(t, bus.Publish(shared.NewSessionEvent(shared.EventSessionDeleted, "s1", "slot", "C", "math", "", time.Now())))
	assert.Equal(t, 1, permanent, "domain errors are not retried")
}
