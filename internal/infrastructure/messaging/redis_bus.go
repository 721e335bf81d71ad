package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// DefaultChannel is the Pub/Sub channel events travel on.
const DefaultChannel = "attendance:events"

// PubSubClient is the subset of go-redis the bus needs.
type PubSubClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RedisEventBus publishes locally and to a Redis channel; events from other
// instances are replayed to local handlers.
type RedisEventBus struct {
	client     PubSubClient
	pubsub     *redis.PubSub
	local      *InMemoryEventBus
	channel    string
	instanceID string
	logger     *logger.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.RWMutex
	closed     bool
}

// RedisEventBusConfig contains configuration for RedisEventBus.
type RedisEventBusConfig struct {
	Client PubSubClient

	// Channel defaults to DefaultChannel.
	Channel string

	// InstanceID filters out this instance's own events; generated when empty.
	InstanceID string

	Local  InMemoryEventBusConfig
	Logger *logger.Logger
}

// NewRedisEventBus subscribes to the channel and starts the receive loop.
func NewRedisEventBus(ctx context.Context, config RedisEventBusConfig) (*RedisEventBus, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Channel == "" {
		config.Channel = DefaultChannel
	}
	if config.InstanceID == "" {
		config.InstanceID = uuid.NewString()
	}
	bus := newRedisEventBus(config)

	bus.pubsub = config.Client.Subscribe(bus.ctx, config.Channel)
	if _, err := bus.pubsub.Receive(ctx); err != nil {
		bus.cancel()
		_ = bus.pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", config.Channel, err)
	}

	bus.wg.Add(1)
	go bus.receiveLoop(bus.pubsub.Channel())

	return bus, nil
}

func newRedisEventBus(config RedisEventBusConfig) *RedisEventBus {
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.Local.Logger == nil {
		config.Local.Logger = config.Logger
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:     config.Client,
		local:      NewInMemoryEventBus(config.Local),
		channel:    config.Channel,
		instanceID: config.InstanceID,
		logger:     config.Logger.With(logger.Component("redis_event_bus")),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Subscribe registers a handler for a specific event type.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.local.Subscribe(eventType, handler)
}

// SubscribeAll registers a handler for every event.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.local.SubscribeAll(handler)
}

// Publish delivers locally and broadcasts to other instances. A Redis
// failure is logged; local delivery still happens.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrEventBusClosed
	}

	data, err := json.Marshal(eventEnvelope{
		InstanceID:  b.instanceID,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(b.ctx, 2*time.Second)
	defer cancel()
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Error("redis publish failed",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
	}

	return b.local.Publish(event)
}

func (b *RedisEventBus) receiveLoop(messages <-chan *redis.Message) {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			b.handleMessage(msg.Payload)
		}
	}
}

// handleMessage replays a remote event to local handlers.
func (b *RedisEventBus) handleMessage(payload string) {
	var env eventEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn("dropping malformed event", logger.Err(err))
		return
	}
	if env.InstanceID == b.instanceID {
		return
	}

	event := &remoteEvent{
		eventType:   env.EventType,
		aggregateID: env.AggregateID,
		occurredAt:  env.OccurredAt,
		payload:     env.Payload,
	}
	if err := b.local.publish(event, "remote"); err != nil {
		b.logger.Error("remote event delivery failed", logger.Err(err))
	}
}

// Close unsubscribes and drains local handlers.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	var err error
	if b.pubsub != nil {
		err = b.pubsub.Close()
	}
	b.wg.Wait()

	if lerr := b.local.Close(); lerr != nil && err == nil {
		err = lerr
	}
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

type eventEnvelope struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// remoteEvent is an event rebuilt from another instance's envelope.
type remoteEvent struct {
	eventType   shared.EventType
	aggregateID string
	occurredAt  time.Time
	payload     map[string]interface{}
}

func (e *remoteEvent) EventType() shared.EventType     { return e.eventType }
func (e *remoteEvent) AggregateID() string             { return e.aggregateID }
func (e *remoteEvent) OccurredAt() time.Time           { return e.occurredAt }
func (e *remoteEvent) Payload() map[string]interface{} { return e.payload }
