// Package eventhandler contains reactions to domain events.
// Handlers are the side-effect half of the system: they keep derived state
// such as cached leaderboards in step with the write side.
package eventhandler

import (
	"context"
	"time"

	"github.com/attendance-hub/attendance-engine/internal/domain/leaderboard"
	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON SESSION CHANGED HANDLER
// A lock adds a session to every aggregate and a delete removes one, so both
// make the class's cached boards stale.
// ═══════════════════════════════════════════════════════════════════════════

// OnSessionChangedHandler drops cached leaderboards of the affected class.
type OnSessionChangedHandler struct {
	cache   leaderboard.Cache
	timeout time.Duration
	logger  *logger.Logger
}

// NewOnSessionChangedHandler creates the handler. A nil cache makes it a no-op.
func NewOnSessionChangedHandler(cache leaderboard.Cache, log *logger.Logger) *OnSessionChangedHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnSessionChangedHandler{
		cache:   cache,
		timeout: 5 * time.Second,
		logger:  log.With(logger.Component("on_session_changed")),
	}
}

// EventTypes returns the events this handler reacts to.
func (h *OnSessionChangedHandler) EventTypes() []shared.EventType {
	return []shared.EventType{shared.EventSessionLocked, shared.EventSessionDeleted}
}

// Register subscribes the handler to its events.
func (h *OnSessionChangedHandler) Register(bus shared.EventSubscriber) error {
	for _, et := range h.EventTypes() {
		if err := bus.Subscribe(et, h.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle implements shared.EventHandler. The class is read from the payload
// so events relayed from other instances invalidate too.
func (h *OnSessionChangedHandler) Handle(event shared.Event) error {
	classID, _ := event.Payload()["class_id"].(string)
	if classID == "" {
		h.logger.Warn("event without class_id", logger.String("event_type", string(event.EventType())))
		return nil
	}
	if h.cache == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := h.cache.InvalidateClass(ctx, classID); err != nil {
		h.logger.Error("leaderboard invalidation failed",
			logger.ClassID(classID),
			logger.SessionID(event.AggregateID()),
			logger.Err(err),
		)
		return shared.WrapError("eventhandler", "InvalidateClass", shared.ErrServiceUnavailable,
			"leaderboard cache unavailable", err)
	}

	h.logger.Debug("leaderboards invalidated",
		logger.ClassID(classID),
		logger.String("event_type", string(event.EventType())),
	)
	return nil
}
