// Package command contains write operations (CQRS - Commands).
// Each command is a self-contained use case with its own request/result types
// and a handler that owns the side effects: persistence, events and logging.
package command

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/pkg/logger"
	"github.com/attendance-hub/attendance-engine/pkg/timeutil"
)

// IDGenerator produces identifiers for new aggregates.
type IDGenerator func() string

// NewUUID is the default IDGenerator.
func NewUUID() string {
	return uuid.NewString()
}

// Deps bundles the collaborators shared by every command handler.
// Zero values are replaced with working defaults.
type Deps struct {
	Publisher shared.EventPublisher
	Clock     timeutil.Clock
	Logger    *logger.Logger
	NewID     IDGenerator
}

func (d Deps) withDefaults() Deps {
	if d.Publisher == nil {
		d.Publisher = shared.NopPublisher{}
	}
	if d.Clock == nil {
		d.Clock = timeutil.SystemClock()
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.NewID == nil {
		d.NewID = NewUUID
	}
	return d
}

// publish sends the event and logs delivery failures; the write already happened.
func (d Deps) publish(event shared.Event) {
	if err := d.Publisher.Publish(event); err != nil {
		d.Logger.Warn("event publish failed",
			logger.String("event_type", string(event.EventType())),
			logger.String("aggregate_id", event.AggregateID()),
			logger.Err(err),
		)
	}
}

// wrapRepo leaves domain and context errors untouched and marks anything
// else as an infrastructure failure.
func wrapRepo(op string, err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) || errors.Is(err, shared.ErrConflict) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return shared.WrapError("command", op, shared.ErrServiceUnavailable, "repository failure", err)
}
