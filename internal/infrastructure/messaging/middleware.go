package messaging

import (
	"context"
	"time"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/pkg/logger"
	"github.com/attendance-hub/attendance-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// Middleware wraps a handler. Buses apply their middleware at Subscribe time,
// first element outermost.
type Middleware func(shared.EventHandler) shared.EventHandler

// Chain applies middlewares around h.
func Chain(h shared.EventHandler, middlewares ...Middleware) shared.EventHandler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RetryMiddleware re-runs a failing handler with backoff while the error is
// retryable (see shared.IsRetryable). Domain errors fail at once.
func RetryMiddleware(opts ...retry.Option) Middleware {
	opts = append([]retry.Option{retry.WithRetryIf(shared.IsRetryable)}, opts...)
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			return retry.Do(context.Background(), func(context.Context) error {
				return next(event)
			}, opts...)
		}
	}
}

// LoggingMiddleware logs failed handlers at error level and the rest at debug.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)

			fields := []logger.Field{
				logger.String("event_type", string(event.EventType())),
				logger.String("aggregate_id", event.AggregateID()),
				logger.Latency(time.Since(start)),
			}
			if err != nil {
				log.Error("handler failed", append(fields, logger.Err(err))...)
			} else {
				log.Debug("handler completed", fields...)
			}
			return err
		}
	}
}
