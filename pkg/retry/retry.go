// Package retry runs operations with exponential backoff and jitter.
// The worker uses it while waiting for PostgreSQL and Redis to come up, and
// repositories use it around statements that fail with transient errors.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// PermanentError marks an error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Do stops immediately and returns err unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// Policy holds backoff settings.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64

	// RetryIf decides whether an error is transient. Nil retries everything
	// that is not Permanent.
	RetryIf func(error) bool

	// OnRetry is called before sleeping between attempts.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultPolicy returns 3 attempts starting at 100ms.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// Option mutates a Policy.
type Option func(*Policy)

// WithMaxAttempts sets the attempt ceiling, including the first call.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.MaxAttempts = n
		}
	}
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.InitialDelay = d
		}
	}
}

// WithMaxDelay caps the delay between retries.
func WithMaxDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.MaxDelay = d
		}
	}
}

// WithJitter sets the jitter factor in [0, 1].
func WithJitter(j float64) Option {
	return func(p *Policy) {
		if j >= 0 && j <= 1 {
			p.JitterFactor = j
		}
	}
}

// WithRetryIf installs a transient-error predicate.
func WithRetryIf(fn func(error) bool) Option {
	return func(p *Policy) { p.RetryIf = fn }
}

// WithOnRetry installs a hook called before each retry.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(p *Policy) { p.OnRetry = fn }
}

// Do executes op until it succeeds, returns a non-transient error, the
// attempts run out, or ctx is done.
func Do(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	p := DefaultPolicy()
	for _, o := range opts {
		o(&p)
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsPermanent(err) {
			return errors.Unwrap(err)
		}
		if p.RetryIf != nil && !p.RetryIf(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		delay := p.delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}

// DoWithData is Do for operations that produce a value.
func DoWithData[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var out T
	err := Do(ctx, func(ctx context.Context) error {
		var opErr error
		out, opErr = op(ctx)
		return opErr
	}, opts...)
	return out, err
}

func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.JitterFactor > 0 {
		d += d * p.JitterFactor * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Startup returns options suited to waiting on a dependency during boot.
func Startup() []Option {
	return []Option{
		WithMaxAttempts(8),
		WithInitialDelay(250 * time.Millisecond),
		WithMaxDelay(5 * time.Second),
		WithJitter(0.2),
	}
}
