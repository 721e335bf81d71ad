package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errTransient = errors.New("transient")

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	}, WithInitialDelay(time.Millisecond), WithMaxAttempts(5))

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanent(t *testing.T) {
	calls := 0
	sentinel := errors.New("bad input")
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(sentinel)
	}, WithInitialDelay(time.Millisecond))

	assert.ErrorIs(t, err, sentinel)
	assert.False(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestDo_RetryIfFiltersErrors(t *testing.T) {
	calls := 0
	other := errors.New("other")
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return other
	}, WithRetryIf(func(err error) bool { return errors.Is(err, errTransient) }))

	assert.ErrorIs(t, err, other)
	assert.Equal(t, 1, calls)
}

func TestDo_ReturnsLastErrorWhenExhausted(t *testing.T) {
	var retries []int
	err := Do(context.Background(), func(context.Context) error {
		return errTransient
	},
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
		WithOnRetry(func(attempt int, _ error, _ time.Duration) { retries = append(retries, attempt) }),
	)

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDoWithData(t *testing.T) {
	v, err := DoWithData(context.Background(), func(context.Context) (int, error) {
		return 42, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
