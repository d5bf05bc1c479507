package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrCallTimeout is returned when a channel call exceeds its deadline.
var ErrCallTimeout = errors.New("channel call timed out")

// CallWithTimeout runs fn with a bounded deadline and returns either its
// result or ErrCallTimeout, never both. It replaces the promise/timer races
// of the previous generation: fn observes cancellation through its context,
// so a late result is discarded rather than racing the timer.
func CallWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := fn(ctx)
	if err != nil {
		var zero T
		if errors.Is(err, context.DeadlineExceeded) {
			return zero, ErrCallTimeout
		}
		return zero, err
	}
	return result, nil
}

// RetryPolicy is a bounded retry with fixed backoff.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Do runs fn up to MaxAttempts times, sleeping Backoff between attempts.
// Context cancellation aborts immediately and is never retried.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return err
		}
		if attempt < attempts {
			slog.DebugContext(ctx, "channel call failed, retrying",
				"attempt", attempt, "max_attempts", attempts, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff):
			}
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}
