package saga

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout bounds f to d. If f has not returned by then the call fails
// with ErrTimeout; f's context is cancelled either way.
func WithTimeout(f Future, d time.Duration) Future {
	return func(ctx context.Context) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		type result struct {
			value any
			err   error
		}
		done := make(chan result, 1)
		go func() {
			value, err := runFuture(ctx, f)
			done <- result{value, err}
		}()

		select {
		case res := <-done:
			return res.value, res.err
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return nil, fmt.Errorf("%w after %s", ErrTimeout, d)
			}
			return nil, ctx.Err()
		}
	}
}

// Delay settles with nil after d.
func Delay(d time.Duration) Future {
	return func(ctx context.Context) (any, error) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Value settles immediately with v.
func Value(v any) Future {
	return func(context.Context) (any, error) { return v, nil }
}
