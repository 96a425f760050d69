package submit

import (
	"context"
	"time"
)

type settled[T any] struct {
	value T
	err   error
}

// firstToSettle runs op against a timer and returns whichever finishes first.
// The loser's context is cancelled and its late result is dropped into a
// buffered channel nobody reads.
func firstToSettle[T any](ctx context.Context, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan settled[T], 1)
	go func() {
		v, err := op(opCtx)
		done <- settled[T]{value: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case r := <-done:
		return r.value, r.err
	case <-timer.C:
		return zero, errConfirmTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
