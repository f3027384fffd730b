package filebridge

import (
	"context"
	"sync"
)

// settled carries the outcome of a single native callback pair.
type settled[T any] struct {
	value T
	err   error
}

// await converts a native success/failure callback pair into a blocking
// call. start must invoke exactly one of resolve or reject; a second
// invocation of either is ignored, so a misbehaving driver cannot settle
// an operation twice. The wait is abandoned when ctx is done - the native
// operation keeps running, it just no longer has a listener.
func await[T any](ctx context.Context, start func(resolve func(T), reject ErrorCallback)) (T, error) {
	var zero T

	done := make(chan settled[T], 1)
	var once sync.Once

	resolve := func(v T) {
		once.Do(func() { done <- settled[T]{value: v} })
	}
	reject := func(code Code) {
		once.Do(func() { done <- settled[T]{err: NewError(code)} })
	}

	start(resolve, reject)

	select {
	case s := <-done:
		return s.value, s.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// awaitDone is await for operations whose success callback carries no value.
func awaitDone(ctx context.Context, start func(resolve func(), reject ErrorCallback)) error {
	_, err := await(ctx, func(resolve func(struct{}), reject ErrorCallback) {
		start(func() { resolve(struct{}{}) }, reject)
	})
	return err
}
