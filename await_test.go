package filebridge

import (
	"context"
	"errors"
	"testing"
)

func TestAwait(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves", func(t *testing.T) {
		v, err := await(ctx, func(resolve func(int), reject ErrorCallback) {
			resolve(7)
		})
		if err != nil || v != 7 {
			t.Errorf("await = %d, %v", v, err)
		}
	})

	t.Run("rejects with enriched code", func(t *testing.T) {
		_, err := await(ctx, func(resolve func(int), reject ErrorCallback) {
			reject(CodeNotFound)
		})
		if CodeOf(err) != CodeNotFound {
			t.Errorf("expected NOT_FOUND_ERR, got: %v", err)
		}
	})

	t.Run("first settle wins", func(t *testing.T) {
		v, err := await(ctx, func(resolve func(string), reject ErrorCallback) {
			resolve("first")
			resolve("second")
			reject(CodeAbort)
		})
		if err != nil || v != "first" {
			t.Errorf("await = %q, %v", v, err)
		}
	})

	t.Run("abandons wait on cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := await(cancelled, func(resolve func(int), reject ErrorCallback) {
			// never settles
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got: %v", err)
		}
	})

	t.Run("late settle after abandonment does not block", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		var lateResolve func(int)
		_, err := await(cancelled, func(resolve func(int), reject ErrorCallback) {
			lateResolve = resolve
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got: %v", err)
		}
		// The buffered settle channel absorbs the late callback.
		lateResolve(1)
	})
}

func TestAwaitDone(t *testing.T) {
	ctx := context.Background()

	if err := awaitDone(ctx, func(resolve func(), reject ErrorCallback) {
		resolve()
	}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := awaitDone(ctx, func(resolve func(), reject ErrorCallback) {
		reject(CodeQuotaExceeded)
	})
	if CodeOf(err) != CodeQuotaExceeded {
		t.Errorf("expected QUOTA_EXCEEDED_ERR, got: %v", err)
	}
}
