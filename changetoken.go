package filebridge

import (
	"context"
	"sync"
	"sync/atomic"
)

// ============================================================================
// ChangeToken Implementations
// ============================================================================

// CallbackChangeToken is the ChangeToken handed out by drivers with native
// change events (memory, local). The driver calls SignalChange when a
// matching file changes; consumers poll HasChanged or register a callback.
type CallbackChangeToken struct {
	mu        sync.RWMutex
	changed   atomic.Bool
	callbacks []func()
}

// NewCallbackChangeToken creates an unsignaled token.
func NewCallbackChangeToken() *CallbackChangeToken {
	return &CallbackChangeToken{}
}

func (t *CallbackChangeToken) HasChanged() bool {
	return t.changed.Load()
}

func (t *CallbackChangeToken) ActiveChangeCallbacks() bool {
	return true
}

func (t *CallbackChangeToken) RegisterChangeCallback(callback func()) (unregister func()) {
	t.mu.Lock()
	t.callbacks = append(t.callbacks, callback)
	index := len(t.callbacks) - 1
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if index < len(t.callbacks) {
			// Nil out the slot so other unregister closures keep
			// pointing at the right entries.
			t.callbacks[index] = nil
		}
	}
}

// SignalChange flips the token to changed and fires the registered
// callbacks. Only the first call has any effect; tokens are single-use.
func (t *CallbackChangeToken) SignalChange() {
	if t.changed.Swap(true) {
		return
	}

	t.mu.RLock()
	callbacks := make([]func(), len(t.callbacks))
	copy(callbacks, t.callbacks)
	t.mu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb()
		}
	}
}

// ============================================================================
// Composite ChangeToken
// ============================================================================

// CompositeChangeToken folds several tokens into one that reports changed
// as soon as any member does. Useful when one consumer watches several
// patterns or several mounts at once.
type CompositeChangeToken struct {
	tokens []ChangeToken
}

// NewCompositeChangeToken combines tokens into a single token.
func NewCompositeChangeToken(tokens ...ChangeToken) *CompositeChangeToken {
	return &CompositeChangeToken{tokens: tokens}
}

func (c *CompositeChangeToken) HasChanged() bool {
	for _, t := range c.tokens {
		if t.HasChanged() {
			return true
		}
	}
	return false
}

func (c *CompositeChangeToken) ActiveChangeCallbacks() bool {
	// A single polling-only member forces the consumer to poll anyway.
	for _, t := range c.tokens {
		if !t.ActiveChangeCallbacks() {
			return false
		}
	}
	return len(c.tokens) > 0
}

func (c *CompositeChangeToken) RegisterChangeCallback(callback func()) (unregister func()) {
	var unregisters []func()

	for _, t := range c.tokens {
		unregister := t.RegisterChangeCallback(callback)
		unregisters = append(unregisters, unregister)
	}

	return func() {
		for _, u := range unregisters {
			u()
		}
	}
}

// ============================================================================
// Static ChangeTokens
// ============================================================================

// CancelledChangeToken is permanently in the changed state. Drivers return
// it when a watch cannot be established but the caller still expects a
// token.
type CancelledChangeToken struct{}

func (CancelledChangeToken) HasChanged() bool {
	return true
}

func (CancelledChangeToken) ActiveChangeCallbacks() bool {
	return false
}

func (CancelledChangeToken) RegisterChangeCallback(callback func()) func() {
	// The change already happened, so the callback fires right away.
	callback()
	return func() {}
}

// NeverChangeToken never signals. It stands in for watches over content
// that is known to be immutable.
type NeverChangeToken struct{}

func (NeverChangeToken) HasChanged() bool {
	return false
}

func (NeverChangeToken) ActiveChangeCallbacks() bool {
	return false
}

func (NeverChangeToken) RegisterChangeCallback(callback func()) func() {
	return func() {}
}

// ============================================================================
// Helper: ChangeToken.OnChange
// ============================================================================

// OnChange turns single-use tokens into a standing subscription: each time
// the current token signals, changeAction runs and a fresh token is
// requested from tokenProducer. The loop stops when the producer errors or
// the returned cancel function is called.
//
// Example:
//
//	cancel := filebridge.OnChange(
//	    func() (filebridge.ChangeToken, error) {
//	        return bridge.Watch(ctx, "config.json")
//	    },
//	    func() {
//	        reloadConfig()
//	    },
//	)
//	defer cancel()
func OnChange(tokenProducer func() (ChangeToken, error), changeAction func()) (cancel func()) {
	ctx, cancelFunc := context.WithCancel(context.Background())

	go func() {
		for {
			token, err := tokenProducer()
			if err != nil {
				return
			}

			done := make(chan struct{})
			unregister := token.RegisterChangeCallback(func() {
				close(done)
			})

			select {
			case <-ctx.Done():
				unregister()
				return
			case <-done:
				unregister()
				changeAction()
			}
		}
	}()

	return cancelFunc
}
