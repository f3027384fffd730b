package filebridge

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestCallbackChangeToken(t *testing.T) {
	t.Run("signals once", func(t *testing.T) {
		token := NewCallbackChangeToken()
		if token.HasChanged() {
			t.Fatal("fresh token should not be changed")
		}

		var fired int
		token.RegisterChangeCallback(func() { fired++ })

		token.SignalChange()
		token.SignalChange()

		if !token.HasChanged() {
			t.Error("expected changed state")
		}
		if fired != 1 {
			t.Errorf("expected callback once, got %d", fired)
		}
	})

	t.Run("unregister", func(t *testing.T) {
		token := NewCallbackChangeToken()
		var fired int
		unregister := token.RegisterChangeCallback(func() { fired++ })
		unregister()

		token.SignalChange()
		if fired != 0 {
			t.Errorf("expected no callback after unregister, got %d", fired)
		}
	})
}

func TestCompositeChangeToken(t *testing.T) {
	a := NewCallbackChangeToken()
	b := NewCallbackChangeToken()
	composite := NewCompositeChangeToken(a, b)

	if composite.HasChanged() {
		t.Fatal("composite of fresh tokens should not be changed")
	}

	var fired int
	composite.RegisterChangeCallback(func() { fired++ })

	b.SignalChange()
	if !composite.HasChanged() {
		t.Error("composite should report change from any member")
	}
	if fired != 1 {
		t.Errorf("expected callback once, got %d", fired)
	}
}

func TestStaticChangeTokens(t *testing.T) {
	t.Run("cancelled", func(t *testing.T) {
		token := CancelledChangeToken{}
		if !token.HasChanged() {
			t.Error("cancelled token is always changed")
		}
		var fired bool
		token.RegisterChangeCallback(func() { fired = true })
		if !fired {
			t.Error("cancelled token fires callbacks immediately")
		}
	})

	t.Run("never", func(t *testing.T) {
		token := NeverChangeToken{}
		if token.HasChanged() {
			t.Error("never token is never changed")
		}
		var fired bool
		token.RegisterChangeCallback(func() { fired = true })
		if fired {
			t.Error("never token must not fire callbacks")
		}
	})
}

func TestOnChange(t *testing.T) {
	var produced atomic.Int32
	tokens := make(chan *CallbackChangeToken, 8)

	var actions atomic.Int32
	cancel := OnChange(
		func() (ChangeToken, error) {
			token := NewCallbackChangeToken()
			produced.Add(1)
			tokens <- token
			return token, nil
		},
		func() { actions.Add(1) },
	)
	defer cancel()

	// Trigger the first token and wait for the action plus a fresh token.
	(<-tokens).SignalChange()

	deadline := time.After(2 * time.Second)
	for actions.Load() < 1 || produced.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("timeout: actions=%d produced=%d", actions.Load(), produced.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}
