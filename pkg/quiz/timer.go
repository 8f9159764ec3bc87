package quiz

import (
	"sync"
	"time"
)

// Handle is one scheduled callback.
type Handle struct {
	mu   sync.Mutex
	t    *time.Timer
	done bool
}

// Cancel stops the callback. Cancelling a fired or cancelled handle is a
// no-op; the result reports whether this call prevented the callback.
func (h *Handle) Cancel() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return false
	}
	h.done = true
	h.t.Stop()
	return true
}

func (h *Handle) fire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return false
	}
	h.done = true
	return true
}

// Timer holds at most one pending "next quiz" callback.
type Timer struct {
	mu      sync.Mutex
	pending *Handle
}

// ScheduleNext runs fn after delay, replacing any callback still pending.
func (t *Timer) ScheduleNext(delay time.Duration, fn func()) *Handle {
	h := &Handle{}
	h.mu.Lock()
	h.t = time.AfterFunc(delay, func() {
		if h.fire() {
			fn()
		}
	})
	h.mu.Unlock()

	t.mu.Lock()
	prev := t.pending
	t.pending = h
	t.mu.Unlock()
	prev.Cancel()
	return h
}

// Cancel cancels the pending callback, if any.
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	h := t.pending
	t.pending = nil
	t.mu.Unlock()
	return h.Cancel()
}
