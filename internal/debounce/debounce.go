// Package debounce provides a cancellable timer: scheduling an action
// replaces whatever the same Debouncer had pending.
package debounce

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Debouncer runs at most one pending action at a time. Each Schedule call
// supersedes the previous one.
type Debouncer struct {
	clock clockwork.Clock

	mu      sync.Mutex
	pending *Handle
}

// Handle identifies one scheduled action.
type Handle struct {
	d     *Debouncer
	timer clockwork.Timer
	done  bool // fired or cancelled; guarded by d.mu
}

// New creates a Debouncer driven by clock. A nil clock uses real time.
func New(clock clockwork.Clock) *Debouncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Debouncer{clock: clock}
}

// Schedule arms action to run after delay and cancels the previously
// scheduled action, if any. The action runs on its own goroutine.
func (d *Debouncer) Schedule(delay time.Duration, action func()) *Handle {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.cancelLocked()
	}

	h := &Handle{d: d}
	h.timer = d.clock.AfterFunc(delay, func() { h.fire(action) })
	d.pending = h
	return h
}

// Cancel drops the pending action, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.cancelLocked()
	}
}

// Pending reports whether an action is armed and has not run yet.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil && !d.pending.done
}

// Cancel stops the action if it has not started. It reports whether the
// action was still pending.
func (h *Handle) Cancel() bool {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	return h.cancelLocked()
}

func (h *Handle) cancelLocked() bool {
	if h.done {
		return false
	}
	h.done = true
	h.timer.Stop()
	if h.d.pending == h {
		h.d.pending = nil
	}
	return true
}

// fire runs action unless the handle was cancelled or superseded after its
// timer expired.
func (h *Handle) fire(action func()) {
	h.d.mu.Lock()
	if h.done {
		h.d.mu.Unlock()
		return
	}
	h.done = true
	if h.d.pending == h {
		h.d.pending = nil
	}
	h.d.mu.Unlock()

	action()
}
