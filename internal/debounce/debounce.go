// Package debounce coalesces bursts of events into a single action per
// quiescence window. One Debouncer serves one call site; history snapshots,
// autosave, and the review loop re-arm each own theirs.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs the function captured by the most recent Trigger once the
// window elapses with no further triggers. Exactly one fire results per
// quiescence window.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	gen     uint64
}

// New creates a debouncer with a fixed quiescence window.
func New(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Trigger (re)arms the timer. Any previously scheduled fire is cancelled; the
// latest fn wins.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	d.pending = fn
	gen := d.gen
	d.timer = time.AfterFunc(d.window, func() {
		d.fire(gen)
	})
}

// Flush cancels the pending timer and runs the pending function immediately.
// No-op when nothing is pending.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	fn := d.pending
	d.pending = nil
	d.gen++
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Stop cancels the pending timer without running anything.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
	d.gen++
}

// Pending reports whether a fire is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	fn()
}
