// Package watch implements auto-detect: watch the current file and
// regenerate tests after it settles.
package watch

import (
	"sync"
	"time"
)

// Debouncer runs a function once a burst of calls has gone quiet.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	seq      uint64
	duration time.Duration
}

// NewDebouncer creates a new debouncer with the specified duration
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
	}
}

// Debounce executes fn after the debounce duration has elapsed without any
// new calls. Rapid successive calls reset the timer.
func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.seq++
	mine := d.seq
	d.timer = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		if d.seq != mine {
			// Superseded or cancelled while the timer was firing.
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Cancel cancels any pending debounced call. A cancelled call never runs.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a call is waiting to fire.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
