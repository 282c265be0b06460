// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package clock

import (
	"sync"
	"time"
)

// Debouncer runs a callback once a quiet period has passed since the last
// Trigger. Each Trigger restarts the period.
type Debouncer struct {
	clock Clock
	delay time.Duration
	f     func()

	mu    sync.Mutex
	timer Timer
	gen   uint64
}

// NewDebouncer returns a debouncer running f after delay of quiet.
func NewDebouncer(c Clock, delay time.Duration, f func()) *Debouncer {
	if c == nil {
		c = Real{}
	}
	return &Debouncer{clock: c, delay: delay, f: f}
}

// Trigger (re)starts the quiet period.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// A Trigger that raced with this timer firing supersedes it.
	if gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.f()
}

// Flush runs a pending callback now. It reports whether one was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.timer == nil {
		d.mu.Unlock()
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	d.mu.Unlock()
	d.f()
	return true
}

// Stop cancels a pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// Pending reports whether a callback is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
