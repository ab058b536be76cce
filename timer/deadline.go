// Package timer provides the per-room phase deadline and a small scheduler
// for periodic housekeeping.
package timer

import (
	"sync"
	"time"
)

// Deadline is a single pending trigger. Resetting it replaces whatever was
// scheduled before, so at most one callback is ever live.
type Deadline struct {
	mutex      sync.Mutex
	timer      *time.Timer
	generation uint64
	at         time.Time
}

// Reset cancels any pending trigger and runs fn after delay. A negative delay
// fires immediately.
func (d *Deadline) Reset(delay time.Duration, fn func()) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.stopLocked()
	if delay < 0 {
		delay = 0
	}
	d.generation++
	gen := d.generation
	d.at = time.Now().Add(delay)
	d.timer = time.AfterFunc(delay, func() {
		d.mutex.Lock()
		if gen != d.generation {
			// replaced or stopped after this firing was already queued
			d.mutex.Unlock()
			return
		}
		d.timer = nil
		d.at = time.Time{}
		d.mutex.Unlock()
		fn()
	})
}

// Stop cancels the pending trigger. It reports whether one was pending.
func (d *Deadline) Stop() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.stopLocked()
}

func (d *Deadline) stopLocked() bool {
	d.generation++
	d.at = time.Time{}
	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}

// Pending reports whether a trigger is scheduled and when.
func (d *Deadline) Pending() (time.Time, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.at, d.timer != nil
}
