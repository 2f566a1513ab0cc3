/*
Package debounce implements a cancellable scheduled task.

A Task runs its function once after an idle delay. Every Arm cancels the
previous schedule and starts a new one, which gives trailing-debounce
semantics: only the last Arm in a burst fires.
*/
package debounce

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Task is a re-armable delayed call. The zero value is not usable; use
// NewTask.
type Task struct {
	clock clockwork.Clock
	delay time.Duration
	fn    func()

	mu    sync.Mutex
	timer clockwork.Timer
	// gen identifies the current schedule. A timer whose generation is
	// stale when it fires does nothing, so a Stop that loses the race
	// with a fired timer cannot run fn twice.
	gen   uint64
	armed bool
}

// NewTask creates a Task that calls fn delay after the last Arm.
func NewTask(c clockwork.Clock, delay time.Duration, fn func()) *Task {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return &Task{clock: c, delay: delay, fn: fn}
}

// Delay returns the configured idle window.
func (t *Task) Delay() time.Duration {
	return t.delay
}

// Arm cancels any pending run and schedules a new one.
func (t *Task) Arm() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.gen++
	gen := t.gen
	t.armed = true
	t.timer = t.clock.AfterFunc(t.delay, func() { t.fire(gen) })
}

// Cancel stops the pending run. It reports whether a run was pending.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	wasArmed := t.armed
	t.stopLocked()
	t.gen++
	return wasArmed
}

// Pending reports whether a run is scheduled.
func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

func (t *Task) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.armed = false
}

func (t *Task) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.armed {
		t.mu.Unlock()
		return
	}
	t.armed = false
	t.timer = nil
	t.mu.Unlock()

	t.fn()
}
