package common

import (
	"sync"
	"time"
)

// Deadline is a single-shot cancellable timer. Every method must be called
// with L held, and the expiry callback also runs with L held. Expiry and
// cancellation are therefore totally ordered: a stopped or re-armed Deadline
// never runs a stale callback.
type Deadline struct {
	L sync.Locker

	// +checklocks:L
	timer *time.Timer
	// +checklocks:L
	gen uint64
	// +checklocks:L
	armed bool
}

// NewDeadline returns a disarmed Deadline synchronized by l.
func NewDeadline(l sync.Locker) *Deadline {
	return &Deadline{L: l}
}

// Arm schedules f to run after d, replacing any pending expiry.
func (dl *Deadline) Arm(d time.Duration, f func()) {
	dl.Stop()
	gen := dl.gen
	dl.armed = true
	dl.timer = time.AfterFunc(d, func() {
		dl.expire(gen, f)
	})
}

func (dl *Deadline) expire(gen uint64, f func()) {
	dl.L.Lock()
	defer dl.L.Unlock()

	if !dl.armed || dl.gen != gen {
		return
	}
	dl.armed = false
	dl.timer = nil
	f()
}

// Stop cancels a pending expiry and reports whether one was pending. Stopping
// a disarmed Deadline is a no-op.
func (dl *Deadline) Stop() bool {
	wasArmed := dl.armed
	dl.armed = false
	dl.gen++
	if dl.timer != nil {
		dl.timer.Stop()
		dl.timer = nil
	}
	return wasArmed
}

// Armed reports whether an expiry is pending.
func (dl *Deadline) Armed() bool {
	return dl.armed
}
