// Package clock holds monotonic sequence counters.
package clock

import "sync/atomic"

// AtomicClock is a sequence counter safe for concurrent use.
type AtomicClock struct {
	atomic.Uint64
}

func NewAtomic(init uint64) *AtomicClock {
	var ac AtomicClock
	ac.Set(init)
	return &ac
}

func (ac *AtomicClock) Val() uint64 {
	return ac.Load()
}

func (ac *AtomicClock) Set(t uint64) {
	ac.Store(t)
}

// Advance moves the clock forward to t. A t at or behind the current value
// is ignored. It reports whether the clock moved.
func (ac *AtomicClock) Advance(t uint64) bool {
	for {
		cur := ac.Load()
		if t <= cur {
			return false
		}
		if ac.CompareAndSwap(cur, t) {
			return true
		}
	}
}
