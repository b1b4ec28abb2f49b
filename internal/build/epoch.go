package build

import (
	"sync/atomic"
	"time"
)

// Epoch identifies one build attempt. Larger is newer.
type Epoch int64

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// EpochTracker records the latest known Epoch. Recorded epochs are strictly
// increasing even when the clock repeats or goes backwards.
type EpochTracker struct {
	now    Clock
	latest atomic.Int64
}

// NewEpochTracker returns a tracker reading the given clock (time.Now when nil).
func NewEpochTracker(now Clock) *EpochTracker {
	if now == nil {
		now = time.Now
	}
	return &EpochTracker{now: now}
}

// Record stamps a new attempt and makes it the latest. The last caller wins.
func (t *EpochTracker) Record() Epoch {
	for {
		prev := t.latest.Load()
		next := t.now().UnixNano()
		if next <= prev {
			next = prev + 1
		}
		if t.latest.CompareAndSwap(prev, next) {
			return Epoch(next)
		}
	}
}

// Latest returns the most recently recorded epoch (zero before any Record).
func (t *EpochTracker) Latest() Epoch {
	return Epoch(t.latest.Load())
}

// Superseded reports whether an attempt newer than e has been recorded.
func (t *EpochTracker) Superseded(e Epoch) bool {
	return t.Latest() > e
}
