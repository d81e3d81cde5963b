package testutil

import (
	"sync"
	"time"
)

// DeterministicClock provides a thread-safe monotonic wall clock for tests.
//
// Each call to Now() advances by a fixed step from a fixed epoch, so the
// same scenario produces byte-identical event timestamps on every run.
// Timestamps land on whole milliseconds, matching canonical precision.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	epoch time.Time
	step  time.Duration
	seq   int64
}

// NewDeterministicClock creates a clock starting at the given epoch,
// advancing one second per call. The first call to Now() returns epoch
// plus one step.
func NewDeterministicClock(epoch time.Time) *DeterministicClock {
	return &DeterministicClock{
		epoch: epoch.UTC().Truncate(time.Millisecond),
		step:  time.Second,
	}
}

// Now increments the sequence and returns the next instant.
//
// Monotonic: successive calls never return the same or an earlier time.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.epoch.Add(time.Duration(c.seq) * c.step)
}

// Current returns the most recently issued instant without advancing.
func (c *DeterministicClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch.Add(time.Duration(c.seq) * c.step)
}

// Reset rewinds the clock to its epoch for test reuse.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
