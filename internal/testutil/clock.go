package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start time of a FixedClock.
var Epoch = time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)

// FixedClock is a deterministic clock for tests.
//
// Each call to Now returns the current time and then advances it by Step.
// A zero Step makes every call return the same instant, so provenance
// records and golden traces are byte-identical across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

// NewFixedClock creates a clock starting at start. A zero start means Epoch.
func NewFixedClock(start time.Time) *FixedClock {
	if start.IsZero() {
		start = Epoch
	}
	return &FixedClock{now: start}
}

// Now returns the current time and advances the clock by Step.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.Step)
	return t
}

// Reset moves the clock back to start.
func (c *FixedClock) Reset(start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if start.IsZero() {
		start = Epoch
	}
	c.now = start
}
