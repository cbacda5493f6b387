// Package clock supplies "now" to store instances. Each store owns its own
// Clock, injected at construction, so two instances can never share
// simulated time.
package clock

import (
	"sync"
	"time"
)

// Clock is an instant source.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Simulated is a deterministic clock for TTL tests. It tracks a cumulative
// offset from the wall clock and can be pinned to a fixed instant.
type Simulated struct {
	mu     sync.Mutex
	offset time.Duration
	fixed  time.Time
	pinned bool
}

// NewSimulated returns a clock with no offset and no pin.
func NewSimulated() *Simulated {
	return &Simulated{}
}

// Now returns the pinned instant if set, otherwise wall time plus the
// cumulative offset.
func (c *Simulated) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pinned {
		return c.fixed
	}
	return time.Now().Add(c.offset)
}

// Advance shifts the clock forward (or backward, for negative d). Advances
// accumulate. A pinned clock advances its pin.
func (c *Simulated) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pinned {
		c.fixed = c.fixed.Add(d)
		return
	}
	c.offset += d
}

// SetFixed pins subsequent Now calls to t.
func (c *Simulated) SetFixed(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fixed = t
	c.pinned = true
}

// Reset clears both the offset and the pin.
func (c *Simulated) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = 0
	c.fixed = time.Time{}
	c.pinned = false
}
