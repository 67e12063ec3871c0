package testfixtures

import (
	"sync"
	"time"
)

// Clock is a manually driven time source shared by the services under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start.UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc is the injectable form of Now. A nil clock yields time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Advance moves the clock forward and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// SetTime jumps to hour:minute UTC on the clock's current day. Useful for
// putting "now" inside or between booked windows.
func (c *Clock) SetTime(hour, minute int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	y, m, d := c.now.Date()
	c.now = time.Date(y, m, d, hour, minute, 0, 0, time.UTC)
	return c.now
}

// Window returns [now+offset, now+offset+length).
func (c *Clock) Window(offset, length time.Duration) (time.Time, time.Time) {
	start := c.Now().Add(offset)
	return start, start.Add(length)
}
