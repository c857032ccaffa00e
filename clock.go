package tilegrid

import (
	"context"
	"time"
)

// Clock paces ticks to a target duration by sleeping between them. The
// sleep is best effort: overshoot is tolerated and not corrected.
type Clock struct {
	start time.Time
	last  time.Time
	ticks uint64

	now   func() time.Time
	sleep func(time.Duration)
}

// NewClock returns a clock started now.
func NewClock() *Clock {
	return newClock(time.Now, time.Sleep)
}

func newClock(now func() time.Time, sleep func(time.Duration)) *Clock {
	t := now()
	return &Clock{start: t, last: t, now: now, sleep: sleep}
}

// Tick sleeps out whatever remains of target since the previous Tick, then
// returns the measured time between the two.
func (c *Clock) Tick(target time.Duration) time.Duration {
	now := c.now()
	for {
		since := now.Sub(c.last)
		if since >= target {
			break
		}
		c.sleep(target - since)
		now = c.now()
	}
	dt := now.Sub(c.last)
	c.last = now
	c.ticks++
	return dt
}

// Ticks returns the number of completed Tick calls.
func (c *Clock) Ticks() uint64 {
	return c.ticks
}

// TPS returns the average tick rate since the clock started.
func (c *Clock) TPS() float64 {
	elapsed := c.last.Sub(c.start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(c.ticks) / elapsed
}

// RunLoop ticks rt at the configured target until ctx is done or poll
// returns false. Shutdown is observed only between ticks. poll runs
// before every tick and is where a host feeds the latest pointer; it may
// be nil. Step failures abort only their own tick; they are logged by the
// runtime and passed to its WithErrorHandler callback.
func RunLoop(ctx context.Context, rt *Runtime, clock *Clock, poll func() bool) error {
	if clock == nil {
		clock = NewClock()
	}
	target := rt.Config().Tick.Target
	for {
		if ctx.Err() != nil {
			return nil
		}
		if poll != nil && !poll() {
			return nil
		}
		dt := clock.Tick(target)
		_ = rt.Tick(dt)
	}
}
