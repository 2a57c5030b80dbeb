// Package hold implements the countdown bound to a seat hold's server-issued
// expiry. The expiry callback fires exactly once per distinct deadline, no
// matter how often the countdown is stopped, restarted or re-armed with the
// same timestamp.
package hold

import (
	"sync"
	"time"
)

// Countdown recomputes the seconds remaining until a deadline on a fixed
// one-second cadence. When the remainder reaches zero it fires OnExpire
// once; the latch is keyed by the deadline value and resets only when a
// genuinely new deadline is supplied, so restarting against the same hold
// cannot re-fire.
type Countdown struct {
	// OnExpire runs when the deadline passes. Callers use it to mark the
	// hold expired, cancel outstanding booking queries and surface the
	// expiry notice. It is invoked outside the countdown's lock.
	OnExpire func()

	// OnTick, if set, receives every recomputed remainder (clamped at 0).
	OnTick func(remaining int)

	mu        sync.Mutex
	deadline  time.Time
	fired     bool
	remaining int
	stop      chan struct{}

	tick time.Duration
	now  func() time.Time
}

// New builds a Countdown armed at the given deadline.
func New(deadline time.Time, onExpire func()) *Countdown {
	c := &Countdown{
		OnExpire: onExpire,
		tick:     time.Second,
		now:      time.Now,
	}
	c.deadline = deadline
	c.remaining = clamp(deadline, c.now())
	return c
}

// SetDeadline re-arms the countdown. A deadline equal to the current one is
// ignored entirely: the latch keeps its state and no re-fire can happen
// from re-rendering paths that pass the same hold expiry again.
func (c *Countdown) SetDeadline(deadline time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if deadline.Equal(c.deadline) {
		return
	}
	c.deadline = deadline
	c.fired = false
	c.remaining = clamp(deadline, c.now())
}

// Remaining returns the last computed remainder in whole seconds, never
// negative.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Start begins ticking. Starting an already running countdown is a no-op.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return
	}
	stop := make(chan struct{})
	c.stop = stop
	go c.loop(stop)
}

// Stop halts ticking deterministically. The latch is untouched: a stopped
// countdown restarted against the same deadline will not fire twice.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Countdown) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if c.step() {
				return
			}
		}
	}
}

// step recomputes the remainder and fires the expiry callback when the
// deadline has passed and the latch is still armed. It returns true once
// the countdown is finished.
func (c *Countdown) step() (done bool) {
	c.mu.Lock()
	c.remaining = clamp(c.deadline, c.now())
	remaining := c.remaining
	fire := remaining <= 0 && !c.fired
	if fire {
		c.fired = true
		if c.stop != nil {
			close(c.stop)
			c.stop = nil
		}
	}
	onTick := c.OnTick
	onExpire := c.OnExpire
	c.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if fire && onExpire != nil {
		onExpire()
	}
	return fire
}

// clamp computes whole seconds from now until deadline, floored at zero.
func clamp(deadline, now time.Time) int {
	secs := int(deadline.Sub(now) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}
