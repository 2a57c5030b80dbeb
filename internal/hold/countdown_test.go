package hold

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests drive the countdown tick by tick.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestCountdown(deadline time.Time, clk *fakeClock, onExpire func()) *Countdown {
	c := New(deadline, onExpire)
	c.now = func() time.Time { return clk.now }
	c.remaining = clamp(deadline, clk.now)
	return c
}

func TestCountdownFiveTickScenario(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	var fired atomic.Int32
	c := newTestCountdown(clk.now.Add(5*time.Second), clk, func() { fired.Add(1) })

	require.Equal(t, 5, c.Remaining())
	for i := 0; i < 5; i++ {
		clk.advance(time.Second)
		c.step()
	}
	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, 0, c.Remaining())

	// Further ticks past the deadline neither re-fire nor go negative.
	clk.advance(3 * time.Second)
	c.step()
	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, 0, c.Remaining())
}

func TestCountdownSameDeadlineDoesNotRearm(t *testing.T) {
	clk := &fakeClock{now: time.Unix(2000, 0)}
	deadline := clk.now.Add(2 * time.Second)
	var fired atomic.Int32
	c := newTestCountdown(deadline, clk, func() { fired.Add(1) })

	clk.advance(3 * time.Second)
	c.step()
	require.Equal(t, int32(1), fired.Load())

	// A parent re-render handing the same expiry back in must not reset
	// the latch.
	c.SetDeadline(deadline)
	c.step()
	assert.Equal(t, int32(1), fired.Load())
}

func TestCountdownNewDeadlineRearms(t *testing.T) {
	clk := &fakeClock{now: time.Unix(3000, 0)}
	var fired atomic.Int32
	c := newTestCountdown(clk.now.Add(time.Second), clk, func() { fired.Add(1) })

	clk.advance(2 * time.Second)
	c.step()
	require.Equal(t, int32(1), fired.Load())

	// A genuinely new deadline arms a fresh latch.
	c.SetDeadline(clk.now.Add(2 * time.Second))
	assert.Equal(t, 2, c.Remaining())
	clk.advance(3 * time.Second)
	c.step()
	assert.Equal(t, int32(2), fired.Load())
}

func TestCountdownStopIsDeterministic(t *testing.T) {
	var fired atomic.Int32
	c := New(time.Now().Add(50*time.Millisecond), func() { fired.Add(1) })
	c.tick = 10 * time.Millisecond
	c.Start()
	c.Stop()
	c.Stop() // double stop is harmless

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load(), "stopped countdown must not fire against a detached owner")
}

func TestCountdownRealTickerFiresOnce(t *testing.T) {
	var fired atomic.Int32
	c := New(time.Now().Add(30*time.Millisecond), func() { fired.Add(1) })
	c.tick = 10 * time.Millisecond
	c.Start()
	defer c.Stop()

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())

	// Restarting against the already-fired deadline is a no-op.
	c.Start()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}
