package sim

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClockRunning is returned by Start when the clock is already running.
var ErrClockRunning = errors.New("sim: clock already running")

// ClockState is the position of a Clock in its Stopped -> Running -> Stopped
// cycle.
type ClockState int

const (
	ClockStopped ClockState = iota
	ClockRunning
)

func (s ClockState) String() string {
	if s == ClockRunning {
		return "running"
	}
	return "stopped"
}

// TickResult describes one completed tick.
type TickResult struct {
	Tick     uint64
	Now      time.Time
	Duration time.Duration
	Budget   time.Duration
}

// ClockHooks observe the clock without participating in the tick itself.
type ClockHooks struct {
	AfterTick func(TickResult)
}

// Clock invokes a tick function immediately on Start and then once per
// interval until Stop. Ticks that cannot keep up with the interval are not
// caught up; the ticker simply delivers the next one.
type Clock struct {
	interval time.Duration
	tick     func(now time.Time)
	now      func() time.Time
	hooks    ClockHooks

	mu    sync.Mutex
	state ClockState
	stop  chan struct{}
	done  chan struct{}

	stepMu sync.Mutex
	ticks  atomic.Uint64
}

// NewClock constructs a stopped clock. A nil now uses time.Now.
func NewClock(interval time.Duration, tick func(now time.Time), now func() time.Time, hooks ClockHooks) *Clock {
	if interval <= 0 {
		interval = time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &Clock{interval: interval, tick: tick, now: now, hooks: hooks}
}

// Interval reports the configured refresh interval.
func (c *Clock) Interval() time.Duration {
	return c.interval
}

// State reports whether the clock is running.
func (c *Clock) State() ClockState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ticks reports how many ticks have completed.
func (c *Clock) Ticks() uint64 {
	return c.ticks.Load()
}

// Start moves the clock to Running. The first tick runs right away on the
// clock goroutine.
func (c *Clock) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ClockRunning {
		return ErrClockRunning
	}
	c.state = ClockRunning
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.stop, c.done)
	return nil
}

// Stop moves the clock to Stopped and waits for an in-flight tick to finish.
// It must not be called from inside the tick function.
func (c *Clock) Stop() {
	c.mu.Lock()
	if c.state != ClockRunning {
		c.mu.Unlock()
		return
	}
	c.state = ClockStopped
	stop, done := c.stop, c.done
	close(stop)
	c.mu.Unlock()
	<-done
}

// Step runs a single tick synchronously regardless of state.
func (c *Clock) Step() TickResult {
	return c.step()
}

func (c *Clock) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.step()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			c.step()
		}
	}
}

func (c *Clock) step() TickResult {
	c.stepMu.Lock()
	defer c.stepMu.Unlock()

	start := c.now()
	if c.tick != nil {
		c.tick(start)
	}
	result := TickResult{
		Tick:     c.ticks.Add(1),
		Now:      start,
		Duration: c.now().Sub(start),
		Budget:   c.interval,
	}
	if c.hooks.AfterTick != nil {
		c.hooks.AfterTick(result)
	}
	return result
}
