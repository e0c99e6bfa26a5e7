package sim

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestClockStepRunsTickSynchronously(t *testing.T) {
	var calls int
	fixed := time.Unix(1700000000, 0)
	clock := NewClock(time.Hour, func(now time.Time) {
		calls++
		if !now.Equal(fixed) {
			t.Fatalf("expected tick at %v, got %v", fixed, now)
		}
	}, func() time.Time { return fixed }, ClockHooks{})

	result := clock.Step()
	if calls != 1 {
		t.Fatalf("expected one tick, got %d", calls)
	}
	if result.Tick != 1 || clock.Ticks() != 1 {
		t.Fatalf("expected tick counter 1, got result %d clock %d", result.Tick, clock.Ticks())
	}
	if result.Budget != time.Hour {
		t.Fatalf("expected budget to match interval, got %v", result.Budget)
	}
	if clock.State() != ClockStopped {
		t.Fatalf("expected Step not to start the clock")
	}
}

func TestClockStartTicksImmediatelyAndStopWaits(t *testing.T) {
	var ticks atomic.Int32
	first := make(chan struct{}, 1)
	clock := NewClock(time.Hour, func(time.Time) {
		ticks.Add(1)
		select {
		case first <- struct{}{}:
		default:
		}
	}, nil, ClockHooks{})

	if err := clock.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if clock.State() != ClockRunning {
		t.Fatalf("expected running state")
	}
	if err := clock.Start(); !errors.Is(err, ErrClockRunning) {
		t.Fatalf("expected ErrClockRunning on second start, got %v", err)
	}

	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an immediate first tick")
	}

	clock.Stop()
	if clock.State() != ClockStopped {
		t.Fatalf("expected stopped state")
	}
	after := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	if ticks.Load() != after {
		t.Fatalf("expected no ticks after Stop")
	}

	clock.Stop()
}

func TestClockTicksOnInterval(t *testing.T) {
	var ticks atomic.Int32
	clock := NewClock(5*time.Millisecond, func(time.Time) { ticks.Add(1) }, nil, ClockHooks{})
	if err := clock.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer clock.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected at least 3 ticks, got %d", ticks.Load())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestClockCanRestartAfterStop(t *testing.T) {
	clock := NewClock(time.Hour, func(time.Time) {}, nil, ClockHooks{})
	if err := clock.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	clock.Stop()
	if err := clock.Start(); err != nil {
		t.Fatalf("expected restart to succeed, got %v", err)
	}
	clock.Stop()
}

func TestClockAfterTickReportsOverrun(t *testing.T) {
	base := time.Unix(0, 0)
	var calls int
	now := func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * 30 * time.Millisecond)
	}
	var got TickResult
	clock := NewClock(10*time.Millisecond, nil, now, ClockHooks{AfterTick: func(r TickResult) { got = r }})

	clock.Step()
	if got.Duration != 30*time.Millisecond {
		t.Fatalf("expected measured duration 30ms, got %v", got.Duration)
	}
	if got.Duration <= got.Budget {
		t.Fatalf("expected duration to exceed budget %v", got.Budget)
	}
}
