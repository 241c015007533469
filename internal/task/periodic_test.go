package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPeriodicRunsTicks(t *testing.T) {
	var ticks atomic.Int64

	p := NewPeriodic("test-task", 10*time.Millisecond, func(ctx context.Context) {
		ticks.Add(1)
	})

	p.Start()
	time.Sleep(100 * time.Millisecond)

	if err := p.Stop(time.Second); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	n := ticks.Load()
	if n < 3 {
		t.Fatalf("expected at least 3 ticks over 100ms at 10ms interval, got %d", n)
	}

	// No ticks after Stop returns.
	time.Sleep(50 * time.Millisecond)
	if ticks.Load() != n {
		t.Fatal("ticks continued after Stop()")
	}
}

func TestPeriodicStopCancelsSlowTick(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})

	p := NewPeriodic("slow-task", 10*time.Millisecond, func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-ctx.Done():
			close(cancelled)
		case <-time.After(5 * time.Second):
		}
	})

	p.Start()
	<-started

	err := p.Stop(20 * time.Millisecond)
	if err != context.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded from forced stop, got %v", err)
	}

	select {
	case <-cancelled:
	default:
		t.Fatal("tick context was not cancelled after the grace period")
	}
}

func TestPeriodicStopBeforeStart(t *testing.T) {
	p := NewPeriodic("idle-task", time.Second, func(ctx context.Context) {})

	if err := p.Stop(time.Second); err != nil {
		t.Fatalf("Stop() on an unstarted runner should succeed: %v", err)
	}
	// Start after Stop is a no-op.
	p.Start()
	if err := p.Stop(time.Second); err != nil {
		t.Fatalf("second Stop() should succeed: %v", err)
	}
}

func TestPeriodicRunNow(t *testing.T) {
	var ticks atomic.Int64

	p := NewPeriodic("manual-task", time.Hour, func(ctx context.Context) {
		ticks.Add(1)
	})

	p.RunNow(context.Background())
	p.RunNow(context.Background())

	if got := ticks.Load(); got != 2 {
		t.Fatalf("expected 2 manual ticks, got %d", got)
	}
}
