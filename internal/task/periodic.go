// Package task provides a small periodic background task runner.
//
// A Periodic owns one goroutine that invokes a callback at a fixed interval
// until stopped. Stop is two-phase: the runner first waits for an in-flight
// tick to finish on its own, and only after the grace period expires does it
// cancel the tick's context. This keeps ticks from being interrupted mid-way
// during ordinary shutdown while still bounding how long shutdown can take.
package task

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/bucketfs/internal/logger"
)

// Func is a single tick of work. The context is cancelled only when the
// graceful shutdown window has expired; implementations should honor it on
// blocking operations.
type Func func(ctx context.Context)

// Periodic runs a Func at a fixed interval on a background goroutine.
//
// Thread safety: Start and Stop are safe to call from any goroutine. Start
// after Stop is not supported; create a new Periodic instead.
type Periodic struct {
	name     string
	interval time.Duration
	fn       Func

	mu      sync.Mutex
	started bool
	stopped bool

	cancel context.CancelFunc
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewPeriodic creates a runner that invokes fn every interval. The name is
// used in log messages only.
func NewPeriodic(name string, interval time.Duration, fn Func) *Periodic {
	return &Periodic{
		name:     name,
		interval: interval,
		fn:       fn,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background goroutine. Safe to call multiple times;
// subsequent calls are no-ops.
func (p *Periodic) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || p.stopped {
		return
	}
	p.started = true

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	logger.Info("Starting %s: interval=%s", p.name, p.interval)
	go p.worker(ctx)
}

// Stop shuts the runner down. It waits up to grace for the worker to finish
// its current tick and exit, then cancels the tick context and waits for the
// worker unconditionally. Returns nil when the worker exited within the grace
// period, context.DeadlineExceeded when it had to be cancelled.
//
// Safe to call multiple times; only the first call performs the shutdown.
func (p *Periodic) Stop(grace time.Duration) error {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.stopped = true
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	p.mu.Unlock()

	logger.Info("Stopping %s...", p.name)
	close(p.stopCh)

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-p.doneCh:
		p.cancel()
		logger.Info("%s stopped", p.name)
		return nil
	case <-timer.C:
		logger.Warn("%s did not stop within %s, cancelling", p.name, grace)
		p.cancel()
		<-p.doneCh
		return context.DeadlineExceeded
	}
}

// RunNow executes one tick synchronously on the caller's goroutine. Useful
// for tests and manual triggers; it does not interact with the background
// schedule.
func (p *Periodic) RunNow(ctx context.Context) {
	p.fn(ctx)
}

func (p *Periodic) worker(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.fn(ctx)
		case <-p.stopCh:
			return
		}
	}
}
