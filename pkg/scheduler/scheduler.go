// Package scheduler runs the background cache-coherency loop.
//
// Each tick walks the export registry and, per export, draws three
// independent random handles from the arena. Each drawn handle produces one
// upcall toward the upper cache layer: an attribute refresh, an invalidate,
// or an invalidate-and-close. Sampling is uniform via a single reservoir
// pass, so the loop costs one arena walk per draw regardless of export size.
//
// The scheduler is best-effort by design: empty exports are skipped, upcall
// errors are logged and never propagated, and a rate limiter drops upcalls
// rather than queue them when the consumer cannot keep up.
package scheduler

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/internal/ratelimiter"
	"github.com/marmos91/bucketfs/internal/task"
	"github.com/marmos91/bucketfs/pkg/metadata"
	"github.com/marmos91/bucketfs/pkg/registry"
	"github.com/marmos91/bucketfs/pkg/upcall"
)

// Upcall kinds, used for logging and metrics labels.
const (
	KindUpdate          = "update"
	KindInvalidate      = "invalidate"
	KindInvalidateClose = "invalidate_close"
)

// Metrics receives scheduler observations. The Prometheus implementation
// lives in pkg/metrics; a nil Metrics disables collection.
type Metrics interface {
	// RecordTick observes one complete scheduler tick.
	RecordTick(duration time.Duration)

	// RecordUpcall counts one issued upcall by kind and outcome.
	RecordUpcall(kind string, err error)

	// RecordThrottled counts one upcall dropped by the rate limiter.
	RecordThrottled()
}

type nopMetrics struct{}

func (nopMetrics) RecordTick(time.Duration)     {}
func (nopMetrics) RecordUpcall(string, error)   {}
func (nopMetrics) RecordThrottled()             {}

// Config controls the coherency loop.
type Config struct {
	// Interval between ticks. Zero disables the scheduler entirely.
	Interval time.Duration

	// UpcallRate caps sustained upcalls per second. Zero means unlimited.
	UpcallRate uint

	// UpcallBurst is the rate limiter's burst capacity.
	UpcallBurst uint

	// ShutdownGrace bounds how long Stop waits for an in-flight tick
	// before cancelling it.
	ShutdownGrace time.Duration
}

// DefaultShutdownGrace matches the historical stop deadline of the
// background coherency thread.
const DefaultShutdownGrace = 120 * time.Second

// Scheduler drives periodic coherency upcalls for every registered export.
type Scheduler struct {
	cfg     Config
	reg     *registry.Registry
	sink    upcall.Interface
	limiter *ratelimiter.RateLimiter
	metrics Metrics
	rng     *rand.Rand
	looper  *task.Periodic
}

// New creates a scheduler over reg that notifies sink. metrics may be nil.
func New(cfg Config, reg *registry.Registry, sink upcall.Interface, metrics Metrics) *Scheduler {
	if cfg.ShutdownGrace == 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}

	s := &Scheduler{
		cfg:     cfg,
		reg:     reg,
		sink:    sink,
		limiter: ratelimiter.New(cfg.UpcallRate, cfg.UpcallBurst),
		metrics: metrics,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	s.looper = task.NewPeriodic("invalidation scheduler", cfg.Interval, s.tick)
	return s
}

// Start launches the loop. A zero interval leaves the scheduler disabled.
func (s *Scheduler) Start() {
	if s.cfg.Interval == 0 {
		logger.Info("Invalidation scheduler disabled (interval=0)")
		return
	}
	s.looper.Start()
}

// Stop shuts the loop down: graceful wait up to the configured grace, then
// force-cancel of the in-flight tick.
func (s *Scheduler) Stop() error {
	if s.cfg.Interval == 0 {
		return nil
	}
	return s.looper.Stop(s.cfg.ShutdownGrace)
}

// TickNow runs one tick synchronously. Test and admin hook.
func (s *Scheduler) TickNow(ctx context.Context) {
	s.tick(ctx)
}

func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()

	s.reg.Range(func(id uuid.UUID, e *metadata.Export) bool {
		s.visitExport(ctx, e)
		return ctx.Err() == nil
	})

	s.metrics.RecordTick(time.Since(start))
}

// visitExport draws three handles and issues one upcall per draw. Draws on
// an empty export come back empty and are skipped, not errors. The shared
// lock is held only inside Sample; every upcall goes out lock-free.
func (s *Scheduler) visitExport(ctx context.Context, e *metadata.Export) {
	if h, ok := e.Sample(s.rng); ok {
		s.issue(KindUpdate, e, h)
	}
	if h, ok := e.Sample(s.rng); ok {
		s.issue(KindInvalidate, e, h)
	}
	if h, ok := e.Sample(s.rng); ok {
		s.issue(KindInvalidateClose, e, h)
	}
}

func (s *Scheduler) issue(kind string, e *metadata.Export, h *metadata.Handle) {
	if !s.limiter.Allow() {
		s.metrics.RecordThrottled()
		logger.Debug("Scheduler: %s upcall for handle %d throttled", kind, h.ID())
		return
	}

	key := metadata.EncodeWireHandle(h.ID())

	var err error
	switch kind {
	case KindUpdate:
		// The attribute delta is applied locally first, then advertised.
		update := e.BumpChange(h)
		err = s.sink.Update(key, update)
	case KindInvalidate:
		err = s.sink.Invalidate(key)
	case KindInvalidateClose:
		err = s.sink.InvalidateClose(key)
	}

	s.metrics.RecordUpcall(kind, err)
	if err != nil {
		logger.Warn("Scheduler: %s upcall for export %s handle %d failed: %v",
			kind, e.Name(), h.ID(), err)
	}
}
