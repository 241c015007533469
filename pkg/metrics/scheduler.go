package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/bucketfs/pkg/scheduler"
)

// schedulerMetrics is the Prometheus implementation of scheduler.Metrics.
type schedulerMetrics struct {
	tickDuration prometheus.Histogram
	upcallsTotal *prometheus.CounterVec
	throttled    prometheus.Counter
}

// NewSchedulerMetrics creates a Prometheus-backed scheduler.Metrics.
//
// Returns nil if metrics are not enabled, which causes the scheduler to use
// its built-in no-op implementation.
func NewSchedulerMetrics() scheduler.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &schedulerMetrics{
		tickDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bucketfs_scheduler_tick_duration_seconds",
				Help:    "Duration of invalidation scheduler ticks in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 30.0},
			},
		),
		upcallsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bucketfs_scheduler_upcalls_total",
				Help: "Total coherency upcalls by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		throttled: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "bucketfs_scheduler_upcalls_throttled_total",
				Help: "Total upcalls dropped by the rate limiter",
			},
		),
	}
}

func (m *schedulerMetrics) RecordTick(duration time.Duration) {
	m.tickDuration.Observe(duration.Seconds())
}

func (m *schedulerMetrics) RecordUpcall(kind string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.upcallsTotal.WithLabelValues(kind, status).Inc()
}

func (m *schedulerMetrics) RecordThrottled() {
	m.throttled.Inc()
}
