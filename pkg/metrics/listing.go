package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/bucketfs/pkg/metadata"
)

// listingMetrics is the Prometheus implementation of metadata.ListingMetrics.
//
// Collected series:
//   - listing counts and durations, split by outcome
//   - per-page key and common-prefix volumes
//   - transient-failure retries
type listingMetrics struct {
	listingsTotal   *prometheus.CounterVec
	listingDuration prometheus.Histogram
	pageKeys        prometheus.Counter
	pagePrefixes    prometheus.Counter
	pagesTotal      prometheus.Counter
	retriesTotal    prometheus.Counter
}

// NewListingMetrics creates a Prometheus-backed metadata.ListingMetrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// causes the export to use its built-in no-op implementation.
func NewListingMetrics() metadata.ListingMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &listingMetrics{
		listingsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bucketfs_listings_total",
				Help: "Total number of directory listings by outcome",
			},
			[]string{"status"},
		),
		listingDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "bucketfs_listing_duration_seconds",
				Help: "Duration of complete directory listings in seconds",
				Buckets: []float64{
					0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0,
				},
			},
		),
		pageKeys: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "bucketfs_listing_keys_total",
				Help: "Total object keys returned by listing pages",
			},
		),
		pagePrefixes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "bucketfs_listing_common_prefixes_total",
				Help: "Total common prefixes returned by listing pages",
			},
		),
		pagesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "bucketfs_listing_pages_total",
				Help: "Total listing pages fetched",
			},
		),
		retriesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "bucketfs_listing_retries_total",
				Help: "Total listing page retries after transient failures",
			},
		),
	}
}

func (m *listingMetrics) RecordListing(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.listingsTotal.WithLabelValues(status).Inc()
	m.listingDuration.Observe(duration.Seconds())
}

func (m *listingMetrics) RecordPage(keys, commonPrefixes int) {
	m.pagesTotal.Inc()
	m.pageKeys.Add(float64(keys))
	m.pagePrefixes.Add(float64(commonPrefixes))
}

func (m *listingMetrics) RecordRetry() {
	m.retriesTotal.Inc()
}
