package metadata

import "time"

// ListingMetrics receives observations from the listing protocol.
//
// The interface lives here so the metadata layer stays free of any metrics
// backend; pkg/metrics provides a Prometheus implementation. A nil-equivalent
// NopListingMetrics is used when metrics are disabled.
type ListingMetrics interface {
	// RecordListing observes one complete directory listing.
	RecordListing(duration time.Duration, err error)

	// RecordPage observes one successfully fetched page.
	RecordPage(keys, commonPrefixes int)

	// RecordRetry counts one transient-failure retry.
	RecordRetry()
}

// NopListingMetrics discards all observations.
type NopListingMetrics struct{}

func (NopListingMetrics) RecordListing(time.Duration, error) {}
func (NopListingMetrics) RecordPage(int, int)                {}
func (NopListingMetrics) RecordRetry()                       {}
