// Package metrics provides Prometheus metrics collection for BucketFS
// components.
//
// All metrics are optional - if the registry is never initialized, the
// constructors return nil and components fall back to their built-in no-op
// implementations. This lets BucketFS run with or without metrics collection
// enabled.
//
// Usage:
//
//	// Initialize global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	listingMetrics := metrics.NewListingMetrics()
//	schedulerMetrics := metrics.NewSchedulerMetrics()
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry for all BucketFS metrics.
	// Write-once via registryOnce, read-many afterwards.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// Call before creating any metrics instances. Safe to call multiple times;
// subsequent calls are ignored. If never called, GetRegistry() returns nil
// and all constructors return no-op implementations.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry, or nil when metrics
// are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether metrics collection is enabled.
func IsEnabled() bool {
	return GetRegistry() != nil
}
