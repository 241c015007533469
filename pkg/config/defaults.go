package config

import (
	"strings"
	"time"
)

// Default retry budget and base backoff for listing pages.
const (
	DefaultMaxRetries    = 5
	DefaultRetryInterval = time.Second
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Called after loading configuration from file and environment variables to
// fill in missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by the store factories
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyMetricsDefaults(&cfg.Metrics)
	applyExportDefaults(cfg.Exports)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.ListenAddress == "" {
		cfg.ListenAddress = ":9090"
	}
}

func applyExportDefaults(exports []ExportConfig) {
	for i := range exports {
		e := &exports[i]
		if e.MaxRetries == 0 {
			e.MaxRetries = DefaultMaxRetries
		}
		if e.RetryInterval == 0 {
			e.RetryInterval = DefaultRetryInterval
		}
		if e.Store.Type == "" {
			e.Store.Type = "s3"
		}
	}
}
