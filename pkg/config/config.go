package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete BucketFS configuration.
//
// This structure captures all configurable aspects of the BucketFS daemon:
//   - Logging configuration
//   - Server-wide settings (shutdown behavior)
//   - Optional Prometheus metrics endpoint
//   - The invalidation scheduler
//   - Export definitions (one per bucket)
//
// Configuration sources (in order of precedence):
//  1. Environment variables (BUCKETFS_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each export names a store type and carries a type-specific options map;
// only the section matching the selected type is decoded, by the factory for
// that store.
type Config struct {
	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`

	// Server-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Metrics endpoint configuration
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Invalidation scheduler configuration
	Scheduler SchedulerConfig `mapstructure:"scheduler"`

	// Export definitions
	Exports []ExportConfig `mapstructure:"exports" validate:"dive"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is the minimum log level (DEBUG, INFO, WARN, ERROR)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format selects the output format (text or json)
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output is the destination: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains daemon-wide settings.
type ServerConfig struct {
	// ShutdownTimeout bounds graceful shutdown of background tasks
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns metrics collection and the HTTP endpoint on
	Enabled bool `mapstructure:"enabled"`

	// ListenAddress is the host:port the /metrics endpoint binds to
	ListenAddress string `mapstructure:"listen_address"`
}

// SchedulerConfig controls the invalidation scheduler.
type SchedulerConfig struct {
	// Interval between coherency ticks; 0 disables the scheduler
	Interval time.Duration `mapstructure:"interval"`

	// UpcallRate caps sustained upcalls per second; 0 means unlimited
	UpcallRate uint `mapstructure:"upcall_rate"`

	// UpcallBurst is the upcall rate limiter's burst capacity
	UpcallBurst uint `mapstructure:"upcall_burst"`
}

// ExportConfig defines one exported bucket.
type ExportConfig struct {
	// Name labels the export in logs and metrics
	Name string `mapstructure:"name" validate:"required"`

	// MaxRetries is the total attempt budget per listing page
	MaxRetries uint `mapstructure:"max_retries"`

	// RetryInterval is the sleep before the first retry; it grows by one
	// second per subsequent attempt
	RetryInterval time.Duration `mapstructure:"retry_interval"`

	// RequestTimeout bounds one page request; 0 means unbounded
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// MaxKeys caps the object keys collected per listing; 0 means unlimited
	MaxKeys int `mapstructure:"max_keys"`

	// Store selects and configures the object store backing this export
	Store StoreConfig `mapstructure:"store"`
}

// StoreConfig selects an object store implementation.
type StoreConfig struct {
	// Type is the store implementation (currently only "s3")
	Type string `mapstructure:"type" validate:"required,oneof=s3"`

	// S3 holds s3-specific options (region, bucket, endpoint, credentials)
	S3 map[string]any `mapstructure:"s3"`
}

// Load reads the configuration from file and environment.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (BUCKETFS_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the BUCKETFS_ prefix and underscores.
	// Example: BUCKETFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("BUCKETFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/bucketfs/config.{yaml,toml}
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is acceptable - defaults apply
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "bucketfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "bucketfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
