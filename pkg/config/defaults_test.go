package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_LogLevelNormalization(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "debug"
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
}

func TestApplyDefaults_ServerPreservesExplicit(t *testing.T) {
	cfg := &Config{}
	cfg.Server.ShutdownTimeout = 5 * time.Second
	ApplyDefaults(cfg)

	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("Explicit shutdown timeout overwritten: %v", cfg.Server.ShutdownTimeout)
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Metrics.ListenAddress != "" {
		t.Errorf("Disabled metrics should not get a listen address, got %q", cfg.Metrics.ListenAddress)
	}

	cfg = &Config{}
	cfg.Metrics.Enabled = true
	ApplyDefaults(cfg)
	if cfg.Metrics.ListenAddress != ":9090" {
		t.Errorf("Expected default listen address ':9090', got %q", cfg.Metrics.ListenAddress)
	}
}

func TestApplyDefaults_Exports(t *testing.T) {
	cfg := &Config{
		Exports: []ExportConfig{
			{Name: "plain"},
			{Name: "tuned", MaxRetries: 2, RetryInterval: 10 * time.Second},
		},
	}
	ApplyDefaults(cfg)

	plain := cfg.Exports[0]
	if plain.MaxRetries != DefaultMaxRetries {
		t.Errorf("Expected default max_retries %d, got %d", DefaultMaxRetries, plain.MaxRetries)
	}
	if plain.RetryInterval != DefaultRetryInterval {
		t.Errorf("Expected default retry_interval %v, got %v", DefaultRetryInterval, plain.RetryInterval)
	}
	if plain.Store.Type != "s3" {
		t.Errorf("Expected default store type 's3', got %q", plain.Store.Type)
	}

	tuned := cfg.Exports[1]
	if tuned.MaxRetries != 2 || tuned.RetryInterval != 10*time.Second {
		t.Errorf("Explicit export settings overwritten: %+v", tuned)
	}
}

func TestApplyDefaults_SchedulerUntouched(t *testing.T) {
	// A zero interval means disabled and must stay zero.
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Scheduler.Interval != 0 {
		t.Errorf("Expected scheduler interval to stay 0, got %v", cfg.Scheduler.Interval)
	}
}
