package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/pkg/config"
	"github.com/marmos91/bucketfs/pkg/metrics"
	"github.com/marmos91/bucketfs/pkg/registry"
	"github.com/marmos91/bucketfs/pkg/scheduler"
	"github.com/marmos91/bucketfs/pkg/upcall"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	fmt.Println("BucketFS - object storage as a filesystem tree")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		go serveMetrics(cfg.Metrics.ListenAddress)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := registry.New()
	listingMetrics := metrics.NewListingMetrics()

	for i := range cfg.Exports {
		export, err := config.CreateExport(ctx, &cfg.Exports[i], listingMetrics)
		if err != nil {
			log.Fatalf("Failed to create export: %v", err)
		}
		if _, err := reg.Register(export); err != nil {
			log.Fatalf("Failed to register export: %v", err)
		}
	}

	sched := scheduler.New(scheduler.Config{
		Interval:      cfg.Scheduler.Interval,
		UpcallRate:    cfg.Scheduler.UpcallRate,
		UpcallBurst:   cfg.Scheduler.UpcallBurst,
		ShutdownGrace: cfg.Server.ShutdownTimeout,
	}, reg, upcall.Logging{}, metrics.NewSchedulerMetrics())
	sched.Start()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("BucketFS is running with %d export(s). Press Ctrl+C to stop.", reg.Len())
	<-sigChan

	logger.Info("Shutdown signal received, initiating graceful shutdown...")
	shutdownStart := time.Now()

	if err := sched.Stop(); err != nil {
		logger.Warn("Scheduler shutdown was forced: %v", err)
	}
	if err := reg.CloseAll(); err != nil {
		logger.Error("Export teardown reported errors: %v", err)
	}

	logger.Info("Shutdown complete in %v", time.Since(shutdownStart))
}

// serveMetrics exposes the Prometheus registry over HTTP.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	logger.Info("Metrics endpoint listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics endpoint failed: %v", err)
	}
}
