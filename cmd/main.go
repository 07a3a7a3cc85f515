package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buildflow/cashcast/internal/adapters/http/api"
	service "github.com/buildflow/cashcast/internal/app"
	"github.com/buildflow/cashcast/internal/config"
	"github.com/buildflow/cashcast/internal/domain/matching"
	"github.com/buildflow/cashcast/internal/domain/period"
	"github.com/buildflow/cashcast/internal/syncjob"
	"github.com/buildflow/cashcast/pkg/logger"
	"github.com/buildflow/cashcast/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to flush logs: " + err.Error() + "\n")
		}
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	policy := syncjob.NewPolicy(
		syncjob.WithBase(time.Duration(cfg.BackoffBaseMS)*time.Millisecond),
		syncjob.WithMultiplier(cfg.BackoffMultiplier),
		syncjob.WithMaxRetries(cfg.BackoffMaxRetries),
	)

	// Create and start the service with configuration options
	svc := service.New(
		service.WithLogger(log),
		service.WithWorkerCount(cfg.SyncWorkerCount),
		service.WithQueueSize(cfg.SyncQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithMatchThreshold(cfg.MatchThreshold),
		service.WithMatchScheme(matching.Scheme(cfg.MatchScheme)),
		service.WithSuggestionOffsets(cfg.SuggestDelayDays, cfg.SuggestAdvanceDays),
		service.WithBackoffPolicy(policy),
		service.WithDefaultGranularity(period.Granularity(cfg.Granularity)),
		service.WithDefaultBalances(cfg.StartingBalanceDecimal(), cfg.MinimumBalanceDecimal()),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// startServiceMetricsUpdater periodically refreshes queue and store
// gauges from the live service.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

// updateServiceMetrics pushes the service's point-in-time stats into
// the Prometheus gauges.
func updateServiceMetrics(ctx context.Context, svc *service.Service) {
	stats := svc.Stats(ctx)

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
