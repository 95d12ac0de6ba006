package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trackwave/trackwave/internal/adapters/sink"
	"github.com/trackwave/trackwave/internal/adapters/warehouse"
	app "github.com/trackwave/trackwave/internal/app"
	"github.com/trackwave/trackwave/internal/config"
	"github.com/trackwave/trackwave/pkg/logger"
	"github.com/trackwave/trackwave/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// The warehouse collaborators are loaded from a fixture in this
	// binary; production deployments plug their own implementations of
	// the warehouse interfaces into app.New.
	wh := warehouse.NewStatic()
	if cfg.FixturePath != "" {
		wh, err = warehouse.LoadFixture(cfg.FixturePath)
		if err != nil {
			log.Error(ctx, "failed to load fixture", logger.String("path", cfg.FixturePath), logger.Error(err))
			return
		}
	}

	resultSink, err := sink.OpenSQLite(cfg.SinkPath)
	if err != nil {
		log.Error(ctx, "failed to open sink", logger.String("path", cfg.SinkPath), logger.Error(err))
		return
	}
	defer resultSink.Close()

	svc := app.New(wh, wh, wh, resultSink,
		app.WithCacheTTL(time.Duration(cfg.CacheTTLMinutes)*time.Minute),
		app.WithIdentityCacheSize(cfg.IdentityCacheSize),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithFetchRate(cfg.FetchRatePerSec),
		app.WithRetryAttempts(cfg.RetryAttempts),
		app.WithWindowDays(cfg.WindowDays),
		app.WithRegions(cfg.Regions),
		app.WithLogger(log))

	// Metrics endpoint.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		log.Info(ctx, "starting metrics server", logger.String("addr", cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("metrics server failed: " + err.Error() + "\n")
		}
	}()

	runBatch := func() {
		summary, err := svc.RunReactivityBatch(ctx)
		if err != nil {
			log.Error(ctx, "batch run failed", logger.Error(err))
			return
		}
		log.Info(ctx, "batch run complete",
			logger.Int("processed", summary.Processed),
			logger.Int("errors", summary.Errors))
	}

	runBatch()
	if cfg.BatchIntervalMinutes > 0 {
		ticker := time.NewTicker(time.Duration(cfg.BatchIntervalMinutes) * time.Minute)
		defer ticker.Stop()
	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-ticker.C:
				runBatch()
			}
		}
	} else {
		<-ctx.Done()
	}

	log.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "metrics server shutdown failed", logger.Error(err))
	}
}
