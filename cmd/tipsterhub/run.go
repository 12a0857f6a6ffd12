package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/dnscache"

	"github.com/winmix/tipsterhub/internal/app"
	"github.com/winmix/tipsterhub/internal/circuitbreaker"
	"github.com/winmix/tipsterhub/internal/config"
	"github.com/winmix/tipsterhub/internal/edge"
	"github.com/winmix/tipsterhub/internal/querycache"
	"github.com/winmix/tipsterhub/internal/server"
	"github.com/winmix/tipsterhub/internal/storage/sqlite"
	"github.com/winmix/tipsterhub/internal/telemetry"
	"github.com/winmix/tipsterhub/internal/worker"
)

const dnsRefreshInterval = 5 * time.Minute

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func run(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(cfg.Log))

	slog.Info("starting tipsterhub", "version", version, "addr", cfg.Server.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Tracing
	if cfg.Telemetry.Tracing.Enabled {
		shutdown, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Tracing.Endpoint, cfg.Telemetry.Tracing.SampleRate, version)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				slog.Warn("tracer shutdown failed", "error", err)
			}
		}()
	}

	// Metrics
	var metrics *telemetry.Metrics
	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = telemetry.NewMetrics(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	// Open database
	store, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	// Bootstrap from config
	if err := config.Bootstrap(ctx, cfg, store); err != nil {
		return err
	}

	// Query cache
	qs, err := querycache.NewStore(querycache.Options{
		MaxSize:    cfg.Cache.MaxSize,
		DefaultTTL: cfg.Cache.DefaultTTL,
	})
	if err != nil {
		return err
	}
	cacheCfg := querycache.Config{Tracer: telemetry.Tracer("github.com/winmix/tipsterhub/querycache")}
	if metrics != nil {
		cacheCfg.Metrics = metrics
	}
	cache := querycache.New(qs, cacheCfg)

	// Edge functions
	var workers []worker.Worker
	var breakers *circuitbreaker.Registry
	catalogOpts := app.CatalogOptions{TTLs: cfg.Cache.TTLs}
	if cfg.Edge.BaseURL != "" {
		resolver := &dnscache.Resolver{}
		breakers = circuitbreaker.NewRegistry(circuitbreaker.DefaultConfig())
		edgeOpts := edge.Options{
			BaseURL:  cfg.Edge.BaseURL,
			APIKey:   cfg.Edge.APIKey,
			Timeout:  cfg.Edge.Timeout,
			Resolver: resolver,
			Breakers: breakers,
		}
		if metrics != nil {
			edgeOpts.Observer = metrics
		}
		client, err := edge.New(edgeOpts)
		if err != nil {
			return err
		}
		catalogOpts.Performance = client
		workers = append(workers, worker.NewDNSRefreshWorker(resolver, dnsRefreshInterval))
	} else {
		slog.Warn("edge.base_url not set, model performance is unavailable")
	}

	catalog := app.NewCatalog(store, cache, catalogOpts)

	if metrics != nil && cfg.Cache.StatsInterval > 0 {
		workers = append(workers, worker.NewCacheStatsWorker(cache, metrics.CacheEntries, cfg.Cache.StatsInterval))
	}

	// Create HTTP server
	handler := server.New(server.Deps{
		Catalog:        catalog,
		AdminToken:     cfg.Admin.Token,
		ReadyCheck:     store.Ping,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
		Breakers:       breakers,
	})
	if cfg.Admin.Token == "" {
		slog.Warn("admin.token not set, admin API is unauthenticated")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Background workers
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	workerErr := make(chan error, 1)
	go func() {
		if err := worker.NewRunner(workers...).Run(workerCtx); err != nil {
			workerErr <- err
		}
	}()

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("tipsterhub ready", "addr", cfg.Server.Addr)

	select {
	case <-ctx.Done():
		slog.Info("shutting down", "cause", context.Cause(ctx))
	case err := <-errCh:
		return err
	case err := <-workerErr:
		return err
	}

	// Shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	cancelWorkers()

	slog.Info("tipsterhub stopped")
	return nil
}
