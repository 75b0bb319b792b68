// Package main runs the prediction service: the read API, websocket push of
// committed batches, /metrics and the cron-scheduled refresh cycle.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"esports-predictor/internal/api"
	"esports-predictor/internal/app"
	"esports-predictor/internal/config"
	cronrunner "esports-predictor/internal/cron"
	"esports-predictor/internal/domain"
	"esports-predictor/internal/prediction"
	"esports-predictor/internal/refresh"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (EP_* environment variables only when empty)")
	httpAddr := flag.String("http-addr", "", "HTTP listen address (overrides server.http_addr)")
	backend := flag.String("backend", "", "Storage backend: file, memory or postgres (overrides storage.backend)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides storage.postgres_dsn)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides storage.clickhouse_dsn)")
	redisAddr := flag.String("redis-addr", "", "Redis address for the prediction cache (overrides storage.redis_addr)")
	schedule := flag.String("schedule", "", "Refresh cron spec, seconds first (overrides refresh.schedule)")
	origins := flag.String("allowed-origins", "", "Comma-separated CORS and websocket origins")
	noRefresh := flag.Bool("no-refresh", false, "Serve only; do not schedule refresh cycles")
	flag.Parse()

	cfg, logger, err := app.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	override(&cfg.Server.HTTPAddr, *httpAddr)
	override(&cfg.Storage.Backend, *backend)
	override(&cfg.Storage.PostgresDSN, *postgresDSN)
	override(&cfg.Storage.ClickHouseDSN, *clickhouseDSN)
	override(&cfg.Storage.RedisAddr, *redisAddr)
	override(&cfg.Refresh.Schedule, *schedule)
	if *origins != "" {
		cfg.Server.AllowedOrigins = strings.Split(*origins, ",")
	}
	if *noRefresh {
		cfg.Refresh.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cancel, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func run(ctx context.Context, cancel context.CancelFunc, cfg config.Config, logger *zap.Logger) error {
	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer stores.Close()

	winners, scores := stores.Registries(ctx, logger)
	service := prediction.New(prediction.Options{
		Store:  stores.CachedPredictions(cfg.Storage.CacheTTL, logger),
		Logger: logger.Named("prediction"),
	})

	hub := api.NewHub(cfg.Server.AllowedOrigins, logger)
	listeners := []refresh.Listener{hub}
	if stores.Archive != nil {
		listeners = append(listeners, refresh.ArchiveListener{Archive: stores.Archive})
	}

	refresher := refresh.New(refresh.Options{
		Source: &refresh.StoreSource{
			History:      stores.Matches,
			Fixtures:     stores.Fixtures,
			HistoryDays:  cfg.Refresh.HistoryDays,
			UpcomingDays: cfg.Refresh.UpcomingDays,
		},
		FetchTimeout: cfg.Refresh.FetchTimeout,
		RecentWindow: cfg.Refresh.RecentWindow,
		Winners:      winners,
		Scores:       scores,
		Artifacts:    stores.Artifacts,
		Predictions:  service,
		Runs:         stores.Runs,
		Listeners:    listeners,
		Logger:       logger.Named("refresh"),
	})

	router := api.NewRouter(api.Options{
		Predictions: service,
		Registries: map[domain.Task]api.ModelRegistry{
			domain.TaskWinner: winners,
			domain.TaskScore:  scores,
		},
		Refresher:      refresher,
		Hub:            hub,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RefreshContext: ctx,
		Logger:         logger,
	})
	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	defer close(done)
	go handleSignals(cancel, done, cfg.Server.ShutdownTimeout, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("http server started", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer stop()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Refresh.Enabled {
		g.Go(func() error {
			return runScheduler(gctx, cfg.Refresh, refresher, logger)
		})
	} else {
		logger.Info("scheduled refresh disabled")
	}

	return g.Wait()
}

// runScheduler triggers refresh cycles on the configured cron spec until ctx
// is done.
func runScheduler(ctx context.Context, cfg config.RefreshConfig, refresher *refresh.Refresher, logger *zap.Logger) error {
	job := func(ctx context.Context) error {
		_, err := refresher.Run(ctx)
		if errors.Is(err, refresh.ErrAlreadyRunning) {
			logger.Info("refresh already running, skipping")
			return nil
		}
		return err
	}

	runner := cronrunner.New(logger.Named("cron"), ctx)
	id, err := runner.Add(cfg.Schedule, "refresh", job)
	if err != nil {
		return fmt.Errorf("schedule refresh %q: %w", cfg.Schedule, err)
	}
	runner.Start()
	defer runner.Stop()
	logger.Info("refresh scheduled", zap.String("schedule", cfg.Schedule), zap.Time("next", runner.Next(id)))

	if cfg.RunOnStart {
		if err := job(ctx); err != nil {
			logger.Warn("initial refresh failed", zap.Error(err))
		}
	}

	<-ctx.Done()
	return nil
}

// handleSignals cancels on the first signal and exits on a second one or
// when graceful shutdown exceeds twice the timeout.
func handleSignals(cancel context.CancelFunc, done <-chan struct{}, timeout time.Duration, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case <-done:
		return
	}

	select {
	case sig := <-sigCh:
		logger.Warn("received second signal, forcing exit", zap.String("signal", sig.String()))
		os.Exit(1)
	case <-time.After(2 * timeout):
		logger.Warn("graceful shutdown timed out, forcing exit")
		os.Exit(1)
	case <-done:
	}
}
