// Package main runs one prediction refresh cycle and prints its outcome.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"esports-predictor/internal/app"
	"esports-predictor/internal/prediction"
	"esports-predictor/internal/refresh"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (EP_* environment variables only when empty)")
	backend := flag.String("backend", "", "Storage backend: file, memory or postgres (overrides storage.backend)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides storage.postgres_dsn)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string; archives the committed batch")
	historyDays := flag.Int("history-days", -1, "Days of played history to use, 0 for all (overrides refresh.history_days)")
	upcomingDays := flag.Int("upcoming-days", -1, "Days of upcoming fixtures to predict, 0 for all (overrides refresh.upcoming_days)")
	printPredictions := flag.Bool("print", false, "Print the committed predictions as JSON")
	flag.Parse()

	cfg, logger, err := app.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if *backend != "" {
		cfg.Storage.Backend = *backend
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickHouseDSN = *clickhouseDSN
	}
	if *historyDays >= 0 {
		cfg.Refresh.HistoryDays = *historyDays
	}
	if *upcomingDays >= 0 {
		cfg.Refresh.UpcomingDays = *upcomingDays
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer stores.Close()

	winners, scores := stores.Registries(ctx, logger)
	var listeners []refresh.Listener
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
		Predictions:  prediction.New(prediction.Options{Store: stores.Predictions, Logger: logger.Named("prediction")}),
		Runs:         stores.Runs,
		Listeners:    listeners,
		Logger:       logger.Named("refresh"),
	})

	res, err := refresher.Run(ctx)
	if res != nil {
		printRun(res)
		if *printPredictions && err == nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(res.Predictions); encErr != nil {
				logger.Error("encode predictions", zap.Error(encErr))
			}
		}
	}
	if err != nil {
		stores.Close()
		logger.Fatal("refresh failed", zap.Error(err))
	}
}

func printRun(res *refresh.Result) {
	r := res.Run
	fmt.Printf("Run:         %s\n", r.RunID)
	fmt.Printf("Status:      %s\n", r.Status)
	if r.FailedStage != "" {
		fmt.Printf("Failed at:   %s (%s)\n", r.FailedStage, r.Error)
	}
	fmt.Printf("Matches:     %d\n", r.Matches)
	fmt.Printf("Players:     %d\n", r.Players)
	fmt.Printf("Upcoming:    %d\n", r.Upcoming)
	fmt.Printf("Predictions: %d (fallbacks %d, skipped %d)\n", r.Predictions, r.Fallbacks, r.Skipped)
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}
