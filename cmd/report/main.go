// Package main prints the model registry report and, for a refresh run
// archived in ClickHouse, the accuracy of its predictions against final
// results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"esports-predictor/internal/app"
	"esports-predictor/internal/reporting"
	"esports-predictor/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (EP_* environment variables only when empty)")
	backend := flag.String("backend", "", "Storage backend: file, memory or postgres (overrides storage.backend)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides storage.postgres_dsn)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides storage.clickhouse_dsn)")
	refreshRun := flag.String("refresh-run", "", "Evaluate the archived predictions of this refresh run ('last' for the latest)")
	optimizeRun := flag.String("optimize-run", "", "Include the trials of this optimization run")
	output := flag.String("output", "", "Write the report to this file instead of stdout")
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
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx := context.Background()
	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer stores.Close()

	md, err := build(ctx, stores, logger, *refreshRun, *optimizeRun)
	if err != nil {
		stores.Close()
		logger.Fatal("report failed", zap.Error(err))
	}

	if *output == "" {
		fmt.Print(md)
		return
	}
	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		logger.Fatal("create output directory", zap.Error(err))
	}
	if err := os.WriteFile(*output, []byte(md), 0o644); err != nil {
		logger.Fatal("write report", zap.Error(err))
	}
	fmt.Printf("Report written to %s\n", *output)
}

func build(ctx context.Context, stores *app.Stores, logger *zap.Logger, refreshRun, optimizeRun string) (string, error) {
	winners, scores := stores.Registries(ctx, logger)
	gen := reporting.NewGenerator(stores.Trials, winners, scores)

	report, err := gen.Generate(ctx, optimizeRun)
	if err != nil {
		return "", err
	}

	if refreshRun != "" {
		if stores.Archive == nil {
			return "", errors.New("--refresh-run needs a ClickHouse prediction archive (--clickhouse-dsn)")
		}
		if refreshRun == "last" {
			run, err := stores.Runs.GetLast(ctx)
			if err != nil {
				return "", fmt.Errorf("last refresh run: %w", err)
			}
			refreshRun = run.RunID
		}
		eval, err := gen.WithArchive(stores.Archive, stores.Matches).EvaluateRun(ctx, refreshRun)
		if errors.Is(err, storage.ErrNotFound) {
			logger.Warn("no archived predictions", zap.String("refresh_run", refreshRun))
		} else if err != nil {
			return "", err
		}
		report.Evaluation = eval
	}

	return reporting.RenderMarkdown(report), nil
}
