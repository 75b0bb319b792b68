// Package main runs a Bayesian hyperparameter search for one task, registers
// the champion and prints the trial report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"esports-predictor/internal/app"
	"esports-predictor/internal/config"
	"esports-predictor/internal/domain"
	"esports-predictor/internal/optimizer"
	"esports-predictor/internal/refresh"
	"esports-predictor/internal/reporting"
	"esports-predictor/internal/stats"
	"esports-predictor/internal/training"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (EP_* environment variables only when empty)")
	task := flag.String("task", "winner", "Task to optimize: winner or score")
	backend := flag.String("backend", "", "Storage backend: file, memory or postgres (overrides storage.backend)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides storage.postgres_dsn)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string; records every trial")
	calls := flag.Int("n-calls", 0, "Objective evaluations (overrides optimizer.n_calls)")
	initial := flag.Int("n-initial-points", 0, "Random evaluations before the surrogate (overrides optimizer.n_initial_points)")
	outputDir := flag.String("output-dir", "", "Also write REPORT.md and CSV tables to this directory")
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
	if *calls > 0 {
		cfg.Optimizer.NCalls = *calls
	}
	if *initial > 0 {
		cfg.Optimizer.NInitialPoints = *initial
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	t := domain.Task(*task)
	if !t.Valid() {
		logger.Fatal("unknown task", zap.String("task", *task))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer stores.Close()

	if err := run(ctx, t, stores, cfg, logger, *outputDir); err != nil {
		stores.Close()
		logger.Fatal("optimization failed", zap.Error(err))
	}
}

func run(ctx context.Context, task domain.Task, stores *app.Stores, cfg config.Config, logger *zap.Logger, outputDir string) error {
	oc := cfg.Optimizer
	played, err := (&refresh.StoreSource{History: stores.Matches}).Played(ctx)
	if err != nil {
		return fmt.Errorf("load matches: %w", err)
	}
	snapshot := stats.NewBuilder(cfg.Refresh.RecentWindow).Build(played)

	winners, scores := stores.Registries(ctx, logger)
	trainer := training.New(training.Options{
		Features:   cfg.Features,
		TestSize:   cfg.Training.TestSize,
		Seed:       cfg.Training.RandomState,
		MinSamples: cfg.Training.MinSamples,
		DataFiles:  app.DataFiles(cfg.Storage),
		Artifacts:  stores.Artifacts,
		Winners:    winners,
		Scores:     scores,
		Logger:     logger.Named("training"),
	})

	opts := optimizer.Options{
		Calls:         oc.NCalls,
		InitialPoints: oc.NInitialPoints,
		Candidates:    oc.Candidates,
		Xi:            oc.Xi,
		Seed:          cfg.Training.RandomState,
		Trials:        stores.Trials,
		Logger:        logger.Named("optimizer"),
	}

	var outcome *optimizer.Outcome
	switch task {
	case domain.TaskWinner:
		data, err := trainer.PrepareWinner(snapshot, played)
		if err != nil {
			return err
		}
		outcome, err = optimizer.OptimizeWinner(ctx, trainer, data, opts)
		if err != nil {
			return err
		}
	case domain.TaskScore:
		data, err := trainer.PrepareScore(snapshot, played)
		if err != nil {
			return err
		}
		outcome, err = optimizer.OptimizeScore(ctx, trainer, data, opts)
		if err != nil {
			return err
		}
	}

	fmt.Printf("Run %s: registered %s model %s (score %.4f)\n\n",
		outcome.RunID, task, outcome.Metadata.ModelID, outcome.BestScore)

	reg := winners
	if task == domain.TaskScore {
		reg = scores
	}
	report, err := reporting.NewGenerator(stores.Trials, reg).Generate(ctx, outcome.RunID)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	md := reporting.RenderMarkdown(report)
	fmt.Print(md)

	if outputDir == "" {
		return nil
	}
	return writeReport(outputDir, report, md)
}

func writeReport(dir string, report *reporting.Report, md string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	files := map[string]string{"REPORT.md": md}

	trials, err := reporting.RenderTrialsCSV(report.Optimization.Trials)
	if err != nil {
		return err
	}
	files[report.Optimization.Summary.RunID+"_trials.csv"] = trials

	for _, s := range report.Registries {
		out, err := reporting.RenderRegistryCSV(s)
		if err != nil {
			return err
		}
		files[s.Name+".csv"] = out
	}

	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	fmt.Printf("Report written to %s/\n", dir)
	return nil
}
