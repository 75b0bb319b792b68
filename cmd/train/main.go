// Package main trains a winner or score model on the match history and
// registers it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"esports-predictor/internal/app"
	"esports-predictor/internal/domain"
	"esports-predictor/internal/model"
	"esports-predictor/internal/refresh"
	"esports-predictor/internal/stats"
	"esports-predictor/internal/training"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (EP_* environment variables only when empty)")
	task := flag.String("task", "winner", "Model to train: winner or score")
	backend := flag.String("backend", "", "Storage backend: file, memory or postgres (overrides storage.backend)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides storage.postgres_dsn)")
	nEstimators := flag.Int("n-estimators", 0, "Winner forest size (default 100)")
	maxDepth := flag.Int("max-depth", -1, "Winner tree depth, 0 for unlimited (default 10)")
	bases := flag.String("bases", "", "Comma-separated score base learners: boost, gbm, ridge, lasso, ols")
	seed := flag.Int64("seed", 0, "Split and learner seed (overrides training.random_state)")
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
	if *seed != 0 {
		cfg.Training.RandomState = *seed
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	t := domain.Task(*task)
	if !t.Valid() {
		logger.Fatal("unknown task", zap.String("task", *task))
	}

	ctx := context.Background()
	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer stores.Close()

	played, err := (&refresh.StoreSource{History: stores.Matches}).Played(ctx)
	if err != nil {
		logger.Fatal("load matches", zap.Error(err))
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

	var meta *domain.ModelMetadata
	switch t {
	case domain.TaskWinner:
		params := model.DefaultForestParams()
		params.Seed = cfg.Training.RandomState
		if *nEstimators > 0 {
			params.NEstimators = *nEstimators
		}
		if *maxDepth >= 0 {
			params.MaxDepth = *maxDepth
		}
		meta, err = trainer.TrainWinner(ctx, snapshot, played, params)
	case domain.TaskScore:
		params := model.DefaultScoreParams()
		params.Seed = cfg.Training.RandomState
		if *bases != "" {
			params.Home.Bases = strings.Split(*bases, ",")
			params.Away.Bases = strings.Split(*bases, ",")
		}
		meta, err = trainer.TrainScore(ctx, snapshot, played, params)
	}
	if err != nil {
		stores.Close()
		logger.Fatal("training failed", zap.Error(err))
	}

	printMetadata(meta)
}

func printMetadata(meta *domain.ModelMetadata) {
	fmt.Printf("Model:    %s (%s)\n", meta.ModelID, meta.ModelType)
	fmt.Printf("Trained:  %s\n", meta.TrainingTime)
	fmt.Printf("Samples:  %d\n", meta.NumSamples)
	fmt.Printf("Artifact: %s\n", meta.ModelPath)

	keys := make([]string, 0, len(meta.Metrics))
	for k := range meta.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println("Metrics:")
	for _, k := range keys {
		fmt.Printf("  %-18s %.4f\n", k, meta.Metrics[k])
	}
}
