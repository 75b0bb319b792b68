// Package main inspects and maintains the model registries.
//
// Usage:
//
//	registry [flags] list
//	registry [flags] info <model-id>
//	registry [flags] remove <model-id>
//	registry [flags] clean
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"esports-predictor/internal/app"
	"esports-predictor/internal/domain"
	"esports-predictor/internal/registry"
	"esports-predictor/internal/reporting"
	"esports-predictor/internal/storage"
	"esports-predictor/internal/training"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (EP_* environment variables only when empty)")
	task := flag.String("task", "winner", "Registry to use: winner or score")
	backend := flag.String("backend", "", "Storage backend: file, memory or postgres (overrides storage.backend)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides storage.postgres_dsn)")
	deleteFiles := flag.Bool("delete-files", false, "remove/clean: also delete model artifacts and info files")
	minSamples := flag.Int("min-samples", 100, "clean: remove entries trained on fewer samples")
	csvOut := flag.Bool("csv", false, "list: print CSV instead of Markdown")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] list | info <model-id> | remove <model-id> | clean\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

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

	reg := stores.Registry(ctx, t, logger)

	switch cmd := flag.Arg(0); cmd {
	case "list":
		err = list(reg, *csvOut)
	case "info":
		err = info(ctx, reg, stores.Artifacts, flag.Arg(1))
	case "remove":
		err = remove(ctx, reg, flag.Arg(1), *deleteFiles)
	case "clean":
		err = clean(ctx, reg, *minSamples, *deleteFiles)
	default:
		flag.Usage()
		stores.Close()
		os.Exit(2)
	}
	if err != nil {
		stores.Close()
		logger.Fatal("registry command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
	}
}

func list(reg *registry.Registry, asCSV bool) error {
	section := reporting.RegistrySectionOf(reg)
	if asCSV {
		out, err := reporting.RenderRegistryCSV(section)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}
	fmt.Print(reporting.RenderMarkdown(&reporting.Report{
		GeneratedAt: time.Now().UTC(),
		Registries:  []reporting.RegistrySection{section},
	}))
	return nil
}

func info(ctx context.Context, reg *registry.Registry, artifacts storage.ArtifactStore, modelID string) error {
	if modelID == "" {
		return errors.New("info: model id required")
	}
	entry, err := reg.Get(modelID)
	if err != nil {
		return err
	}

	out := struct {
		Entry    domain.RegistryEntry  `json:"entry"`
		Best     bool                  `json:"best"`
		Metadata *domain.ModelMetadata `json:"metadata,omitempty"`
	}{Entry: entry}
	if best, ok := reg.Best(); ok {
		out.Best = best.ModelID == modelID
	}
	meta, err := training.LoadMetadata(ctx, artifacts, entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	} else {
		out.Metadata = meta
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func remove(ctx context.Context, reg *registry.Registry, modelID string, deleteFiles bool) error {
	if modelID == "" {
		return errors.New("remove: model id required")
	}
	if err := reg.Remove(ctx, modelID, deleteFiles); err != nil {
		return err
	}
	fmt.Printf("Removed %s from %s\n", modelID, reg.Name())
	printBest(reg)
	return nil
}

func clean(ctx context.Context, reg *registry.Registry, minSamples int, deleteFiles bool) error {
	removed, err := reg.Clean(ctx, minSamples, deleteFiles)
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		fmt.Printf("Nothing to clean in %s\n", reg.Name())
		return nil
	}
	fmt.Printf("Removed %d models from %s:\n", len(removed), reg.Name())
	for _, id := range removed {
		fmt.Printf("  %s\n", id)
	}
	printBest(reg)
	return nil
}

func printBest(reg *registry.Registry) {
	if best, ok := reg.Best(); ok {
		fmt.Printf("Best model: %s\n", best.ModelID)
		return
	}
	fmt.Println("Best model: none")
}
