// Package main imports match records into the configured match store, from
// a JSON file or a simulated league.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"esports-predictor/internal/app"
	"esports-predictor/internal/domain"
	"esports-predictor/internal/simulation"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (EP_* environment variables only when empty)")
	backend := flag.String("backend", "", "Storage backend: file, memory or postgres (overrides storage.backend)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides storage.postgres_dsn)")
	input := flag.String("input", "", "JSON array of match records to import")
	simulate := flag.Bool("simulate", false, "Import a simulated league instead of a file")
	seed := flag.Int64("seed", 42, "Simulation seed")
	players := flag.Int("players", 12, "Simulated players")
	days := flag.Int("days", 60, "Simulated days of played history")
	flag.Parse()

	if (*input == "") == !*simulate {
		fmt.Fprintln(os.Stderr, "Error: exactly one of --input or --simulate is required")
		os.Exit(1)
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

	var played, upcoming []*domain.MatchRecord
	if *simulate {
		opts := simulation.DefaultLeagueOptions()
		opts.Seed = *seed
		opts.Players = *players
		opts.Days = *days
		league := simulation.Simulate(opts)
		played, upcoming = league.Played, league.Upcoming
	} else {
		played, upcoming, err = readMatches(*input)
		if err != nil {
			logger.Fatal("read matches", zap.Error(err))
		}
	}

	ctx := context.Background()
	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer stores.Close()

	if err := importMatches(ctx, stores, played, upcoming); err != nil {
		stores.Close()
		logger.Fatal("import failed", zap.Error(err))
	}
	logger.Info("matches imported", zap.Int("played", len(played)), zap.Int("upcoming", len(upcoming)))
	fmt.Printf("Imported %d played and %d upcoming matches\n", len(played), len(upcoming))
}

// readMatches splits the file into scored and unscored records.
func readMatches(path string) (played, upcoming []*domain.MatchRecord, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var all []*domain.MatchRecord
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for _, m := range all {
		if m == nil || m.FixtureID == "" {
			continue
		}
		if m.HasScores() {
			played = append(played, m)
		} else {
			upcoming = append(upcoming, m)
		}
	}
	return played, upcoming, nil
}

// importMatches writes upcoming fixtures to the fixture store when the
// backend keeps them apart.
func importMatches(ctx context.Context, stores *app.Stores, played, upcoming []*domain.MatchRecord) error {
	if stores.Fixtures == nil {
		return stores.Matches.Upsert(ctx, append(played, upcoming...))
	}
	if err := stores.Matches.Upsert(ctx, played); err != nil {
		return fmt.Errorf("upsert played: %w", err)
	}
	if err := stores.Fixtures.Upsert(ctx, upcoming); err != nil {
		return fmt.Errorf("upsert upcoming: %w", err)
	}
	return nil
}
