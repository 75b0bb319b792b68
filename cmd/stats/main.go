// Package main builds player statistics snapshots from the match history.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"esports-predictor/internal/app"
	"esports-predictor/internal/domain"
	"esports-predictor/internal/refresh"
	"esports-predictor/internal/stats"
	"esports-predictor/internal/storage/filestore"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (EP_* environment variables only when empty)")
	matchFile := flag.String("matches", "", "Match history JSON file (default: the configured match store)")
	output := flag.String("output", "", "Write the snapshot as JSON to this file")
	window := flag.Int("recent-window", 0, "Recent match window (overrides refresh.recent_window)")
	top := flag.Int("top", 20, "Players to print, by win rate")
	flag.Parse()

	cfg, logger, err := app.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if *window > 0 {
		cfg.Refresh.RecentWindow = *window
	}

	ctx := context.Background()
	source := &refresh.StoreSource{}
	if *matchFile != "" {
		source.History = filestore.NewMatchStore(*matchFile)
	} else {
		stores, err := app.OpenStores(ctx, cfg.Storage, logger)
		if err != nil {
			logger.Fatal("open stores", zap.Error(err))
		}
		defer stores.Close()
		source.History = stores.Matches
	}

	played, err := source.Played(ctx)
	if err != nil {
		logger.Fatal("load matches", zap.Error(err))
	}
	snapshot := stats.NewBuilder(cfg.Refresh.RecentWindow).Build(played)
	logger.Info("statistics built", zap.Int("matches", len(played)), zap.Int("players", len(snapshot)))

	if *output != "" {
		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			logger.Fatal("encode snapshot", zap.Error(err))
		}
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			logger.Fatal("write snapshot", zap.Error(err))
		}
		fmt.Printf("Snapshot written to %s\n", *output)
	}

	printTable(snapshot, *top)
}

func printTable(snapshot domain.StatsByPlayer, top int) {
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := snapshot[ids[i]], snapshot[ids[j]]
		if a.WinRate != b.WinRate {
			return a.WinRate > b.WinRate
		}
		return ids[i] < ids[j]
	})
	if top > 0 && len(ids) > top {
		ids = ids[:top]
	}

	fmt.Printf("%-12s %-20s %7s %5s %6s %8s %9s\n", "Player", "Name", "Matches", "Wins", "Win%", "AvgScore", "Variance")
	for _, id := range ids {
		s := snapshot[id]
		fmt.Printf("%-12s %-20s %7d %5d %5.1f%% %8.2f %9.2f\n",
			id, s.PlayerName, s.TotalMatches, s.Wins, 100*s.WinRate, s.AvgScore, s.ScoreVariance)
	}
}
