package training

import (
	"context"
	"errors"
	"testing"
	"time"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/model"
	"esports-predictor/internal/registry"
	"esports-predictor/internal/simulation"
	"esports-predictor/internal/stats"
	"esports-predictor/internal/storage/memory"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func leagueData(t *testing.T) (domain.StatsByPlayer, []domain.MatchRecord) {
	t.Helper()
	league := simulation.Simulate(simulation.DefaultLeagueOptions())
	matches := domain.MatchValues(league.Played)
	return stats.NewBuilder(stats.DefaultRecentWindow).Build(matches), matches
}

func fastForest() model.ForestParams {
	p := model.DefaultForestParams()
	p.NEstimators = 15
	p.MaxDepth = 6
	return p
}

func fastScore() model.ScoreParams {
	p := model.DefaultScoreParams()
	for _, sp := range []*model.StackParams{&p.Home, &p.Away} {
		sp.Boost.NEstimators = 15
		sp.GBM.NEstimators = 15
		sp.Folds = 3
	}
	return p
}

type fixture struct {
	trainer   *Trainer
	artifacts *memory.ArtifactStore
	winners   *registry.Registry
	scores    *registry.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	docs := memory.NewRegistryDocumentStore()
	artifacts := memory.NewArtifactStore()
	f := &fixture{
		artifacts: artifacts,
		winners:   registry.ForTask(ctx, domain.TaskWinner, docs, artifacts, nil),
		scores:    registry.ForTask(ctx, domain.TaskScore, docs, artifacts, nil),
	}
	f.trainer = New(Options{
		Features:  domain.DefaultFeatureConfig(),
		Artifacts: artifacts,
		Winners:   f.winners,
		Scores:    f.scores,
		Clock:     func() time.Time { return fixedNow },
	})
	return f
}

func TestShuffleSplit(t *testing.T) {
	s := ShuffleSplit(10, 0.2, 42)
	if len(s.Test) != 2 || len(s.Train) != 8 {
		t.Fatalf("expected 8/2 split, got %d/%d", len(s.Train), len(s.Test))
	}
	seen := make(map[int]bool)
	for _, i := range append(append([]int(nil), s.Train...), s.Test...) {
		if seen[i] {
			t.Fatalf("row %d appears twice", i)
		}
		seen[i] = true
	}

	again := ShuffleSplit(10, 0.2, 42)
	for i := range s.Test {
		if s.Test[i] != again.Test[i] {
			t.Fatal("expected the same split for the same seed")
		}
	}

	// ceil(0.2 * 11) = 3
	if got := len(ShuffleSplit(11, 0.2, 1).Test); got != 3 {
		t.Errorf("expected 3 test rows, got %d", got)
	}
}

func TestTrainWinner_SavesAndRegisters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, matches := leagueData(t)

	meta, err := f.trainer.TrainWinner(ctx, st, matches, fastForest())
	if err != nil {
		t.Fatalf("TrainWinner failed: %v", err)
	}

	if meta.ModelID != "1717243200" {
		t.Errorf("expected model id from unix seconds, got %s", meta.ModelID)
	}
	if meta.ModelPath != "winner_prediction_1717243200.json" || meta.InfoPath != "winner_prediction_info_1717243200.json" {
		t.Errorf("unexpected artifact keys: %s, %s", meta.ModelPath, meta.InfoPath)
	}
	if meta.TrainingTime != "20240601_120000" {
		t.Errorf("unexpected training time %s", meta.TrainingTime)
	}
	for _, k := range []string{domain.MetricAccuracy, domain.MetricPrecision, domain.MetricRecall, domain.MetricF1, domain.MetricROCAUC} {
		if _, ok := meta.Metrics[k]; !ok {
			t.Errorf("missing metric %s", k)
		}
	}
	if meta.Metrics[domain.MetricAccuracy] < 0.6 {
		t.Errorf("expected accuracy above 0.6 on a skill-driven league, got %f", meta.Metrics[domain.MetricAccuracy])
	}
	if len(meta.FeatureImportance) != f.trainer.engineer.Width() {
		t.Errorf("expected %d importances, got %d", f.trainer.engineer.Width(), len(meta.FeatureImportance))
	}

	best, ok := f.winners.Best()
	if !ok || best.ModelID != meta.ModelID {
		t.Fatalf("expected registered best %s, got %+v", meta.ModelID, best)
	}

	loaded, err := LoadWinner(ctx, f.artifacts, best)
	if err != nil {
		t.Fatalf("LoadWinner failed: %v", err)
	}
	if loaded.Features != domain.DefaultFeatureConfig() {
		t.Errorf("expected stored feature config, got %+v", loaded.Features)
	}
	info, err := LoadMetadata(ctx, f.artifacts, best)
	if err != nil {
		t.Fatalf("LoadMetadata failed: %v", err)
	}
	if info.NumSamples != meta.NumSamples {
		t.Errorf("expected sidecar samples %d, got %d", meta.NumSamples, info.NumSamples)
	}
}

func TestTrainWinner_IDCollisionBumps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, matches := leagueData(t)

	first, err := f.trainer.TrainWinner(ctx, st, matches, fastForest())
	if err != nil {
		t.Fatalf("first TrainWinner failed: %v", err)
	}
	second, err := f.trainer.TrainWinner(ctx, st, matches, fastForest())
	if err != nil {
		t.Fatalf("second TrainWinner failed: %v", err)
	}
	if first.ModelID == second.ModelID {
		t.Fatal("expected distinct model ids for the same second")
	}
	if second.ModelID != "1717243201" {
		t.Errorf("expected bumped id 1717243201, got %s", second.ModelID)
	}
	if n := len(f.winners.List()); n != 2 {
		t.Errorf("expected 2 registered models, got %d", n)
	}
}

func TestTrainScore_SavesAndRegisters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, matches := leagueData(t)

	meta, err := f.trainer.TrainScore(ctx, st, matches, fastScore())
	if err != nil {
		t.Fatalf("TrainScore failed: %v", err)
	}
	for _, k := range []string{domain.MetricHomeScoreMAE, domain.MetricAwayScoreMAE, domain.MetricTotalScoreMAE, domain.MetricScoreDiffMAE} {
		if _, ok := meta.Metrics[k]; !ok {
			t.Errorf("missing metric %s", k)
		}
	}
	if meta.Metrics[domain.MetricTotalScoreMAE] <= 0 {
		t.Errorf("expected positive total score mae, got %f", meta.Metrics[domain.MetricTotalScoreMAE])
	}

	best, ok := f.scores.Best()
	if !ok || best.TotalScoreMAE == nil {
		t.Fatalf("expected registered score model with mae, got %+v", best)
	}
	if _, err := LoadScore(ctx, f.artifacts, best); err != nil {
		t.Fatalf("LoadScore failed: %v", err)
	}
}

func TestTrain_TooFewSamples(t *testing.T) {
	f := newFixture(t)
	st, matches := leagueData(t)

	_, err := f.trainer.TrainWinner(context.Background(), st, matches[:5], fastForest())
	if !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable, got %v", err)
	}
	if f.artifacts.Len() != 0 {
		t.Errorf("expected no artifacts written, got %d", f.artifacts.Len())
	}
}

func TestFitWinner_InvalidParams(t *testing.T) {
	f := newFixture(t)
	st, matches := leagueData(t)
	data, err := f.trainer.PrepareWinner(st, matches)
	if err != nil {
		t.Fatalf("PrepareWinner failed: %v", err)
	}

	p := fastForest()
	p.MinSamplesLeaf = 0
	if _, _, err := FitWinner(f.trainer.Features(), p, data); !errors.Is(err, ErrTrainingFailed) {
		t.Errorf("expected ErrTrainingFailed, got %v", err)
	}
}
