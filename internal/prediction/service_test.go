package prediction

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/model"
	"esports-predictor/internal/registry"
	"esports-predictor/internal/simulation"
	"esports-predictor/internal/stats"
	"esports-predictor/internal/storage/memory"
	"esports-predictor/internal/training"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func fastForest() model.ForestParams {
	p := model.DefaultForestParams()
	p.NEstimators = 15
	p.MaxDepth = 6
	return p
}

func fastScore() model.ScoreParams {
	p := model.DefaultScoreParams()
	for _, sp := range []*model.StackParams{&p.Home, &p.Away} {
		sp.Boost.NEstimators = 10
		sp.GBM.NEstimators = 10
		sp.Folds = 3
	}
	return p
}

type env struct {
	league    *simulation.League
	stats     domain.StatsByPlayer
	played    []domain.MatchRecord
	upcoming  []domain.MatchRecord
	artifacts *memory.ArtifactStore
	winners   *registry.Registry
	scores    *registry.Registry
	models    *Models
}

// newEnv trains and registers one model per task on a simulated league.
func newEnv(t *testing.T, cfg domain.FeatureConfig) *env {
	t.Helper()
	ctx := context.Background()
	league := simulation.Simulate(simulation.DefaultLeagueOptions())
	played := domain.MatchValues(league.Played)
	docs := memory.NewRegistryDocumentStore()
	e := &env{
		league:    league,
		stats:     stats.NewBuilder(stats.DefaultRecentWindow).Build(played),
		played:    played,
		upcoming:  domain.MatchValues(league.Upcoming),
		artifacts: memory.NewArtifactStore(),
	}
	e.winners = registry.ForTask(ctx, domain.TaskWinner, docs, e.artifacts, nil)
	e.scores = registry.ForTask(ctx, domain.TaskScore, docs, e.artifacts, nil)

	trainer := training.New(training.Options{
		Features:  cfg,
		Artifacts: e.artifacts,
		Winners:   e.winners,
		Scores:    e.scores,
		Clock:     clock,
	})
	if _, err := trainer.TrainWinner(ctx, e.stats, played, fastForest()); err != nil {
		t.Fatalf("TrainWinner: %v", err)
	}
	if _, err := trainer.TrainScore(ctx, e.stats, played, fastScore()); err != nil {
		t.Fatalf("TrainScore: %v", err)
	}
	models, err := LoadModels(ctx, e.winners, e.scores, e.artifacts, nil)
	if err != nil {
		t.Fatalf("LoadModels: %v", err)
	}
	e.models = models
	return e
}

func TestGenerate_ChampionModels(t *testing.T) {
	e := newEnv(t, domain.DefaultFeatureConfig())
	svc := New(Options{Store: memory.NewPredictionStore(), Clock: clock})

	batch := svc.Generate(e.models, e.stats, e.upcoming, e.played)
	if len(batch.Outcomes) != len(e.upcoming) {
		t.Fatalf("expected %d outcomes, got %d", len(e.upcoming), len(batch.Outcomes))
	}
	for _, o := range batch.Outcomes {
		if o.Status != StatusOK {
			t.Fatalf("fixture %s: status %s (%s)", o.FixtureID, o.Status, o.Reason)
		}
		p := o.Prediction
		if p.Method != domain.MethodModel {
			t.Errorf("fixture %s: method %s", p.FixtureID, p.Method)
		}
		w := p.Winner
		if w.HomeWinProbability+w.AwayWinProbability < 0.999 || w.HomeWinProbability+w.AwayWinProbability > 1.001 {
			t.Errorf("fixture %s: probabilities do not sum to 1: %+v", p.FixtureID, w)
		}
		if w.Confidence != max(w.HomeWinProbability, w.AwayWinProbability) {
			t.Errorf("fixture %s: confidence %v", p.FixtureID, w.Confidence)
		}
		s := p.Score
		if s.HomeScore < 0 || s.AwayScore < 0 {
			t.Errorf("fixture %s: negative score %+v", p.FixtureID, s)
		}
		if s.TotalScore != s.HomeScore+s.AwayScore || s.ScoreDiff != s.HomeScore-s.AwayScore {
			t.Errorf("fixture %s: inconsistent totals %+v", p.FixtureID, s)
		}
		if p.WinnerModelID != e.models.WinnerID || p.ScoreModelID != e.models.ScoreID {
			t.Errorf("fixture %s: model ids %s/%s", p.FixtureID, p.WinnerModelID, p.ScoreModelID)
		}
		if p.GeneratedAt != "2024-06-01 12:00:00" {
			t.Errorf("fixture %s: generated_at %s", p.FixtureID, p.GeneratedAt)
		}
		if len(p.PredictionID) != 64 {
			t.Errorf("fixture %s: prediction id %q", p.FixtureID, p.PredictionID)
		}
	}
}

func TestGenerate_UnknownPlayerUsesDefault(t *testing.T) {
	e := newEnv(t, domain.DefaultFeatureConfig())
	svc := New(Options{Clock: clock})

	match := e.upcoming[0]
	match.AwayPlayer = domain.Participant{ID: "ghost", Name: "Ghost"}

	first := svc.Generate(e.models, e.stats, []domain.MatchRecord{match}, e.played)
	o := first.Outcomes[0]
	if o.Status != StatusFallback {
		t.Fatalf("expected fallback, got %s", o.Status)
	}
	p := o.Prediction
	if p.Winner.Confidence != 0.5 || p.Method != domain.MethodDefault {
		t.Errorf("expected neutral default, got %+v (%s)", p.Winner, p.Method)
	}
	if p.Score.HomeScore != DefaultScore || p.Score.AwayScore != DefaultScore || p.Score.TotalScore != 2*DefaultScore {
		t.Errorf("expected default scores, got %+v", p.Score)
	}

	second := svc.Generate(e.models, e.stats, []domain.MatchRecord{match}, e.played)
	if second.Outcomes[0].Prediction.Winner.PredictedWinner != p.Winner.PredictedWinner {
		t.Error("default winner is not stable for the same fixture")
	}
}

func TestGenerate_SkipsMalformed(t *testing.T) {
	e := newEnv(t, domain.DefaultFeatureConfig())
	svc := New(Options{Clock: clock})

	bad := domain.MatchRecord{FixtureID: "broken", HomePlayer: domain.Participant{ID: "p01"}}
	batch := svc.Generate(e.models, e.stats, []domain.MatchRecord{bad, e.upcoming[0]}, e.played)
	if batch.Count(StatusSkipped) != 1 || batch.Outcomes[0].Status != StatusSkipped {
		t.Fatalf("expected the malformed match to be skipped: %+v", batch.Outcomes[0])
	}
	if got := len(batch.Predictions()); got != 1 {
		t.Errorf("expected 1 prediction, got %d", got)
	}
}

func TestGenerate_InferenceFailureUsesHeuristic(t *testing.T) {
	e := newEnv(t, domain.DefaultFeatureConfig())
	svc := New(Options{Clock: clock})

	// A narrower layout than the one the forest was fitted on.
	broken := *e.models
	winner := *e.models.Winner
	winner.Features = domain.FeatureConfig{UseBasic: true}
	broken.Winner = &winner

	batch := svc.Generate(&broken, e.stats, e.upcoming[:1], e.played)
	o := batch.Outcomes[0]
	if o.Status != StatusFallback || o.Prediction.Method != domain.MethodHeuristic {
		t.Fatalf("expected heuristic fallback, got %s/%s", o.Status, o.Prediction.Method)
	}
	home, away := e.stats[e.upcoming[0].HomePlayer.ID], e.stats[e.upcoming[0].AwayPlayer.ID]
	if want := heuristicWinner(home, away); o.Prediction.Winner != want {
		t.Errorf("winner %+v, want heuristic %+v", o.Prediction.Winner, want)
	}
	if o.Prediction.FallbackReason == "" {
		t.Error("expected a fallback reason")
	}
}

func TestGenerate_DeterministicWithBasicFeatures(t *testing.T) {
	e := newEnv(t, domain.FeatureConfig{UseBasic: true})
	svc := New(Options{Clock: clock})

	st := domain.StatsByPlayer{
		"strong": {PlayerID: "strong", PlayerName: "Strong", TotalMatches: 10, Wins: 7, Losses: 3, WinRate: 0.7, AvgScore: 66, TotalScore: 660},
		"weak":   {PlayerID: "weak", PlayerName: "Weak", TotalMatches: 10, Wins: 3, Losses: 7, WinRate: 0.3, AvgScore: 55, TotalScore: 550},
	}
	match := domain.MatchRecord{
		FixtureID:  "f-scenario",
		HomePlayer: domain.Participant{ID: "strong", Name: "Strong"},
		AwayPlayer: domain.Participant{ID: "weak", Name: "Weak"},
		StartTime:  "2024-06-02T18:00:00Z",
	}

	a := svc.Generate(e.models, st, []domain.MatchRecord{match}, nil)
	b := svc.Generate(e.models, st, []domain.MatchRecord{match}, nil)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("repeated generate differs:\n%+v\n%+v", a.Outcomes[0].Prediction, b.Outcomes[0].Prediction)
	}
	if a.Outcomes[0].Status != StatusOK {
		t.Errorf("expected model prediction, got %s (%s)", a.Outcomes[0].Status, a.Outcomes[0].Reason)
	}
}

func TestScoreClamping(t *testing.T) {
	tests := []struct {
		home, away float64
		want       domain.ScorePrediction
	}{
		{-3.7, 10.2, domain.ScorePrediction{HomeScore: 0, AwayScore: 10, TotalScore: 10, ScoreDiff: -10}},
		{62.5, 61.5, domain.ScorePrediction{HomeScore: 62, AwayScore: 62, TotalScore: 124, ScoreDiff: 0}},
		{59.51, 0.49, domain.ScorePrediction{HomeScore: 60, AwayScore: 0, TotalScore: 60, ScoreDiff: 60}},
		{math.Inf(1), 70, domain.ScorePrediction{HomeScore: MaxScore, AwayScore: 70, TotalScore: MaxScore + 70, ScoreDiff: MaxScore - 70}},
		{50, 1e30, domain.ScorePrediction{HomeScore: 50, AwayScore: MaxScore, TotalScore: MaxScore + 50, ScoreDiff: 50 - MaxScore}},
		{math.Inf(-1), math.NaN(), domain.ScorePrediction{}},
	}
	for _, tt := range tests {
		if got := scoreFromRaw(tt.home, tt.away); got != tt.want {
			t.Errorf("scoreFromRaw(%v, %v) = %+v, want %+v", tt.home, tt.away, got, tt.want)
		}
	}
}

func TestWinnerFromProbability(t *testing.T) {
	home := 0.3
	w := winnerFromProbability(home)
	if w.PredictedWinner != domain.SideAway || w.Confidence != 1-home {
		t.Errorf("unexpected %+v", w)
	}
	if w := winnerFromProbability(0.5); w.PredictedWinner != domain.SideAway {
		t.Errorf("even odds should go to away, got %s", w.PredictedWinner)
	}
}

func TestPersist(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPredictionStore()
	svc := New(Options{Store: store, Clock: clock})

	batch := []*domain.Prediction{{FixtureID: "a"}, {FixtureID: "b"}}
	if err := svc.Persist(ctx, batch); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	current, _ := store.Current(ctx)
	history, _ := store.History(ctx)
	if len(current) != 2 || len(history) != 2 {
		t.Fatalf("expected 2 current and 2 history, got %d/%d", len(current), len(history))
	}
	if current[0].SavedAt != "" {
		t.Error("current batch should not carry saved_at")
	}
	if history[0].SavedAt != "2024-06-01 12:00:00" {
		t.Errorf("history saved_at = %q", history[0].SavedAt)
	}
	if batch[0].SavedAt != "" {
		t.Error("Persist mutated its input")
	}

	store.FailReplace = errors.New("disk full")
	err := svc.Persist(ctx, []*domain.Prediction{{FixtureID: "c"}})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	current, _ = store.Current(ctx)
	history, _ = store.History(ctx)
	if len(current) != 2 || len(history) != 2 {
		t.Errorf("failed persist changed stores: %d/%d", len(current), len(history))
	}
}

func TestPersistRestoresCurrentOnHistoryFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPredictionStore()
	svc := New(Options{Store: store, Clock: clock})

	if err := svc.Persist(ctx, []*domain.Prediction{{FixtureID: "good"}}); err != nil {
		t.Fatal(err)
	}
	store.FailAppend = errors.New("history locked")
	if err := svc.Persist(ctx, []*domain.Prediction{{FixtureID: "new"}}); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	current, _ := store.Current(ctx)
	if len(current) != 1 || current[0].FixtureID != "good" {
		t.Errorf("expected previous batch restored, got %+v", current)
	}
}

func TestCurrentFilterFuture(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPredictionStore()
	svc := New(Options{Store: store, Clock: clock})
	_ = store.ReplaceCurrent(ctx, []*domain.Prediction{
		{FixtureID: "past", FixtureStart: "2024-05-31T10:00:00Z"},
		{FixtureID: "future", FixtureStart: "2024-06-01T13:00:00Z"},
		{FixtureID: "naive", FixtureStart: "2024-06-03 09:00:00"},
		{FixtureID: "garbage", FixtureStart: "soon"},
	})

	all, err := svc.Current(ctx, false)
	if err != nil || len(all) != 4 {
		t.Fatalf("expected 4 predictions, got %d (%v)", len(all), err)
	}
	future, _ := svc.Current(ctx, true)
	var ids []string
	for _, p := range future {
		ids = append(ids, p.FixtureID)
	}
	if !reflect.DeepEqual(ids, []string{"future", "naive"}) {
		t.Errorf("future = %v", ids)
	}
}

func TestHistoryFilters(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPredictionStore()
	svc := New(Options{Store: store, Clock: clock})
	_ = store.AppendHistory(ctx, []*domain.Prediction{
		{FixtureID: "1", HomePlayer: domain.Participant{Name: "Alpha"}, AwayPlayer: domain.Participant{Name: "Bravo"}, FixtureStart: "2024-05-01T10:00:00Z"},
		{FixtureID: "2", HomePlayer: domain.Participant{Name: "Charlie"}, AwayPlayer: domain.Participant{Name: "ALPHAVILLE"}, FixtureStart: "2024-05-02T10:00:00Z"},
		{FixtureID: "3", HomePlayer: domain.Participant{Name: "Delta"}, AwayPlayer: domain.Participant{Name: "Echo"}, FixtureStart: "2024-05-01T18:00:00Z"},
	})

	tests := []struct {
		player, date string
		want         []string
	}{
		{"", "", []string{"1", "2", "3"}},
		{"alpha", "", []string{"1", "2"}},
		{"", "2024-05-01", []string{"1", "3"}},
		{"alpha", "2024-05-02", []string{"2"}},
		{"zulu", "", nil},
	}
	for _, tt := range tests {
		got, err := svc.History(ctx, tt.player, tt.date)
		if err != nil {
			t.Fatal(err)
		}
		var ids []string
		for _, p := range got {
			ids = append(ids, p.FixtureID)
		}
		if !reflect.DeepEqual(ids, tt.want) {
			t.Errorf("History(%q, %q) = %v, want %v", tt.player, tt.date, ids, tt.want)
		}
	}
}

func TestLoadModels(t *testing.T) {
	ctx := context.Background()
	docs := memory.NewRegistryDocumentStore()
	artifacts := memory.NewArtifactStore()
	winners := registry.ForTask(ctx, domain.TaskWinner, docs, artifacts, nil)
	scores := registry.ForTask(ctx, domain.TaskScore, docs, artifacts, nil)

	if _, err := LoadModels(ctx, winners, scores, artifacts, nil); !errors.Is(err, training.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable for empty registries, got %v", err)
	}

	league := simulation.Simulate(simulation.DefaultLeagueOptions())
	played := domain.MatchValues(league.Played)
	st := stats.NewBuilder(stats.DefaultRecentWindow).Build(played)

	// Saved without registering, then registered without a metric so the
	// registry has entries but no designated best.
	trainer := training.New(training.Options{Features: domain.DefaultFeatureConfig(), Artifacts: artifacts, Clock: clock})
	wd, err := trainer.PrepareWinner(st, played)
	if err != nil {
		t.Fatal(err)
	}
	wm, wScores, err := training.FitWinner(trainer.Features(), fastForest(), wd)
	if err != nil {
		t.Fatal(err)
	}
	wMeta, err := trainer.SaveWinner(ctx, wm, wScores, wd.Samples())
	if err != nil {
		t.Fatal(err)
	}
	sd, err := trainer.PrepareScore(st, played)
	if err != nil {
		t.Fatal(err)
	}
	sm, sScores, err := training.FitScore(trainer.Features(), fastScore(), sd)
	if err != nil {
		t.Fatal(err)
	}
	sMeta, err := trainer.SaveScore(ctx, sm, sScores, sd.Samples())
	if err != nil {
		t.Fatal(err)
	}

	we := domain.EntryFromMetadata(wMeta)
	we.Accuracy = nil
	se := domain.EntryFromMetadata(sMeta)
	se.TotalScoreMAE = nil
	if err := winners.Register(ctx, we); err != nil {
		t.Fatal(err)
	}
	if err := scores.Register(ctx, se); err != nil {
		t.Fatal(err)
	}
	if _, ok := winners.Best(); ok {
		t.Fatal("expected no designated best")
	}

	models, err := LoadModels(ctx, winners, scores, artifacts, nil)
	if err != nil {
		t.Fatalf("LoadModels: %v", err)
	}
	if models.WinnerID != wMeta.ModelID || models.ScoreID != sMeta.ModelID {
		t.Errorf("loaded %s/%s, want latest %s/%s", models.WinnerID, models.ScoreID, wMeta.ModelID, sMeta.ModelID)
	}
}
