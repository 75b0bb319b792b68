package model

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"

	"esports-predictor/internal/domain"
)

// separable returns rows where label 1 iff x0 > 0.5.
func separable(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		X[i] = []float64{rng.Float64(), rng.Float64(), rng.Float64()}
		if X[i][0] > 0.5 {
			y[i] = 1
		}
	}
	return X, y
}

func smallForest() ForestParams {
	p := DefaultForestParams()
	p.NEstimators = 20
	p.MaxDepth = 5
	return p
}

func TestRandomForest_LearnsSeparableData(t *testing.T) {
	X, y := separable(200, 1)
	f, err := NewRandomForest(smallForest())
	if err != nil {
		t.Fatalf("NewRandomForest failed: %v", err)
	}
	if err := f.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	testX, testY := separable(100, 2)
	correct := 0
	for i, row := range testX {
		p, err := f.PredictProba(row)
		if err != nil {
			t.Fatalf("PredictProba failed: %v", err)
		}
		if p < 0 || p > 1 {
			t.Fatalf("probability out of range: %f", p)
		}
		if (p >= 0.5) == (testY[i] == 1) {
			correct++
		}
	}
	if correct < 90 {
		t.Errorf("expected at least 90%% accuracy, got %d/100", correct)
	}

	imp := f.FeatureImportance()
	if imp[0] <= imp[1] || imp[0] <= imp[2] {
		t.Errorf("expected feature 0 to dominate importance, got %v", imp)
	}
}

func TestRandomForest_Deterministic(t *testing.T) {
	X, y := separable(80, 3)
	p := smallForest()
	p.ClassWeight = ClassWeightBalancedSubsample

	a, _ := NewRandomForest(p)
	b, _ := NewRandomForest(p)
	_ = a.Fit(X, y)
	_ = b.Fit(X, y)

	for _, row := range X[:10] {
		pa, _ := a.PredictProba(row)
		pb, _ := b.PredictProba(row)
		if math.Float64bits(pa) != math.Float64bits(pb) {
			t.Fatalf("non-deterministic prediction: %v vs %v", pa, pb)
		}
	}
}

func TestNewRandomForest_InvalidParams(t *testing.T) {
	p := DefaultForestParams()
	p.MaxFeatures = "all"
	if _, err := NewRandomForest(p); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams, got %v", err)
	}
}

func TestGradientBoosting_ReducesError(t *testing.T) {
	X, y := linearData()
	p := DefaultStackParams().Boost
	p.NEstimators = 50

	g, err := NewGradientBoosting(p)
	if err != nil {
		t.Fatalf("NewGradientBoosting failed: %v", err)
	}
	if err := g.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	var baseline, fitted float64
	for i, row := range X {
		pred, _ := g.Predict(row)
		fitted += math.Abs(pred - y[i])
		baseline += math.Abs(mean - y[i])
	}
	if fitted >= baseline/4 {
		t.Errorf("expected boosting to beat the mean by 4x: fitted %f baseline %f", fitted, baseline)
	}
}

func TestKFold_Sizes(t *testing.T) {
	folds := kFold(11, 5)
	want := []int{3, 2, 2, 2, 2}
	if len(folds) != 5 {
		t.Fatalf("expected 5 folds, got %d", len(folds))
	}
	next := 0
	for i, f := range folds {
		if len(f.test) != want[i] {
			t.Errorf("fold %d: expected %d test rows, got %d", i, want[i], len(f.test))
		}
		if len(f.train)+len(f.test) != 11 {
			t.Errorf("fold %d: rows do not partition the data", i)
		}
		if f.test[0] != next {
			t.Errorf("fold %d: expected contiguous start %d, got %d", i, next, f.test[0])
		}
		next += len(f.test)
	}
}

func TestStacking_FitsAndRoundTrips(t *testing.T) {
	X, y := linearData()
	p := DefaultStackParams()
	p.Boost.NEstimators = 20
	p.GBM.NEstimators = 20

	s, err := NewStacking(p)
	if err != nil {
		t.Fatalf("NewStacking failed: %v", err)
	}
	if err := s.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if len(s.Bases) != len(DefaultBases) {
		t.Fatalf("expected %d bases, got %d", len(DefaultBases), len(s.Bases))
	}

	want, err := s.Predict([]float64{2, 4})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if math.Abs(want-3) > 2 {
		t.Errorf("expected prediction near 3, got %f", want)
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var restored Stacking
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	got, err := restored.Predict([]float64{2, 4})
	if err != nil {
		t.Fatalf("restored Predict failed: %v", err)
	}
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("restored prediction %f differs from %f", got, want)
	}
}

func TestWinnerArtifact_RoundTrip(t *testing.T) {
	X, y := separable(60, 4)
	m, err := NewWinnerModel(domain.DefaultFeatureConfig(), smallForest())
	if err != nil {
		t.Fatalf("NewWinnerModel failed: %v", err)
	}
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	data, err := EncodeWinner(m)
	if err != nil {
		t.Fatalf("EncodeWinner failed: %v", err)
	}
	restored, err := DecodeWinner(data)
	if err != nil {
		t.Fatalf("DecodeWinner failed: %v", err)
	}
	for _, row := range X[:5] {
		a, _ := m.HomeWinProbability(row)
		b, _ := restored.HomeWinProbability(row)
		if a != b {
			t.Errorf("restored probability %f differs from %f", b, a)
		}
	}

	if _, err := DecodeScore(data); err == nil {
		t.Error("expected DecodeScore to reject a winner artifact")
	}
}

func TestScoreModel_PredictScores(t *testing.T) {
	X, y := linearData()
	away := make([]float64, len(y))
	for i := range y {
		away[i] = 50 - y[i]
	}

	p := DefaultScoreParams()
	for _, sp := range []*StackParams{&p.Home, &p.Away} {
		sp.Boost.NEstimators = 10
		sp.GBM.NEstimators = 10
	}
	m, err := NewScoreModel(domain.DefaultFeatureConfig(), p)
	if err != nil {
		t.Fatalf("NewScoreModel failed: %v", err)
	}
	if err := m.Fit(X, y, away); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	data, err := EncodeScore(m)
	if err != nil {
		t.Fatalf("EncodeScore failed: %v", err)
	}
	restored, err := DecodeScore(data)
	if err != nil {
		t.Fatalf("DecodeScore failed: %v", err)
	}
	h1, a1, err := m.PredictScores(X[3])
	if err != nil {
		t.Fatalf("PredictScores failed: %v", err)
	}
	h2, a2, _ := restored.PredictScores(X[3])
	if h1 != h2 || a1 != a2 {
		t.Errorf("restored scores (%f, %f) differ from (%f, %f)", h2, a2, h1, a1)
	}
}

func TestCheckFinite(t *testing.T) {
	tests := []struct {
		name       string
		home, away float64
		wantErr    bool
	}{
		{"finite", 61.2, -3, false},
		{"nan", math.NaN(), 60, true},
		{"positive infinity", 60, math.Inf(1), true},
		{"negative infinity", math.Inf(-1), 60, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkFinite(tt.home, tt.away)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkFinite(%v, %v) error = %v, wantErr %v", tt.home, tt.away, err, tt.wantErr)
			}
		})
	}
}
