package model

import (
	"errors"
	"testing"
)

func TestForestParamsFromMap(t *testing.T) {
	p, err := ForestParamsFromMap(map[string]any{
		"n_estimators": 250,
		"max_depth":    float64(7),
		"max_features": nil,
		"bootstrap":    false,
		"class_weight": "balanced",
		"random_state": 42,
	})
	if err != nil {
		t.Fatalf("ForestParamsFromMap failed: %v", err)
	}
	if p.NEstimators != 250 || p.MaxDepth != 7 {
		t.Errorf("unexpected sizes: %+v", p)
	}
	if p.MaxFeatures != MaxFeaturesAll {
		t.Errorf("expected nil max_features to map to none, got %s", p.MaxFeatures)
	}
	if p.Bootstrap || p.ClassWeight != ClassWeightBalanced {
		t.Errorf("unexpected categorical values: %+v", p)
	}
}

func TestForestParamsFromMap_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		want   error
	}{
		{"unknown key", map[string]any{"criterion": "gini"}, ErrUnknownParam},
		{"fractional int", map[string]any{"max_depth": 3.5}, ErrInvalidParams},
		{"out of range", map[string]any{"min_samples_split": 1}, ErrInvalidParams},
		{"bad category", map[string]any{"class_weight": "auto"}, ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ForestParamsFromMap(tt.values); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestScoreParams_MapRoundTrip(t *testing.T) {
	p := DefaultScoreParams()
	p.Home.Boost.MaxDepth = 6
	p.Away.LassoAlpha = 0.02
	p.Away.Bases = []string{BaseRidge, BaseOLS}

	got, err := ScoreParamsFromMap(p.Map())
	if err != nil {
		t.Fatalf("ScoreParamsFromMap failed: %v", err)
	}
	if got.Home.Boost.MaxDepth != 6 {
		t.Errorf("expected home boost depth 6, got %d", got.Home.Boost.MaxDepth)
	}
	if got.Away.LassoAlpha != 0.02 {
		t.Errorf("expected away lasso alpha 0.02, got %f", got.Away.LassoAlpha)
	}
	if len(got.Away.Bases) != 2 || got.Away.Bases[1] != BaseOLS {
		t.Errorf("expected away bases [ridge ols], got %v", got.Away.Bases)
	}
}

func TestScoreParamsFromMap_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		want   error
	}{
		{"unknown side", map[string]any{"boost_middle_max_depth": 3}, ErrUnknownParam},
		{"unknown learner param", map[string]any{"gbm_home_gamma": 1.0}, ErrUnknownParam},
		{"ridge without alpha", map[string]any{"ridge_home_beta": 1.0}, ErrUnknownParam},
		{"bad learning rate", map[string]any{"boost_away_learning_rate": 2.0}, ErrInvalidParams},
		{"unknown base", map[string]any{"bases_home": "ridge,svm"}, ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ScoreParamsFromMap(tt.values); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
