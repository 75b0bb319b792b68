package model

import (
	"encoding/json"
	"fmt"
	"math"

	"esports-predictor/internal/domain"
)

// WinnerModel is the persisted winner classifier with the feature layout
// it was trained on.
type WinnerModel struct {
	Features domain.FeatureConfig `json:"feature_config"`
	Params   ForestParams         `json:"params"`
	Forest   *RandomForest        `json:"forest"`
}

// NewWinnerModel creates an unfitted winner model.
func NewWinnerModel(cfg domain.FeatureConfig, p ForestParams) (*WinnerModel, error) {
	f, err := NewRandomForest(p)
	if err != nil {
		return nil, err
	}
	return &WinnerModel{Features: cfg, Params: p, Forest: f}, nil
}

// Fit trains the forest on labels where 1 means the home player won.
func (m *WinnerModel) Fit(X [][]float64, y []int) error {
	return m.Forest.Fit(X, y)
}

// HomeWinProbability returns P(home wins) for one feature row.
func (m *WinnerModel) HomeWinProbability(x []float64) (float64, error) {
	if m.Forest == nil {
		return 0, ErrNotFitted
	}
	return m.Forest.PredictProba(x)
}

// ScoreModel predicts home and away scores with independent stacks.
type ScoreModel struct {
	Features domain.FeatureConfig `json:"feature_config"`
	Params   ScoreParams          `json:"params"`
	Home     *Stacking            `json:"home"`
	Away     *Stacking            `json:"away"`
}

// NewScoreModel creates an unfitted score model.
func NewScoreModel(cfg domain.FeatureConfig, p ScoreParams) (*ScoreModel, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	home, err := NewStacking(p.Home)
	if err != nil {
		return nil, err
	}
	away, err := NewStacking(p.Away)
	if err != nil {
		return nil, err
	}
	return &ScoreModel{Features: cfg, Params: p, Home: home, Away: away}, nil
}

// Fit trains both stacks on the same rows.
func (m *ScoreModel) Fit(X [][]float64, home, away []float64) error {
	if err := m.Home.Fit(X, home); err != nil {
		return fmt.Errorf("home stack: %w", err)
	}
	if err := m.Away.Fit(X, away); err != nil {
		return fmt.Errorf("away stack: %w", err)
	}
	return nil
}

// PredictScores returns raw, unrounded home and away predictions.
func (m *ScoreModel) PredictScores(x []float64) (home, away float64, err error) {
	if m.Home == nil || m.Away == nil {
		return 0, 0, ErrNotFitted
	}
	if home, err = m.Home.Predict(x); err != nil {
		return 0, 0, err
	}
	if away, err = m.Away.Predict(x); err != nil {
		return 0, 0, err
	}
	if err := checkFinite(home, away); err != nil {
		return 0, 0, err
	}
	return home, away, nil
}

func checkFinite(home, away float64) error {
	for _, v := range []float64{home, away} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("score model produced non-finite output %v", v)
		}
	}
	return nil
}

// Artifact is the on-disk envelope for a fitted model.
type Artifact struct {
	ModelType string          `json:"model_type"`
	Model     json.RawMessage `json:"model"`
}

// EncodeWinner serializes a winner model into an artifact envelope.
func EncodeWinner(m *WinnerModel) ([]byte, error) {
	return encode(domain.ModelTypeWinner, m)
}

// EncodeScore serializes a score model into an artifact envelope.
func EncodeScore(m *ScoreModel) ([]byte, error) {
	return encode(domain.ModelTypeScore, m)
}

func encode(modelType string, m any) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", modelType, err)
	}
	return json.Marshal(Artifact{ModelType: modelType, Model: raw})
}

// DecodeWinner restores a winner model, rejecting other artifact types.
func DecodeWinner(data []byte) (*WinnerModel, error) {
	var m WinnerModel
	if err := decode(data, domain.ModelTypeWinner, &m); err != nil {
		return nil, err
	}
	if m.Forest == nil || len(m.Forest.Trees) == 0 {
		return nil, fmt.Errorf("decode %s: %w", domain.ModelTypeWinner, ErrNotFitted)
	}
	return &m, nil
}

// DecodeScore restores a score model, rejecting other artifact types.
func DecodeScore(data []byte) (*ScoreModel, error) {
	var m ScoreModel
	if err := decode(data, domain.ModelTypeScore, &m); err != nil {
		return nil, err
	}
	if m.Home == nil || m.Away == nil || m.Home.Meta == nil || m.Away.Meta == nil {
		return nil, fmt.Errorf("decode %s: %w", domain.ModelTypeScore, ErrNotFitted)
	}
	return &m, nil
}

func decode(data []byte, want string, into any) error {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	if a.ModelType != want {
		return fmt.Errorf("decode artifact: type %q, want %q", a.ModelType, want)
	}
	if err := json.Unmarshal(a.Model, into); err != nil {
		return fmt.Errorf("decode %s: %w", want, err)
	}
	return nil
}
