package training

import (
	"fmt"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/metrics"
	"esports-predictor/internal/model"
)

// FitWinner trains a winner model on data.Train and evaluates it on data.Test.
func FitWinner(cfg domain.FeatureConfig, params model.ForestParams, data *WinnerData) (*model.WinnerModel, map[string]float64, error) {
	m, err := model.NewWinnerModel(cfg, params)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTrainingFailed, err)
	}
	if err := m.Fit(data.Train.X, data.Train.Labels); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTrainingFailed, err)
	}

	probs := make([]float64, data.Test.Len())
	for i, row := range data.Test.X {
		p, err := m.HomeWinProbability(row)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: evaluate: %w", ErrTrainingFailed, err)
		}
		probs[i] = p
	}
	return m, metrics.WinnerReport(data.Test.Labels, probs), nil
}

// FitScore trains a score model on data.Train and evaluates it on data.Test.
func FitScore(cfg domain.FeatureConfig, params model.ScoreParams, data *ScoreData) (*model.ScoreModel, map[string]float64, error) {
	m, err := model.NewScoreModel(cfg, params)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTrainingFailed, err)
	}
	if err := m.Fit(data.Train.X, data.Train.HomeScores, data.Train.AwayScores); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTrainingFailed, err)
	}

	n := data.Test.Len()
	homePred, awayPred := make([]float64, n), make([]float64, n)
	for i, row := range data.Test.X {
		h, a, err := m.PredictScores(row)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: evaluate: %w", ErrTrainingFailed, err)
		}
		homePred[i], awayPred[i] = h, a
	}
	return m, metrics.ScoreReport(data.Test.HomeScores, data.Test.AwayScores, homePred, awayPred), nil
}
