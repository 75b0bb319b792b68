package prediction

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/model"
	"esports-predictor/internal/registry"
	"esports-predictor/internal/storage"
	"esports-predictor/internal/training"
)

// Models are the champion models used for one prediction batch.
type Models struct {
	Winner   *model.WinnerModel
	WinnerID string
	Score    *model.ScoreModel
	ScoreID  string
}

// LoadModels loads the champion of each registry. A registry without a
// designated best falls back to its most recently registered entry.
func LoadModels(ctx context.Context, winners, scores *registry.Registry, artifacts storage.ArtifactStore, logger *zap.Logger) (*Models, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	we, err := champion(winners, logger)
	if err != nil {
		return nil, err
	}
	se, err := champion(scores, logger)
	if err != nil {
		return nil, err
	}

	wm, err := training.LoadWinner(ctx, artifacts, we)
	if err != nil {
		return nil, err
	}
	sm, err := training.LoadScore(ctx, artifacts, se)
	if err != nil {
		return nil, err
	}

	logger.Info("champion models loaded",
		zap.String("winner_model_id", we.ModelID),
		zap.String("score_model_id", se.ModelID))
	return &Models{Winner: wm, WinnerID: we.ModelID, Score: sm, ScoreID: se.ModelID}, nil
}

func champion(r *registry.Registry, logger *zap.Logger) (domain.RegistryEntry, error) {
	if e, ok := r.Best(); ok {
		return e, nil
	}
	e, ok := r.Latest()
	if !ok {
		return domain.RegistryEntry{}, fmt.Errorf("%w: registry %s is empty", training.ErrDataUnavailable, r.Name())
	}
	logger.Warn("no best model designated, using latest",
		zap.String("registry", r.Name()),
		zap.String("model_id", e.ModelID))
	return e, nil
}
