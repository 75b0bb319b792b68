package training

import (
	"context"
	"encoding/json"
	"fmt"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/model"
	"esports-predictor/internal/storage"
)

// LoadWinner reads and decodes the winner artifact of a registry entry.
func LoadWinner(ctx context.Context, artifacts storage.ArtifactStore, e domain.RegistryEntry) (*model.WinnerModel, error) {
	data, err := artifacts.Get(ctx, e.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load winner model %s: %w", e.ModelID, err)
	}
	m, err := model.DecodeWinner(data)
	if err != nil {
		return nil, fmt.Errorf("load winner model %s: %w", e.ModelID, err)
	}
	return m, nil
}

// LoadScore reads and decodes the score artifact of a registry entry.
func LoadScore(ctx context.Context, artifacts storage.ArtifactStore, e domain.RegistryEntry) (*model.ScoreModel, error) {
	data, err := artifacts.Get(ctx, e.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load score model %s: %w", e.ModelID, err)
	}
	m, err := model.DecodeScore(data)
	if err != nil {
		return nil, fmt.Errorf("load score model %s: %w", e.ModelID, err)
	}
	return m, nil
}

// LoadMetadata reads the info sidecar of a registry entry.
func LoadMetadata(ctx context.Context, artifacts storage.ArtifactStore, e domain.RegistryEntry) (*domain.ModelMetadata, error) {
	data, err := artifacts.Get(ctx, e.InfoPath)
	if err != nil {
		return nil, fmt.Errorf("load metadata %s: %w", e.ModelID, err)
	}
	var meta domain.ModelMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", e.ModelID, err)
	}
	return &meta, nil
}
