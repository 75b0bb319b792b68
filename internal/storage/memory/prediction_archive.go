package memory

import (
	"context"
	"sort"
	"sync"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// PredictionArchive is an in-memory implementation of storage.PredictionArchive.
type PredictionArchive struct {
	mu   sync.RWMutex
	runs map[string][]*domain.Prediction
}

var _ storage.PredictionArchive = (*PredictionArchive)(nil)

// NewPredictionArchive creates a new in-memory archive.
func NewPredictionArchive() *PredictionArchive {
	return &PredictionArchive{runs: make(map[string][]*domain.Prediction)}
}

// Insert archives one committed batch.
func (a *PredictionArchive) Insert(_ context.Context, runID string, _ int64, predictions []*domain.Prediction) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	for _, p := range predictions {
		if p == nil {
			return storage.ErrInvalidInput
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs[runID] = append(a.runs[runID], copyPredictions(predictions)...)
	return nil
}

// GetByRun returns the archived batch of a run ordered by fixture id.
func (a *PredictionArchive) GetByRun(_ context.Context, runID string) ([]*domain.Prediction, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := copyPredictions(a.runs[runID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].FixtureID < out[j].FixtureID })
	return out, nil
}
