package filestore

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// PredictionStore keeps the current batch and the history log as JSON arrays.
// Unreadable files are treated as empty.
type PredictionStore struct {
	currentPath string
	historyPath string
	logger      *zap.Logger

	mu sync.Mutex // serializes history read-modify-write
}

var _ storage.PredictionStore = (*PredictionStore)(nil)

// NewPredictionStore creates a store backed by the two files.
func NewPredictionStore(currentPath, historyPath string, logger *zap.Logger) *PredictionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PredictionStore{currentPath: currentPath, historyPath: historyPath, logger: logger}
}

// ReplaceCurrent atomically rewrites the current predictions file.
func (s *PredictionStore) ReplaceCurrent(_ context.Context, predictions []*domain.Prediction) error {
	if predictions == nil {
		predictions = []*domain.Prediction{}
	}
	if err := writeJSON(s.currentPath, predictions); err != nil {
		return fmt.Errorf("replace current predictions: %w", err)
	}
	return nil
}

// Current reads the current predictions file.
func (s *PredictionStore) Current(_ context.Context) ([]*domain.Prediction, error) {
	return s.read(s.currentPath), nil
}

// AppendHistory appends to the history file.
func (s *PredictionStore) AppendHistory(_ context.Context, predictions []*domain.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.read(s.historyPath), predictions...)
	if err := writeJSON(s.historyPath, history); err != nil {
		return fmt.Errorf("append prediction history: %w", err)
	}
	return nil
}

// History reads the history file.
func (s *PredictionStore) History(_ context.Context) ([]*domain.Prediction, error) {
	return s.read(s.historyPath), nil
}

func (s *PredictionStore) read(path string) []*domain.Prediction {
	var out []*domain.Prediction
	if _, err := readJSON(path, &out); err != nil {
		s.logger.Warn("prediction file unreadable, treating as empty",
			zap.String("path", path), zap.Error(err))
		return []*domain.Prediction{}
	}
	if out == nil {
		out = []*domain.Prediction{}
	}
	return out
}
