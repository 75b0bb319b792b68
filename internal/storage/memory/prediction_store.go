package memory

import (
	"context"
	"sync"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// PredictionStore is an in-memory implementation of storage.PredictionStore.
type PredictionStore struct {
	mu      sync.RWMutex
	current []*domain.Prediction
	history []*domain.Prediction

	// FailReplace makes ReplaceCurrent return the error.
	FailReplace error
	// FailAppend makes AppendHistory return the error.
	FailAppend error
}

var _ storage.PredictionStore = (*PredictionStore)(nil)

// NewPredictionStore creates a new in-memory prediction store.
func NewPredictionStore() *PredictionStore {
	return &PredictionStore{}
}

// ReplaceCurrent swaps the current batch.
func (s *PredictionStore) ReplaceCurrent(_ context.Context, predictions []*domain.Prediction) error {
	for _, p := range predictions {
		if p == nil {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailReplace != nil {
		return s.FailReplace
	}
	s.current = copyPredictions(predictions)
	return nil
}

// Current returns the current batch.
func (s *PredictionStore) Current(_ context.Context) ([]*domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyPredictions(s.current), nil
}

// AppendHistory appends predictions to the history log.
func (s *PredictionStore) AppendHistory(_ context.Context, predictions []*domain.Prediction) error {
	for _, p := range predictions {
		if p == nil {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailAppend != nil {
		return s.FailAppend
	}
	s.history = append(s.history, copyPredictions(predictions)...)
	return nil
}

// History returns the history log in append order.
func (s *PredictionStore) History(_ context.Context) ([]*domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyPredictions(s.history), nil
}

func copyPredictions(in []*domain.Prediction) []*domain.Prediction {
	out := make([]*domain.Prediction, len(in))
	for i, p := range in {
		c := *p
		out[i] = &c
	}
	return out
}
