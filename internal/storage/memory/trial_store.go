package memory

import (
	"context"
	"sort"
	"sync"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// TrialStore is an in-memory implementation of storage.TrialStore.
type TrialStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trial // keyed by trial_id
}

var _ storage.TrialStore = (*TrialStore)(nil)

// NewTrialStore creates a new in-memory trial store.
func NewTrialStore() *TrialStore {
	return &TrialStore{
		data: make(map[string]*domain.Trial),
	}
}

// Insert adds a trial. Returns ErrDuplicateKey if trial_id exists.
func (s *TrialStore) Insert(_ context.Context, t *domain.Trial) error {
	if t == nil || t.TrialID == "" || t.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TrialID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[t.TrialID] = t.Clone()
	return nil
}

// GetByRun returns the trials of a run ordered by index ASC.
func (s *TrialStore) GetByRun(_ context.Context, runID string) ([]*domain.Trial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trial
	for _, t := range s.data {
		if t.RunID == runID {
			result = append(result, t.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Index < result[j].Index
	})
	return result, nil
}
