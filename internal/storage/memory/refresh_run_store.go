package memory

import (
	"context"
	"sync"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// RefreshRunStore is an in-memory implementation of storage.RefreshRunStore.
type RefreshRunStore struct {
	mu   sync.RWMutex
	last *domain.RefreshRun
}

var _ storage.RefreshRunStore = (*RefreshRunStore)(nil)

// NewRefreshRunStore creates a new in-memory refresh run store.
func NewRefreshRunStore() *RefreshRunStore {
	return &RefreshRunStore{}
}

// GetLast returns the most recently saved run.
func (s *RefreshRunStore) GetLast(_ context.Context) (*domain.RefreshRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.last == nil {
		return nil, storage.ErrNotFound
	}
	run := *s.last
	return &run, nil
}

// Save records a finished run.
func (s *RefreshRunStore) Save(_ context.Context, run *domain.RefreshRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *run
	s.last = &saved
	return nil
}
