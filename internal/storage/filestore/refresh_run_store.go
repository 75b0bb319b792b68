package filestore

import (
	"context"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// RefreshRunStore keeps the last refresh run in a single JSON file.
type RefreshRunStore struct {
	path string
}

var _ storage.RefreshRunStore = (*RefreshRunStore)(nil)

// NewRefreshRunStore creates a store backed by path.
func NewRefreshRunStore(path string) *RefreshRunStore {
	return &RefreshRunStore{path: path}
}

// GetLast returns the saved run. Returns ErrNotFound if none was saved.
func (s *RefreshRunStore) GetLast(_ context.Context) (*domain.RefreshRun, error) {
	var run domain.RefreshRun
	exists, err := readJSON(s.path, &run)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &run, nil
}

// Save overwrites the saved run.
func (s *RefreshRunStore) Save(_ context.Context, run *domain.RefreshRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}
	return writeJSON(s.path, run)
}
