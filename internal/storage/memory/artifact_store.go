package memory

import (
	"context"
	"sync"

	"esports-predictor/internal/storage"
)

// ArtifactStore is an in-memory implementation of storage.ArtifactStore.
type ArtifactStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ storage.ArtifactStore = (*ArtifactStore)(nil)

// NewArtifactStore creates a new in-memory artifact store.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{
		data: make(map[string][]byte),
	}
}

// Put stores data under key. Returns ErrDuplicateKey if key exists.
func (s *ArtifactStore) Put(_ context.Context, key string, data []byte) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[key] = append([]byte(nil), data...)
	return nil
}

// Get returns the data stored under key. Returns ErrNotFound if not exists.
func (s *ArtifactStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.data[key]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Delete removes key.
func (s *ArtifactStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Len returns the number of stored artifacts.
func (s *ArtifactStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
