package memory

import (
	"context"
	"sync"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// RegistryDocumentStore is an in-memory implementation of storage.RegistryDocumentStore.
type RegistryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*domain.RegistryDocument

	// FailSave makes Save return the error, for exercising write failures.
	FailSave error
}

var _ storage.RegistryDocumentStore = (*RegistryDocumentStore)(nil)

// NewRegistryDocumentStore creates a new in-memory registry document store.
func NewRegistryDocumentStore() *RegistryDocumentStore {
	return &RegistryDocumentStore{
		docs: make(map[string]*domain.RegistryDocument),
	}
}

// Load returns the stored document. Returns ErrNotFound if none exists.
func (s *RegistryDocumentStore) Load(_ context.Context, name string) (*domain.RegistryDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return doc.Clone(), nil
}

// Save replaces the stored document.
func (s *RegistryDocumentStore) Save(_ context.Context, name string, doc *domain.RegistryDocument) error {
	if name == "" || doc == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailSave != nil {
		return s.FailSave
	}
	s.docs[name] = doc.Clone()
	return nil
}
