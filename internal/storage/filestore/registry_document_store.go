package filestore

import (
	"context"
	"fmt"
	"path/filepath"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// RegistryDocumentStore keeps each registry in <dir>/<name>.json.
type RegistryDocumentStore struct {
	dir string
}

var _ storage.RegistryDocumentStore = (*RegistryDocumentStore)(nil)

// NewRegistryDocumentStore creates a store rooted at dir.
func NewRegistryDocumentStore(dir string) *RegistryDocumentStore {
	return &RegistryDocumentStore{dir: dir}
}

// Path returns the file backing a registry.
func (s *RegistryDocumentStore) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load returns the stored document. Returns ErrNotFound if the file is missing.
func (s *RegistryDocumentStore) Load(_ context.Context, name string) (*domain.RegistryDocument, error) {
	var doc domain.RegistryDocument
	exists, err := readJSON(s.Path(name), &doc)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &doc, nil
}

// Save replaces the registry file.
func (s *RegistryDocumentStore) Save(_ context.Context, name string, doc *domain.RegistryDocument) error {
	if name == "" || doc == nil {
		return storage.ErrInvalidInput
	}
	out := *doc
	if out.Models == nil {
		out.Models = []domain.RegistryEntry{}
	}
	if err := writeJSON(s.Path(name), &out); err != nil {
		return fmt.Errorf("save registry %s: %w", name, err)
	}
	return nil
}
