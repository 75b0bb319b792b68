package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// RegistryDocumentStore implements storage.RegistryDocumentStore using a
// JSONB column per registry name.
type RegistryDocumentStore struct {
	pool *Pool
}

// NewRegistryDocumentStore creates a new RegistryDocumentStore.
func NewRegistryDocumentStore(pool *Pool) *RegistryDocumentStore {
	return &RegistryDocumentStore{pool: pool}
}

var _ storage.RegistryDocumentStore = (*RegistryDocumentStore)(nil)

// Load returns the stored document. Returns ErrNotFound if none exists.
func (s *RegistryDocumentStore) Load(ctx context.Context, name string) (_ *domain.RegistryDocument, err error) {
	defer func(start time.Time) { observe("registry_load", start, err) }(time.Now())

	var raw []byte
	err = s.pool.QueryRow(ctx, `SELECT document FROM model_registries WHERE name = $1`, name).Scan(&raw)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("load registry %s: %w", name, err)
	}

	var doc domain.RegistryDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode registry %s: %w", name, err)
	}
	return &doc, nil
}

// Save replaces the stored document.
func (s *RegistryDocumentStore) Save(ctx context.Context, name string, doc *domain.RegistryDocument) (err error) {
	if name == "" || doc == nil {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("registry_save", start, err) }(time.Now())

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode registry %s: %w", name, err)
	}

	query := `
		INSERT INTO model_registries (name, document, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET document = EXCLUDED.document, updated_at = now()
	`
	if _, err = s.pool.Exec(ctx, query, name, raw); err != nil {
		return fmt.Errorf("save registry %s: %w", name, err)
	}
	return nil
}
