package postgres

import (
	"context"
	"fmt"
	"time"

	"esports-predictor/internal/storage"
)

// ArtifactStore implements storage.ArtifactStore using a BYTEA table.
type ArtifactStore struct {
	pool *Pool
}

// NewArtifactStore creates a new ArtifactStore.
func NewArtifactStore(pool *Pool) *ArtifactStore {
	return &ArtifactStore{pool: pool}
}

var _ storage.ArtifactStore = (*ArtifactStore)(nil)

// Put stores data under key. Returns ErrDuplicateKey if key exists.
func (s *ArtifactStore) Put(ctx context.Context, key string, data []byte) (err error) {
	if key == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("artifact_put", start, err) }(time.Now())

	_, err = s.pool.Exec(ctx, `INSERT INTO model_artifacts (key, data) VALUES ($1, $2)`, key, data)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("put artifact %s: %w", key, err)
	}
	return nil
}

// Get returns the data stored under key. Returns ErrNotFound if not exists.
func (s *ArtifactStore) Get(ctx context.Context, key string) (_ []byte, err error) {
	defer func(start time.Time) { observe("artifact_get", start, err) }(time.Now())

	var data []byte
	err = s.pool.QueryRow(ctx, `SELECT data FROM model_artifacts WHERE key = $1`, key).Scan(&data)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get artifact %s: %w", key, err)
	}
	return data, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *ArtifactStore) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { observe("artifact_delete", start, err) }(time.Now())

	if _, err = s.pool.Exec(ctx, `DELETE FROM model_artifacts WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete artifact %s: %w", key, err)
	}
	return nil
}
