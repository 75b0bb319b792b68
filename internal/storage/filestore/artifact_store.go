package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"esports-predictor/internal/storage"
)

// ArtifactStore stores artifacts as write-once files under a root directory.
// Keys are slash-separated paths relative to the root.
type ArtifactStore struct {
	root string
}

var _ storage.ArtifactStore = (*ArtifactStore)(nil)

// NewArtifactStore creates a store rooted at root.
func NewArtifactStore(root string) *ArtifactStore {
	return &ArtifactStore{root: root}
}

func (s *ArtifactStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: artifact key %q", storage.ErrInvalidInput, key)
	}
	return filepath.Join(s.root, clean), nil
}

// Put writes data under key. Returns ErrDuplicateKey if the file exists.
func (s *ArtifactStore) Put(_ context.Context, key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return storage.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", key, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close %s: %w", key, err)
	}
	return nil
}

// Get reads the file stored under key.
func (s *ArtifactStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Delete removes the file stored under key.
func (s *ArtifactStore) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
