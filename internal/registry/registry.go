// Package registry tracks trained models per task and designates the best.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/observability"
	"esports-predictor/internal/storage"
)

// Document names of the two registries.
const (
	WinnerRegistryName = "model_registry"
	ScoreRegistryName  = "score_model_registry"
)

// NameFor returns the registry document name of a task.
func NameFor(task domain.Task) string {
	if task == domain.TaskScore {
		return ScoreRegistryName
	}
	return WinnerRegistryName
}

// ErrPersistence wraps document store write failures.
var ErrPersistence = errors.New("registry persistence failed")

// Options configures a Registry.
type Options struct {
	Name       string
	Store      storage.RegistryDocumentStore
	Artifacts  storage.ArtifactStore // used when removing with deleteFiles
	Comparator Comparator
	Logger     *zap.Logger
}

// Registry is the in-memory view of one registry document. Every mutation
// is applied to a copy, persisted, and only then made visible.
type Registry struct {
	name       string
	store      storage.RegistryDocumentStore
	artifacts  storage.ArtifactStore
	comparator Comparator
	logger     *zap.Logger

	mu  sync.RWMutex
	doc *domain.RegistryDocument
}

// New creates a registry and loads its document. A missing or unreadable
// document yields an empty registry.
func New(ctx context.Context, opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		name:       opts.Name,
		store:      opts.Store,
		artifacts:  opts.Artifacts,
		comparator: opts.Comparator,
		logger:     logger.With(zap.String("registry", opts.Name)),
	}
	if r.comparator.Value == nil {
		r.comparator = WinnerComparator()
	}
	r.Reload(ctx)
	return r
}

// ForTask creates the registry of a task with its comparator.
func ForTask(ctx context.Context, task domain.Task, store storage.RegistryDocumentStore, artifacts storage.ArtifactStore, logger *zap.Logger) *Registry {
	return New(ctx, Options{
		Name:       NameFor(task),
		Store:      store,
		Artifacts:  artifacts,
		Comparator: ComparatorFor(task),
		Logger:     logger,
	})
}

// Name returns the registry document name.
func (r *Registry) Name() string {
	return r.name
}

// Comparator returns the selection strategy.
func (r *Registry) Comparator() Comparator {
	return r.comparator
}

// Reload replaces the in-memory view with the stored document.
func (r *Registry) Reload(ctx context.Context) {
	doc, err := r.store.Load(ctx, r.name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		doc = &domain.RegistryDocument{}
	case err != nil:
		r.logger.Warn("registry unreadable, starting empty", zap.Error(err))
		doc = &domain.RegistryDocument{}
	case doc == nil:
		doc = &domain.RegistryDocument{}
	}
	r.normalize(doc)

	r.mu.Lock()
	r.doc = doc
	r.mu.Unlock()
	r.publish(doc)
}

// normalize drops a best pointer that does not name an entry.
func (r *Registry) normalize(doc *domain.RegistryDocument) {
	if doc.BestModelID == nil {
		return
	}
	if indexOf(doc.Models, *doc.BestModelID) < 0 {
		r.logger.Warn("best model id not in registry, recomputing",
			zap.String("best_model_id", *doc.BestModelID))
		r.recomputeBest(doc)
	}
}

// Register inserts or overwrites the entry by model id, recomputes the best
// model and persists.
func (r *Registry) Register(ctx context.Context, entry domain.RegistryEntry) error {
	if entry.ModelID == "" {
		return fmt.Errorf("register: %w: empty model id", storage.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.doc.Clone()
	if i := indexOf(next.Models, entry.ModelID); i >= 0 {
		next.Models[i] = entry.Clone()
	} else {
		next.Models = append(next.Models, entry.Clone())
	}
	r.recomputeBest(next)

	if err := r.commit(ctx, next); err != nil {
		return fmt.Errorf("register %s: %w", entry.ModelID, err)
	}
	r.logger.Info("model registered",
		zap.String("model_id", entry.ModelID),
		zap.Stringp("best_model_id", next.BestModelID))
	return nil
}

// Remove deletes the entry. With deleteFiles the artifact and info sidecar
// are deleted after the document is persisted. Returns storage.ErrNotFound
// if the id is unknown.
func (r *Registry) Remove(ctx context.Context, modelID string, deleteFiles bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := indexOf(r.doc.Models, modelID)
	if i < 0 {
		return fmt.Errorf("remove %s: %w", modelID, storage.ErrNotFound)
	}
	removed := r.doc.Models[i]

	next := r.doc.Clone()
	next.Models = append(next.Models[:i], next.Models[i+1:]...)
	if next.BestModelID != nil && *next.BestModelID == modelID {
		r.recomputeBest(next)
	}

	if err := r.commit(ctx, next); err != nil {
		return fmt.Errorf("remove %s: %w", modelID, err)
	}
	if deleteFiles {
		r.deleteFiles(ctx, removed)
	}
	r.logger.Info("model removed", zap.String("model_id", modelID), zap.Bool("files_deleted", deleteFiles))
	return nil
}

// Clean removes entries with fewer than minSamples samples or a degenerate
// perfect metric. Returns the removed ids in registry order.
func (r *Registry) Clean(ctx context.Context, minSamples int, deleteFiles bool) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.doc.Clone()
	var kept, removed []domain.RegistryEntry
	for _, e := range next.Models {
		if e.NumSamples < minSamples || r.comparator.IsDegenerate(e) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	if len(removed) == 0 {
		return nil, nil
	}
	next.Models = kept
	r.recomputeBest(next)

	if err := r.commit(ctx, next); err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}

	ids := make([]string, len(removed))
	for i, e := range removed {
		ids[i] = e.ModelID
		if deleteFiles {
			r.deleteFiles(ctx, e)
		}
	}
	r.logger.Info("registry cleaned", zap.Strings("removed", ids), zap.Int("remaining", len(kept)))
	return ids, nil
}

// Best returns the designated best entry.
func (r *Registry) Best() (domain.RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.doc.BestModelID == nil {
		return domain.RegistryEntry{}, false
	}
	i := indexOf(r.doc.Models, *r.doc.BestModelID)
	if i < 0 {
		return domain.RegistryEntry{}, false
	}
	return r.doc.Models[i].Clone(), true
}

// Latest returns the entry with the most recent training time, ties broken
// by the greater model id.
func (r *Registry) Latest() (domain.RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.doc.Models) == 0 {
		return domain.RegistryEntry{}, false
	}
	sorted := make([]domain.RegistryEntry, len(r.doc.Models))
	copy(sorted, r.doc.Models)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TrainingTime != sorted[j].TrainingTime {
			return sorted[i].TrainingTime > sorted[j].TrainingTime
		}
		return idGreater(sorted[i].ModelID, sorted[j].ModelID)
	})
	return sorted[0].Clone(), true
}

// List returns all entries in insertion order.
func (r *Registry) List() []domain.RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.RegistryEntry, len(r.doc.Models))
	for i, e := range r.doc.Models {
		out[i] = e.Clone()
	}
	return out
}

// Get returns the entry with the given id. Returns storage.ErrNotFound if
// not registered.
func (r *Registry) Get(modelID string) (domain.RegistryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := indexOf(r.doc.Models, modelID)
	if i < 0 {
		return domain.RegistryEntry{}, fmt.Errorf("model %s: %w", modelID, storage.ErrNotFound)
	}
	return r.doc.Models[i].Clone(), nil
}

// Document returns a copy of the current document.
func (r *Registry) Document() *domain.RegistryDocument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.doc.Clone()
}

// commit persists next and swaps it in. Callers hold the write lock.
func (r *Registry) commit(ctx context.Context, next *domain.RegistryDocument) error {
	if err := r.store.Save(ctx, r.name, next); err != nil {
		r.logger.Error("registry write failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	r.doc = next
	r.publish(next)
	return nil
}

func (r *Registry) recomputeBest(doc *domain.RegistryDocument) {
	i := r.comparator.best(doc.Models)
	if i < 0 {
		doc.BestModelID = nil
		return
	}
	id := doc.Models[i].ModelID
	doc.BestModelID = &id
}

func (r *Registry) deleteFiles(ctx context.Context, e domain.RegistryEntry) {
	if r.artifacts == nil {
		return
	}
	for _, key := range []string{e.ModelPath, e.InfoPath} {
		if key == "" {
			continue
		}
		if err := r.artifacts.Delete(ctx, key); err != nil {
			r.logger.Warn("artifact delete failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func (r *Registry) publish(doc *domain.RegistryDocument) {
	var best float64
	hasBest := false
	if doc.BestModelID != nil {
		if i := indexOf(doc.Models, *doc.BestModelID); i >= 0 {
			best, hasBest = r.comparator.Value(doc.Models[i])
		}
	}
	observability.UpdateRegistry(r.name, len(doc.Models), best, hasBest)
}

func indexOf(entries []domain.RegistryEntry, modelID string) int {
	for i, e := range entries {
		if e.ModelID == modelID {
			return i
		}
	}
	return -1
}
