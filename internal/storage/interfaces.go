package storage

import (
	"context"

	"esports-predictor/internal/domain"
)

// MatchStore provides access to the match history.
type MatchStore interface {
	// Upsert inserts or replaces matches by fixture id.
	Upsert(ctx context.Context, matches []*domain.MatchRecord) error

	// GetAll returns every match ordered by date ASC, fixture id ASC.
	GetAll(ctx context.Context) ([]*domain.MatchRecord, error)

	// GetByDateRange returns matches dated within [from, to] (inclusive,
	// DateLayout strings), ordered like GetAll.
	GetByDateRange(ctx context.Context, from, to string) ([]*domain.MatchRecord, error)
}

// RegistryDocumentStore persists registry documents by registry name.
type RegistryDocumentStore interface {
	// Load returns the stored document. Returns ErrNotFound if none exists.
	Load(ctx context.Context, name string) (*domain.RegistryDocument, error)

	// Save replaces the stored document.
	Save(ctx context.Context, name string, doc *domain.RegistryDocument) error
}

// ArtifactStore is a key-addressed byte store for model artifacts and
// metadata sidecars.
type ArtifactStore interface {
	// Put stores data under key. Returns ErrDuplicateKey if key exists.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the data stored under key. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// PredictionStore holds the current prediction batch and the append-only
// history of every committed batch.
type PredictionStore interface {
	// ReplaceCurrent atomically swaps the current batch.
	ReplaceCurrent(ctx context.Context, predictions []*domain.Prediction) error

	// Current returns the current batch. Returns an empty slice if none.
	Current(ctx context.Context) ([]*domain.Prediction, error)

	// AppendHistory appends predictions to the history log.
	AppendHistory(ctx context.Context, predictions []*domain.Prediction) error

	// History returns the history log in append order.
	History(ctx context.Context) ([]*domain.Prediction, error)
}

// TrialStore provides access to optimization trials.
type TrialStore interface {
	// Insert adds a trial. Returns ErrDuplicateKey if trial_id exists.
	Insert(ctx context.Context, t *domain.Trial) error

	// GetByRun returns the trials of a run ordered by index ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.Trial, error)
}

// RefreshRunStore records refresh cycles so the last outcome survives
// restarts.
type RefreshRunStore interface {
	// GetLast returns the most recently finished run.
	// Returns ErrNotFound if no run has been saved yet.
	GetLast(ctx context.Context) (*domain.RefreshRun, error)

	// Save records a finished run.
	Save(ctx context.Context, run *domain.RefreshRun) error
}

// PredictionArchive keeps every committed prediction for offline accuracy
// analysis, tagged with the refresh run that produced it.
type PredictionArchive interface {
	// Insert archives one committed batch.
	Insert(ctx context.Context, runID string, committedAtMs int64, predictions []*domain.Prediction) error

	// GetByRun returns the archived batch of a run ordered by fixture id.
	GetByRun(ctx context.Context, runID string) ([]*domain.Prediction, error)
}
