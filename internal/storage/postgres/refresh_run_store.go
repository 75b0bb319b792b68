package postgres

import (
	"context"
	"fmt"
	"time"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// RefreshRunStore implements storage.RefreshRunStore using PostgreSQL.
type RefreshRunStore struct {
	pool *Pool
}

// NewRefreshRunStore creates a new RefreshRunStore.
func NewRefreshRunStore(pool *Pool) *RefreshRunStore {
	return &RefreshRunStore{pool: pool}
}

var _ storage.RefreshRunStore = (*RefreshRunStore)(nil)

// Save records a finished run. Saving the same run id again overwrites it.
func (s *RefreshRunStore) Save(ctx context.Context, run *domain.RefreshRun) (err error) {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("refresh_run_save", start, err) }(time.Now())

	query := `
		INSERT INTO refresh_runs (
			run_id, started_at_ms, finished_at_ms, status, failed_stage, error,
			matches, players, upcoming, predictions, fallbacks, skipped
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_id) DO UPDATE SET
			started_at_ms = EXCLUDED.started_at_ms,
			finished_at_ms = EXCLUDED.finished_at_ms,
			status = EXCLUDED.status,
			failed_stage = EXCLUDED.failed_stage,
			error = EXCLUDED.error,
			matches = EXCLUDED.matches,
			players = EXCLUDED.players,
			upcoming = EXCLUDED.upcoming,
			predictions = EXCLUDED.predictions,
			fallbacks = EXCLUDED.fallbacks,
			skipped = EXCLUDED.skipped
	`

	_, err = s.pool.Exec(ctx, query,
		run.RunID, run.StartedAtMs, run.FinishedAtMs,
		string(run.Status), string(run.FailedStage), run.Error,
		run.Matches, run.Players, run.Upcoming, run.Predictions, run.Fallbacks, run.Skipped,
	)
	if err != nil {
		return fmt.Errorf("save refresh run: %w", err)
	}
	return nil
}

// GetLast returns the most recently finished run.
func (s *RefreshRunStore) GetLast(ctx context.Context) (_ *domain.RefreshRun, err error) {
	defer func(start time.Time) { observe("refresh_run_last", start, err) }(time.Now())

	query := `
		SELECT run_id, started_at_ms, finished_at_ms, status, failed_stage, error,
			matches, players, upcoming, predictions, fallbacks, skipped
		FROM refresh_runs
		ORDER BY finished_at_ms DESC, run_id DESC
		LIMIT 1
	`

	var run domain.RefreshRun
	var status, stage string
	err = s.pool.QueryRow(ctx, query).Scan(
		&run.RunID, &run.StartedAtMs, &run.FinishedAtMs, &status, &stage, &run.Error,
		&run.Matches, &run.Players, &run.Upcoming, &run.Predictions, &run.Fallbacks, &run.Skipped,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get last refresh run: %w", err)
	}
	run.Status = domain.RefreshStatus(status)
	run.FailedStage = domain.Stage(stage)
	return &run, nil
}
