package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// PredictionStore implements storage.PredictionStore. The current batch is
// replaced inside one transaction, so readers never see a partial batch.
type PredictionStore struct {
	pool *Pool
}

// NewPredictionStore creates a new PredictionStore.
func NewPredictionStore(pool *Pool) *PredictionStore {
	return &PredictionStore{pool: pool}
}

var _ storage.PredictionStore = (*PredictionStore)(nil)

// ReplaceCurrent atomically swaps the current batch.
func (s *PredictionStore) ReplaceCurrent(ctx context.Context, predictions []*domain.Prediction) (err error) {
	payloads, err := encodePredictions(predictions)
	if err != nil {
		return err
	}
	defer func(start time.Time) { observe("prediction_replace", start, err) }(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err = tx.Exec(ctx, `DELETE FROM predictions_current`); err != nil {
		return fmt.Errorf("clear current predictions: %w", err)
	}

	if len(predictions) > 0 {
		batch := &pgx.Batch{}
		for i, p := range predictions {
			batch.Queue(`INSERT INTO predictions_current (position, fixture_id, payload) VALUES ($1, $2, $3)`,
				i, p.FixtureID, payloads[i])
		}
		if err = tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert current predictions: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Current returns the current batch. Returns an empty slice if none.
func (s *PredictionStore) Current(ctx context.Context) (_ []*domain.Prediction, err error) {
	defer func(start time.Time) { observe("prediction_current", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `SELECT payload FROM predictions_current ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("get current predictions: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

// AppendHistory appends predictions to the history log.
func (s *PredictionStore) AppendHistory(ctx context.Context, predictions []*domain.Prediction) (err error) {
	payloads, err := encodePredictions(predictions)
	if err != nil {
		return err
	}
	if len(predictions) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("prediction_append", start, err) }(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i, p := range predictions {
		batch.Queue(`INSERT INTO prediction_history (fixture_id, saved_at, payload) VALUES ($1, $2, $3)`,
			p.FixtureID, p.SavedAt, payloads[i])
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("append prediction history: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// History returns the history log in append order.
func (s *PredictionStore) History(ctx context.Context) (_ []*domain.Prediction, err error) {
	defer func(start time.Time) { observe("prediction_history", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `SELECT payload FROM prediction_history ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("get prediction history: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

func encodePredictions(predictions []*domain.Prediction) ([][]byte, error) {
	out := make([][]byte, len(predictions))
	for i, p := range predictions {
		if p == nil {
			return nil, storage.ErrInvalidInput
		}
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode prediction %s: %w", p.FixtureID, err)
		}
		out[i] = b
	}
	return out, nil
}

func scanPredictions(rows pgx.Rows) ([]*domain.Prediction, error) {
	preds := []*domain.Prediction{}

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan prediction row: %w", err)
		}
		var p domain.Prediction
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode prediction row: %w", err)
		}
		preds = append(preds, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prediction rows: %w", err)
	}

	return preds, nil
}
