package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// TrialStore implements storage.TrialStore using ClickHouse.
// Params are stored as JSON, so numeric params read back as float64.
type TrialStore struct {
	conn *Conn
}

// NewTrialStore creates a new TrialStore.
func NewTrialStore(conn *Conn) *TrialStore {
	return &TrialStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TrialStore = (*TrialStore)(nil)

// Insert adds a trial. Returns ErrDuplicateKey if trial_id exists.
func (s *TrialStore) Insert(ctx context.Context, t *domain.Trial) (err error) {
	if t == nil || t.TrialID == "" || t.RunID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("trial_insert", start, err) }(time.Now())

	// ReplacingMergeTree would silently replace; keep write-once semantics.
	exists, err := s.exists(ctx, t.TrialID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	params, err := json.Marshal(t.Params)
	if err != nil {
		return fmt.Errorf("encode trial params: %w", err)
	}
	metrics := t.Metrics
	if metrics == nil {
		metrics = map[string]float64{}
	}

	query := `
		INSERT INTO optimization_trials (
			trial_id, run_id, task, trial_index, params, score, metrics, error, timestamp_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	err = s.conn.Exec(ctx, query,
		t.TrialID, t.RunID, string(t.Task), uint32(t.Index),
		string(params), t.Score, metrics, t.Error, uint64(t.TimestampMs),
	)
	if err != nil {
		return fmt.Errorf("insert trial: %w", err)
	}
	return nil
}

// GetByRun returns the trials of a run ordered by index ASC.
func (s *TrialStore) GetByRun(ctx context.Context, runID string) (_ []*domain.Trial, err error) {
	defer func(start time.Time) { observe("trial_get_by_run", start, err) }(time.Now())

	query := `
		SELECT trial_id, run_id, task, trial_index, params, score, metrics, error, timestamp_ms
		FROM optimization_trials FINAL
		WHERE run_id = ?
		ORDER BY trial_index ASC, trial_id ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query trials by run: %w", err)
	}
	defer rows.Close()

	return scanTrials(rows)
}

func (s *TrialStore) exists(ctx context.Context, trialID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM optimization_trials WHERE trial_id = ?`, trialID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanTrials scans multiple rows.
func scanTrials(rows chRows) ([]*domain.Trial, error) {
	var trials []*domain.Trial

	for rows.Next() {
		var t domain.Trial
		var task, params string
		var index uint32
		var ts uint64
		var metrics map[string]float64

		err := rows.Scan(&t.TrialID, &t.RunID, &task, &index, &params, &t.Score, &metrics, &t.Error, &ts)
		if err != nil {
			return nil, fmt.Errorf("scan trial row: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &t.Params); err != nil {
			return nil, fmt.Errorf("decode trial params %s: %w", t.TrialID, err)
		}

		t.Task = domain.Task(task)
		t.Index = int(index)
		t.TimestampMs = int64(ts)
		if t.Error == "" {
			t.Metrics = metrics
		}
		trials = append(trials, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trial rows: %w", err)
	}

	return trials, nil
}
