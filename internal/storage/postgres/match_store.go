package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// MatchStore implements storage.MatchStore using PostgreSQL.
type MatchStore struct {
	pool *Pool
}

// NewMatchStore creates a new MatchStore.
func NewMatchStore(pool *Pool) *MatchStore {
	return &MatchStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MatchStore = (*MatchStore)(nil)

const matchColumns = `
	fixture_id,
	home_player_id, home_player_name, away_player_id, away_player_name,
	home_team_id, home_team_name, away_team_id, away_team_name,
	match_date, start_time, home_score, away_score`

// Upsert inserts or replaces matches by fixture id in one transaction.
func (s *MatchStore) Upsert(ctx context.Context, matches []*domain.MatchRecord) (err error) {
	for _, m := range matches {
		if m == nil || m.FixtureID == "" {
			return storage.ErrInvalidInput
		}
	}
	if len(matches) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("match_upsert", start, err) }(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO matches (` + matchColumns + `, match_day, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
		ON CONFLICT (fixture_id) DO UPDATE SET
			home_player_id = EXCLUDED.home_player_id,
			home_player_name = EXCLUDED.home_player_name,
			away_player_id = EXCLUDED.away_player_id,
			away_player_name = EXCLUDED.away_player_name,
			home_team_id = EXCLUDED.home_team_id,
			home_team_name = EXCLUDED.home_team_name,
			away_team_id = EXCLUDED.away_team_id,
			away_team_name = EXCLUDED.away_team_name,
			match_date = EXCLUDED.match_date,
			start_time = EXCLUDED.start_time,
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			match_day = EXCLUDED.match_day,
			updated_at = now()
	`

	batch := &pgx.Batch{}
	for _, m := range matches {
		batch.Queue(query,
			m.FixtureID,
			m.HomePlayer.ID, m.HomePlayer.Name, m.AwayPlayer.ID, m.AwayPlayer.Name,
			m.HomeTeam.ID, m.HomeTeam.Name, m.AwayTeam.ID, m.AwayTeam.Name,
			m.Date, m.StartTime, m.HomeScore, m.AwayScore,
			matchDay(m),
		)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert matches: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetAll returns every match ordered by day ASC, fixture id ASC.
func (s *MatchStore) GetAll(ctx context.Context) (_ []*domain.MatchRecord, err error) {
	defer func(start time.Time) { observe("match_get_all", start, err) }(time.Now())

	query := `SELECT ` + matchColumns + ` FROM matches ORDER BY match_day ASC, fixture_id ASC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all matches: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// GetByDateRange returns matches whose day is within [from, to].
func (s *MatchStore) GetByDateRange(ctx context.Context, from, to string) (_ []*domain.MatchRecord, err error) {
	if from > to {
		return nil, storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("match_get_range", start, err) }(time.Now())

	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE match_day >= $1 AND match_day <= $2
		ORDER BY match_day ASC, fixture_id ASC
	`
	rows, err := s.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("get matches by date range: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// scanMatches scans multiple rows into match records.
func scanMatches(rows pgx.Rows) ([]*domain.MatchRecord, error) {
	var matches []*domain.MatchRecord

	for rows.Next() {
		var m domain.MatchRecord
		err := rows.Scan(
			&m.FixtureID,
			&m.HomePlayer.ID, &m.HomePlayer.Name, &m.AwayPlayer.ID, &m.AwayPlayer.Name,
			&m.HomeTeam.ID, &m.HomeTeam.Name, &m.AwayTeam.ID, &m.AwayTeam.Name,
			&m.Date, &m.StartTime, &m.HomeScore, &m.AwayScore,
		)
		if err != nil {
			return nil, fmt.Errorf("scan match row: %w", err)
		}
		matches = append(matches, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match rows: %w", err)
	}

	return matches, nil
}

// matchDay returns the YYYY-MM-DD day of a match, preferring Date.
func matchDay(m *domain.MatchRecord) string {
	if m.Date != "" {
		return m.Date
	}
	if len(m.StartTime) >= len(domain.DateLayout) {
		return m.StartTime[:len(domain.DateLayout)]
	}
	return m.StartTime
}
