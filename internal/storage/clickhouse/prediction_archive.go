package clickhouse

import (
	"context"
	"fmt"
	"time"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// PredictionArchive implements storage.PredictionArchive using ClickHouse.
// Team participants and fallback reasons are not archived.
type PredictionArchive struct {
	conn *Conn
}

// NewPredictionArchive creates a new PredictionArchive.
func NewPredictionArchive(conn *Conn) *PredictionArchive {
	return &PredictionArchive{conn: conn}
}

var _ storage.PredictionArchive = (*PredictionArchive)(nil)

// Insert archives one committed batch in a single block.
func (a *PredictionArchive) Insert(ctx context.Context, runID string, committedAtMs int64, predictions []*domain.Prediction) (err error) {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	for _, p := range predictions {
		if p == nil {
			return storage.ErrInvalidInput
		}
	}
	if len(predictions) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("archive_insert", start, err) }(time.Now())

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO prediction_archive (
			run_id, prediction_id, fixture_id, home_player_id, away_player_id, fixture_start,
			method, home_win_probability, away_win_probability, predicted_winner, confidence,
			home_score, away_score, winner_model_id, score_model_id, generated_at, committed_at_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range predictions {
		err = batch.Append(
			runID, p.PredictionID, p.FixtureID, p.HomePlayer.ID, p.AwayPlayer.ID, p.FixtureStart,
			p.Method, p.Winner.HomeWinProbability, p.Winner.AwayWinProbability, p.Winner.PredictedWinner, p.Winner.Confidence,
			int32(p.Score.HomeScore), int32(p.Score.AwayScore), p.WinnerModelID, p.ScoreModelID, p.GeneratedAt,
			uint64(committedAtMs),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRun returns the archived batch of a run ordered by fixture id.
func (a *PredictionArchive) GetByRun(ctx context.Context, runID string) (_ []*domain.Prediction, err error) {
	defer func(start time.Time) { observe("archive_get_by_run", start, err) }(time.Now())

	query := `
		SELECT prediction_id, fixture_id, home_player_id, away_player_id, fixture_start,
			method, home_win_probability, away_win_probability, predicted_winner, confidence,
			home_score, away_score, winner_model_id, score_model_id, generated_at
		FROM prediction_archive
		WHERE run_id = ?
		ORDER BY fixture_id ASC
	`

	rows, err := a.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query archive by run: %w", err)
	}
	defer rows.Close()

	return scanArchive(rows)
}

func scanArchive(rows chRows) ([]*domain.Prediction, error) {
	var preds []*domain.Prediction

	for rows.Next() {
		var p domain.Prediction
		var home, away int32
		err := rows.Scan(
			&p.PredictionID, &p.FixtureID, &p.HomePlayer.ID, &p.AwayPlayer.ID, &p.FixtureStart,
			&p.Method, &p.Winner.HomeWinProbability, &p.Winner.AwayWinProbability, &p.Winner.PredictedWinner, &p.Winner.Confidence,
			&home, &away, &p.WinnerModelID, &p.ScoreModelID, &p.GeneratedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		p.Score = domain.ScorePrediction{
			HomeScore:  int(home),
			AwayScore:  int(away),
			TotalScore: int(home + away),
			ScoreDiff:  int(home - away),
		}
		preds = append(preds, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive rows: %w", err)
	}

	return preds, nil
}
