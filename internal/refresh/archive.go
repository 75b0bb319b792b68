package refresh

import (
	"context"
	"fmt"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// ArchiveListener copies every committed batch into a PredictionArchive.
type ArchiveListener struct {
	Archive storage.PredictionArchive
}

var _ Listener = ArchiveListener{}

// PredictionsCommitted archives the batch under the run id.
func (l ArchiveListener) PredictionsCommitted(ctx context.Context, run *domain.RefreshRun, predictions []*domain.Prediction) error {
	if err := l.Archive.Insert(ctx, run.RunID, run.FinishedAtMs, predictions); err != nil {
		return fmt.Errorf("archive predictions: %w", err)
	}
	return nil
}
