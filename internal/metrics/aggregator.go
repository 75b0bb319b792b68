package metrics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// ErrNoTrials is returned when a run has no recorded trials.
var ErrNoTrials = errors.New("no trials available for aggregation")

// Aggregator summarizes optimization runs from the trial store.
type Aggregator struct {
	trialStore storage.TrialStore
}

// NewAggregator creates a new trial aggregator.
func NewAggregator(trialStore storage.TrialStore) *Aggregator {
	return &Aggregator{trialStore: trialStore}
}

// Summarize loads the trials of a run and aggregates them.
// Returns ErrNoTrials if the run has none.
func (a *Aggregator) Summarize(ctx context.Context, runID string) (*domain.TrialSummary, error) {
	trials, err := a.trialStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trials: %w", err)
	}
	if len(trials) == 0 {
		return nil, ErrNoTrials
	}
	s := SummarizeTrials(trials)
	s.RunID = runID
	return s, nil
}

// SummarizeTrials aggregates trials in index order. Failed trials count
// toward Total and Failed and can only be best when all trials failed.
func SummarizeTrials(trials []*domain.Trial) *domain.TrialSummary {
	s := &domain.TrialSummary{
		Total:     len(trials),
		BestScore: math.Inf(-1),
		BestIndex: -1,
	}
	if len(trials) == 0 {
		return s
	}
	s.RunID, s.Task = trials[0].RunID, trials[0].Task

	sorted := make([]*domain.Trial, len(trials))
	copy(sorted, trials)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	var scores []float64
	for _, t := range sorted {
		if t.Failed() || math.IsInf(t.Score, -1) {
			s.Failed++
			continue
		}
		scores = append(scores, t.Score)
		if t.Score > s.BestScore {
			s.BestScore, s.BestIndex = t.Score, t.Index
		}
	}
	if len(scores) == 0 {
		return s
	}

	mean := computeMean(scores)
	ordered := append([]float64(nil), scores...)
	sort.Float64s(ordered)

	s.ScoreMean = mean
	s.ScoreMedian = computePercentile(ordered, 0.50)
	s.ScoreP10 = computePercentile(ordered, 0.10)
	s.ScoreP90 = computePercentile(ordered, 0.90)
	s.ScoreMin = ordered[0]
	s.ScoreMax = ordered[len(ordered)-1]
	s.ScoreStddev = computeStddev(scores, mean)
	return s
}
