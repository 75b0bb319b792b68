package registry

import (
	"strconv"

	"esports-predictor/internal/domain"
)

// Comparator decides which registry entry is best.
type Comparator struct {
	// Metric names the selection metric, for logs and reports.
	Metric string
	// Value extracts the selection metric. Entries without it are never best.
	Value func(e domain.RegistryEntry) (float64, bool)
	// HigherIsBetter orients the metric.
	HigherIsBetter bool
	// Degenerate is the perfect value that marks a leaked or trivial model.
	Degenerate float64
}

// WinnerComparator selects the highest accuracy.
func WinnerComparator() Comparator {
	return Comparator{
		Metric: domain.MetricAccuracy,
		Value: func(e domain.RegistryEntry) (float64, bool) {
			if e.Accuracy == nil {
				return 0, false
			}
			return *e.Accuracy, true
		},
		HigherIsBetter: true,
		Degenerate:     1.0,
	}
}

// ScoreComparator selects the lowest total score MAE.
func ScoreComparator() Comparator {
	return Comparator{
		Metric: domain.MetricTotalScoreMAE,
		Value: func(e domain.RegistryEntry) (float64, bool) {
			if e.TotalScoreMAE == nil {
				return 0, false
			}
			return *e.TotalScoreMAE, true
		},
		HigherIsBetter: false,
		Degenerate:     0,
	}
}

// ComparatorFor returns the comparator of a task.
func ComparatorFor(task domain.Task) Comparator {
	if task == domain.TaskScore {
		return ScoreComparator()
	}
	return WinnerComparator()
}

// Better reports whether a should replace b as best. Equal metrics fall back
// to the more recent training time, then the greater model id.
func (c Comparator) Better(a, b domain.RegistryEntry) bool {
	va, okA := c.Value(a)
	vb, okB := c.Value(b)
	switch {
	case !okA:
		return false
	case !okB:
		return true
	case va != vb:
		if c.HigherIsBetter {
			return va > vb
		}
		return va < vb
	case a.TrainingTime != b.TrainingTime:
		return a.TrainingTime > b.TrainingTime
	}
	return idGreater(a.ModelID, b.ModelID)
}

// idGreater compares numeric ids numerically and anything else lexically.
func idGreater(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return na > nb
	}
	return a > b
}

// IsDegenerate reports whether the entry carries the perfect metric value.
func (c Comparator) IsDegenerate(e domain.RegistryEntry) bool {
	v, ok := c.Value(e)
	return ok && v == c.Degenerate
}

// best returns the index of the best eligible entry, or -1.
func (c Comparator) best(entries []domain.RegistryEntry) int {
	idx := -1
	for i, e := range entries {
		if _, ok := c.Value(e); !ok {
			continue
		}
		if idx < 0 || c.Better(e, entries[idx]) {
			idx = i
		}
	}
	return idx
}
