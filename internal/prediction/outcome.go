package prediction

import "esports-predictor/internal/domain"

// Status classifies how a prediction was produced.
type Status string

const (
	StatusOK       Status = "ok"       // both champion models
	StatusFallback Status = "fallback" // heuristic or neutral default
	StatusSkipped  Status = "skipped"  // malformed record, no prediction
)

// Outcome is the result for one upcoming match.
type Outcome struct {
	FixtureID  string
	Status     Status
	Prediction *domain.Prediction // nil when skipped
	Reason     string             // empty when ok
}

// Batch is the result of one Generate call, in input order.
type Batch struct {
	Outcomes []Outcome
}

// Predictions returns every produced prediction, skipping skipped matches.
func (b *Batch) Predictions() []*domain.Prediction {
	out := make([]*domain.Prediction, 0, len(b.Outcomes))
	for _, o := range b.Outcomes {
		if o.Prediction != nil {
			out = append(out, o.Prediction)
		}
	}
	return out
}

// Count returns the number of outcomes with status s.
func (b *Batch) Count(s Status) int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}
