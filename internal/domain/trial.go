package domain

// Trial is one evaluated hyperparameter assignment of an optimization run.
// Retained for audit; the best trial of a run is its champion.
type Trial struct {
	TrialID     string             // deterministic hash
	RunID       string             // optimization run
	Task        Task               // winner | score
	Index       int                // 0-based position within the run
	Params      map[string]any     // assignment including fixed params
	Score       float64            // oriented, higher is better; -Inf on failure
	Metrics     map[string]float64 // raw metrics, nil on failure
	Error       string             // training failure, empty on success
	TimestampMs int64              // completion time (ms)
}

// Failed reports whether the candidate failed to train.
func (t *Trial) Failed() bool {
	return t.Error != ""
}

// TrialSummary aggregates the oriented scores of one optimization run.
// Distribution fields cover successful trials only.
type TrialSummary struct {
	RunID     string
	Task      Task
	Total     int
	Failed    int
	BestScore float64 // -Inf when every trial failed
	BestIndex int     // -1 when every trial failed

	ScoreMean   float64
	ScoreMedian float64
	ScoreP10    float64
	ScoreP90    float64
	ScoreMin    float64
	ScoreMax    float64
	ScoreStddev float64
}

// Clone returns a deep copy.
func (t *Trial) Clone() *Trial {
	c := *t
	if t.Params != nil {
		c.Params = make(map[string]any, len(t.Params))
		for k, v := range t.Params {
			c.Params[k] = v
		}
	}
	if t.Metrics != nil {
		c.Metrics = make(map[string]float64, len(t.Metrics))
		for k, v := range t.Metrics {
			c.Metrics[k] = v
		}
	}
	return &c
}
