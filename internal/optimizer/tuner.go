// Package optimizer runs Bayesian hyperparameter search. A Gaussian process
// surrogate with expected improvement proposes each assignment after a
// number of random initial points; the objective trains and scores a
// candidate model. Scores are oriented so higher is always better.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/idhash"
	"esports-predictor/internal/observability"
	"esports-predictor/internal/storage"
)

// ErrNoChampion is returned when no trial and no fallback retrain produced
// a model.
var ErrNoChampion = errors.New("optimization produced no model")

// Defaults.
const (
	DefaultCalls         = 20
	DefaultInitialPoints = 10
	DefaultCandidates    = 500
	DefaultXi            = 0.01
)

// Evaluation is the outcome of one objective call.
type Evaluation struct {
	Score   float64 // oriented, higher is better
	Metrics map[string]float64
	Model   any
}

// Objective trains and scores one assignment. An error marks the trial as
// failed; it never aborts the search.
type Objective func(ctx context.Context, params map[string]any) (*Evaluation, error)

// Options configures a Tuner.
type Options struct {
	Task      domain.Task
	Space     Space
	Fixed     map[string]any // merged into every assignment
	Objective Objective

	Calls         int
	InitialPoints int
	Candidates    int // random candidates scored by EI per step
	Xi            float64
	Seed          int64

	RunID  string // generated when empty
	Trials storage.TrialStore
	Logger *zap.Logger
	Clock  func() time.Time
}

// Result is the outcome of a search.
type Result struct {
	RunID       string
	BestParams  map[string]any
	BestScore   float64
	BestMetrics map[string]float64
	BestModel   any
	Trials      []*domain.Trial
	Retrained   bool // champion came from the fallback retrain
}

// Tuner runs one search. Not safe for concurrent use.
type Tuner struct {
	opts   Options
	logger *zap.Logger
	rng    *rand.Rand
}

// New validates options and fills defaults.
func New(opts Options) (*Tuner, error) {
	if err := opts.Space.Validate(); err != nil {
		return nil, err
	}
	if opts.Objective == nil {
		return nil, errors.New("optimizer: nil objective")
	}
	if opts.Calls <= 0 {
		opts.Calls = DefaultCalls
	}
	if opts.InitialPoints <= 0 {
		opts.InitialPoints = DefaultInitialPoints
	}
	if opts.Candidates <= 0 {
		opts.Candidates = DefaultCandidates
	}
	if opts.Xi <= 0 {
		opts.Xi = DefaultXi
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Tuner{
		opts:   opts,
		logger: opts.Logger.With(zap.String("run_id", opts.RunID), zap.String("task", string(opts.Task))),
		rng:    rand.New(rand.NewSource(opts.Seed)),
	}, nil
}

// RunID returns the run identifier.
func (t *Tuner) RunID() string {
	return t.opts.RunID
}

// Run evaluates Calls assignments and returns the champion. Trial store
// write failures are logged and do not stop the search.
func (t *Tuner) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: t.opts.RunID, BestScore: math.Inf(-1)}
	var points [][]float64
	var scores []float64

	for i := 0; i < t.opts.Calls; i++ {
		u := t.propose(points, scores, i)
		params := t.assignment(u)

		start := time.Now()
		eval, err := t.opts.Objective(ctx, params)
		elapsed := time.Since(start).Seconds()

		trial := &domain.Trial{
			TrialID:     idhash.ComputeTrialID(t.opts.RunID, string(t.opts.Task), i),
			RunID:       t.opts.RunID,
			Task:        t.opts.Task,
			Index:       i,
			Params:      params,
			Score:       math.Inf(-1),
			TimestampMs: t.opts.Clock().UnixMilli(),
		}
		if err == nil && (eval == nil || math.IsNaN(eval.Score)) {
			err = errors.New("objective returned no score")
		}
		if err != nil {
			trial.Error = err.Error()
			t.logger.Warn("trial failed", zap.Int("trial", i), zap.Error(err))
		} else {
			trial.Score, trial.Metrics = eval.Score, eval.Metrics
		}

		points = append(points, u)
		scores = append(scores, trial.Score)
		res.Trials = append(res.Trials, trial)
		t.record(ctx, trial)
		observability.RecordTrial(string(t.opts.Task), trial.Failed(), elapsed)

		if !trial.Failed() && trial.Score > res.BestScore {
			res.BestScore = trial.Score
			res.BestParams = params
			res.BestMetrics = eval.Metrics
			res.BestModel = eval.Model
			observability.UpdateBestTrialScore(string(t.opts.Task), res.BestScore)
			t.logger.Info("new champion", zap.Int("trial", i), zap.Float64("score", trial.Score))
		} else {
			t.logger.Debug("trial done", zap.Int("trial", i), zap.Float64("score", trial.Score))
		}
	}

	if res.BestModel == nil {
		if err := t.retrain(ctx, res, points, scores); err != nil {
			return res, err
		}
	}
	t.logger.Info("search finished",
		zap.Int("trials", len(res.Trials)),
		zap.Float64("best_score", res.BestScore),
		zap.Bool("retrained", res.Retrained))
	return res, nil
}

// retrain evaluates the reported best assignment once more.
func (t *Tuner) retrain(ctx context.Context, res *Result, points [][]float64, scores []float64) error {
	if len(points) == 0 {
		return ErrNoChampion
	}
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	params := res.Trials[best].Params
	t.logger.Warn("no champion captured, retraining best assignment", zap.Int("trial", best))

	eval, err := t.opts.Objective(ctx, params)
	if err != nil {
		return fmt.Errorf("%w: retrain: %w", ErrNoChampion, err)
	}
	if eval == nil || eval.Model == nil {
		return ErrNoChampion
	}
	res.BestParams = params
	res.BestModel = eval.Model
	res.BestMetrics = eval.Metrics
	if eval.Score > res.BestScore {
		res.BestScore = eval.Score
	}
	res.Retrained = true
	return nil
}

func (t *Tuner) record(ctx context.Context, trial *domain.Trial) {
	if t.opts.Trials == nil {
		return
	}
	if err := t.opts.Trials.Insert(ctx, trial); err != nil {
		t.logger.Warn("trial not recorded", zap.Int("trial", trial.Index), zap.Error(err))
	}
}

func (t *Tuner) assignment(u []float64) map[string]any {
	params := t.opts.Space.Decode(u)
	for k, v := range t.opts.Fixed {
		params[k] = v
	}
	return params
}

// propose returns the next unit point: random for the initial points or when
// no trial has succeeded yet, otherwise the candidate maximizing EI.
func (t *Tuner) propose(points [][]float64, scores []float64, i int) []float64 {
	if i < t.opts.InitialPoints {
		return t.opts.Space.Sample(t.rng)
	}
	y, best, ok := surrogateTargets(scores)
	if !ok {
		return t.opts.Space.Sample(t.rng)
	}
	gp, err := fitGP(points, y)
	if err != nil {
		t.logger.Debug("surrogate fit failed, sampling randomly", zap.Error(err))
		return t.opts.Space.Sample(t.rng)
	}

	var next []float64
	bestEI := math.Inf(-1)
	for c := 0; c < t.opts.Candidates; c++ {
		u := t.opts.Space.Sample(t.rng)
		mu, sigma := gp.predict(u)
		if ei := expectedImprovement(mu, sigma, best, t.opts.Xi); ei > bestEI {
			next, bestEI = u, ei
		}
	}
	return next
}

// surrogateTargets replaces failed scores with the worst finite score.
func surrogateTargets(scores []float64) (y []float64, best float64, ok bool) {
	worst, best := math.Inf(1), math.Inf(-1)
	for _, s := range scores {
		if math.IsInf(s, 0) || math.IsNaN(s) {
			continue
		}
		worst = math.Min(worst, s)
		best = math.Max(best, s)
	}
	if math.IsInf(best, -1) {
		return nil, 0, false
	}
	y = make([]float64, len(scores))
	for i, s := range scores {
		if math.IsInf(s, 0) || math.IsNaN(s) {
			s = worst
		}
		y[i] = s
	}
	return y, best, true
}
