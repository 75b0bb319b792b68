// Package refresh runs the prediction refresh cycle:
// fetch matches → compute statistics → load champions → generate → persist.
// A cycle either commits a complete batch or leaves the stores untouched.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/observability"
	"esports-predictor/internal/prediction"
	"esports-predictor/internal/registry"
	"esports-predictor/internal/stats"
	"esports-predictor/internal/storage"
)

var (
	// ErrAlreadyRunning is returned when a cycle is started while another runs.
	ErrAlreadyRunning = errors.New("refresh already running")

	// ErrStagePanic wraps a panic recovered inside a stage.
	ErrStagePanic = errors.New("refresh stage panicked")
)

// Listener is notified after a batch is committed.
type Listener interface {
	PredictionsCommitted(ctx context.Context, run *domain.RefreshRun, predictions []*domain.Prediction) error
}

// Options configures a Refresher.
type Options struct {
	Source       MatchSource
	FetchTimeout time.Duration // applies to FetchingData only; 0: none
	RecentWindow int

	Winners   *registry.Registry
	Scores    *registry.Registry
	Artifacts storage.ArtifactStore

	Predictions *prediction.Service
	Runs        storage.RefreshRunStore // optional
	Listeners   []Listener

	Logger *zap.Logger
	Clock  func() time.Time
}

// Result is the outcome of one cycle.
type Result struct {
	Run         *domain.RefreshRun
	Predictions []*domain.Prediction
	// Warnings lists per-match fallbacks and skips; they never fail a cycle.
	Warnings []string
}

// Refresher runs refresh cycles one at a time.
type Refresher struct {
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	running sync.Mutex

	mu    sync.RWMutex
	stage domain.Stage
}

// New creates a Refresher.
func New(opts Options) *Refresher {
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = stats.DefaultRecentWindow
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Refresher{
		opts:   opts,
		logger: opts.Logger,
		now:    opts.Clock,
		stage:  domain.StageIdle,
	}
}

// Stage returns the current stage; StageIdle between cycles.
func (r *Refresher) Stage() domain.Stage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stage
}

// LastRun returns the last recorded cycle.
func (r *Refresher) LastRun(ctx context.Context) (*domain.RefreshRun, error) {
	if r.opts.Runs == nil {
		return nil, storage.ErrNotFound
	}
	return r.opts.Runs.GetLast(ctx)
}

// Run executes one cycle. Returns ErrAlreadyRunning if a cycle is in
// progress. On failure the returned Result still carries the failed run.
func (r *Refresher) Run(ctx context.Context) (*Result, error) {
	if !r.running.TryLock() {
		return nil, ErrAlreadyRunning
	}
	defer r.running.Unlock()
	defer r.enter(domain.StageIdle)

	run := &domain.RefreshRun{
		RunID:       uuid.NewString(),
		StartedAtMs: r.now().UnixMilli(),
	}
	logger := r.logger.With(zap.String("run_id", run.RunID))
	logger.Info("refresh started")

	res, err := r.cycle(ctx, run, logger)
	run.FinishedAtMs = r.now().UnixMilli()
	if err != nil {
		run.Status = domain.RefreshFailed
		run.Error = err.Error()
		logger.Error("refresh failed", zap.String("stage", string(run.FailedStage)), zap.Error(err))
	} else {
		run.Status = domain.RefreshSucceeded
		observability.RecordRefreshSuccess(run.FinishedAtMs / 1000)
		logger.Info("refresh finished",
			zap.Int("predictions", run.Predictions),
			zap.Int("fallbacks", run.Fallbacks),
			zap.Int("skipped", run.Skipped))
	}
	r.record(ctx, run, logger)

	if err != nil {
		return &Result{Run: run}, err
	}
	res.Run = run
	r.notify(ctx, run, res.Predictions, logger)
	return res, nil
}

func (r *Refresher) cycle(ctx context.Context, run *domain.RefreshRun, logger *zap.Logger) (*Result, error) {
	var played, upcoming []domain.MatchRecord
	err := r.stageDo(run, domain.StageFetchingData, func() error {
		fetchCtx := ctx
		if r.opts.FetchTimeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, r.opts.FetchTimeout)
			defer cancel()
		}
		var err error
		if played, err = r.opts.Source.Played(fetchCtx); err != nil {
			return fmt.Errorf("fetch played matches: %w", err)
		}
		if upcoming, err = r.opts.Source.Upcoming(fetchCtx); err != nil {
			return fmt.Errorf("fetch upcoming matches: %w", err)
		}
		run.Matches, run.Upcoming = len(played), len(upcoming)
		logger.Info("matches fetched", zap.Int("played", len(played)), zap.Int("upcoming", len(upcoming)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	var snapshot domain.StatsByPlayer
	err = r.stageDo(run, domain.StageComputingStats, func() error {
		snapshot = stats.NewBuilder(r.opts.RecentWindow).Build(played)
		run.Players = len(snapshot)
		observability.RecordRefreshInputs(len(upcoming), len(snapshot))
		return nil
	})
	if err != nil {
		return nil, err
	}

	var models *prediction.Models
	err = r.stageDo(run, domain.StageLoadingModels, func() error {
		r.opts.Winners.Reload(ctx)
		r.opts.Scores.Reload(ctx)
		var err error
		models, err = prediction.LoadModels(ctx, r.opts.Winners, r.opts.Scores, r.opts.Artifacts, logger)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &Result{}
	err = r.stageDo(run, domain.StageGeneratingPredictions, func() error {
		batch := r.opts.Predictions.Generate(models, snapshot, upcoming, played)
		res.Predictions = batch.Predictions()
		for _, o := range batch.Outcomes {
			if o.Status != prediction.StatusOK {
				res.Warnings = append(res.Warnings, fmt.Sprintf("%s %s: %s", o.FixtureID, o.Status, o.Reason))
			}
		}
		run.Predictions = len(res.Predictions)
		run.Fallbacks = batch.Count(prediction.StatusFallback)
		run.Skipped = batch.Count(prediction.StatusSkipped)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.stageDo(run, domain.StagePersisting, func() error {
		return r.opts.Predictions.Persist(ctx, res.Predictions)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// stageDo enters stage, runs fn and records the stage outcome. A panic in
// fn fails the stage with ErrStagePanic.
func (r *Refresher) stageDo(run *domain.RefreshRun, stage domain.Stage, fn func() error) error {
	r.enter(stage)
	start := time.Now()
	err := runStage(fn)
	status := string(domain.RefreshSucceeded)
	if err != nil {
		status = string(domain.RefreshFailed)
		run.FailedStage = stage
		err = fmt.Errorf("%s: %w", stage, err)
	}
	observability.RecordRefreshStage(string(stage), status, time.Since(start).Seconds())
	return err
}

func runStage(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrStagePanic, p)
		}
	}()
	return fn()
}

func (r *Refresher) enter(stage domain.Stage) {
	r.mu.Lock()
	r.stage = stage
	r.mu.Unlock()
}

func (r *Refresher) record(ctx context.Context, run *domain.RefreshRun, logger *zap.Logger) {
	if r.opts.Runs == nil {
		return
	}
	if err := r.opts.Runs.Save(ctx, run); err != nil {
		logger.Warn("refresh run not recorded", zap.Error(err))
	}
}

func (r *Refresher) notify(ctx context.Context, run *domain.RefreshRun, preds []*domain.Prediction, logger *zap.Logger) {
	for _, l := range r.opts.Listeners {
		if err := l.PredictionsCommitted(ctx, run, preds); err != nil {
			logger.Warn("listener failed", zap.Error(err))
		}
	}
}
