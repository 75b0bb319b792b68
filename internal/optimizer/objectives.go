package optimizer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/model"
	"esports-predictor/internal/training"
)

// FixedParams are merged into every assignment.
func FixedParams(seed int64) map[string]any {
	return map[string]any{"random_state": int(seed)}
}

// WinnerSpace is the random forest search space.
func WinnerSpace() Space {
	return Space{
		Integer{Key: "n_estimators", Low: 50, High: 500},
		Integer{Key: "max_depth", Low: 3, High: 20},
		Integer{Key: "min_samples_split", Low: 2, High: 20},
		Integer{Key: "min_samples_leaf", Low: 1, High: 10},
		Categorical{Key: "max_features", Values: []any{model.MaxFeaturesSqrt, model.MaxFeaturesLog2, nil}},
		Categorical{Key: "bootstrap", Values: []any{true, false}},
		Categorical{Key: "class_weight", Values: []any{model.ClassWeightBalanced, model.ClassWeightBalancedSubsample, nil}},
	}
}

// ScoreSpace is the stacked regressor search space, one block per side.
func ScoreSpace() Space {
	var s Space
	for _, side := range []string{"home", "away"} {
		s = append(s,
			Integer{Key: "boost_" + side + "_n_estimators", Low: 50, High: 500},
			Real{Key: "boost_" + side + "_learning_rate", Low: 0.01, High: 0.3, LogUniform: true},
			Integer{Key: "boost_" + side + "_max_depth", Low: 3, High: 10},
			Real{Key: "boost_" + side + "_subsample", Low: 0.5, High: 1},
			Real{Key: "boost_" + side + "_colsample_bytree", Low: 0.5, High: 1},
			Integer{Key: "gbm_" + side + "_n_estimators", Low: 50, High: 500},
			Real{Key: "gbm_" + side + "_learning_rate", Low: 0.01, High: 0.3, LogUniform: true},
			Integer{Key: "gbm_" + side + "_max_depth", Low: 3, High: 10},
			Real{Key: "gbm_" + side + "_subsample", Low: 0.5, High: 1},
			Real{Key: "ridge_" + side + "_alpha", Low: 0.01, High: 10, LogUniform: true},
			Real{Key: "lasso_" + side + "_alpha", Low: 0.001, High: 1, LogUniform: true},
			Real{Key: "final_" + side + "_alpha", Low: 0.01, High: 10, LogUniform: true},
		)
	}
	return s
}

// WinnerObjective scores a forest by test accuracy.
func WinnerObjective(cfg domain.FeatureConfig, data *training.WinnerData) Objective {
	return func(_ context.Context, params map[string]any) (*Evaluation, error) {
		p, err := model.ForestParamsFromMap(params)
		if err != nil {
			return nil, err
		}
		m, scores, err := training.FitWinner(cfg, p, data)
		if err != nil {
			return nil, err
		}
		return &Evaluation{Score: scores[domain.MetricAccuracy], Metrics: scores, Model: m}, nil
	}
}

// ScoreObjective scores a stacked regressor by negated total score MAE.
func ScoreObjective(cfg domain.FeatureConfig, data *training.ScoreData) Objective {
	return func(_ context.Context, params map[string]any) (*Evaluation, error) {
		p, err := model.ScoreParamsFromMap(params)
		if err != nil {
			return nil, err
		}
		m, scores, err := training.FitScore(cfg, p, data)
		if err != nil {
			return nil, err
		}
		return &Evaluation{Score: -scores[domain.MetricTotalScoreMAE], Metrics: scores, Model: m}, nil
	}
}

// Outcome is a finished search plus the registered champion.
type Outcome struct {
	*Result
	Metadata *domain.ModelMetadata
}

// OptimizeWinner searches the winner space on data and saves the champion
// through trainer, which registers it.
func OptimizeWinner(ctx context.Context, trainer *training.Trainer, data *training.WinnerData, opts Options) (*Outcome, error) {
	opts = withTask(opts, domain.TaskWinner, WinnerSpace())
	opts.Objective = WinnerObjective(trainer.Features(), data)

	res, err := run(ctx, opts)
	if err != nil {
		return nil, err
	}
	m, ok := res.BestModel.(*model.WinnerModel)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected model %T", ErrNoChampion, res.BestModel)
	}
	meta, err := trainer.SaveWinner(ctx, m, res.BestMetrics, data.Samples())
	if err != nil {
		return nil, err
	}
	return &Outcome{Result: res, Metadata: meta}, nil
}

// OptimizeScore searches the score space on data and saves the champion
// through trainer, which registers it.
func OptimizeScore(ctx context.Context, trainer *training.Trainer, data *training.ScoreData, opts Options) (*Outcome, error) {
	opts = withTask(opts, domain.TaskScore, ScoreSpace())
	opts.Objective = ScoreObjective(trainer.Features(), data)

	res, err := run(ctx, opts)
	if err != nil {
		return nil, err
	}
	m, ok := res.BestModel.(*model.ScoreModel)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected model %T", ErrNoChampion, res.BestModel)
	}
	meta, err := trainer.SaveScore(ctx, m, res.BestMetrics, data.Samples())
	if err != nil {
		return nil, err
	}
	return &Outcome{Result: res, Metadata: meta}, nil
}

func withTask(opts Options, task domain.Task, space Space) Options {
	opts.Task = task
	if opts.Space == nil {
		opts.Space = space
	}
	if opts.Seed == 0 {
		opts.Seed = model.DefaultSeed
	}
	if opts.Fixed == nil {
		opts.Fixed = FixedParams(opts.Seed)
	}
	return opts
}

func run(ctx context.Context, opts Options) (*Result, error) {
	t, err := New(opts)
	if err != nil {
		return nil, err
	}
	t.logger.Info("search started",
		zap.Int("calls", t.opts.Calls),
		zap.Int("initial_points", t.opts.InitialPoints),
		zap.Int("dimensions", len(t.opts.Space)))
	return t.Run(ctx)
}
