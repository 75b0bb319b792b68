package model

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Categorical values for forest parameters.
const (
	MaxFeaturesSqrt = "sqrt"
	MaxFeaturesLog2 = "log2"
	MaxFeaturesAll  = "none"

	ClassWeightBalanced          = "balanced"
	ClassWeightBalancedSubsample = "balanced_subsample"
	ClassWeightNone              = "none"
)

// DefaultSeed is the random state used when none is given.
const DefaultSeed = 42

// ErrUnknownParam is returned for parameter names no learner recognizes.
var ErrUnknownParam = errors.New("unknown parameter")

// ForestParams are the hyperparameters of the winner random forest.
// Immutable once validated.
type ForestParams struct {
	NEstimators     int    `json:"n_estimators" validate:"min=1,max=2000"`
	MaxDepth        int    `json:"max_depth" validate:"min=0,max=64"` // 0: unlimited
	MinSamplesSplit int    `json:"min_samples_split" validate:"min=2"`
	MinSamplesLeaf  int    `json:"min_samples_leaf" validate:"min=1"`
	MaxFeatures     string `json:"max_features" validate:"oneof=sqrt log2 none"`
	Bootstrap       bool   `json:"bootstrap"`
	ClassWeight     string `json:"class_weight" validate:"oneof=balanced balanced_subsample none"`
	Seed            int64  `json:"random_state"`
}

// DefaultForestParams returns 100 trees of depth 10.
func DefaultForestParams() ForestParams {
	return ForestParams{
		NEstimators:     100,
		MaxDepth:        10,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     MaxFeaturesSqrt,
		Bootstrap:       true,
		ClassWeight:     ClassWeightNone,
		Seed:            DefaultSeed,
	}
}

// Validate checks field ranges.
func (p ForestParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// Map returns the parameters keyed by name.
func (p ForestParams) Map() map[string]any {
	return map[string]any{
		"n_estimators":      p.NEstimators,
		"max_depth":         p.MaxDepth,
		"min_samples_split": p.MinSamplesSplit,
		"min_samples_leaf":  p.MinSamplesLeaf,
		"max_features":      p.MaxFeatures,
		"bootstrap":         p.Bootstrap,
		"class_weight":      p.ClassWeight,
		"random_state":      p.Seed,
	}
}

// ForestParamsFromMap overlays values onto the defaults and validates.
func ForestParamsFromMap(values map[string]any) (ForestParams, error) {
	p := DefaultForestParams()
	for k, v := range values {
		var err error
		switch k {
		case "n_estimators":
			p.NEstimators, err = asInt(v)
		case "max_depth":
			p.MaxDepth, err = asInt(v)
		case "min_samples_split":
			p.MinSamplesSplit, err = asInt(v)
		case "min_samples_leaf":
			p.MinSamplesLeaf, err = asInt(v)
		case "max_features":
			p.MaxFeatures, err = asCategory(v)
		case "bootstrap":
			p.Bootstrap, err = asBool(v)
		case "class_weight":
			p.ClassWeight, err = asCategory(v)
		case "random_state":
			var seed int
			seed, err = asInt(v)
			p.Seed = int64(seed)
		default:
			return ForestParams{}, fmt.Errorf("%w: %s", ErrUnknownParam, k)
		}
		if err != nil {
			return ForestParams{}, fmt.Errorf("%w: %s: %v", ErrInvalidParams, k, err)
		}
	}
	return p, p.Validate()
}

// BoostParams are the hyperparameters of a gradient boosted tree regressor.
type BoostParams struct {
	NEstimators  int     `json:"n_estimators" validate:"min=1,max=2000"`
	LearningRate float64 `json:"learning_rate" validate:"gt=0,lte=1"`
	MaxDepth     int     `json:"max_depth" validate:"min=1,max=32"`
	Subsample    float64 `json:"subsample" validate:"gt=0,lte=1"`
	ColSample    float64 `json:"colsample_bytree" validate:"gt=0,lte=1"`
	Seed         int64   `json:"random_state"`
}

// StackParams configure one stacked score regressor.
type StackParams struct {
	Boost      BoostParams `json:"boost"`
	GBM        BoostParams `json:"gbm"`
	RidgeAlpha float64     `json:"ridge_alpha" validate:"gt=0"`
	LassoAlpha float64     `json:"lasso_alpha" validate:"gt=0"`
	MetaAlpha  float64     `json:"meta_alpha" validate:"gt=0"`
	Folds      int         `json:"folds" validate:"min=2,max=20"`
	// Bases lists the base learners by kind, in stacking order.
	Bases []string `json:"bases" validate:"min=1,dive,oneof=boost gbm ridge lasso ols"`
}

// ScoreParams configure the home and away stacks of the score model.
type ScoreParams struct {
	Home StackParams `json:"home"`
	Away StackParams `json:"away"`
	Seed int64       `json:"random_state"`
}

// Base learner kinds.
const (
	BaseBoost = "boost"
	BaseGBM   = "gbm"
	BaseRidge = "ridge"
	BaseLasso = "lasso"
	BaseOLS   = "ols"
)

// DefaultBases are the base learners of the score stack.
var DefaultBases = []string{BaseBoost, BaseGBM, BaseRidge, BaseLasso}

// DefaultStackParams: boost/gbm with 100 trees, ridge(1.0), lasso(0.1),
// ridge(0.5) meta-learner, 5 folds.
func DefaultStackParams() StackParams {
	return StackParams{
		Boost: BoostParams{
			NEstimators:  100,
			LearningRate: 0.1,
			MaxDepth:     3,
			Subsample:    1,
			ColSample:    1,
			Seed:         DefaultSeed,
		},
		GBM: BoostParams{
			NEstimators:  100,
			LearningRate: 0.1,
			MaxDepth:     3,
			Subsample:    1,
			ColSample:    1,
			Seed:         DefaultSeed,
		},
		RidgeAlpha: 1.0,
		LassoAlpha: 0.1,
		MetaAlpha:  0.5,
		Folds:      5,
		Bases:      append([]string(nil), DefaultBases...),
	}
}

// DefaultScoreParams uses DefaultStackParams for both sides.
func DefaultScoreParams() ScoreParams {
	return ScoreParams{
		Home: DefaultStackParams(),
		Away: DefaultStackParams(),
		Seed: DefaultSeed,
	}
}

// Validate checks field ranges of both stacks.
func (p ScoreParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// Map returns the parameters keyed by their search-space names.
func (p ScoreParams) Map() map[string]any {
	out := map[string]any{"random_state": p.Seed}
	for _, side := range []struct {
		name string
		sp   StackParams
	}{{"home", p.Home}, {"away", p.Away}} {
		s := side.sp
		out["boost_"+side.name+"_n_estimators"] = s.Boost.NEstimators
		out["boost_"+side.name+"_learning_rate"] = s.Boost.LearningRate
		out["boost_"+side.name+"_max_depth"] = s.Boost.MaxDepth
		out["boost_"+side.name+"_subsample"] = s.Boost.Subsample
		out["boost_"+side.name+"_colsample_bytree"] = s.Boost.ColSample
		out["gbm_"+side.name+"_n_estimators"] = s.GBM.NEstimators
		out["gbm_"+side.name+"_learning_rate"] = s.GBM.LearningRate
		out["gbm_"+side.name+"_max_depth"] = s.GBM.MaxDepth
		out["gbm_"+side.name+"_subsample"] = s.GBM.Subsample
		out["ridge_"+side.name+"_alpha"] = s.RidgeAlpha
		out["lasso_"+side.name+"_alpha"] = s.LassoAlpha
		out["final_"+side.name+"_alpha"] = s.MetaAlpha
		out["bases_"+side.name] = strings.Join(s.Bases, ",")
	}
	return out
}

// ScoreParamsFromMap overlays values onto the defaults and validates.
// Keys follow "<learner>_<side>_<name>", e.g. "boost_home_max_depth".
func ScoreParamsFromMap(values map[string]any) (ScoreParams, error) {
	p := DefaultScoreParams()
	for k, v := range values {
		if k == "random_state" {
			seed, err := asInt(v)
			if err != nil {
				return ScoreParams{}, fmt.Errorf("%w: %s: %v", ErrInvalidParams, k, err)
			}
			p.Seed = int64(seed)
			continue
		}
		if err := setStackParam(&p, k, v); err != nil {
			return ScoreParams{}, err
		}
	}
	p.Home.Boost.Seed, p.Home.GBM.Seed = p.Seed, p.Seed
	p.Away.Boost.Seed, p.Away.GBM.Seed = p.Seed, p.Seed
	return p, p.Validate()
}

func setStackParam(p *ScoreParams, key string, v any) error {
	learner, rest, ok := strings.Cut(key, "_")
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParam, key)
	}
	side, name, ok := strings.Cut(rest, "_")
	if learner == "bases" {
		side, name, ok = rest, "", true
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParam, key)
	}

	var sp *StackParams
	switch side {
	case "home":
		sp = &p.Home
	case "away":
		sp = &p.Away
	default:
		return fmt.Errorf("%w: %s", ErrUnknownParam, key)
	}

	var err error
	switch learner {
	case "boost", "gbm":
		bp := &sp.Boost
		if learner == "gbm" {
			bp = &sp.GBM
		}
		err = setBoostParam(bp, name, v)
	case "ridge", "lasso", "final":
		if name != "alpha" {
			return fmt.Errorf("%w: %s", ErrUnknownParam, key)
		}
		var alpha float64
		alpha, err = asFloat(v)
		switch learner {
		case "ridge":
			sp.RidgeAlpha = alpha
		case "lasso":
			sp.LassoAlpha = alpha
		default:
			sp.MetaAlpha = alpha
		}
	case "bases":
		var s string
		s, err = asCategory(v)
		sp.Bases = strings.Split(s, ",")
	default:
		return fmt.Errorf("%w: %s", ErrUnknownParam, key)
	}
	if err != nil {
		if errors.Is(err, ErrUnknownParam) {
			return fmt.Errorf("%w: %s", ErrUnknownParam, key)
		}
		return fmt.Errorf("%w: %s: %v", ErrInvalidParams, key, err)
	}
	return nil
}

func setBoostParam(bp *BoostParams, name string, v any) error {
	var err error
	switch name {
	case "n_estimators":
		bp.NEstimators, err = asInt(v)
	case "learning_rate":
		bp.LearningRate, err = asFloat(v)
	case "max_depth":
		bp.MaxDepth, err = asInt(v)
	case "subsample":
		bp.Subsample, err = asFloat(v)
	case "colsample_bytree":
		bp.ColSample, err = asFloat(v)
	default:
		return ErrUnknownParam
	}
	return err
}

func asInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case int32:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("expected integer, got %v", x)
		}
		return int(x), nil
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

func asFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

func asBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("expected bool, got %T", v)
}

// asCategory accepts strings; nil maps to "none".
func asCategory(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "none", nil
	case string:
		return x, nil
	}
	return "", fmt.Errorf("expected string, got %T", v)
}
