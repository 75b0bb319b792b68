package model

import (
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Stacking combines base regressors through a ridge meta-learner trained on
// out-of-fold base predictions. Inputs are standardized before reaching the
// bases; the meta-learner sees raw base outputs.
type Stacking struct {
	Params StackParams
	Scaler StandardScaler
	Bases  []Regressor
	Meta   *Ridge
}

var _ Regressor = (*Stacking)(nil)

// NewStacking creates an unfitted stack. Params must be valid.
func NewStacking(p StackParams) (*Stacking, error) {
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return &Stacking{Params: p}, nil
}

func (s *Stacking) newBase(kind string) (Regressor, error) {
	switch kind {
	case BaseBoost:
		return NewGradientBoosting(s.Params.Boost)
	case BaseGBM:
		p := s.Params.GBM
		p.ColSample = 1
		return NewGradientBoosting(p)
	case BaseRidge:
		return NewRidge(s.Params.RidgeAlpha), nil
	case BaseLasso:
		return NewLasso(s.Params.LassoAlpha), nil
	case BaseOLS:
		return &OLS{}, nil
	}
	return nil, fmt.Errorf("%w: base learner %q", ErrInvalidParams, kind)
}

func (s *Stacking) newBases() ([]Regressor, error) {
	out := make([]Regressor, len(s.Params.Bases))
	for i, kind := range s.Params.Bases {
		b, err := s.newBase(kind)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// Fit trains the stack: out-of-fold predictions over Folds contiguous
// folds feed the meta-learner, then every base is refit on all rows.
func (s *Stacking) Fit(X [][]float64, y []float64) error {
	if _, err := checkXY(X, len(y)); err != nil {
		return err
	}
	if len(y) < 2 {
		return fmt.Errorf("%w: stacking needs at least 2 rows", ErrEmptyData)
	}
	if err := s.Scaler.Fit(X); err != nil {
		return err
	}
	Xs, err := s.Scaler.TransformAll(X)
	if err != nil {
		return err
	}

	folds := s.Params.Folds
	if folds > len(y) {
		folds = len(y)
	}
	oof := make([][]float64, len(y))
	for i := range oof {
		oof[i] = make([]float64, len(s.Params.Bases))
	}
	for _, f := range kFold(len(y), folds) {
		trainX, trainY := subset(Xs, y, f.train)
		bases, err := s.fitBases(trainX, trainY)
		if err != nil {
			return err
		}
		for _, i := range f.test {
			for b, base := range bases {
				v, err := base.Predict(Xs[i])
				if err != nil {
					return err
				}
				oof[i][b] = v
			}
		}
	}

	meta := NewRidge(s.Params.MetaAlpha)
	if err := meta.Fit(oof, y); err != nil {
		return fmt.Errorf("meta learner: %w", err)
	}
	bases, err := s.fitBases(Xs, y)
	if err != nil {
		return err
	}
	s.Bases, s.Meta = bases, meta
	return nil
}

// fitBases trains fresh base learners concurrently.
func (s *Stacking) fitBases(X [][]float64, y []float64) ([]Regressor, error) {
	bases, err := s.newBases()
	if err != nil {
		return nil, err
	}
	var g errgroup.Group
	for i, b := range bases {
		g.Go(func() error {
			if err := b.Fit(X, y); err != nil {
				return fmt.Errorf("base %s: %w", s.Params.Bases[i], err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bases, nil
}

// Predict runs every base on the scaled row and combines them.
func (s *Stacking) Predict(x []float64) (float64, error) {
	if s.Meta == nil {
		return 0, ErrNotFitted
	}
	xs, err := s.Scaler.Transform(x)
	if err != nil {
		return 0, err
	}
	level := make([]float64, len(s.Bases))
	for i, b := range s.Bases {
		v, err := b.Predict(xs)
		if err != nil {
			return 0, err
		}
		level[i] = v
	}
	return s.Meta.Predict(level)
}

type foldSplit struct {
	train, test []int
}

// kFold splits [0,n) into k contiguous folds without shuffling. The first
// n%k folds hold one extra row.
func kFold(n, k int) []foldSplit {
	out := make([]foldSplit, 0, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		end := start + size
		split := foldSplit{}
		for i := 0; i < n; i++ {
			if i >= start && i < end {
				split.test = append(split.test, i)
			} else {
				split.train = append(split.train, i)
			}
		}
		out = append(out, split)
		start = end
	}
	return out
}

func subset(X [][]float64, y []float64, rows []int) ([][]float64, []float64) {
	xs := make([][]float64, len(rows))
	ys := make([]float64, len(rows))
	for i, r := range rows {
		xs[i], ys[i] = X[r], y[r]
	}
	return xs, ys
}

type stackingJSON struct {
	Params StackParams    `json:"params"`
	Scaler StandardScaler `json:"scaler"`
	Bases  []baseEnvelope `json:"bases"`
	Meta   *Ridge         `json:"meta"`
}

type baseEnvelope struct {
	Kind  string          `json:"kind"`
	Model json.RawMessage `json:"model"`
}

// MarshalJSON tags each base with its kind so it can be rebuilt.
func (s *Stacking) MarshalJSON() ([]byte, error) {
	doc := stackingJSON{Params: s.Params, Scaler: s.Scaler, Meta: s.Meta}
	for i, b := range s.Bases {
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		doc.Bases = append(doc.Bases, baseEnvelope{Kind: s.Params.Bases[i], Model: raw})
	}
	return json.Marshal(doc)
}

// UnmarshalJSON restores a fitted stack.
func (s *Stacking) UnmarshalJSON(data []byte) error {
	var doc stackingJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	out := Stacking{Params: doc.Params, Scaler: doc.Scaler, Meta: doc.Meta}
	for _, env := range doc.Bases {
		b, err := out.newBase(env.Kind)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(env.Model, b); err != nil {
			return fmt.Errorf("base %s: %w", env.Kind, err)
		}
		out.Bases = append(out.Bases, b)
	}
	if len(out.Bases) != len(out.Params.Bases) {
		return fmt.Errorf("%w: %d bases, params list %d", ErrDimension, len(out.Bases), len(out.Params.Bases))
	}
	*s = out
	return nil
}
