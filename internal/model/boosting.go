package model

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// GradientBoosting fits squared-error regression trees on residuals.
// Subsample draws rows per stage without replacement; ColSample draws a
// column subset per tree.
type GradientBoosting struct {
	Params    BoostParams `json:"params"`
	Init      float64     `json:"init"`
	Trees     []*Tree     `json:"trees"`
	NFeatures int         `json:"n_features"`
}

var _ Regressor = (*GradientBoosting)(nil)

// NewGradientBoosting creates an unfitted booster.
func NewGradientBoosting(p BoostParams) (*GradientBoosting, error) {
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return &GradientBoosting{Params: p}, nil
}

// Fit trains the ensemble.
func (g *GradientBoosting) Fit(X [][]float64, y []float64) error {
	nFeatures, err := checkXY(X, len(y))
	if err != nil {
		return err
	}

	p := g.Params
	rng := rand.New(rand.NewSource(p.Seed))
	n := len(y)

	init := 0.0
	for _, v := range y {
		init += v
	}
	init /= float64(n)

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = init
	}
	residual := make([]float64, n)
	scratch := make([]float64, nFeatures)

	rowCount := max(1, int(math.Round(float64(n)*p.Subsample)))
	colCount := max(1, int(math.Round(float64(nFeatures)*p.ColSample)))

	trees := make([]*Tree, 0, p.NEstimators)
	for stage := 0; stage < p.NEstimators; stage++ {
		for i := range residual {
			residual[i] = y[i] - pred[i]
		}

		rows := allRows(n)
		if rowCount < n {
			rows = rng.Perm(n)[:rowCount]
			sort.Ints(rows)
		}
		var cols []int
		if colCount < nFeatures {
			cols = rng.Perm(nFeatures)[:colCount]
			sort.Ints(cols)
		}

		tree := fitTree(treeConfig{
			criterion:       criterionMSE,
			maxDepth:        p.MaxDepth,
			minSamplesSplit: 2,
			minSamplesLeaf:  1,
			features:        cols,
		}, X, residual, nil, rows, rng, scratch)

		for i := range pred {
			pred[i] += p.LearningRate * tree.predict(X[i])
		}
		trees = append(trees, tree)
	}

	g.Init = init
	g.Trees = trees
	g.NFeatures = nFeatures
	return nil
}

// Predict returns init plus the shrunken sum of tree outputs.
func (g *GradientBoosting) Predict(x []float64) (float64, error) {
	if g.Trees == nil {
		return 0, ErrNotFitted
	}
	if err := checkRow(x, g.NFeatures); err != nil {
		return 0, err
	}
	out := g.Init
	for _, t := range g.Trees {
		out += g.Params.LearningRate * t.predict(x)
	}
	return out, nil
}
