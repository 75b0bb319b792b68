package model

import (
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RandomForest is a bagged ensemble of gini trees for binary labels.
type RandomForest struct {
	Params     ForestParams `json:"params"`
	Trees      []*Tree      `json:"trees"`
	NFeatures  int          `json:"n_features"`
	Importance []float64    `json:"feature_importance"`
}

var _ Classifier = (*RandomForest)(nil)

// NewRandomForest creates an unfitted forest. Params must be valid.
func NewRandomForest(p ForestParams) (*RandomForest, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &RandomForest{Params: p}, nil
}

// Fit grows NEstimators trees in parallel. Tree t is seeded with Seed+t so
// the result does not depend on scheduling.
func (f *RandomForest) Fit(X [][]float64, y []int) error {
	nFeatures, err := checkXY(X, len(y))
	if err != nil {
		return err
	}

	labels := make([]float64, len(y))
	for i, v := range y {
		if v != 0 {
			labels[i] = 1
		}
	}

	p := f.Params
	var baseWeights []float64
	if p.ClassWeight == ClassWeightBalanced {
		baseWeights = balancedWeights(labels, allRows(len(labels)))
	}

	cfg := treeConfig{
		criterion:       criterionGini,
		maxDepth:        p.MaxDepth,
		minSamplesSplit: p.MinSamplesSplit,
		minSamplesLeaf:  p.MinSamplesLeaf,
		maxFeatures:     resolveMaxFeatures(p.MaxFeatures, nFeatures),
	}

	trees := make([]*Tree, p.NEstimators)
	importances := make([][]float64, p.NEstimators)

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := 0; t < p.NEstimators; t++ {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(p.Seed + int64(t)))
			rows := allRows(len(labels))
			if p.Bootstrap {
				rows = bootstrapRows(rng, len(labels))
			}
			w := baseWeights
			if p.ClassWeight == ClassWeightBalancedSubsample {
				w = balancedWeights(labels, rows)
			}
			imp := make([]float64, nFeatures)
			trees[t] = fitTree(cfg, X, labels, w, rows, rng, imp)
			importances[t] = normalize(imp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f.Trees = trees
	f.NFeatures = nFeatures
	f.Importance = make([]float64, nFeatures)
	for _, imp := range importances {
		for j, v := range imp {
			f.Importance[j] += v
		}
	}
	f.Importance = normalize(f.Importance)
	return nil
}

// PredictProba returns the mean leaf probability of label 1 across trees.
func (f *RandomForest) PredictProba(x []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, ErrNotFitted
	}
	if err := checkRow(x, f.NFeatures); err != nil {
		return 0, err
	}
	sum := 0.0
	for _, t := range f.Trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.Trees)), nil
}

// FeatureImportance returns normalized impurity decrease per feature.
func (f *RandomForest) FeatureImportance() []float64 {
	out := make([]float64, len(f.Importance))
	copy(out, f.Importance)
	return out
}

func resolveMaxFeatures(mode string, n int) int {
	switch mode {
	case MaxFeaturesSqrt:
		return max(1, int(math.Sqrt(float64(n))))
	case MaxFeaturesLog2:
		return max(1, int(math.Log2(float64(n))))
	}
	return n
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

func bootstrapRows(rng *rand.Rand, n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = rng.Intn(n)
	}
	return rows
}

// balancedWeights gives each class total weight n/2 over rows.
// Weights are indexed by original row.
func balancedWeights(labels []float64, rows []int) []float64 {
	var pos, neg int
	for _, i := range rows {
		if labels[i] == 1 {
			pos++
		} else {
			neg++
		}
	}
	n := float64(len(rows))
	w := make([]float64, len(labels))
	for i := range labels {
		switch {
		case labels[i] == 1 && pos > 0:
			w[i] = n / (2 * float64(pos))
		case labels[i] == 0 && neg > 0:
			w[i] = n / (2 * float64(neg))
		default:
			w[i] = 1
		}
	}
	return w
}

func normalize(v []float64) []float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	if sum <= 0 {
		return v
	}
	for i := range v {
		v[i] /= sum
	}
	return v
}
