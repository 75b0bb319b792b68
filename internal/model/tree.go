package model

import (
	"math/rand"
	"sort"
)

type criterion int

const (
	criterionGini criterion = iota
	criterionMSE
)

// treeNode is one node of a fitted tree. Leaves have Feature == -1.
type treeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

// Tree is a fitted CART tree stored as a flat node array, root at index 0.
// For classification the leaf value is P(label == 1).
type Tree struct {
	Nodes []treeNode `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type treeConfig struct {
	criterion       criterion
	maxDepth        int   // <= 0: unlimited
	minSamplesSplit int   // >= 2
	minSamplesLeaf  int   // >= 1
	maxFeatures     int   // candidates per node, <= 0: all
	features        []int // usable columns, nil: all
}

type treeBuilder struct {
	cfg        treeConfig
	X          [][]float64
	y          []float64
	w          []float64
	rng        *rand.Rand
	nodes      []treeNode
	importance []float64
	columns    []int
}

// fitTree grows a tree on the rows in idx. Rows may repeat (bootstrap).
// w may be nil for unit weights. importance receives the weighted impurity
// decrease per feature and must have one slot per column.
func fitTree(cfg treeConfig, X [][]float64, y, w []float64, idx []int, rng *rand.Rand, importance []float64) *Tree {
	if cfg.minSamplesSplit < 2 {
		cfg.minSamplesSplit = 2
	}
	if cfg.minSamplesLeaf < 1 {
		cfg.minSamplesLeaf = 1
	}
	b := &treeBuilder{
		cfg:        cfg,
		X:          X,
		y:          y,
		w:          w,
		rng:        rng,
		importance: importance,
		columns:    cfg.features,
	}
	if b.columns == nil {
		b.columns = make([]int, len(X[0]))
		for j := range b.columns {
			b.columns[j] = j
		}
	}
	rows := make([]int, len(idx))
	copy(rows, idx)
	b.grow(rows, 0)
	return &Tree{Nodes: b.nodes}
}

func (b *treeBuilder) weight(i int) float64 {
	if b.w == nil {
		return 1
	}
	return b.w[i]
}

// moments returns Σw, Σwy, Σwy² over rows.
func (b *treeBuilder) moments(rows []int) (sw, swy, swy2 float64) {
	for _, i := range rows {
		w := b.weight(i)
		sw += w
		swy += w * b.y[i]
		swy2 += w * b.y[i] * b.y[i]
	}
	return sw, swy, swy2
}

func (b *treeBuilder) impurity(sw, swy, swy2 float64) float64 {
	if sw <= 0 {
		return 0
	}
	mean := swy / sw
	if b.cfg.criterion == criterionGini {
		return 2 * mean * (1 - mean)
	}
	v := swy2/sw - mean*mean
	if v < 0 {
		return 0
	}
	return v
}

func (b *treeBuilder) leaf(value float64) int {
	b.nodes = append(b.nodes, treeNode{Feature: -1, Value: value})
	return len(b.nodes) - 1
}

func (b *treeBuilder) grow(rows []int, depth int) int {
	sw, swy, swy2 := b.moments(rows)
	value := 0.0
	if sw > 0 {
		value = swy / sw
	}
	imp := b.impurity(sw, swy, swy2)

	if (b.cfg.maxDepth > 0 && depth >= b.cfg.maxDepth) ||
		len(rows) < b.cfg.minSamplesSplit ||
		len(rows) < 2*b.cfg.minSamplesLeaf ||
		imp <= 1e-12 {
		return b.leaf(value)
	}

	feature, threshold, gain, ok := b.bestSplit(rows, sw, imp)
	if !ok {
		return b.leaf(value)
	}

	var left, right []int
	for _, i := range rows {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.importance[feature] += gain

	self := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{Feature: feature, Threshold: threshold, Value: value})
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[self].Left = l
	b.nodes[self].Right = r
	return self
}

// candidates returns the columns examined at one node.
func (b *treeBuilder) candidates() []int {
	k := b.cfg.maxFeatures
	if k <= 0 || k >= len(b.columns) {
		return b.columns
	}
	perm := b.rng.Perm(len(b.columns))
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = b.columns[perm[i]]
	}
	sort.Ints(out)
	return out
}

// bestSplit scans candidate features for the largest weighted impurity decrease.
func (b *treeBuilder) bestSplit(rows []int, sw, imp float64) (feature int, threshold, gain float64, ok bool) {
	minLeaf := b.cfg.minSamplesLeaf
	sorted := make([]int, len(rows))
	bestGain := 1e-12

	for _, f := range b.candidates() {
		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.X[sorted[i]][f] < b.X[sorted[j]][f]
		})

		var lw, lwy, lwy2 float64
		_, twy, twy2 := b.moments(sorted)
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			w := b.weight(i)
			lw += w
			lwy += w * b.y[i]
			lwy2 += w * b.y[i] * b.y[i]

			lo, hi := b.X[i][f], b.X[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			nLeft := k + 1
			if nLeft < minLeaf || len(sorted)-nLeft < minLeaf {
				continue
			}

			rw := sw - lw
			g := sw*imp - lw*b.impurity(lw, lwy, lwy2) - rw*b.impurity(rw, twy-lwy, twy2-lwy2)
			if g > bestGain {
				t := lo + (hi-lo)/2
				if t >= hi {
					t = lo
				}
				bestGain, feature, threshold, ok = g, f, t, true
			}
		}
	}
	return feature, threshold, bestGain, ok
}
