package training

import (
	"math"
	"math/rand"

	"esports-predictor/internal/features"
)

// Split holds train and test row indices.
type Split struct {
	Train []int
	Test  []int
}

// ShuffleSplit permutes [0,n) with seed and holds out ceil(testSize*n) rows.
func ShuffleSplit(n int, testSize float64, seed int64) Split {
	if n == 0 {
		return Split{}
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest > n {
		nTest = n
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return Split{
		Test:  append([]int(nil), perm[:nTest]...),
		Train: append([]int(nil), perm[nTest:]...),
	}
}

// WinnerData is a split classification set.
type WinnerData struct {
	Train *features.ClassificationSet
	Test  *features.ClassificationSet
}

// ScoreData is a split regression set.
type ScoreData struct {
	Train *features.RegressionSet
	Test  *features.RegressionSet
}

// Samples returns the total row count.
func (d *WinnerData) Samples() int { return d.Train.Len() + d.Test.Len() }

// Samples returns the total row count.
func (d *ScoreData) Samples() int { return d.Train.Len() + d.Test.Len() }

func splitClassification(set *features.ClassificationSet, s Split) *WinnerData {
	pick := func(rows []int) *features.ClassificationSet {
		out := &features.ClassificationSet{}
		for _, r := range rows {
			out.X = append(out.X, set.X[r])
			out.Labels = append(out.Labels, set.Labels[r])
		}
		return out
	}
	return &WinnerData{Train: pick(s.Train), Test: pick(s.Test)}
}

func splitRegression(set *features.RegressionSet, s Split) *ScoreData {
	pick := func(rows []int) *features.RegressionSet {
		out := &features.RegressionSet{}
		for _, r := range rows {
			out.X = append(out.X, set.X[r])
			out.HomeScores = append(out.HomeScores, set.HomeScores[r])
			out.AwayScores = append(out.AwayScores, set.AwayScores[r])
		}
		return out
	}
	return &ScoreData{Train: pick(s.Train), Test: pick(s.Test)}
}
