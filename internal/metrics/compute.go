package metrics

import (
	"math"
	"sort"
)

// computeMean calculates the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC; p is a fraction (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Classification holds binary classification metrics for the positive class.
type Classification struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	ROCAUC    float64
}

// Classify computes metrics from true labels and P(label == 1).
// Predictions use a 0.5 threshold. Precision, recall and F1 are 0 when
// undefined; ROC AUC is 0.5 when only one class is present.
func Classify(labels []int, probs []float64) Classification {
	n := len(labels)
	if n == 0 || len(probs) != n {
		return Classification{}
	}

	var tp, fp, fn, correct int
	for i, y := range labels {
		pred := 0
		if probs[i] >= 0.5 {
			pred = 1
		}
		if pred == y {
			correct++
		}
		switch {
		case pred == 1 && y == 1:
			tp++
		case pred == 1 && y == 0:
			fp++
		case pred == 0 && y == 1:
			fn++
		}
	}

	c := Classification{
		Accuracy: float64(correct) / float64(n),
		ROCAUC:   rocAUC(labels, probs),
	}
	if tp+fp > 0 {
		c.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		c.Recall = float64(tp) / float64(tp+fn)
	}
	if c.Precision+c.Recall > 0 {
		c.F1 = 2 * c.Precision * c.Recall / (c.Precision + c.Recall)
	}
	return c
}

// rocAUC is the Mann-Whitney statistic with average ranks for ties.
func rocAUC(labels []int, probs []float64) float64 {
	n := len(labels)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return probs[idx[a]] < probs[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && probs[idx[j+1]] == probs[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	var pos, neg int
	sumPos := 0.0
	for i, y := range labels {
		if y == 1 {
			pos++
			sumPos += ranks[i]
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0.5
	}
	return (sumPos - float64(pos*(pos+1))/2) / float64(pos*neg)
}

// Regression holds error metrics for one continuous target.
type Regression struct {
	MAE  float64
	MSE  float64
	RMSE float64
	R2   float64
}

// Regress computes error metrics. R2 is 0 when the target is constant.
func Regress(actual, predicted []float64) Regression {
	n := len(actual)
	if n == 0 || len(predicted) != n {
		return Regression{}
	}
	mean := computeMean(actual)
	var absSum, sqSum, totSum float64
	for i, y := range actual {
		d := y - predicted[i]
		absSum += math.Abs(d)
		sqSum += d * d
		totSum += (y - mean) * (y - mean)
	}
	r := Regression{
		MAE: absSum / float64(n),
		MSE: sqSum / float64(n),
	}
	r.RMSE = math.Sqrt(r.MSE)
	if totSum > 0 {
		r.R2 = 1 - sqSum/totSum
	}
	return r
}
