package metrics

import "esports-predictor/internal/domain"

// WinnerReport flattens classification metrics into metadata keys.
func WinnerReport(labels []int, probs []float64) map[string]float64 {
	c := Classify(labels, probs)
	return map[string]float64{
		domain.MetricAccuracy:  c.Accuracy,
		domain.MetricPrecision: c.Precision,
		domain.MetricRecall:    c.Recall,
		domain.MetricF1:        c.F1,
		domain.MetricROCAUC:    c.ROCAUC,
	}
}

// ScoreReport evaluates home, away, total and diff targets and returns
// "<target>_{mae,mse,rmse,r2}" keys, e.g. total_score_mae.
func ScoreReport(homeTrue, awayTrue, homePred, awayPred []float64) map[string]float64 {
	n := len(homeTrue)
	totalTrue, totalPred := make([]float64, n), make([]float64, n)
	diffTrue, diffPred := make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		totalTrue[i] = homeTrue[i] + awayTrue[i]
		totalPred[i] = homePred[i] + awayPred[i]
		diffTrue[i] = homeTrue[i] - awayTrue[i]
		diffPred[i] = homePred[i] - awayPred[i]
	}

	out := make(map[string]float64, 16)
	for _, t := range []struct {
		prefix          string
		actual, predict []float64
	}{
		{"home_score", homeTrue, homePred},
		{"away_score", awayTrue, awayPred},
		{"total_score", totalTrue, totalPred},
		{"score_diff", diffTrue, diffPred},
	} {
		r := Regress(t.actual, t.predict)
		out[t.prefix+"_mae"] = r.MAE
		out[t.prefix+"_mse"] = r.MSE
		out[t.prefix+"_rmse"] = r.RMSE
		out[t.prefix+"_r2"] = r.R2
	}
	return out
}
