package reporting

import (
	"sort"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/metrics"
)

// EvaluationSection compares a committed batch with final results.
type EvaluationSection struct {
	RunID     string
	Predicted int
	Resolved  int // predictions whose fixture now has final scores

	WinnerAccuracy float64
	WinnerROCAUC   float64
	HomeScore      metrics.Regression
	AwayScore      metrics.Regression
	TotalScore     metrics.Regression

	Methods []MethodRow
}

// MethodRow is winner accuracy per prediction method.
type MethodRow struct {
	Method   string
	Resolved int
	Correct  int
}

// Accuracy returns Correct/Resolved, 0 when nothing resolved.
func (m MethodRow) Accuracy() float64 {
	if m.Resolved == 0 {
		return 0
	}
	return float64(m.Correct) / float64(m.Resolved)
}

// Evaluate scores predictions against results keyed by fixture id. Ties
// count as away wins, the same rule the predictor applies.
func Evaluate(runID string, predictions []*domain.Prediction, results []*domain.MatchRecord) *EvaluationSection {
	byFixture := make(map[string]*domain.MatchRecord, len(results))
	for _, m := range results {
		if m != nil && m.HasScores() {
			byFixture[m.FixtureID] = m
		}
	}

	e := &EvaluationSection{RunID: runID, Predicted: len(predictions)}
	methods := make(map[string]*MethodRow)

	var labels []int
	var probs, homeTrue, homePred, awayTrue, awayPred, totalTrue, totalPred []float64
	correct := 0
	for _, p := range predictions {
		m, ok := byFixture[p.FixtureID]
		if !ok {
			continue
		}
		e.Resolved++

		actual := domain.SideAway
		label := 0
		if m.HomeWon() {
			actual, label = domain.SideHome, 1
		}
		hit := p.Winner.PredictedWinner == actual
		if hit {
			correct++
		}

		row, ok := methods[p.Method]
		if !ok {
			row = &MethodRow{Method: p.Method}
			methods[p.Method] = row
		}
		row.Resolved++
		if hit {
			row.Correct++
		}

		labels = append(labels, label)
		probs = append(probs, p.Winner.HomeWinProbability)
		homeTrue = append(homeTrue, float64(*m.HomeScore))
		awayTrue = append(awayTrue, float64(*m.AwayScore))
		totalTrue = append(totalTrue, float64(*m.HomeScore+*m.AwayScore))
		homePred = append(homePred, float64(p.Score.HomeScore))
		awayPred = append(awayPred, float64(p.Score.AwayScore))
		totalPred = append(totalPred, float64(p.Score.TotalScore))
	}

	if e.Resolved > 0 {
		e.WinnerAccuracy = float64(correct) / float64(e.Resolved)
		e.WinnerROCAUC = metrics.Classify(labels, probs).ROCAUC
		e.HomeScore = metrics.Regress(homeTrue, homePred)
		e.AwayScore = metrics.Regress(awayTrue, awayPred)
		e.TotalScore = metrics.Regress(totalTrue, totalPred)
	}

	for _, row := range methods {
		e.Methods = append(e.Methods, *row)
	}
	sort.Slice(e.Methods, func(i, j int) bool { return e.Methods[i].Method < e.Methods[j].Method })
	return e
}
