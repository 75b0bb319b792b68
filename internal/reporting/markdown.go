package reporting

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Model Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	for _, s := range r.Registries {
		renderRegistry(&sb, s)
	}

	if r.Optimization != nil {
		renderOptimization(&sb, r.Optimization)
	}

	if r.Evaluation != nil {
		renderEvaluation(&sb, r.Evaluation)
	}

	return sb.String()
}

func renderRegistry(sb *strings.Builder, s RegistrySection) {
	sb.WriteString(fmt.Sprintf("## Registry: %s\n\n", s.Name))
	if len(s.Rows) == 0 {
		sb.WriteString("No models registered.\n\n")
		return
	}

	best := s.BestModelID
	if best == "" {
		best = "none"
	}
	sb.WriteString(fmt.Sprintf("Models: %d | Best: %s | Metric: %s\n\n", len(s.Rows), best, s.Metric))

	sb.WriteString(fmt.Sprintf("| Model ID | Trained | Samples | %s | Best |\n", s.Metric))
	sb.WriteString("|----------|---------|---------|------|------|\n")
	for _, row := range s.Rows {
		metric := "N/A"
		if row.HasMetric {
			metric = fmt.Sprintf("%.4f", row.Metric)
		}
		mark := ""
		if row.Best {
			mark = "*"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s |\n",
			row.ModelID, row.TrainingTime, row.NumSamples, metric, mark))
	}
	sb.WriteString("\n")
}

func renderOptimization(sb *strings.Builder, o *OptimizationSection) {
	s := o.Summary
	sb.WriteString(fmt.Sprintf("## Optimization: %s\n\n", s.RunID))

	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Task | %s |\n", s.Task))
	sb.WriteString(fmt.Sprintf("| Trials | %d |\n", s.Total))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", s.Failed))
	if s.BestIndex >= 0 {
		sb.WriteString(fmt.Sprintf("| Best Trial | %d |\n", s.BestIndex))
		sb.WriteString(fmt.Sprintf("| Best Score | %.4f |\n", s.BestScore))
		sb.WriteString(fmt.Sprintf("| Mean | %.4f |\n", s.ScoreMean))
		sb.WriteString(fmt.Sprintf("| Median | %.4f |\n", s.ScoreMedian))
		sb.WriteString(fmt.Sprintf("| P10 / P90 | %.4f / %.4f |\n", s.ScoreP10, s.ScoreP90))
		sb.WriteString(fmt.Sprintf("| Stddev | %.4f |\n", s.ScoreStddev))
	} else {
		sb.WriteString("| Best Trial | none |\n")
	}
	sb.WriteString("\n")

	sb.WriteString("### Trials\n\n")
	sb.WriteString("| # | Score | Params | Note |\n")
	sb.WriteString("|---|-------|--------|------|\n")
	for _, t := range o.Trials {
		note := ""
		switch {
		case t.Failed:
			note = "failed: " + escapePipes(t.Error)
		case t.Best:
			note = "best"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n", t.Index, formatScore(t.Score), escapePipes(t.Params), note))
	}
	sb.WriteString("\n")
}

func formatScore(v float64) string {
	if math.IsInf(v, -1) {
		return "-inf"
	}
	return fmt.Sprintf("%.4f", v)
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func renderEvaluation(sb *strings.Builder, e *EvaluationSection) {
	sb.WriteString(fmt.Sprintf("## Prediction Accuracy: %s\n\n", e.RunID))
	sb.WriteString(fmt.Sprintf("Resolved: %d of %d predictions\n\n", e.Resolved, e.Predicted))
	if e.Resolved == 0 {
		sb.WriteString("No predicted fixture has a final score yet.\n\n")
		return
	}

	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Winner Accuracy | %.4f |\n", e.WinnerAccuracy))
	sb.WriteString(fmt.Sprintf("| Winner ROC AUC | %.4f |\n", e.WinnerROCAUC))
	sb.WriteString(fmt.Sprintf("| Home Score MAE | %.4f |\n", e.HomeScore.MAE))
	sb.WriteString(fmt.Sprintf("| Away Score MAE | %.4f |\n", e.AwayScore.MAE))
	sb.WriteString(fmt.Sprintf("| Total Score MAE | %.4f |\n", e.TotalScore.MAE))
	sb.WriteString(fmt.Sprintf("| Total Score RMSE | %.4f |\n", e.TotalScore.RMSE))
	sb.WriteString("\n")

	sb.WriteString("| Method | Resolved | Correct | Accuracy |\n")
	sb.WriteString("|--------|----------|---------|----------|\n")
	for _, m := range e.Methods {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.4f |\n", m.Method, m.Resolved, m.Correct, m.Accuracy()))
	}
	sb.WriteString("\n")
}
