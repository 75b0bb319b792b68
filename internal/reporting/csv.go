package reporting

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// RenderRegistryCSV renders registry rows as CSV.
func RenderRegistryCSV(s RegistrySection) (string, error) {
	rows := [][]string{{"registry", "model_id", "training_time", "num_samples", s.Metric, "best"}}
	for _, r := range s.Rows {
		metric := ""
		if r.HasMetric {
			metric = strconv.FormatFloat(r.Metric, 'f', 6, 64)
		}
		rows = append(rows, []string{
			s.Name, r.ModelID, r.TrainingTime, strconv.Itoa(r.NumSamples), metric, strconv.FormatBool(r.Best),
		})
	}
	return writeCSV(rows)
}

// RenderTrialsCSV renders trial rows as CSV. Failed scores are "-inf".
func RenderTrialsCSV(trials []TrialRow) (string, error) {
	rows := [][]string{{"index", "score", "failed", "best", "params", "error"}}
	for _, t := range trials {
		score := "-inf"
		if !t.Failed {
			score = strconv.FormatFloat(t.Score, 'f', 6, 64)
		}
		rows = append(rows, []string{
			strconv.Itoa(t.Index), score, strconv.FormatBool(t.Failed), strconv.FormatBool(t.Best), t.Params, t.Error,
		})
	}
	return writeCSV(rows)
}

func writeCSV(rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return buf.String(), nil
}
