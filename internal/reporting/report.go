// Package reporting renders model registries, optimization runs and
// prediction accuracy as Markdown and CSV.
package reporting

import (
	"time"

	"esports-predictor/internal/domain"
)

// Report is the combined registry and optimization report.
type Report struct {
	GeneratedAt time.Time

	// One section per registry, in the order the generator was given.
	Registries []RegistrySection

	// Nil when no optimization run was requested.
	Optimization *OptimizationSection

	// Nil when no prediction batch was evaluated.
	Evaluation *EvaluationSection
}

// RegistrySection lists the entries of one registry.
type RegistrySection struct {
	Name        string
	Metric      string // selection metric name
	BestModelID string // empty when there is no best model
	Rows        []RegistryRow
}

// RegistryRow is one registered model.
type RegistryRow struct {
	ModelID      string
	TrainingTime string
	NumSamples   int
	Metric       float64
	HasMetric    bool
	Best         bool
}

// OptimizationSection describes one optimization run.
type OptimizationSection struct {
	Summary *domain.TrialSummary
	Trials  []TrialRow // ordered by index
}

// TrialRow is one evaluated assignment.
type TrialRow struct {
	Index  int
	Score  float64 // oriented; -Inf on failure
	Failed bool
	Best   bool
	Params string // canonical key=value list
	Error  string
}
