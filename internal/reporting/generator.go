package reporting

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/metrics"
	"esports-predictor/internal/registry"
	"esports-predictor/internal/storage"
)

// Generator produces reports from registries and the trial store.
type Generator struct {
	registries []*registry.Registry
	trialStore storage.TrialStore
	archive    storage.PredictionArchive
	matches    storage.MatchStore
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. trialStore may be nil when
// only registry sections are needed.
func NewGenerator(trialStore storage.TrialStore, registries ...*registry.Registry) *Generator {
	return &Generator{
		registries: registries,
		trialStore: trialStore,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithArchive enables EvaluateRun.
func (g *Generator) WithArchive(archive storage.PredictionArchive, matches storage.MatchStore) *Generator {
	g.archive = archive
	g.matches = matches
	return g
}

// EvaluateRun scores the archived batch of a refresh run against the final
// results now in the match store. Returns storage.ErrNotFound if nothing was
// archived for the run.
func (g *Generator) EvaluateRun(ctx context.Context, runID string) (*EvaluationSection, error) {
	if g.archive == nil || g.matches == nil {
		return nil, fmt.Errorf("evaluate %s: no prediction archive", runID)
	}
	preds, err := g.archive.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load archived predictions: %w", err)
	}
	if len(preds) == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, storage.ErrNotFound)
	}
	results, err := g.matches.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	return Evaluate(runID, preds, results), nil
}

// Generate builds the report. An empty runID skips the optimization section.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	r := &Report{GeneratedAt: g.now()}
	for _, reg := range g.registries {
		r.Registries = append(r.Registries, RegistrySectionOf(reg))
	}

	if runID == "" {
		return r, nil
	}
	if g.trialStore == nil {
		return nil, fmt.Errorf("optimization report for %s: no trial store", runID)
	}
	trials, err := g.trialStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trials: %w", err)
	}
	if len(trials) == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, metrics.ErrNoTrials)
	}
	r.Optimization = OptimizationSectionOf(trials)
	return r, nil
}

// RegistrySectionOf lists a registry's entries in insertion order.
func RegistrySectionOf(reg *registry.Registry) RegistrySection {
	cmp := reg.Comparator()
	s := RegistrySection{Name: reg.Name(), Metric: cmp.Metric}
	if best, ok := reg.Best(); ok {
		s.BestModelID = best.ModelID
	}
	for _, e := range reg.List() {
		v, ok := cmp.Value(e)
		s.Rows = append(s.Rows, RegistryRow{
			ModelID:      e.ModelID,
			TrainingTime: e.TrainingTime,
			NumSamples:   e.NumSamples,
			Metric:       v,
			HasMetric:    ok,
			Best:         e.ModelID == s.BestModelID,
		})
	}
	return s
}

// OptimizationSectionOf summarizes trials and orders them by index.
func OptimizationSectionOf(trials []*domain.Trial) *OptimizationSection {
	summary := metrics.SummarizeTrials(trials)

	sorted := make([]*domain.Trial, len(trials))
	copy(sorted, trials)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	rows := make([]TrialRow, len(sorted))
	for i, t := range sorted {
		rows[i] = TrialRow{
			Index:  t.Index,
			Score:  t.Score,
			Failed: t.Failed() || math.IsInf(t.Score, -1),
			Best:   t.Index == summary.BestIndex,
			Params: FormatParams(t.Params),
			Error:  t.Error,
		}
	}
	return &OptimizationSection{Summary: summary, Trials: rows}
}

// FormatParams renders params as "k=v" pairs sorted by key.
func FormatParams(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		v := params[k]
		switch x := v.(type) {
		case nil:
			parts[i] = k + "=none"
		case float64:
			parts[i] = fmt.Sprintf("%s=%.6g", k, x)
		default:
			parts[i] = fmt.Sprintf("%s=%v", k, x)
		}
	}
	return strings.Join(parts, " ")
}
