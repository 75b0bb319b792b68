// Package training prepares datasets, fits winner and score models, writes
// their artifacts and registers them.
package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/features"
	"esports-predictor/internal/model"
	"esports-predictor/internal/observability"
	"esports-predictor/internal/registry"
	"esports-predictor/internal/storage"
)

// Training errors.
var (
	// ErrDataUnavailable is returned when too few usable samples remain.
	ErrDataUnavailable = errors.New("training data unavailable")

	// ErrTrainingFailed wraps learner failures.
	ErrTrainingFailed = errors.New("training failed")
)

// Default split and sample settings.
const (
	DefaultTestSize   = 0.2
	DefaultMinSamples = 10
)

// maxIDBumps bounds the model id collision search.
const maxIDBumps = 1000

// Options configures a Trainer.
type Options struct {
	Features   domain.FeatureConfig
	TestSize   float64
	Seed       int64
	MinSamples int
	DataFiles  []string

	Artifacts storage.ArtifactStore
	Winners   *registry.Registry // nil: do not register winner models
	Scores    *registry.Registry // nil: do not register score models

	Logger *zap.Logger
	Clock  func() time.Time
}

// Trainer trains and persists models.
type Trainer struct {
	opts     Options
	engineer *features.Engineer
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a Trainer, filling defaults for zero options.
func New(opts Options) *Trainer {
	if opts.TestSize <= 0 || opts.TestSize >= 1 {
		opts.TestSize = DefaultTestSize
	}
	if opts.Seed == 0 {
		opts.Seed = model.DefaultSeed
	}
	if opts.MinSamples <= 0 {
		opts.MinSamples = DefaultMinSamples
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Trainer{
		opts:     opts,
		engineer: features.New(opts.Features, features.WithClock(opts.Clock)),
		logger:   opts.Logger,
		now:      opts.Clock,
	}
}

// Features returns the effective feature configuration.
func (t *Trainer) Features() domain.FeatureConfig {
	return t.engineer.Config()
}

// PrepareWinner extracts and splits the winner dataset.
func (t *Trainer) PrepareWinner(stats domain.StatsByPlayer, matches []domain.MatchRecord) (*WinnerData, error) {
	set := t.engineer.ExtractClassification(stats, matches)
	if err := t.checkSamples(set.Len()); err != nil {
		return nil, err
	}
	data := splitClassification(set, ShuffleSplit(set.Len(), t.opts.TestSize, t.opts.Seed))
	t.logger.Info("winner dataset prepared",
		zap.Int("train", data.Train.Len()),
		zap.Int("test", data.Test.Len()),
		zap.Int("features", t.engineer.Width()))
	return data, nil
}

// PrepareScore extracts and splits the score dataset.
func (t *Trainer) PrepareScore(stats domain.StatsByPlayer, matches []domain.MatchRecord) (*ScoreData, error) {
	set := t.engineer.ExtractRegression(stats, matches)
	if err := t.checkSamples(set.Len()); err != nil {
		return nil, err
	}
	data := splitRegression(set, ShuffleSplit(set.Len(), t.opts.TestSize, t.opts.Seed))
	t.logger.Info("score dataset prepared",
		zap.Int("train", data.Train.Len()),
		zap.Int("test", data.Test.Len()),
		zap.Int("features", t.engineer.Width()))
	return data, nil
}

func (t *Trainer) checkSamples(n int) error {
	if n < t.opts.MinSamples {
		return fmt.Errorf("%w: %d usable samples, need %d", ErrDataUnavailable, n, t.opts.MinSamples)
	}
	return nil
}

// TrainWinner prepares, fits, saves and registers a winner model.
func (t *Trainer) TrainWinner(ctx context.Context, stats domain.StatsByPlayer, matches []domain.MatchRecord, params model.ForestParams) (*domain.ModelMetadata, error) {
	start := time.Now()
	data, err := t.PrepareWinner(stats, matches)
	if err != nil {
		return nil, err
	}
	m, scores, err := FitWinner(t.Features(), params, data)
	if err != nil {
		return nil, err
	}
	meta, err := t.SaveWinner(ctx, m, scores, data.Samples())
	if err != nil {
		return nil, err
	}
	observability.RecordTraining(string(domain.TaskWinner), data.Samples(), time.Since(start).Seconds())
	return meta, nil
}

// TrainScore prepares, fits, saves and registers a score model.
func (t *Trainer) TrainScore(ctx context.Context, stats domain.StatsByPlayer, matches []domain.MatchRecord, params model.ScoreParams) (*domain.ModelMetadata, error) {
	start := time.Now()
	data, err := t.PrepareScore(stats, matches)
	if err != nil {
		return nil, err
	}
	m, scores, err := FitScore(t.Features(), params, data)
	if err != nil {
		return nil, err
	}
	meta, err := t.SaveScore(ctx, m, scores, data.Samples())
	if err != nil {
		return nil, err
	}
	observability.RecordTraining(string(domain.TaskScore), data.Samples(), time.Since(start).Seconds())
	return meta, nil
}

// SaveWinner writes the artifact and info sidecar, then registers the model.
func (t *Trainer) SaveWinner(ctx context.Context, m *model.WinnerModel, scores map[string]float64, samples int) (*domain.ModelMetadata, error) {
	data, err := model.EncodeWinner(m)
	if err != nil {
		return nil, err
	}
	meta := &domain.ModelMetadata{
		ModelType:         domain.ModelTypeWinner,
		Parameters:        m.Params.Map(),
		Metrics:           scores,
		NumSamples:        samples,
		Features:          m.Features,
		FeatureImportance: m.Forest.FeatureImportance(),
	}
	return t.save(ctx, meta, data, t.opts.Winners)
}

// SaveScore writes the artifact and info sidecar, then registers the model.
func (t *Trainer) SaveScore(ctx context.Context, m *model.ScoreModel, scores map[string]float64, samples int) (*domain.ModelMetadata, error) {
	data, err := model.EncodeScore(m)
	if err != nil {
		return nil, err
	}
	meta := &domain.ModelMetadata{
		ModelType:  domain.ModelTypeScore,
		Parameters: m.Params.Map(),
		Metrics:    scores,
		NumSamples: samples,
		Features:   m.Features,
	}
	return t.save(ctx, meta, data, t.opts.Scores)
}

func (t *Trainer) save(ctx context.Context, meta *domain.ModelMetadata, artifact []byte, reg *registry.Registry) (*domain.ModelMetadata, error) {
	if t.opts.Artifacts == nil {
		return nil, fmt.Errorf("save %s: no artifact store", meta.ModelType)
	}
	now := t.now().UTC()
	meta.TrainingTime = now.Format(domain.TrainingTimeLayout)
	meta.DataFiles = t.opts.DataFiles

	id, err := t.putArtifact(ctx, meta.ModelType, now.Unix(), artifact)
	if err != nil {
		return nil, err
	}
	meta.ModelID = id
	meta.ModelPath = ArtifactKey(meta.ModelType, id)
	meta.InfoPath = InfoKey(meta.ModelType, id)

	info, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	if err := t.opts.Artifacts.Put(ctx, meta.InfoPath, info); err != nil {
		return nil, fmt.Errorf("write metadata %s: %w", meta.InfoPath, err)
	}

	t.logger.Info("model saved",
		zap.String("model_id", id),
		zap.String("model_type", meta.ModelType),
		zap.Int("num_samples", meta.NumSamples),
		zap.Any("metrics", meta.Metrics))

	if reg != nil {
		if err := reg.Register(ctx, domain.EntryFromMetadata(meta)); err != nil {
			return meta, fmt.Errorf("register %s: %w", id, err)
		}
	}
	return meta, nil
}

// putArtifact writes the artifact under the first free id at or after base.
func (t *Trainer) putArtifact(ctx context.Context, modelType string, base int64, data []byte) (string, error) {
	for bump := int64(0); bump < maxIDBumps; bump++ {
		id := strconv.FormatInt(base+bump, 10)
		err := t.opts.Artifacts.Put(ctx, ArtifactKey(modelType, id), data)
		if errors.Is(err, storage.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("write artifact: %w", err)
		}
		return id, nil
	}
	return "", fmt.Errorf("write artifact: no free model id after %d attempts", maxIDBumps)
}

// ArtifactKey is the artifact key of a model: <type>_<id>.json.
func ArtifactKey(modelType, id string) string {
	return modelType + "_" + id + ".json"
}

// InfoKey is the metadata sidecar key of a model: <type>_info_<id>.json.
func InfoKey(modelType, id string) string {
	return modelType + "_info_" + id + ".json"
}
