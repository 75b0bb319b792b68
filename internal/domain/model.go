package domain

// Task identifies what a model predicts.
type Task string

const (
	TaskWinner Task = "winner"
	TaskScore  Task = "score"
)

// Model type constants, used in artifact file names.
const (
	ModelTypeWinner = "winner_prediction"
	ModelTypeScore  = "score_prediction"
)

// ModelType returns the artifact model type for the task.
func (t Task) ModelType() string {
	if t == TaskScore {
		return ModelTypeScore
	}
	return ModelTypeWinner
}

// Valid reports whether t is a known task.
func (t Task) Valid() bool {
	return t == TaskWinner || t == TaskScore
}

// Metric keys written by trainers.
const (
	MetricAccuracy      = "accuracy"
	MetricPrecision     = "precision"
	MetricRecall        = "recall"
	MetricF1            = "f1"
	MetricROCAUC        = "roc_auc"
	MetricHomeScoreMAE  = "home_score_mae"
	MetricAwayScoreMAE  = "away_score_mae"
	MetricTotalScoreMAE = "total_score_mae"
	MetricScoreDiffMAE  = "score_diff_mae"
)

// ModelMetadata describes a trained artifact. Written once as the info sidecar.
type ModelMetadata struct {
	ModelID      string             `json:"model_id"`
	ModelType    string             `json:"model_type"`
	TrainingTime string             `json:"training_time"` // TrainingTimeLayout
	DataFiles    []string           `json:"data_files,omitempty"`
	Parameters   map[string]any     `json:"parameters"`
	Metrics      map[string]float64 `json:"metrics"`
	NumSamples   int                `json:"num_samples"`
	Features     FeatureConfig      `json:"feature_config"`

	FeatureImportance []float64 `json:"feature_importance,omitempty"`

	ModelPath string `json:"model_path"`
	InfoPath  string `json:"info_path"`
}

// RegistryEntry is the persisted registry row of one model.
// Accuracy is set for winner models, TotalScoreMAE for score models.
type RegistryEntry struct {
	ModelID      string `json:"model_id"`
	ModelPath    string `json:"model_path"`
	InfoPath     string `json:"info_path"`
	ModelType    string `json:"model_type,omitempty"`
	TrainingTime string `json:"training_time,omitempty"`
	NumSamples   int    `json:"num_samples,omitempty"`

	Accuracy      *float64 `json:"accuracy,omitempty"`
	TotalScoreMAE *float64 `json:"total_score_mae,omitempty"`
}

// EntryFromMetadata builds the registry row for a trained model.
func EntryFromMetadata(m *ModelMetadata) RegistryEntry {
	e := RegistryEntry{
		ModelID:      m.ModelID,
		ModelPath:    m.ModelPath,
		InfoPath:     m.InfoPath,
		ModelType:    m.ModelType,
		TrainingTime: m.TrainingTime,
		NumSamples:   m.NumSamples,
	}
	if v, ok := m.Metrics[MetricAccuracy]; ok {
		e.Accuracy = &v
	}
	if v, ok := m.Metrics[MetricTotalScoreMAE]; ok {
		e.TotalScoreMAE = &v
	}
	return e
}

// RegistryDocument is the persisted form of a registry.
type RegistryDocument struct {
	Models      []RegistryEntry `json:"models"`
	BestModelID *string         `json:"best_model_id"`
}

// Clone returns a deep copy.
func (d *RegistryDocument) Clone() *RegistryDocument {
	c := &RegistryDocument{Models: make([]RegistryEntry, len(d.Models))}
	for i, e := range d.Models {
		c.Models[i] = e.Clone()
	}
	if d.BestModelID != nil {
		id := *d.BestModelID
		c.BestModelID = &id
	}
	return c
}

// Clone returns a deep copy.
func (e RegistryEntry) Clone() RegistryEntry {
	if e.Accuracy != nil {
		v := *e.Accuracy
		e.Accuracy = &v
	}
	if e.TotalScoreMAE != nil {
		v := *e.TotalScoreMAE
		e.TotalScoreMAE = &v
	}
	return e
}
