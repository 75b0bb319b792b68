package domain

// Stage is a refresh cycle state.
type Stage string

const (
	StageIdle                  Stage = "idle"
	StageFetchingData          Stage = "fetching_data"
	StageComputingStats        Stage = "computing_stats"
	StageLoadingModels         Stage = "loading_models"
	StageGeneratingPredictions Stage = "generating_predictions"
	StagePersisting            Stage = "persisting"
)

// RefreshStatus is the outcome of a refresh cycle.
type RefreshStatus string

const (
	RefreshSucceeded RefreshStatus = "succeeded"
	RefreshFailed    RefreshStatus = "failed"
)

// RefreshRun records one refresh cycle.
type RefreshRun struct {
	RunID        string        `json:"run_id"`
	StartedAtMs  int64         `json:"started_at_ms"`
	FinishedAtMs int64         `json:"finished_at_ms"`
	Status       RefreshStatus `json:"status"`
	FailedStage  Stage         `json:"failed_stage,omitempty"`
	Error        string        `json:"error,omitempty"`

	Matches     int `json:"matches"`
	Players     int `json:"players"`
	Upcoming    int `json:"upcoming"`
	Predictions int `json:"predictions"`
	Fallbacks   int `json:"fallbacks"`
	Skipped     int `json:"skipped"`
}
