package domain

// Predicted winner sides.
const (
	SideHome = "home"
	SideAway = "away"
)

// Prediction methods, recorded on every prediction.
const (
	MethodModel     = "model"     // champion models
	MethodHeuristic = "heuristic" // raw win rate / average score
	MethodDefault   = "default"   // neutral prediction, stats missing
)

// WinnerPrediction is the winner model output.
type WinnerPrediction struct {
	HomeWinProbability float64 `json:"home_win_probability"`
	AwayWinProbability float64 `json:"away_win_probability"`
	PredictedWinner    string  `json:"predicted_winner"`
	Confidence         float64 `json:"confidence"`
}

// ScorePrediction is the score model output. Scores are non-negative.
type ScorePrediction struct {
	HomeScore  int `json:"home_score"`
	AwayScore  int `json:"away_score"`
	TotalScore int `json:"total_score"`
	ScoreDiff  int `json:"score_diff"`
}

// Prediction is one published forecast for an upcoming fixture.
type Prediction struct {
	PredictionID   string           `json:"prediction_id,omitempty"`
	FixtureID      string           `json:"fixtureId"`
	HomePlayer     Participant      `json:"homePlayer"`
	AwayPlayer     Participant      `json:"awayPlayer"`
	HomeTeam       Participant      `json:"homeTeam"`
	AwayTeam       Participant      `json:"awayTeam"`
	FixtureStart   string           `json:"fixtureStart"`
	Winner         WinnerPrediction `json:"prediction"`
	Score          ScorePrediction  `json:"score_prediction"`
	Method         string           `json:"method"`
	GeneratedAt    string           `json:"generated_at"`       // TimestampLayout
	SavedAt        string           `json:"saved_at,omitempty"` // set on history copies
	WinnerModelID  string           `json:"winner_model_id,omitempty"`
	ScoreModelID   string           `json:"score_model_id,omitempty"`
	FallbackReason string           `json:"fallback_reason,omitempty"`
}
