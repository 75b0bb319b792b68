package domain

// TeamStats is a player's record with one team.
type TeamStats struct {
	TeamName   string  `json:"team_name"`
	Matches    int     `json:"matches"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	TotalScore float64 `json:"total_score"`
	WinRate    float64 `json:"win_rate"`
	AvgScore   float64 `json:"avg_score"`
}

// OpponentStats is a player's record against one opponent.
type OpponentStats struct {
	OpponentName      string  `json:"opponent_name"`
	Matches           int     `json:"matches"`
	Wins              int     `json:"wins"`
	Losses            int     `json:"losses"`
	TotalScore        float64 `json:"total_score"`         // scored by the player
	TotalScoreAgainst float64 `json:"total_score_against"` // conceded to the opponent
	WinRate           float64 `json:"win_rate"`
	AvgScore          float64 `json:"avg_score"`
	AvgScoreAgainst   float64 `json:"avg_score_against"`
}

// RecentMatch is one entry of a player's recency window.
type RecentMatch struct {
	FixtureID     string `json:"fixture_id"`
	Date          string `json:"date"`
	OpponentID    string `json:"opponent_id"`
	Score         int    `json:"score"`
	OpponentScore int    `json:"opponent_score"`
	Won           bool   `json:"won"`
}

// PlayerStats is the statistics snapshot of one player.
// Recomputed wholesale from full match history, never patched.
type PlayerStats struct {
	PlayerID     string `json:"player_id"`
	PlayerName   string `json:"player_name"`
	TotalMatches int    `json:"total_matches"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`

	TotalScore    float64 `json:"total_score"`
	WinRate       float64 `json:"win_rate"`
	AvgScore      float64 `json:"avg_score"`
	ScoreVariance float64 `json:"score_variance"` // population variance

	TeamsUsed      map[string]TeamStats     `json:"teams_used"`      // keyed by team id
	OpponentsFaced map[string]OpponentStats `json:"opponents_faced"` // keyed by opponent player id

	Recent []RecentMatch `json:"recent_matches"` // most recent first
}

// Team returns the player's stats with the given team, zero value if never used.
func (p *PlayerStats) Team(teamID string) TeamStats {
	if p == nil || p.TeamsUsed == nil {
		return TeamStats{}
	}
	return p.TeamsUsed[teamID]
}

// Opponent returns the player's stats against the given opponent, zero value if never faced.
func (p *PlayerStats) Opponent(opponentID string) OpponentStats {
	if p == nil || p.OpponentsFaced == nil {
		return OpponentStats{}
	}
	return p.OpponentsFaced[opponentID]
}

// StatsByPlayer maps player id to snapshot.
type StatsByPlayer map[string]*PlayerStats
