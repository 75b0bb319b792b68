package domain

// Date and time layouts shared by stores, services and reports.
const (
	DateLayout         = "2006-01-02"
	TimestampLayout    = "2006-01-02 15:04:05"
	TrainingTimeLayout = "20060102_150405"
)

// Participant identifies a player or a team taking part in a fixture.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MatchRecord represents a scheduled or completed fixture.
// Corresponds to the matches table and to match history/upcoming files.
// Immutable once fetched.
type MatchRecord struct {
	FixtureID  string      `json:"id"`
	HomePlayer Participant `json:"homePlayer"`
	AwayPlayer Participant `json:"awayPlayer"`
	HomeTeam   Participant `json:"homeTeam"`
	AwayTeam   Participant `json:"awayTeam"`

	Date      string `json:"date,omitempty"`      // YYYY-MM-DD, preferred over StartTime
	StartTime string `json:"startTime,omitempty"` // scheduled start, ISO-8601

	// Final result, nil until the match is played
	HomeScore *int `json:"homeScore,omitempty"`
	AwayScore *int `json:"awayScore,omitempty"`
}

// HasScores reports whether both final scores are present.
func (m *MatchRecord) HasScores() bool {
	return m.HomeScore != nil && m.AwayScore != nil
}

// Involves reports whether the player took part in the match.
func (m *MatchRecord) Involves(playerID string) bool {
	return m.HomePlayer.ID == playerID || m.AwayPlayer.ID == playerID
}

// ScoreOf returns the player's final score. ok is false if the match is
// unscored or the player did not take part.
func (m *MatchRecord) ScoreOf(playerID string) (score int, ok bool) {
	if !m.HasScores() {
		return 0, false
	}
	switch playerID {
	case m.HomePlayer.ID:
		return *m.HomeScore, true
	case m.AwayPlayer.ID:
		return *m.AwayScore, true
	}
	return 0, false
}

// Won reports whether the player strictly outscored the opponent.
// Ties are not wins for either side.
func (m *MatchRecord) Won(playerID string) bool {
	if !m.HasScores() {
		return false
	}
	switch playerID {
	case m.HomePlayer.ID:
		return *m.HomeScore > *m.AwayScore
	case m.AwayPlayer.ID:
		return *m.AwayScore > *m.HomeScore
	}
	return false
}

// HomeWon reports whether the home side won. Used as the winner label.
func (m *MatchRecord) HomeWon() bool {
	return m.HasScores() && *m.HomeScore > *m.AwayScore
}

// Clone returns a deep copy.
func (m *MatchRecord) Clone() *MatchRecord {
	c := *m
	if m.HomeScore != nil {
		v := *m.HomeScore
		c.HomeScore = &v
	}
	if m.AwayScore != nil {
		v := *m.AwayScore
		c.AwayScore = &v
	}
	return &c
}

// MatchValues dereferences a slice of match pointers, skipping nils.
func MatchValues(matches []*MatchRecord) []MatchRecord {
	out := make([]MatchRecord, 0, len(matches))
	for _, m := range matches {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out
}
