// Package stats builds player statistics snapshots from match history.
package stats

import (
	"sort"
	"time"

	"esports-predictor/internal/domain"
)

// DefaultRecentWindow is the number of matches kept in each recency window.
const DefaultRecentWindow = 10

// Builder computes snapshots. Snapshots are rebuilt from the full history on
// every call; nothing is updated incrementally.
type Builder struct {
	recentWindow int
}

// NewBuilder creates a Builder. A non-positive window uses DefaultRecentWindow.
func NewBuilder(recentWindow int) *Builder {
	if recentWindow <= 0 {
		recentWindow = DefaultRecentWindow
	}
	return &Builder{recentWindow: recentWindow}
}

// accumulator gathers raw counts for one player.
type accumulator struct {
	stats  *domain.PlayerStats
	scores []float64
	recent []recentRow
}

type recentRow struct {
	date  time.Time
	order int
	entry domain.RecentMatch
}

// Build returns a snapshot for every player appearing in a scored match.
// Unscored matches are ignored. The home player wins only by outscoring the
// away player, so a tie is credited to the away player.
func (b *Builder) Build(matches []domain.MatchRecord) domain.StatsByPlayer {
	acc := make(map[string]*accumulator)

	get := func(p domain.Participant) *accumulator {
		a, ok := acc[p.ID]
		if !ok {
			a = &accumulator{stats: &domain.PlayerStats{
				PlayerID:       p.ID,
				PlayerName:     p.Name,
				TeamsUsed:      make(map[string]domain.TeamStats),
				OpponentsFaced: make(map[string]domain.OpponentStats),
			}}
			acc[p.ID] = a
		}
		return a
	}

	for i := range matches {
		m := &matches[i]
		if !m.HasScores() || m.HomePlayer.ID == "" || m.AwayPlayer.ID == "" {
			continue
		}
		hs, as := *m.HomeScore, *m.AwayScore
		date := parseDate(m)

		home := get(m.HomePlayer)
		away := get(m.AwayPlayer)
		homeWon := hs > as
		home.record(m, i, date, m.HomeTeam, m.AwayPlayer, hs, as, homeWon)
		away.record(m, i, date, m.AwayTeam, m.HomePlayer, as, hs, !homeWon)
	}

	out := make(domain.StatsByPlayer, len(acc))
	for id, a := range acc {
		a.finish(b.recentWindow)
		out[id] = a.stats
	}
	return out
}

func (a *accumulator) record(m *domain.MatchRecord, order int, date time.Time, team, opponent domain.Participant, score, against int, won bool) {
	s := a.stats

	s.TotalMatches++
	s.TotalScore += float64(score)
	if won {
		s.Wins++
	} else {
		s.Losses++
	}
	a.scores = append(a.scores, float64(score))

	ts := s.TeamsUsed[team.ID]
	ts.TeamName = team.Name
	ts.Matches++
	ts.TotalScore += float64(score)
	if won {
		ts.Wins++
	} else {
		ts.Losses++
	}
	s.TeamsUsed[team.ID] = ts

	os := s.OpponentsFaced[opponent.ID]
	os.OpponentName = opponent.Name
	os.Matches++
	os.TotalScore += float64(score)
	os.TotalScoreAgainst += float64(against)
	if won {
		os.Wins++
	} else {
		os.Losses++
	}
	s.OpponentsFaced[opponent.ID] = os

	a.recent = append(a.recent, recentRow{
		date:  date,
		order: order,
		entry: domain.RecentMatch{
			FixtureID:     m.FixtureID,
			Date:          date.Format(domain.DateLayout),
			OpponentID:    opponent.ID,
			Score:         score,
			OpponentScore: against,
			Won:           won,
		},
	})
}

func (a *accumulator) finish(window int) {
	s := a.stats
	if s.TotalMatches > 0 {
		s.WinRate = float64(s.Wins) / float64(s.TotalMatches)
		s.AvgScore = s.TotalScore / float64(s.TotalMatches)
	}
	s.ScoreVariance = variance(a.scores)

	for id, ts := range s.TeamsUsed {
		if ts.Matches > 0 {
			ts.WinRate = float64(ts.Wins) / float64(ts.Matches)
			ts.AvgScore = ts.TotalScore / float64(ts.Matches)
		}
		s.TeamsUsed[id] = ts
	}
	for id, os := range s.OpponentsFaced {
		if os.Matches > 0 {
			os.WinRate = float64(os.Wins) / float64(os.Matches)
			os.AvgScore = os.TotalScore / float64(os.Matches)
			os.AvgScoreAgainst = os.TotalScoreAgainst / float64(os.Matches)
		}
		s.OpponentsFaced[id] = os
	}

	// Most recent first; equal dates keep the later input row first
	sort.SliceStable(a.recent, func(i, j int) bool {
		if !a.recent[i].date.Equal(a.recent[j].date) {
			return a.recent[i].date.After(a.recent[j].date)
		}
		return a.recent[i].order > a.recent[j].order
	})
	n := min(window, len(a.recent))
	s.Recent = make([]domain.RecentMatch, n)
	for i := 0; i < n; i++ {
		s.Recent[i] = a.recent[i].entry
	}
}

// variance is the population variance; 0 with fewer than two samples.
func variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}

// parseDate resolves the match date; undated matches sort oldest.
func parseDate(m *domain.MatchRecord) time.Time {
	if m.Date != "" {
		if t, err := time.Parse(domain.DateLayout, m.Date); err == nil {
			return t
		}
	}
	if len(m.StartTime) >= len(domain.DateLayout) {
		if t, err := time.Parse(domain.DateLayout, m.StartTime[:len(domain.DateLayout)]); err == nil {
			return t
		}
	}
	return time.Time{}
}
