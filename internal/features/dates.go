package features

import (
	"sort"
	"strings"
	"time"

	"esports-predictor/internal/domain"
)

// datedMatch pairs a scored match with its parsed date.
type datedMatch struct {
	match *domain.MatchRecord
	date  time.Time
}

// matchDate returns the calendar date of a match: Date if set, otherwise the
// date part of StartTime. Anything unparsable resolves to now.
func matchDate(m *domain.MatchRecord, now time.Time) time.Time {
	if m.Date != "" {
		if t, err := time.Parse(domain.DateLayout, m.Date); err == nil {
			return t
		}
		return now
	}
	if m.StartTime != "" {
		day, _, _ := strings.Cut(m.StartTime, "T")
		if t, err := time.Parse(domain.DateLayout, day); err == nil {
			return t
		}
	}
	return now
}

// datedMatches keeps scored matches and parses their dates once.
func datedMatches(matches []domain.MatchRecord, now time.Time) []datedMatch {
	out := make([]datedMatch, 0, len(matches))
	for i := range matches {
		m := &matches[i]
		if !m.HasScores() {
			continue
		}
		out = append(out, datedMatch{match: m, date: matchDate(m, now)})
	}
	return out
}

// priorMatches returns matches strictly before date, excluding current.
func priorMatches(all []datedMatch, current *domain.MatchRecord, date time.Time) []datedMatch {
	var out []datedMatch
	for _, dm := range all {
		if dm.match == current || sameRecord(dm.match, current) {
			continue
		}
		if dm.date.Before(date) {
			out = append(out, dm)
		}
	}
	return out
}

// sameRecord compares by fixture identity and participants.
func sameRecord(a, b *domain.MatchRecord) bool {
	if a.FixtureID == "" || a.FixtureID != b.FixtureID {
		return false
	}
	return a.HomePlayer.ID == b.HomePlayer.ID && a.AwayPlayer.ID == b.AwayPlayer.ID
}

// playerMatches returns the player's matches, most recent first, limited to
// window when window > 0. Equal dates keep input order.
func playerMatches(prior []datedMatch, playerID string, window int) []*domain.MatchRecord {
	var picked []datedMatch
	for _, dm := range prior {
		if dm.match.Involves(playerID) {
			picked = append(picked, dm)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].date.After(picked[j].date)
	})
	if window > 0 && len(picked) > window {
		picked = picked[:window]
	}
	out := make([]*domain.MatchRecord, len(picked))
	for i, dm := range picked {
		out[i] = dm.match
	}
	return out
}
