package stats

import (
	"math"
	"testing"

	"esports-predictor/internal/domain"
)

func intPtr(v int) *int { return &v }

func match(id, home, away, date string, hs, as int) domain.MatchRecord {
	return domain.MatchRecord{
		FixtureID:  id,
		HomePlayer: domain.Participant{ID: home, Name: "name-" + home},
		AwayPlayer: domain.Participant{ID: away, Name: "name-" + away},
		HomeTeam:   domain.Participant{ID: "team-" + home, Name: "Team " + home},
		AwayTeam:   domain.Participant{ID: "team-" + away, Name: "Team " + away},
		Date:       date,
		HomeScore:  intPtr(hs),
		AwayScore:  intPtr(as),
	}
}

func TestBuild_Aggregates(t *testing.T) {
	matches := []domain.MatchRecord{
		match("m1", "a", "b", "2024-01-01", 60, 50),
		match("m2", "b", "a", "2024-01-02", 70, 55),
		match("m3", "a", "c", "2024-01-03", 65, 65),
		{FixtureID: "m4", HomePlayer: domain.Participant{ID: "a"}, AwayPlayer: domain.Participant{ID: "d"}},
	}

	got := NewBuilder(2).Build(matches)

	if len(got) != 3 {
		t.Fatalf("expected 3 players, got %d", len(got))
	}
	if _, ok := got["d"]; ok {
		t.Error("player from unscored match should not have stats")
	}

	a := got["a"]
	if a.PlayerName != "name-a" {
		t.Errorf("PlayerName = %q", a.PlayerName)
	}
	if a.TotalMatches != 3 || a.Wins != 1 || a.Losses != 2 {
		t.Errorf("a record = %d/%d/%d, want 3/1/2", a.TotalMatches, a.Wins, a.Losses)
	}
	if a.TotalScore != 180 || a.AvgScore != 60 {
		t.Errorf("a score total=%v avg=%v", a.TotalScore, a.AvgScore)
	}
	if math.Abs(a.WinRate-1.0/3) > 1e-12 {
		t.Errorf("a WinRate = %v", a.WinRate)
	}
	if math.Abs(a.ScoreVariance-50.0/3) > 1e-9 {
		t.Errorf("a ScoreVariance = %v", a.ScoreVariance)
	}

	team := a.TeamsUsed["team-a"]
	if team.Matches != 3 || team.Wins != 1 || team.AvgScore != 60 {
		t.Errorf("a team stats = %+v", team)
	}

	vsB := a.OpponentsFaced["b"]
	if vsB.Matches != 2 || vsB.Wins != 1 || vsB.Losses != 1 {
		t.Errorf("a vs b = %+v", vsB)
	}
	if vsB.AvgScore != 57.5 || vsB.AvgScoreAgainst != 60 {
		t.Errorf("a vs b averages = %v / %v", vsB.AvgScore, vsB.AvgScoreAgainst)
	}

	// m3 is a 65-65 tie: a (home) loses, c (away) is credited the win
	c := got["c"]
	if c.Wins != 1 || c.Losses != 0 {
		t.Errorf("c record = %d/%d, want 1/0", c.Wins, c.Losses)
	}
	if vsA := c.OpponentsFaced["a"]; vsA.Wins != 1 || vsA.Losses != 0 {
		t.Errorf("c vs a = %+v", vsA)
	}
	if tc := c.TeamsUsed["team-c"]; tc.Wins != 1 {
		t.Errorf("c team stats = %+v", tc)
	}
	if len(c.Recent) != 1 || !c.Recent[0].Won {
		t.Errorf("c recent = %+v, want one win", c.Recent)
	}
	if vsC := a.OpponentsFaced["c"]; vsC.Wins != 0 || vsC.Losses != 1 {
		t.Errorf("a vs c = %+v", vsC)
	}
}

func TestBuild_TieCreditsAway(t *testing.T) {
	got := NewBuilder(5).Build([]domain.MatchRecord{match("m1", "h", "v", "2024-02-01", 60, 60)})

	if h := got["h"]; h.Wins != 0 || h.Losses != 1 || h.WinRate != 0 {
		t.Errorf("home record = %d/%d rate %v, want 0/1 rate 0", h.Wins, h.Losses, h.WinRate)
	}
	if v := got["v"]; v.Wins != 1 || v.Losses != 0 || v.WinRate != 1 {
		t.Errorf("away record = %d/%d rate %v, want 1/0 rate 1", v.Wins, v.Losses, v.WinRate)
	}
}

func TestBuild_RecentWindow(t *testing.T) {
	matches := []domain.MatchRecord{
		match("m1", "a", "b", "2024-01-01", 60, 50),
		match("m3", "a", "b", "2024-01-03", 40, 50),
		match("m2", "a", "b", "2024-01-02", 70, 50),
	}

	got := NewBuilder(2).Build(matches)["a"]

	if len(got.Recent) != 2 {
		t.Fatalf("expected window of 2, got %d", len(got.Recent))
	}
	if got.Recent[0].FixtureID != "m3" || got.Recent[1].FixtureID != "m2" {
		t.Errorf("recent order = %s, %s; want m3, m2", got.Recent[0].FixtureID, got.Recent[1].FixtureID)
	}
	if got.Recent[0].Won {
		t.Error("m3 should be a loss")
	}
}

func TestBuild_Deterministic(t *testing.T) {
	matches := []domain.MatchRecord{
		match("m1", "a", "b", "2024-01-01", 60, 50),
		match("m2", "b", "c", "2024-01-02", 70, 55),
	}
	b := NewBuilder(0)

	first := b.Build(matches)
	second := b.Build(matches)
	for id, s := range first {
		o := second[id]
		if s.WinRate != o.WinRate || s.AvgScore != o.AvgScore || s.ScoreVariance != o.ScoreVariance {
			t.Errorf("player %s differs between builds", id)
		}
	}
}

func TestBuild_Empty(t *testing.T) {
	if got := NewBuilder(5).Build(nil); len(got) != 0 {
		t.Errorf("expected empty stats, got %d", len(got))
	}
}
