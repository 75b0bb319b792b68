package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"esports-predictor/internal/domain"
)

func intPtr(v int) *int { return &v }

func scored(id, home, away, date string, hs, as int) domain.MatchRecord {
	return domain.MatchRecord{
		FixtureID:  id,
		HomePlayer: domain.Participant{ID: home, Name: home},
		AwayPlayer: domain.Participant{ID: away, Name: away},
		HomeTeam:   domain.Participant{ID: "t-" + home, Name: "team " + home},
		AwayTeam:   domain.Participant{ID: "t-" + away, Name: "team " + away},
		Date:       date,
		HomeScore:  intPtr(hs),
		AwayScore:  intPtr(as),
	}
}

func fixtureHistory() []domain.MatchRecord {
	return []domain.MatchRecord{
		scored("m1", "p1", "p2", "2024-01-01", 60, 50),
		scored("m2", "p2", "p1", "2024-01-02", 70, 55),
		scored("m3", "p1", "p3", "2024-01-03", 65, 65),
	}
}

func fixtureStats() domain.StatsByPlayer {
	return domain.StatsByPlayer{
		"p1": {
			PlayerID:     "p1",
			TotalMatches: 10,
			WinRate:      0.5,
			AvgScore:     60,
			TeamsUsed: map[string]domain.TeamStats{
				"t-p1": {Matches: 5, WinRate: 0.6, AvgScore: 62},
			},
			OpponentsFaced: map[string]domain.OpponentStats{
				"p2": {Matches: 2, WinRate: 0.5, TotalScore: 115},
			},
		},
		"p2": {
			PlayerID:     "p2",
			TotalMatches: 8,
			WinRate:      0.4,
			AvgScore:     55,
			TeamsUsed: map[string]domain.TeamStats{
				"t-p2": {Matches: 2, WinRate: 0.3, AvgScore: 50},
			},
			OpponentsFaced: map[string]domain.OpponentStats{
				"p1": {Matches: 2, WinRate: 0.5, TotalScore: 120},
			},
		},
	}
}

func upcoming() domain.MatchRecord {
	return domain.MatchRecord{
		FixtureID:  "m4",
		HomePlayer: domain.Participant{ID: "p1"},
		AwayPlayer: domain.Participant{ID: "p2"},
		HomeTeam:   domain.Participant{ID: "t-p1"},
		AwayTeam:   domain.Participant{ID: "t-p2"},
		StartTime:  "2024-01-10T18:00:00Z",
	}
}

func only(block string) domain.FeatureConfig {
	cfg := domain.FeatureConfig{RecentMatchesWindow: 5}
	switch block {
	case "basic":
		cfg.UseBasic = true
	case "team":
		cfg.UseTeam = true
	case "h2h":
		cfg.UseH2H = true
	case "recent":
		cfg.UseRecentForm = true
	case "advanced":
		cfg.UseAdvanced = true
	case "temporal":
		cfg.UseTemporal = true
	}
	return cfg
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
}

func assertVector(t *testing.T, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWidth(t *testing.T) {
	tests := []struct {
		block string
		want  int
	}{
		{"basic", 6},
		{"team", 12},
		{"h2h", 8},
		{"recent", 8},
		{"advanced", 9},
		{"temporal", 3},
		{"none", 0},
	}

	for _, tt := range tests {
		t.Run(tt.block, func(t *testing.T) {
			e := New(only(tt.block), WithClock(fixedClock()))
			if e.Width() != tt.want {
				t.Errorf("Width() = %d, want %d", e.Width(), tt.want)
			}
			if tt.want == 0 {
				return
			}
			row, err := e.Vector(fixtureStats(), upcoming(), fixtureHistory())
			if err != nil {
				t.Fatalf("Vector failed: %v", err)
			}
			if len(row) != tt.want {
				t.Errorf("len(row) = %d, want %d", len(row), tt.want)
			}
		})
	}

	if got := Width(domain.DefaultFeatureConfig()); got != 46 {
		t.Errorf("full width = %d, want 46", got)
	}
}

func TestVector_Basic(t *testing.T) {
	e := New(only("basic"), WithClock(fixedClock()))
	row, err := e.Vector(fixtureStats(), upcoming(), fixtureHistory())
	if err != nil {
		t.Fatalf("Vector failed: %v", err)
	}
	assertVector(t, row, []float64{0.5, 0.4, 60, 55, 10, 8})
}

func TestVector_Team(t *testing.T) {
	e := New(only("team"), WithClock(fixedClock()))
	row, err := e.Vector(fixtureStats(), upcoming(), fixtureHistory())
	if err != nil {
		t.Fatalf("Vector failed: %v", err)
	}
	assertVector(t, row, []float64{
		0.6, 0.3, 62, 50, 5, 2,
		0.5, 0.25,
		0.6 - 0.5, 0.3 - 0.4, 2, -5,
	})
}

func TestVector_H2H(t *testing.T) {
	e := New(only("h2h"), WithClock(fixedClock()))
	row, err := e.Vector(fixtureStats(), upcoming(), fixtureHistory())
	if err != nil {
		t.Fatalf("Vector failed: %v", err)
	}
	assertVector(t, row, []float64{0.5, 0.5, 2, 2, 57.5, 60, 0, -2.5})
}

func TestVector_RecentForm(t *testing.T) {
	e := New(only("recent"), WithClock(fixedClock()))
	row, err := e.Vector(fixtureStats(), upcoming(), fixtureHistory())
	if err != nil {
		t.Fatalf("Vector failed: %v", err)
	}
	// p1 (desc): m3 tie 65, m2 loss 55, m1 win 60
	// p2 (desc): m2 win 70, m1 loss 50
	assertVector(t, row, []float64{
		1.0 / 3, 0.5,
		60, 60,
		50.0 / 3, 100,
		1.0/6 - 1.0/3, 2.0/3 - 0.5,
	})
}

func TestVector_RecentFormWindow(t *testing.T) {
	cfg := only("recent")
	cfg.RecentMatchesWindow = 1
	e := New(cfg, WithClock(fixedClock()))
	row, err := e.Vector(fixtureStats(), upcoming(), fixtureHistory())
	if err != nil {
		t.Fatalf("Vector failed: %v", err)
	}
	// single match windows: variance and momentum are zero
	assertVector(t, row, []float64{0, 1, 65, 70, 0, 0, 0, 0})
}

func TestVector_Advanced(t *testing.T) {
	e := New(only("advanced"), WithClock(fixedClock()))
	row, err := e.Vector(fixtureStats(), upcoming(), fixtureHistory())
	if err != nil {
		t.Fatalf("Vector failed: %v", err)
	}
	assertVector(t, row, []float64{
		0.1, 5, 2,
		0.3, 12, 3,
		2.0 / 3,
		1 - (50.0/3)/100,
		0,
	})
}

func TestVector_Temporal(t *testing.T) {
	e := New(only("temporal"), WithClock(fixedClock()))

	m := upcoming()
	m.Date = "2024-03-16" // Saturday
	row, err := e.Vector(fixtureStats(), m, nil)
	if err != nil {
		t.Fatalf("Vector failed: %v", err)
	}
	assertVector(t, row, []float64{5.0 / 6, 3.0 / 12, 1})

	m.Date = "not-a-date" // falls back to clock: Saturday 2024-06-01
	row, err = e.Vector(fixtureStats(), m, nil)
	if err != nil {
		t.Fatalf("Vector failed: %v", err)
	}
	assertVector(t, row, []float64{5.0 / 6, 6.0 / 12, 1})

	m.Date = ""
	m.StartTime = "2024-01-10T18:00:00Z" // Wednesday
	row, err = e.Vector(fixtureStats(), m, nil)
	if err != nil {
		t.Fatalf("Vector failed: %v", err)
	}
	assertVector(t, row, []float64{2.0 / 6, 1.0 / 12, 0})
}

func TestVector_EmptyHistoryYieldsZeros(t *testing.T) {
	e := New(only("recent"), WithClock(fixedClock()))
	row, err := e.Vector(fixtureStats(), upcoming(), nil)
	if err != nil {
		t.Fatalf("Vector failed: %v", err)
	}
	assertVector(t, row, make([]float64, RecentWidth))
}

func TestVector_MissingStats(t *testing.T) {
	e := New(domain.DefaultFeatureConfig(), WithClock(fixedClock()))

	m := upcoming()
	m.AwayPlayer.ID = "unknown"
	_, err := e.Vector(fixtureStats(), m, fixtureHistory())
	if !errors.Is(err, ErrMissingStats) {
		t.Errorf("expected ErrMissingStats, got %v", err)
	}

	m.AwayPlayer.ID = ""
	_, err = e.Vector(fixtureStats(), m, fixtureHistory())
	if !errors.Is(err, ErrMalformedMatch) {
		t.Errorf("expected ErrMalformedMatch, got %v", err)
	}
}

func TestExtractClassification(t *testing.T) {
	e := New(domain.DefaultFeatureConfig(), WithClock(fixedClock()))

	matches := append(fixtureHistory(), upcoming())
	set := e.ExtractClassification(fixtureStats(), matches)

	// m3 references p3 (no stats), m4 is unscored
	if len(set.X) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(set.X))
	}
	if set.Labels[0] != 1 || set.Labels[1] != 1 {
		t.Errorf("labels = %v, want [1 1]", set.Labels)
	}
	for i, row := range set.X {
		if len(row) != e.Width() {
			t.Errorf("row %d: len %d, want %d", i, len(row), e.Width())
		}
	}
}

func TestExtractRegression(t *testing.T) {
	e := New(only("basic"), WithClock(fixedClock()))
	set := e.ExtractRegression(fixtureStats(), fixtureHistory())

	if set.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", set.Len())
	}
	assertVector(t, set.HomeScores, []float64{60, 70})
	assertVector(t, set.AwayScores, []float64{50, 55})
}

func TestExtract_Deterministic(t *testing.T) {
	e := New(domain.DefaultFeatureConfig(), WithClock(fixedClock()))
	stats := fixtureStats()
	matches := fixtureHistory()

	first := e.ExtractClassification(stats, matches)
	for run := 0; run < 5; run++ {
		again := e.ExtractClassification(stats, matches)
		if len(again.X) != len(first.X) {
			t.Fatalf("run %d: row count changed", run)
		}
		for i := range first.X {
			for j := range first.X[i] {
				if math.Float64bits(first.X[i][j]) != math.Float64bits(again.X[i][j]) {
					t.Fatalf("run %d: row %d col %d differs", run, i, j)
				}
			}
		}
	}
}

func TestExtract_PriorExcludesSameDay(t *testing.T) {
	e := New(only("recent"), WithClock(fixedClock()))
	history := []domain.MatchRecord{
		scored("a", "p1", "p2", "2024-01-05", 80, 10),
	}
	m := upcoming()
	m.Date = "2024-01-05"

	row, err := e.Vector(fixtureStats(), m, history)
	if err != nil {
		t.Fatalf("Vector failed: %v", err)
	}
	assertVector(t, row, make([]float64, RecentWidth))
}
