// Package simulation generates synthetic league histories. Players have a
// latent skill; scores are drawn around a base score shifted by skill and a
// small home advantage. Output is deterministic for a seed.
package simulation

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"esports-predictor/internal/domain"
)

// LeagueOptions configures a simulated league.
type LeagueOptions struct {
	Players       int
	Teams         int
	Days          int // days of played history
	MatchesPerDay int
	UpcomingDays  int
	Seed          int64
	Start         time.Time // first match day

	BaseScore     float64
	SkillSpread   float64 // score points per unit of skill
	HomeAdvantage float64
	Noise         float64 // score standard deviation
}

// DefaultLeagueOptions returns a 12-player league over 60 days.
func DefaultLeagueOptions() LeagueOptions {
	return LeagueOptions{
		Players:       12,
		Teams:         6,
		Days:          60,
		MatchesPerDay: 4,
		UpcomingDays:  3,
		Seed:          42,
		Start:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		BaseScore:     60,
		SkillSpread:   10,
		HomeAdvantage: 1.5,
		Noise:         4,
	}
}

// League is the simulation output.
type League struct {
	Played   []*domain.MatchRecord
	Upcoming []*domain.MatchRecord
	Skill    map[string]float64 // player id -> latent skill
}

// Simulate generates a league. Played matches carry scores and a Date;
// upcoming matches carry only a StartTime.
func Simulate(opts LeagueOptions) *League {
	if opts.Players < 2 {
		opts.Players = 2
	}
	if opts.Teams < 1 {
		opts.Teams = 1
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	players := make([]domain.Participant, opts.Players)
	skill := make(map[string]float64, opts.Players)
	for i := range players {
		id := fmt.Sprintf("p%02d", i+1)
		players[i] = domain.Participant{ID: id, Name: fmt.Sprintf("Player %02d", i+1)}
		skill[id] = rng.NormFloat64()
	}
	teams := make([]domain.Participant, opts.Teams)
	for i := range teams {
		teams[i] = domain.Participant{ID: fmt.Sprintf("t%02d", i+1), Name: fmt.Sprintf("Team %02d", i+1)}
	}

	league := &League{Skill: skill}
	fixture := 0
	pair := func() (home, away domain.Participant) {
		h := rng.Intn(len(players))
		a := rng.Intn(len(players) - 1)
		if a >= h {
			a++
		}
		return players[h], players[a]
	}

	for d := 0; d < opts.Days+opts.UpcomingDays; d++ {
		day := opts.Start.AddDate(0, 0, d)
		for k := 0; k < opts.MatchesPerDay; k++ {
			fixture++
			home, away := pair()
			m := &domain.MatchRecord{
				FixtureID:  fmt.Sprintf("f%05d", fixture),
				HomePlayer: home,
				AwayPlayer: away,
				HomeTeam:   teams[rng.Intn(len(teams))],
				AwayTeam:   teams[rng.Intn(len(teams))],
				StartTime:  day.Add(time.Duration(12+k) * time.Hour).Format(time.RFC3339),
			}
			if d >= opts.Days {
				league.Upcoming = append(league.Upcoming, m)
				continue
			}
			m.Date = day.Format(domain.DateLayout)
			hs := opts.score(skill[home.ID]+opts.HomeAdvantage/opts.spread(), rng)
			as := opts.score(skill[away.ID], rng)
			m.HomeScore, m.AwayScore = &hs, &as
			league.Played = append(league.Played, m)
		}
	}
	return league
}

func (o LeagueOptions) spread() float64 {
	if o.SkillSpread == 0 {
		return 1
	}
	return o.SkillSpread
}

func (o LeagueOptions) score(skill float64, rng *rand.Rand) int {
	v := o.BaseScore + skill*o.SkillSpread + rng.NormFloat64()*o.Noise
	return int(math.Max(0, math.Round(v)))
}
