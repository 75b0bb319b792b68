package features

import (
	"time"

	"esports-predictor/internal/domain"
)

// maxConsistencyVariance normalizes score variance into [0, 1].
const maxConsistencyVariance = 100.0

// basicBlock: [hwr, awr, havg, aavg, htotal, atotal]
func basicBlock(c *matchContext) []float64 {
	return []float64{
		c.home.WinRate,
		c.away.WinRate,
		c.home.AvgScore,
		c.away.AvgScore,
		float64(c.home.TotalMatches),
		float64(c.away.TotalMatches),
	}
}

// teamBlock: team stats, team experience ratio, team stats relative to overall.
func teamBlock(c *matchContext) []float64 {
	ht := c.home.Team(c.match.HomeTeam.ID)
	at := c.away.Team(c.match.AwayTeam.ID)

	homeExp := float64(ht.Matches) / float64(max(c.home.TotalMatches, 1))
	awayExp := float64(at.Matches) / float64(max(c.away.TotalMatches, 1))

	return []float64{
		ht.WinRate,
		at.WinRate,
		ht.AvgScore,
		at.AvgScore,
		float64(ht.Matches),
		float64(at.Matches),
		homeExp,
		awayExp,
		ht.WinRate - c.home.WinRate,
		at.WinRate - c.away.WinRate,
		ht.AvgScore - c.home.AvgScore,
		at.AvgScore - c.away.AvgScore,
	}
}

// h2hBlock: record of each side against this specific opponent.
func h2hBlock(c *matchContext) []float64 {
	ho := c.home.Opponent(c.match.AwayPlayer.ID)
	ao := c.away.Opponent(c.match.HomePlayer.ID)

	homeAvg := avgAgainst(ho)
	awayAvg := avgAgainst(ao)

	return []float64{
		ho.WinRate,
		ao.WinRate,
		float64(ho.Matches),
		float64(ao.Matches),
		homeAvg,
		awayAvg,
		ho.WinRate - ao.WinRate,
		homeAvg - awayAvg,
	}
}

func avgAgainst(o domain.OpponentStats) float64 {
	if o.Matches <= 0 {
		return 0
	}
	return o.TotalScore / float64(o.Matches)
}

// recentFormBlock: [hwr, awr, havg, aavg, hvar, avar, hmom, amom] over the
// window most recent prior matches of each player.
func recentFormBlock(c *matchContext, window int) []float64 {
	homeID, awayID := c.match.HomePlayer.ID, c.match.AwayPlayer.ID
	hr := playerMatches(c.prior, homeID, window)
	ar := playerMatches(c.prior, awayID, window)

	return []float64{
		winRate(homeID, hr),
		winRate(awayID, ar),
		avgScore(homeID, hr),
		avgScore(awayID, ar),
		scoreVariance(homeID, hr),
		scoreVariance(awayID, ar),
		momentum(homeID, hr),
		momentum(awayID, ar),
	}
}

// advancedBlock: differentials, home advantage and consistency.
func advancedBlock(c *matchContext) []float64 {
	ht := c.home.Team(c.match.HomeTeam.ID)
	at := c.away.Team(c.match.AwayTeam.ID)
	homeID, awayID := c.match.HomePlayer.ID, c.match.AwayPlayer.ID

	return []float64{
		c.home.WinRate - c.away.WinRate,
		c.home.AvgScore - c.away.AvgScore,
		float64(c.home.TotalMatches - c.away.TotalMatches),
		ht.WinRate - at.WinRate,
		ht.AvgScore - at.AvgScore,
		float64(ht.Matches - at.Matches),
		homeAdvantage(c.prior),
		consistency(homeID, playerMatches(c.prior, homeID, 0)),
		consistency(awayID, playerMatches(c.prior, awayID, 0)),
	}
}

// temporalBlock: [weekday/6 (Monday=0), month/12, weekend]
func temporalBlock(c *matchContext) []float64 {
	weekday := (int(c.date.Weekday()) + 6) % 7
	weekend := 0.0
	if c.date.Weekday() == time.Saturday || c.date.Weekday() == time.Sunday {
		weekend = 1
	}
	return []float64{
		float64(weekday) / 6,
		float64(c.date.Month()) / 12,
		weekend,
	}
}

func winRate(playerID string, matches []*domain.MatchRecord) float64 {
	if len(matches) == 0 {
		return 0
	}
	wins := 0
	for _, m := range matches {
		if m.Won(playerID) {
			wins++
		}
	}
	return float64(wins) / float64(len(matches))
}

func avgScore(playerID string, matches []*domain.MatchRecord) float64 {
	if len(matches) == 0 {
		return 0
	}
	total := 0
	for _, m := range matches {
		s, _ := m.ScoreOf(playerID)
		total += s
	}
	return float64(total) / float64(len(matches))
}

func scores(playerID string, matches []*domain.MatchRecord) []float64 {
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		if s, ok := m.ScoreOf(playerID); ok {
			out = append(out, float64(s))
		}
	}
	return out
}

func scoreVariance(playerID string, matches []*domain.MatchRecord) float64 {
	if len(matches) < 2 {
		return 0
	}
	return populationVariance(scores(playerID, matches))
}

// momentum is the recency-weighted win rate minus the plain win rate.
// Index 0 is the most recent match and carries weight len(matches).
func momentum(playerID string, matches []*domain.MatchRecord) float64 {
	n := len(matches)
	if n < 2 {
		return 0
	}
	totalWeight, weightedWins := 0, 0
	for i, m := range matches {
		w := n - i
		totalWeight += w
		if m.Won(playerID) {
			weightedWins += w
		}
	}
	return float64(weightedWins)/float64(totalWeight) - winRate(playerID, matches)
}

// homeAdvantage is the fraction of prior matches won by the home side.
func homeAdvantage(prior []datedMatch) float64 {
	if len(prior) == 0 {
		return 0
	}
	wins := 0
	for _, dm := range prior {
		if dm.match.HomeWon() {
			wins++
		}
	}
	return float64(wins) / float64(len(prior))
}

// consistency is 1 - min(variance/100, 1); 0 with fewer than two matches.
func consistency(playerID string, matches []*domain.MatchRecord) float64 {
	if len(matches) < 2 {
		return 0
	}
	v := populationVariance(scores(playerID, matches))
	if v == 0 {
		return 1
	}
	return 1 - min(v/maxConsistencyVariance, 1)
}

func populationVariance(values []float64) float64 {
	if len(values) == 0 {
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
