package prediction

import (
	"math"
	"math/rand"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/idhash"
)

// Neutral defaults used when statistics are missing.
const (
	DefaultScore      = 60
	DefaultConfidence = 0.5
)

// MaxScore caps a single predicted score.
const MaxScore = 10000

// winnerFromProbability builds the winner output. Ties go to the away side.
func winnerFromProbability(home float64) domain.WinnerPrediction {
	away := 1 - home
	w := domain.WinnerPrediction{
		HomeWinProbability: home,
		AwayWinProbability: away,
		PredictedWinner:    domain.SideAway,
		Confidence:         math.Max(home, away),
	}
	if home > away {
		w.PredictedWinner = domain.SideHome
	}
	return w
}

// scoreFromRaw rounds half to even and clamps to [0, MaxScore].
func scoreFromRaw(home, away float64) domain.ScorePrediction {
	h := clampScore(home)
	a := clampScore(away)
	return domain.ScorePrediction{
		HomeScore:  h,
		AwayScore:  a,
		TotalScore: h + a,
		ScoreDiff:  h - a,
	}
}

func clampScore(v float64) int {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= MaxScore:
		return MaxScore
	}
	return int(math.RoundToEven(v))
}

// neutralWinner returns even odds with a side drawn from a seed derived from
// the fixture, so repeated runs agree.
func neutralWinner(m *domain.MatchRecord) domain.WinnerPrediction {
	rng := rand.New(rand.NewSource(idhash.FixtureSeed(m.FixtureID, m.HomePlayer.ID, m.AwayPlayer.ID)))
	side := domain.SideAway
	if rng.Float64() > 0.5 {
		side = domain.SideHome
	}
	return domain.WinnerPrediction{
		HomeWinProbability: DefaultConfidence,
		AwayWinProbability: DefaultConfidence,
		PredictedWinner:    side,
		Confidence:         DefaultConfidence,
	}
}

func neutralScore() domain.ScorePrediction {
	return scoreFromRaw(DefaultScore, DefaultScore)
}

// heuristicWinner compares raw win rates.
func heuristicWinner(home, away *domain.PlayerStats) domain.WinnerPrediction {
	sum := home.WinRate + away.WinRate
	if sum <= 0 {
		return winnerFromProbability(0.5)
	}
	return winnerFromProbability(home.WinRate / sum)
}

// heuristicScore uses raw average scores.
func heuristicScore(home, away *domain.PlayerStats) domain.ScorePrediction {
	return scoreFromRaw(home.AvgScore, away.AvgScore)
}
