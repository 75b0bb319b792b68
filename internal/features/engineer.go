// Package features maps player statistics and match context to fixed-layout
// numeric feature vectors.
//
// Blocks are concatenated in a fixed order:
//
//	basic(6) → team(12) → h2h(8) → recent form(8) → advanced(9) → temporal(3)
//
// Extraction is pure: identical inputs yield bit-identical vectors.
package features

import (
	"errors"
	"fmt"
	"math"
	"time"

	"esports-predictor/internal/domain"
)

// Block widths.
const (
	BasicWidth    = 6
	TeamWidth     = 12
	H2HWidth      = 8
	RecentWidth   = 8
	AdvancedWidth = 9
	TemporalWidth = 3
)

// Extraction errors.
var (
	// ErrMissingStats is returned when either player has no statistics snapshot.
	ErrMissingStats = errors.New("player statistics unavailable")

	// ErrMalformedMatch is returned for records without player ids.
	ErrMalformedMatch = errors.New("malformed match record")

	// ErrNonFinite is returned when a computed feature is NaN or Inf.
	ErrNonFinite = errors.New("non-finite feature value")

	// ErrFeatureExtraction wraps every error returned by Vector.
	ErrFeatureExtraction = errors.New("feature extraction failed")
)

// Engineer extracts feature vectors for one configuration.
type Engineer struct {
	cfg domain.FeatureConfig
	now func() time.Time
}

// Option configures an Engineer.
type Option func(*Engineer)

// WithClock sets the clock used for unparsable match dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engineer) {
		e.now = now
	}
}

// New creates an Engineer. A non-positive window falls back to 5.
func New(cfg domain.FeatureConfig, opts ...Option) *Engineer {
	if cfg.RecentMatchesWindow <= 0 {
		cfg.RecentMatchesWindow = 5
	}
	e := &Engineer{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the effective configuration.
func (e *Engineer) Config() domain.FeatureConfig {
	return e.cfg
}

// Width returns the vector length for the configuration.
func (e *Engineer) Width() int {
	return Width(e.cfg)
}

// Width returns the vector length for cfg: the sum of enabled block widths.
func Width(cfg domain.FeatureConfig) int {
	n := 0
	if cfg.UseBasic {
		n += BasicWidth
	}
	if cfg.UseTeam {
		n += TeamWidth
	}
	if cfg.UseH2H {
		n += H2HWidth
	}
	if cfg.UseRecentForm {
		n += RecentWidth
	}
	if cfg.UseAdvanced {
		n += AdvancedWidth
	}
	if cfg.UseTemporal {
		n += TemporalWidth
	}
	return n
}

// ClassificationSet is the winner training set. Label is 1 for a home win.
type ClassificationSet struct {
	X      [][]float64
	Labels []int
}

// Len returns the number of samples.
func (s *ClassificationSet) Len() int { return len(s.X) }

// RegressionSet is the score training set.
type RegressionSet struct {
	X          [][]float64
	HomeScores []float64
	AwayScores []float64
}

// Len returns the number of samples.
func (s *RegressionSet) Len() int { return len(s.X) }

// ExtractClassification builds the winner training set from scored matches.
// Matches without scores, with unknown players, or producing non-finite
// values are skipped.
func (e *Engineer) ExtractClassification(stats domain.StatsByPlayer, matches []domain.MatchRecord) *ClassificationSet {
	set := &ClassificationSet{}
	e.eachTrainingRow(stats, matches, func(m *domain.MatchRecord, row []float64) {
		set.X = append(set.X, row)
		label := 0
		if m.HomeWon() {
			label = 1
		}
		set.Labels = append(set.Labels, label)
	})
	return set
}

// ExtractRegression builds the score training set from scored matches.
// Skips the same matches as ExtractClassification.
func (e *Engineer) ExtractRegression(stats domain.StatsByPlayer, matches []domain.MatchRecord) *RegressionSet {
	set := &RegressionSet{}
	e.eachTrainingRow(stats, matches, func(m *domain.MatchRecord, row []float64) {
		set.X = append(set.X, row)
		set.HomeScores = append(set.HomeScores, float64(*m.HomeScore))
		set.AwayScores = append(set.AwayScores, float64(*m.AwayScore))
	})
	return set
}

// Vector builds the feature vector of a single, possibly unscored, match.
// history supplies the prior matches; only scored matches dated strictly
// before the match contribute.
func (e *Engineer) Vector(stats domain.StatsByPlayer, match domain.MatchRecord, history []domain.MatchRecord) ([]float64, error) {
	if match.HomePlayer.ID == "" || match.AwayPlayer.ID == "" {
		return nil, fmt.Errorf("%w: %w", ErrFeatureExtraction, ErrMalformedMatch)
	}
	home, away := stats[match.HomePlayer.ID], stats[match.AwayPlayer.ID]
	if home == nil || away == nil {
		return nil, fmt.Errorf("%w: %w: %s vs %s", ErrFeatureExtraction, ErrMissingStats, match.HomePlayer.ID, match.AwayPlayer.ID)
	}

	now := e.now()
	dated := datedMatches(history, now)
	date := matchDate(&match, now)
	prior := priorMatches(dated, &match, date)

	row := e.row(&matchContext{
		match: &match,
		home:  home,
		away:  away,
		date:  date,
		prior: prior,
	})
	if err := checkFinite(row); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeatureExtraction, err)
	}
	return row, nil
}

func (e *Engineer) eachTrainingRow(stats domain.StatsByPlayer, matches []domain.MatchRecord, emit func(*domain.MatchRecord, []float64)) {
	now := e.now()
	dated := datedMatches(matches, now)

	for i := range matches {
		m := &matches[i]
		if !m.HasScores() {
			continue
		}
		if m.HomePlayer.ID == "" || m.AwayPlayer.ID == "" {
			continue
		}
		home, away := stats[m.HomePlayer.ID], stats[m.AwayPlayer.ID]
		if home == nil || away == nil {
			continue
		}

		date := matchDate(m, now)
		row := e.row(&matchContext{
			match: m,
			home:  home,
			away:  away,
			date:  date,
			prior: priorMatches(dated, m, date),
		})
		if checkFinite(row) != nil {
			continue
		}
		emit(m, row)
	}
}

// matchContext carries everything one row depends on.
type matchContext struct {
	match *domain.MatchRecord
	home  *domain.PlayerStats
	away  *domain.PlayerStats
	date  time.Time
	prior []datedMatch // scored, strictly before date, input order
}

func (e *Engineer) row(c *matchContext) []float64 {
	row := make([]float64, 0, e.Width())
	if e.cfg.UseBasic {
		row = append(row, basicBlock(c)...)
	}
	if e.cfg.UseTeam {
		row = append(row, teamBlock(c)...)
	}
	if e.cfg.UseH2H {
		row = append(row, h2hBlock(c)...)
	}
	if e.cfg.UseRecentForm {
		row = append(row, recentFormBlock(c, e.cfg.RecentMatchesWindow)...)
	}
	if e.cfg.UseAdvanced {
		row = append(row, advancedBlock(c)...)
	}
	if e.cfg.UseTemporal {
		row = append(row, temporalBlock(c)...)
	}
	return row
}

func checkFinite(row []float64) error {
	for i, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w at index %d", ErrNonFinite, i)
		}
	}
	return nil
}
