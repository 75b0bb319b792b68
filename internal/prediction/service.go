// Package prediction turns champion models and player statistics into
// published forecasts for upcoming fixtures.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/features"
	"esports-predictor/internal/idhash"
	"esports-predictor/internal/observability"
	"esports-predictor/internal/storage"
)

// ErrPersistence wraps prediction store write failures.
var ErrPersistence = errors.New("prediction persistence failed")

// Options configures a Service.
type Options struct {
	Store  storage.PredictionStore
	Logger *zap.Logger
	Clock  func() time.Time
}

// Service generates, persists and queries predictions.
type Service struct {
	store  storage.PredictionStore
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Service.
func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{store: opts.Store, logger: opts.Logger, now: opts.Clock}
}

// Generate predicts every upcoming match with the given models. history
// supplies prior scored matches for head-to-head and recent-form features.
// A single bad match never fails the batch.
func (s *Service) Generate(models *Models, stats domain.StatsByPlayer, upcoming, history []domain.MatchRecord) *Batch {
	g := &generator{
		models:      models,
		stats:       stats,
		history:     history,
		winnerFeats: features.New(models.Winner.Features, features.WithClock(s.now)),
		scoreFeats:  features.New(models.Score.Features, features.WithClock(s.now)),
		generatedAt: s.now().UTC().Format(domain.TimestampLayout),
		logger:      s.logger,
	}

	batch := &Batch{Outcomes: make([]Outcome, 0, len(upcoming))}
	for i := range upcoming {
		o := g.predict(&upcoming[i])
		if o.Prediction != nil {
			observability.RecordPrediction(o.Prediction.Method)
		}
		batch.Outcomes = append(batch.Outcomes, o)
	}

	s.logger.Info("predictions generated",
		zap.Int("upcoming", len(upcoming)),
		zap.Int("ok", batch.Count(StatusOK)),
		zap.Int("fallback", batch.Count(StatusFallback)),
		zap.Int("skipped", batch.Count(StatusSkipped)))
	return batch
}

type generator struct {
	models      *Models
	stats       domain.StatsByPlayer
	history     []domain.MatchRecord
	winnerFeats *features.Engineer
	scoreFeats  *features.Engineer
	generatedAt string
	logger      *zap.Logger
}

func (g *generator) predict(m *domain.MatchRecord) Outcome {
	if m.FixtureID == "" || m.HomePlayer.ID == "" || m.AwayPlayer.ID == "" {
		g.logger.Warn("skipping malformed match", zap.String("fixture_id", m.FixtureID))
		return Outcome{FixtureID: m.FixtureID, Status: StatusSkipped, Reason: features.ErrMalformedMatch.Error()}
	}

	p := g.base(m)
	home, away := g.stats[m.HomePlayer.ID], g.stats[m.AwayPlayer.ID]
	if home == nil || away == nil {
		p.Winner = neutralWinner(m)
		p.Score = neutralScore()
		p.Method = domain.MethodDefault
		p.FallbackReason = features.ErrMissingStats.Error()
		g.logger.Warn("player statistics unavailable, using default prediction",
			zap.String("fixture_id", m.FixtureID),
			zap.String("home_player", m.HomePlayer.ID),
			zap.String("away_player", m.AwayPlayer.ID))
		return g.finish(p, StatusFallback)
	}

	var reasons []string
	if w, err := g.winner(m); err != nil {
		p.Winner = heuristicWinner(home, away)
		reasons = append(reasons, "winner: "+err.Error())
	} else {
		p.Winner = w
	}
	if sc, err := g.score(m); err != nil {
		p.Score = heuristicScore(home, away)
		reasons = append(reasons, "score: "+err.Error())
	} else {
		p.Score = sc
	}

	if len(reasons) == 0 {
		p.Method = domain.MethodModel
		return g.finish(p, StatusOK)
	}
	p.Method = domain.MethodHeuristic
	p.FallbackReason = strings.Join(reasons, "; ")
	g.logger.Warn("model inference failed, using heuristic",
		zap.String("fixture_id", m.FixtureID),
		zap.String("reason", p.FallbackReason))
	return g.finish(p, StatusFallback)
}

func (g *generator) winner(m *domain.MatchRecord) (domain.WinnerPrediction, error) {
	x, err := g.winnerFeats.Vector(g.stats, *m, g.history)
	if err != nil {
		return domain.WinnerPrediction{}, err
	}
	prob, err := g.models.Winner.HomeWinProbability(x)
	if err != nil {
		return domain.WinnerPrediction{}, fmt.Errorf("inference: %w", err)
	}
	return winnerFromProbability(prob), nil
}

func (g *generator) score(m *domain.MatchRecord) (domain.ScorePrediction, error) {
	x, err := g.scoreFeats.Vector(g.stats, *m, g.history)
	if err != nil {
		return domain.ScorePrediction{}, err
	}
	home, away, err := g.models.Score.PredictScores(x)
	if err != nil {
		return domain.ScorePrediction{}, fmt.Errorf("inference: %w", err)
	}
	return scoreFromRaw(home, away), nil
}

func (g *generator) base(m *domain.MatchRecord) *domain.Prediction {
	start := m.StartTime
	if start == "" {
		start = m.Date
	}
	return &domain.Prediction{
		FixtureID:     m.FixtureID,
		HomePlayer:    m.HomePlayer,
		AwayPlayer:    m.AwayPlayer,
		HomeTeam:      m.HomeTeam,
		AwayTeam:      m.AwayTeam,
		FixtureStart:  start,
		GeneratedAt:   g.generatedAt,
		WinnerModelID: g.models.WinnerID,
		ScoreModelID:  g.models.ScoreID,
	}
}

func (g *generator) finish(p *domain.Prediction, status Status) Outcome {
	p.PredictionID = idhash.ComputePredictionID(p.FixtureID, p.GeneratedAt, p.WinnerModelID, p.ScoreModelID)
	return Outcome{FixtureID: p.FixtureID, Status: status, Prediction: p, Reason: p.FallbackReason}
}

// Persist replaces the current batch, then appends a copy stamped with
// SavedAt to the history log. If the history append fails the previous
// current batch is restored.
func (s *Service) Persist(ctx context.Context, predictions []*domain.Prediction) error {
	previous, err := s.store.Current(ctx)
	if err != nil {
		s.logger.Warn("current predictions unreadable, treating as empty", zap.Error(err))
		previous = nil
	}
	if err := s.store.ReplaceCurrent(ctx, predictions); err != nil {
		return fmt.Errorf("%w: replace current: %w", ErrPersistence, err)
	}

	savedAt := s.now().UTC().Format(domain.TimestampLayout)
	stamped := make([]*domain.Prediction, len(predictions))
	for i, p := range predictions {
		c := *p
		c.SavedAt = savedAt
		stamped[i] = &c
	}
	if err := s.store.AppendHistory(ctx, stamped); err != nil {
		if rerr := s.store.ReplaceCurrent(ctx, previous); rerr != nil {
			s.logger.Error("restoring previous predictions failed", zap.Error(rerr))
		}
		return fmt.Errorf("%w: append history: %w", ErrPersistence, err)
	}

	s.logger.Info("predictions persisted", zap.Int("count", len(predictions)))
	return nil
}

// Current returns the current batch. With filterFuture set only fixtures
// starting after now are returned; unparseable start times are dropped.
func (s *Service) Current(ctx context.Context, filterFuture bool) ([]*domain.Prediction, error) {
	preds, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	if !filterFuture {
		return preds, nil
	}
	now := s.now()
	out := make([]*domain.Prediction, 0, len(preds))
	for _, p := range preds {
		if start, ok := ParseFixtureStart(p.FixtureStart); ok && start.After(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

// History returns the history log. playerFilter is a case-insensitive
// substring of either player name; dateFilter is a substring of
// FixtureStart. Empty filters match everything.
func (s *Service) History(ctx context.Context, playerFilter, dateFilter string) ([]*domain.Prediction, error) {
	preds, err := s.store.History(ctx)
	if err != nil {
		return nil, err
	}
	player := strings.ToLower(playerFilter)
	out := make([]*domain.Prediction, 0, len(preds))
	for _, p := range preds {
		if player != "" &&
			!strings.Contains(strings.ToLower(p.HomePlayer.Name), player) &&
			!strings.Contains(strings.ToLower(p.AwayPlayer.Name), player) {
			continue
		}
		if dateFilter != "" && !strings.Contains(p.FixtureStart, dateFilter) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

var startLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", domain.TimestampLayout, domain.DateLayout}

// ParseFixtureStart parses the start time formats found in match feeds.
// Times without a zone are UTC.
func ParseFixtureStart(s string) (time.Time, bool) {
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
