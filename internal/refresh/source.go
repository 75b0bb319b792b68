package refresh

import (
	"context"
	"time"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// MatchSource supplies played history and upcoming fixtures.
type MatchSource interface {
	Played(ctx context.Context) ([]domain.MatchRecord, error)
	Upcoming(ctx context.Context) ([]domain.MatchRecord, error)
}

// StoreSource reads both lists from match stores. Played keeps scored
// matches of History; Upcoming keeps unscored matches of Fixtures, or of
// History when Fixtures is nil. Non-zero day windows restrict the lists to
// the last HistoryDays and the next UpcomingDays.
type StoreSource struct {
	History      storage.MatchStore
	Fixtures     storage.MatchStore
	HistoryDays  int
	UpcomingDays int
	Clock        func() time.Time
}

var _ MatchSource = (*StoreSource)(nil)

// Played returns scored matches.
func (s *StoreSource) Played(ctx context.Context) ([]domain.MatchRecord, error) {
	today := s.today()
	all, err := s.load(ctx, s.History, s.HistoryDays, today.AddDate(0, 0, -s.HistoryDays), today)
	if err != nil {
		return nil, err
	}
	return filter(all, true), nil
}

// Upcoming returns unscored matches.
func (s *StoreSource) Upcoming(ctx context.Context) ([]domain.MatchRecord, error) {
	store := s.Fixtures
	if store == nil {
		store = s.History
	}
	today := s.today()
	all, err := s.load(ctx, store, s.UpcomingDays, today, today.AddDate(0, 0, s.UpcomingDays))
	if err != nil {
		return nil, err
	}
	return filter(all, false), nil
}

func (s *StoreSource) load(ctx context.Context, store storage.MatchStore, days int, from, to time.Time) ([]*domain.MatchRecord, error) {
	if days <= 0 {
		return store.GetAll(ctx)
	}
	return store.GetByDateRange(ctx, from.Format(domain.DateLayout), to.Format(domain.DateLayout))
}

func (s *StoreSource) today() time.Time {
	now := time.Now
	if s.Clock != nil {
		now = s.Clock
	}
	return now().UTC()
}

func filter(matches []*domain.MatchRecord, scored bool) []domain.MatchRecord {
	out := make([]domain.MatchRecord, 0, len(matches))
	for _, m := range matches {
		if m != nil && m.HasScores() == scored {
			out = append(out, *m)
		}
	}
	return out
}
