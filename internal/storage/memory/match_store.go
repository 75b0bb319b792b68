package memory

import (
	"context"
	"sort"
	"sync"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// MatchStore is an in-memory implementation of storage.MatchStore.
type MatchStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MatchRecord // keyed by fixture id
}

var _ storage.MatchStore = (*MatchStore)(nil)

// NewMatchStore creates a new in-memory match store.
func NewMatchStore() *MatchStore {
	return &MatchStore{
		data: make(map[string]*domain.MatchRecord),
	}
}

// Upsert inserts or replaces matches by fixture id.
func (s *MatchStore) Upsert(_ context.Context, matches []*domain.MatchRecord) error {
	for _, m := range matches {
		if m == nil || m.FixtureID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range matches {
		s.data[m.FixtureID] = m.Clone()
	}
	return nil
}

// GetAll returns every match ordered by date ASC, fixture id ASC.
func (s *MatchStore) GetAll(_ context.Context) ([]*domain.MatchRecord, error) {
	return s.collect(func(*domain.MatchRecord) bool { return true }), nil
}

// GetByDateRange returns matches dated within [from, to].
func (s *MatchStore) GetByDateRange(_ context.Context, from, to string) ([]*domain.MatchRecord, error) {
	if from > to {
		return nil, storage.ErrInvalidInput
	}
	return s.collect(func(m *domain.MatchRecord) bool {
		d := matchDay(m)
		return d >= from && d <= to
	}), nil
}

func (s *MatchStore) collect(keep func(*domain.MatchRecord) bool) []*domain.MatchRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.MatchRecord, 0, len(s.data))
	for _, m := range s.data {
		if keep(m) {
			result = append(result, m.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		di, dj := matchDay(result[i]), matchDay(result[j])
		if di != dj {
			return di < dj
		}
		return result[i].FixtureID < result[j].FixtureID
	})
	return result
}

// matchDay returns the YYYY-MM-DD day of a match, preferring Date.
func matchDay(m *domain.MatchRecord) string {
	if m.Date != "" {
		return m.Date
	}
	if len(m.StartTime) >= len(domain.DateLayout) {
		return m.StartTime[:len(domain.DateLayout)]
	}
	return m.StartTime
}
