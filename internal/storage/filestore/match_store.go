package filestore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage"
)

// MatchStore reads and writes a JSON array of matches.
type MatchStore struct {
	path string
	mu   sync.Mutex
}

var _ storage.MatchStore = (*MatchStore)(nil)

// NewMatchStore creates a store backed by path.
func NewMatchStore(path string) *MatchStore {
	return &MatchStore{path: path}
}

// Upsert merges matches into the file by fixture id.
func (s *MatchStore) Upsert(_ context.Context, matches []*domain.MatchRecord) error {
	for _, m := range matches {
		if m == nil || m.FixtureID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		return err
	}
	byID := make(map[string]int, len(existing))
	for i, m := range existing {
		byID[m.FixtureID] = i
	}
	for _, m := range matches {
		if i, ok := byID[m.FixtureID]; ok {
			existing[i] = m.Clone()
			continue
		}
		byID[m.FixtureID] = len(existing)
		existing = append(existing, m.Clone())
	}
	if err := writeJSON(s.path, existing); err != nil {
		return fmt.Errorf("save matches: %w", err)
	}
	return nil
}

// GetAll returns every match ordered by date ASC, fixture id ASC.
func (s *MatchStore) GetAll(_ context.Context) ([]*domain.MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches, err := s.load()
	if err != nil {
		return nil, err
	}
	sortMatches(matches)
	return matches, nil
}

// GetByDateRange returns matches dated within [from, to].
func (s *MatchStore) GetByDateRange(ctx context.Context, from, to string) ([]*domain.MatchRecord, error) {
	if from > to {
		return nil, storage.ErrInvalidInput
	}
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*domain.MatchRecord
	for _, m := range all {
		if d := matchDay(m); d >= from && d <= to {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MatchStore) load() ([]*domain.MatchRecord, error) {
	var matches []*domain.MatchRecord
	if _, err := readJSON(s.path, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

func sortMatches(matches []*domain.MatchRecord) {
	sort.SliceStable(matches, func(i, j int) bool {
		di, dj := matchDay(matches[i]), matchDay(matches[j])
		if di != dj {
			return di < dj
		}
		return matches[i].FixtureID < matches[j].FixtureID
	})
}

func matchDay(m *domain.MatchRecord) string {
	if m.Date != "" {
		return m.Date
	}
	if len(m.StartTime) >= len(domain.DateLayout) {
		return m.StartTime[:len(domain.DateLayout)]
	}
	return m.StartTime
}
