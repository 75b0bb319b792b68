package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/storage/memory"
)

type countingStore struct {
	*memory.PredictionStore
	currentCalls int
	historyCalls int
}

func (c *countingStore) Current(ctx context.Context) ([]*domain.Prediction, error) {
	c.currentCalls++
	return c.PredictionStore.Current(ctx)
}

func (c *countingStore) History(ctx context.Context) ([]*domain.Prediction, error) {
	c.historyCalls++
	return c.PredictionStore.History(ctx)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (brokenCache) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func batch(ids ...string) []*domain.Prediction {
	out := make([]*domain.Prediction, len(ids))
	for i, id := range ids {
		out[i] = &domain.Prediction{FixtureID: id, Method: domain.MethodModel}
	}
	return out
}

func TestPredictionStore_CachesCurrent(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{PredictionStore: memory.NewPredictionStore()}
	s := NewPredictionStore(backing, NewMemoryStore(), time.Minute, nil)

	require.NoError(t, s.ReplaceCurrent(ctx, batch("f1", "f2")))

	for i := 0; i < 3; i++ {
		got, err := s.Current(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "f1", got[0].FixtureID)
	}
	assert.Equal(t, 1, backing.currentCalls)
}

func TestPredictionStore_WriteInvalidates(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{PredictionStore: memory.NewPredictionStore()}
	s := NewPredictionStore(backing, NewMemoryStore(), time.Minute, nil)

	require.NoError(t, s.ReplaceCurrent(ctx, batch("f1")))
	_, err := s.Current(ctx)
	require.NoError(t, err)

	require.NoError(t, s.ReplaceCurrent(ctx, batch("f2", "f3")))
	got, err := s.Current(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "f2", got[0].FixtureID)
	assert.Equal(t, 2, backing.currentCalls)

	require.NoError(t, s.AppendHistory(ctx, batch("f1")))
	_, err = s.History(ctx)
	require.NoError(t, err)
	require.NoError(t, s.AppendHistory(ctx, batch("f2")))
	hist, err := s.History(ctx)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
	assert.Equal(t, 2, backing.historyCalls)
}

func TestPredictionStore_FailedWriteKeepsCache(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{PredictionStore: memory.NewPredictionStore()}
	s := NewPredictionStore(backing, NewMemoryStore(), time.Minute, nil)

	require.NoError(t, s.ReplaceCurrent(ctx, batch("f1")))
	_, err := s.Current(ctx)
	require.NoError(t, err)

	backing.FailReplace = errors.New("disk full")
	require.Error(t, s.ReplaceCurrent(ctx, batch("f9")))

	got, err := s.Current(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "f1", got[0].FixtureID)
	assert.Equal(t, 1, backing.currentCalls)
}

func TestPredictionStore_EmptyIsCached(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{PredictionStore: memory.NewPredictionStore()}
	s := NewPredictionStore(backing, NewMemoryStore(), time.Minute, nil)

	for i := 0; i < 2; i++ {
		got, err := s.Current(ctx)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
	assert.Equal(t, 1, backing.currentCalls)
}

func TestPredictionStore_BrokenCacheFallsThrough(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{PredictionStore: memory.NewPredictionStore()}
	s := NewPredictionStore(backing, brokenCache{}, time.Minute, nil)

	require.NoError(t, s.ReplaceCurrent(ctx, batch("f1")))
	for i := 0; i < 2; i++ {
		got, err := s.Current(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	assert.Equal(t, 2, backing.currentCalls)
}

func TestPredictionStore_DropsUndecodableEntry(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	backing := &countingStore{PredictionStore: memory.NewPredictionStore()}
	s := NewPredictionStore(backing, mem, time.Minute, nil)

	require.NoError(t, backing.PredictionStore.ReplaceCurrent(ctx, batch("f1")))
	require.NoError(t, mem.Set(ctx, KeyCurrent, []byte("{not json"), 0))

	got, err := s.Current(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, backing.currentCalls)

	raw, found, err := mem.Get(ctx, KeyCurrent)
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, string(raw), "f1")
}
