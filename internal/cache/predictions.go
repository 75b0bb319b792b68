package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/observability"
	"esports-predictor/internal/storage"
)

// Cache keys.
const (
	KeyCurrent = "predictions:current"
	KeyHistory = "predictions:history"
)

// PredictionStore caches Current and History of an underlying
// storage.PredictionStore. Writes go to the underlying store first and then
// drop the affected key. Cache failures are logged and never fail a call.
type PredictionStore struct {
	next   storage.PredictionStore
	cache  Store
	ttl    time.Duration
	logger *zap.Logger
}

var _ storage.PredictionStore = (*PredictionStore)(nil)

// NewPredictionStore wraps next with cache.
func NewPredictionStore(next storage.PredictionStore, cache Store, ttl time.Duration, logger *zap.Logger) *PredictionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PredictionStore{next: next, cache: cache, ttl: ttl, logger: logger.Named("cache")}
}

func (s *PredictionStore) ReplaceCurrent(ctx context.Context, predictions []*domain.Prediction) error {
	if err := s.next.ReplaceCurrent(ctx, predictions); err != nil {
		return err
	}
	s.invalidate(ctx, KeyCurrent)
	return nil
}

func (s *PredictionStore) Current(ctx context.Context) ([]*domain.Prediction, error) {
	return s.read(ctx, KeyCurrent, s.next.Current)
}

func (s *PredictionStore) AppendHistory(ctx context.Context, predictions []*domain.Prediction) error {
	if err := s.next.AppendHistory(ctx, predictions); err != nil {
		return err
	}
	s.invalidate(ctx, KeyHistory)
	return nil
}

func (s *PredictionStore) History(ctx context.Context) ([]*domain.Prediction, error) {
	return s.read(ctx, KeyHistory, s.next.History)
}

func (s *PredictionStore) read(ctx context.Context, key string, load func(context.Context) ([]*domain.Prediction, error)) ([]*domain.Prediction, error) {
	b, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	if found {
		var preds []*domain.Prediction
		if err := json.Unmarshal(b, &preds); err == nil {
			observability.RecordCacheLookup(true)
			return preds, nil
		}
		s.logger.Warn("dropping undecodable cache entry", zap.String("key", key))
		s.invalidate(ctx, key)
	}
	observability.RecordCacheLookup(false)

	preds, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if preds == nil {
		preds = []*domain.Prediction{}
	}
	b, err = json.Marshal(preds)
	if err != nil {
		return preds, nil
	}
	if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return preds, nil
}

func (s *PredictionStore) invalidate(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
