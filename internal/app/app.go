// Package app wires configured stores and registries for the command-line
// tools and the server.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"esports-predictor/internal/cache"
	"esports-predictor/internal/config"
	"esports-predictor/internal/domain"
	"esports-predictor/internal/logger"
	"esports-predictor/internal/registry"
	"esports-predictor/internal/storage"
	chstore "esports-predictor/internal/storage/clickhouse"
	"esports-predictor/internal/storage/filestore"
	"esports-predictor/internal/storage/memory"
	"esports-predictor/internal/storage/migrations"
	pgstore "esports-predictor/internal/storage/postgres"
)

// Stores holds every storage implementation a command may need.
type Stores struct {
	Matches     storage.MatchStore
	Fixtures    storage.MatchStore // nil: upcoming fixtures live in Matches
	Documents   storage.RegistryDocumentStore
	Artifacts   storage.ArtifactStore
	Predictions storage.PredictionStore
	Runs        storage.RefreshRunStore
	Trials      storage.TrialStore
	Archive     storage.PredictionArchive // nil without ClickHouse

	// Cache is the Redis store when storage.redis_addr is set.
	Cache cache.Store

	closers []func()
}

// Close releases database connections.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// OpenStores creates the stores of the configured backend. ClickHouse and
// Redis are attached when their addresses are set. Migrations are applied
// on open.
func OpenStores(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Stores{Trials: memory.NewTrialStore()}

	switch cfg.Backend {
	case config.BackendMemory:
		s.Matches = memory.NewMatchStore()
		s.Documents = memory.NewRegistryDocumentStore()
		s.Artifacts = memory.NewArtifactStore()
		s.Predictions = memory.NewPredictionStore()
		s.Runs = memory.NewRefreshRunStore()

	case config.BackendFile:
		s.Matches = filestore.NewMatchStore(cfg.MatchHistory)
		s.Fixtures = filestore.NewMatchStore(cfg.UpcomingMatches)
		s.Documents = filestore.NewRegistryDocumentStore(cfg.ModelsDir)
		s.Artifacts = filestore.NewArtifactStore(cfg.ModelsDir)
		s.Predictions = filestore.NewPredictionStore(cfg.Predictions, cfg.History, logger)
		s.Runs = filestore.NewRefreshRunStore(cfg.RefreshRuns)

	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		if err := migrations.RunPostgres(ctx, pool); err != nil {
			s.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		s.Matches = pgstore.NewMatchStore(pool)
		s.Documents = pgstore.NewRegistryDocumentStore(pool)
		s.Artifacts = pgstore.NewArtifactStore(pool)
		s.Predictions = pgstore.NewPredictionStore(pool)
		s.Runs = pgstore.NewRefreshRunStore(pool)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if cfg.ClickHouseDSN != "" {
		if err := s.attachClickhouse(ctx, cfg.ClickHouseDSN); err != nil {
			s.Close()
			return nil, err
		}
		logger.Info("clickhouse attached", zap.String("stores", "trials,prediction_archive"))
	}

	if cfg.RedisAddr != "" {
		rs, err := cache.NewRedisStore(ctx, cfg.RedisAddr)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		s.closers = append(s.closers, func() { _ = rs.Close() })
		s.Cache = rs
		logger.Info("redis cache attached", zap.String("addr", cfg.RedisAddr))
	}

	logger.Info("stores opened", zap.String("backend", cfg.Backend))
	return s, nil
}

func (s *Stores) attachClickhouse(ctx context.Context, dsn string) error {
	if err := chstore.EnsureDatabase(ctx, dsn); err != nil {
		return fmt.Errorf("create clickhouse database: %w", err)
	}
	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to clickhouse: %w", err)
	}
	s.closers = append(s.closers, func() { _ = conn.Close() })
	if err := migrations.RunClickhouse(ctx, conn); err != nil {
		return fmt.Errorf("migrate clickhouse: %w", err)
	}
	s.Trials = chstore.NewTrialStore(conn)
	s.Archive = chstore.NewPredictionArchive(conn)
	return nil
}

// Registries opens the winner and score registries.
func (s *Stores) Registries(ctx context.Context, logger *zap.Logger) (winners, scores *registry.Registry) {
	winners = registry.ForTask(ctx, domain.TaskWinner, s.Documents, s.Artifacts, logger)
	scores = registry.ForTask(ctx, domain.TaskScore, s.Documents, s.Artifacts, logger)
	return winners, scores
}

// Registry opens the registry of one task.
func (s *Stores) Registry(ctx context.Context, task domain.Task, logger *zap.Logger) *registry.Registry {
	return registry.ForTask(ctx, task, s.Documents, s.Artifacts, logger)
}

// CachedPredictions wraps the prediction store with the Redis cache, or an
// in-process cache when Redis is not configured. ttl <= 0 disables caching.
func (s *Stores) CachedPredictions(ttl time.Duration, logger *zap.Logger) storage.PredictionStore {
	if ttl <= 0 {
		return s.Predictions
	}
	var c cache.Store = cache.NewMemoryStore()
	if s.Cache != nil {
		c = s.Cache
	}
	return cache.NewPredictionStore(s.Predictions, c, ttl, logger)
}

// DataFiles names the match source recorded in model metadata.
func DataFiles(cfg config.StorageConfig) []string {
	switch cfg.Backend {
	case config.BackendFile:
		return []string{filepath.Base(cfg.MatchHistory)}
	case config.BackendPostgres:
		return []string{"postgres:matches"}
	}
	return nil
}

// Load reads the configuration (EP_* variables only when path is empty) and
// builds the logger.
func Load(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path, path == "")
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, log, nil
}
