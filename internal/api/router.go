// Package api serves predictions, model registries and refresh status over
// HTTP, and pushes committed prediction batches to websocket clients.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/observability"
	"esports-predictor/internal/refresh"
)

// PredictionReader reads published predictions.
type PredictionReader interface {
	Current(ctx context.Context, filterFuture bool) ([]*domain.Prediction, error)
	History(ctx context.Context, playerFilter, dateFilter string) ([]*domain.Prediction, error)
}

// ModelRegistry is the read side of a model registry.
type ModelRegistry interface {
	Reload(ctx context.Context)
	List() []domain.RegistryEntry
	Best() (domain.RegistryEntry, bool)
	Get(modelID string) (domain.RegistryEntry, error)
}

// Refresher runs and reports refresh cycles.
type Refresher interface {
	Run(ctx context.Context) (*refresh.Result, error)
	Stage() domain.Stage
	LastRun(ctx context.Context) (*domain.RefreshRun, error)
}

// Options configures the router.
type Options struct {
	Predictions    PredictionReader
	Registries     map[domain.Task]ModelRegistry
	Refresher      Refresher // optional; refresh endpoints return 503 without it
	Hub            *Hub      // optional; /ws returns 503 without it
	AllowedOrigins []string
	// RefreshContext is the parent of manually triggered cycles.
	RefreshContext context.Context
	Logger         *zap.Logger
	Clock          func() time.Time
}

// Handler holds the route dependencies.
type Handler struct {
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.RefreshContext == nil {
		opts.RefreshContext = context.Background()
	}
	return &Handler{opts: opts, logger: opts.Logger.Named("api"), now: opts.Clock}
}

// NewRouter builds the HTTP routes.
func NewRouter(opts Options) http.Handler {
	h := NewHandler(opts)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(opts.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", observability.Handler())
	r.Get("/ws", h.Websocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Post("/refresh", h.TriggerRefresh)

		r.Get("/predictions", h.Predictions)
		r.Get("/predictions/history", h.PredictionHistory)

		r.Get("/models/{task}", h.Models)
		r.Get("/models/{task}/best", h.BestModel)
		r.Get("/models/{task}/{modelID}", h.Model)
	})

	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
