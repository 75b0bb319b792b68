// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Refresh metrics
	RefreshRunsTotal *prometheus.CounterVec
	RefreshDuration  *prometheus.HistogramVec
	PredictionsTotal *prometheus.CounterVec
	UpcomingMatches  prometheus.Gauge
	PlayersWithStats prometheus.Gauge

	// Optimizer metrics
	TrialsTotal    *prometheus.CounterVec
	TrialDuration  *prometheus.HistogramVec
	BestTrialScore *prometheus.GaugeVec

	// Registry metrics
	RegistrySize      *prometheus.GaugeVec
	RegistryBestScore *prometheus.GaugeVec

	// Training metrics
	TrainingDuration *prometheus.HistogramVec
	TrainingSamples  *prometheus.GaugeVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// API metrics
	CacheRequests    *prometheus.CounterVec
	WebsocketClients prometheus.Gauge

	// Health metrics
	LastSuccessfulRefresh prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "esports_predictor"
	}

	return &Metrics{
		// Refresh metrics
		RefreshRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "runs_total",
			Help:      "Total number of refresh stage outcomes by stage and status",
		}, []string{"stage", "status"}),
		RefreshDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "duration_seconds",
			Help:      "Refresh stage duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"stage"}),
		PredictionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "predictions_total",
			Help:      "Total number of predictions generated by method",
		}, []string{"method"}),
		UpcomingMatches: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "upcoming_matches",
			Help:      "Number of upcoming matches in the last refresh",
		}),
		PlayersWithStats: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "players_with_stats",
			Help:      "Number of players with statistics in the last refresh",
		}),

		// Optimizer metrics
		TrialsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "trials_total",
			Help:      "Total number of optimization trials by task and status",
		}, []string{"task", "status"}),
		TrialDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "trial_duration_seconds",
			Help:      "Optimization trial duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"task"}),
		BestTrialScore: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "best_score",
			Help:      "Best oriented score of the current optimization run",
		}, []string{"task"}),

		// Registry metrics
		RegistrySize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "models",
			Help:      "Number of registered models",
		}, []string{"registry"}),
		RegistryBestScore: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "best_score",
			Help:      "Selection metric of the current best model",
		}, []string{"registry"}),

		// Training metrics
		TrainingDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "duration_seconds",
			Help:      "Model training duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"task"}),
		TrainingSamples: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "samples",
			Help:      "Number of samples used by the last training run",
		}, []string{"task"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// API metrics
		CacheRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "cache_requests_total",
			Help:      "Prediction cache lookups by result",
		}, []string{"result"}),
		WebsocketClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "websocket_clients",
			Help:      "Number of connected websocket clients",
		}),

		// Health metrics
		LastSuccessfulRefresh: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last successful refresh",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRefreshStage records one refresh stage outcome.
func RecordRefreshStage(stage, status string, durationSeconds float64) {
	DefaultMetrics.RefreshRunsTotal.WithLabelValues(stage, status).Inc()
	DefaultMetrics.RefreshDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordPrediction increments the prediction counter for a method.
func RecordPrediction(method string) {
	DefaultMetrics.PredictionsTotal.WithLabelValues(method).Inc()
}

// RecordRefreshInputs updates the refresh input gauges.
func RecordRefreshInputs(upcoming, players int) {
	DefaultMetrics.UpcomingMatches.Set(float64(upcoming))
	DefaultMetrics.PlayersWithStats.Set(float64(players))
}

// RecordRefreshSuccess stamps the last successful refresh.
func RecordRefreshSuccess(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulRefresh.Set(float64(unixSeconds))
}

// RecordTrial records an optimization trial.
func RecordTrial(task string, failed bool, durationSeconds float64) {
	status := "ok"
	if failed {
		status = "failed"
	}
	DefaultMetrics.TrialsTotal.WithLabelValues(task, status).Inc()
	DefaultMetrics.TrialDuration.WithLabelValues(task).Observe(durationSeconds)
}

// UpdateBestTrialScore sets the best oriented score of a task's run.
func UpdateBestTrialScore(task string, score float64) {
	DefaultMetrics.BestTrialScore.WithLabelValues(task).Set(score)
}

// UpdateRegistry sets the registry size and best score gauges.
func UpdateRegistry(name string, size int, bestScore float64, hasBest bool) {
	DefaultMetrics.RegistrySize.WithLabelValues(name).Set(float64(size))
	if hasBest {
		DefaultMetrics.RegistryBestScore.WithLabelValues(name).Set(bestScore)
	} else {
		DefaultMetrics.RegistryBestScore.DeleteLabelValues(name)
	}
}

// RecordTraining records a training run.
func RecordTraining(task string, samples int, durationSeconds float64) {
	DefaultMetrics.TrainingDuration.WithLabelValues(task).Observe(durationSeconds)
	DefaultMetrics.TrainingSamples.WithLabelValues(task).Set(float64(samples))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordCacheLookup records a prediction cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheRequests.WithLabelValues(result).Inc()
}

// SetWebsocketClients sets the connected websocket client gauge.
func SetWebsocketClients(n int) {
	DefaultMetrics.WebsocketClients.Set(float64(n))
}
