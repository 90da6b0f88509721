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
	// Fetch metrics
	FetchesTotal   *prometheus.CounterVec
	FetchErrors    *prometheus.CounterVec
	FetchLatency   *prometheus.HistogramVec
	SourcesMissing prometheus.Gauge

	// Derivation metrics
	DerivationRunsTotal *prometheus.CounterVec
	DerivationDuration  prometheus.Histogram
	RefreshesSkipped    prometheus.Counter

	// Snapshot metrics
	SnapshotsSaved       prometheus.Counter
	PriceSamplesArchived prometheus.Counter

	// Serving metrics
	ContextRenders prometheus.Counter
	LoginsTotal    *prometheus.CounterVec
	SessionsSwept  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRefresh prometheus.Gauge
	UptimeSeconds         prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "market_context_lab"
	}

	return &Metrics{
		// Fetch metrics
		FetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Total number of upstream fetches by source",
		}, []string{"source"}),
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "errors_total",
			Help:      "Total number of failed upstream fetches by source",
		}, []string{"source"}),
		FetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "latency_seconds",
			Help:      "Upstream fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		SourcesMissing: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "sources_missing",
			Help:      "Number of sources absent from the last refresh",
		}),

		// Derivation metrics
		DerivationRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "derive",
			Name:      "runs_total",
			Help:      "Total number of derivation runs by status",
		}, []string{"status"}),
		DerivationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "derive",
			Name:      "duration_seconds",
			Help:      "Derivation run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		RefreshesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "derive",
			Name:      "refreshes_skipped_total",
			Help:      "Total number of refreshes skipped for missing mandatory sources",
		}),

		// Snapshot metrics
		SnapshotsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "saves_total",
			Help:      "Total number of snapshots saved",
		}),
		PriceSamplesArchived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "price_samples_archived_total",
			Help:      "Total number of price samples written to the archive",
		}),

		// Serving metrics
		ContextRenders: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serve",
			Name:      "context_renders_total",
			Help:      "Total number of context blocks rendered",
		}),
		LoginsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serve",
			Name:      "logins_total",
			Help:      "Total number of login attempts by status",
		}, []string{"status"}),
		SessionsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serve",
			Name:      "sessions_swept_total",
			Help:      "Total number of expired sessions removed",
		}),

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

		// Health metrics
		LastSuccessfulRefresh: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last successful refresh",
		}),
		UptimeSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds",
			Help:      "Seconds since the process started",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFetch records a completed upstream fetch.
func RecordFetch(source string, seconds float64, err error) {
	DefaultMetrics.FetchesTotal.WithLabelValues(source).Inc()
	DefaultMetrics.FetchLatency.WithLabelValues(source).Observe(seconds)
	if err != nil {
		DefaultMetrics.FetchErrors.WithLabelValues(source).Inc()
	}
}

// RecordDerivationRun records a derivation run.
func RecordDerivationRun(status string, durationSeconds float64) {
	DefaultMetrics.DerivationRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.DerivationDuration.Observe(durationSeconds)
}

// RecordRefreshSkipped increments the skipped refresh counter.
func RecordRefreshSkipped() {
	DefaultMetrics.RefreshesSkipped.Inc()
}

// RecordSnapshotSaved increments the snapshot saves counter.
func RecordSnapshotSaved() {
	DefaultMetrics.SnapshotsSaved.Inc()
}

// RecordPriceSamplesArchived adds to the archived samples counter.
func RecordPriceSamplesArchived(n int) {
	DefaultMetrics.PriceSamplesArchived.Add(float64(n))
}

// RecordContextRender increments the context render counter.
func RecordContextRender() {
	DefaultMetrics.ContextRenders.Inc()
}

// RecordLogin records a login attempt.
func RecordLogin(status string) {
	DefaultMetrics.LoginsTotal.WithLabelValues(status).Inc()
}

// RecordSessionsSwept adds to the swept sessions counter.
func RecordSessionsSwept(n int) {
	DefaultMetrics.SessionsSwept.Add(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
