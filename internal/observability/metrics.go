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
	registry *prometheus.Registry

	// Collector metrics
	CollectorRunsTotal      *prometheus.CounterVec
	AccountsProcessed       prometheus.Counter
	AccountsSkipped         prometheus.Counter
	AccountErrors           *prometheus.CounterVec
	GraphCallDuration       *prometheus.HistogramVec
	LastSuccessfulCollection prometheus.Gauge

	// Snapshot store metrics
	SnapshotWrites    *prometheus.CounterVec
	SnapshotReadErrors prometheus.Counter

	// Roll-up metrics
	RollupBuildsTotal   *prometheus.CounterVec
	RollupBuildDuration prometheus.Histogram

	// Query metrics
	QueryDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance registered on its own registry, so
// repeated construction in tests never collides.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "instatrack"
	}
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		CollectorRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "runs_total",
			Help:      "Total collector runs by job and status",
		}, []string{"job", "status"}),
		AccountsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "accounts_processed_total",
			Help:      "Total accounts processed successfully",
		}),
		AccountsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "accounts_skipped_total",
			Help:      "Total accounts skipped for missing credentials",
		}),
		AccountErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "account_errors_total",
			Help:      "Total per-account collection failures by job",
		}, []string{"job"}),
		GraphCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "call_duration_seconds",
			Help:      "Graph API call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		LastSuccessfulCollection: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_collection_timestamp",
			Help:      "Unix timestamp of last collector run without errors",
		}),

		SnapshotWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "snapshot_writes_total",
			Help:      "Total snapshot writes by outcome (updated or nochange)",
		}, []string{"outcome"}),
		SnapshotReadErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "snapshot_read_errors_total",
			Help:      "Total snapshot read failures",
		}),

		RollupBuildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rollup",
			Name:      "builds_total",
			Help:      "Total roll-up builds by status",
		}, []string{"status"}),
		RollupBuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rollup",
			Name:      "build_duration_seconds",
			Help:      "Roll-up rebuild duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		}),

		QueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Projection query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// Handler returns the HTTP handler serving this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
