// Package telemetry provides application-level observability for the dashboard backend.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// served by the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<DASH_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Procedure outcome counters and latency histograms (labelled by procedure name)
//   - Audit ingestion failures per destination
//   - Rate limiter rejections
//   - Session and OTP reaper deletions
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /trpc/:procedure) rather than
// the raw request URL. Procedure metrics are labelled with the registered procedure
// name, never with caller-supplied identifiers.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - p95 latency by route:              histogram_quantile(0.95, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, partitioned by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds, partitioned by method and route template.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Procedure metrics.
//
// ProcedureCallsTotal is labelled {procedure, code}; code is "OK" for a
// successful call and the error code (BAD_REQUEST, NOT_FOUND, UNAUTHORIZED,
// INTERNAL_SERVER_ERROR) otherwise.
//
//   - NOT_FOUND ratio for one procedure:
//     sum(rate(procedure_calls_total{procedure="key.updateName",code="NOT_FOUND"}[5m])) / sum(rate(procedure_calls_total{procedure="key.updateName"}[5m]))
var (
	ProcedureCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procedure_calls_total",
			Help: "Total number of dashboard procedure invocations, partitioned by procedure and result code.",
		},
		[]string{"procedure", "code"},
	)

	ProcedureDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "procedure_duration_seconds",
			Help:    "Time spent executing a dashboard procedure, including audit ingestion.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"procedure"},
	)
)

// AuditIngestFailuresTotal counts audit events that could not be delivered to a
// destination. destination is "database" for the primary store or the shipper
// type ("webhook", "file", "redis", "nats"). The triggering mutation is not rolled back.
var AuditIngestFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "audit_ingest_failures_total",
		Help: "Total number of audit events that failed to reach a destination.",
	},
	[]string{"destination"},
)

// RateLimitRejectionsTotal counts requests answered with 429, labelled by the
// limiter backend ("memory" or "redis").
var RateLimitRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Total number of requests rejected by the rate limiter.",
	},
	[]string{"backend"},
)

// ReaperDeletedTotal counts rows removed by the expiry reaper, labelled by table.
var ReaperDeletedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reaper_deleted_rows_total",
		Help: "Total number of expired rows deleted by the reaper job.",
	},
	[]string{"table"},
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool. Updated every 30 seconds by StartDBStatsCollector.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits when the database becomes unreachable, which happens once
// main.go closes the pool on shutdown.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
