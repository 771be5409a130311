// Package telemetry provides application-level observability for trailkeeper.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and served by the
// side-channel HTTP server started by main.go:
//
//	GET http://<host>:<TK_TELEMETRY_METRICS_PORT>/metrics
//
// Default port: 9090. The endpoint is not served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Audit entries, tombstones and shipping failures
//   - Product analytics events and integration installation changes
//   - Database connection pool gauge (polled every 30 s)
//
// # Usage
//
//	telemetry.AuditEntriesWrittenTotal.WithLabelValues("ORG_EDIT").Inc()
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trailkeeper/trailkeeper/internal/safego"
)

// HTTP metrics. The path label holds the Gin route template
// (e.g. /api/0/organizations/:slug/audit-logs/), never the raw URL.
//
// Example PromQL queries:
//   - Error rate (%):        sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route: histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Audit metrics, recorded by the audit writer.
//
// AuditEntriesWrittenTotal is labelled by event name (ORG_EDIT, TEAM_REMOVE, ...). The label set
// is bounded by the event registry.
//
// AuditTombstonesWrittenTotal is labelled by kind: organization, team or project.
//
// AuditShipErrorsTotal counts entries that at least one shipper failed to deliver. The entry is
// still persisted; alert on increase(audit_ship_errors_total[15m]) > 0 to catch a broken SIEM feed.
var (
	AuditEntriesWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_entries_written_total",
			Help: "Total number of audit log entries persisted, by event name.",
		},
		[]string{"event"},
	)

	AuditTombstonesWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_tombstones_written_total",
			Help: "Total number of deletion tombstones persisted, by kind.",
		},
		[]string{"kind"},
	)

	AuditShipErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_ship_errors_total",
			Help: "Total number of audit entries that failed to ship to at least one destination.",
		},
	)
)

// AnalyticsEventsTotal counts product analytics events by name
// (sentry_app.uninstalled, sentry_app_installation.updated, ...).
var AnalyticsEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "analytics_events_total",
		Help: "Total number of product analytics events recorded, by event name.",
	},
	[]string{"event"},
)

// InstallationChangesTotal counts integration installation lifecycle changes by action
// (updated, deleted).
var InstallationChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sentry_app_installation_changes_total",
		Help: "Total number of integration installation changes, by action.",
	},
	[]string{"action"},
)

// DBOpenConnections tracks open connections in the sql.DB pool, sampled every 30 seconds by
// StartDBStatsCollector.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector samples pool statistics every 30 seconds until the database becomes
// unreachable, which happens once main.go closes it on shutdown.
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	safego.Go("db-stats-collector", func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	})
}
