// Package metrics holds the Prometheus metrics surface for the
// player-state sync service: sync outcomes, flagged syncs, connector
// reconnects, and the offline HTTP surface's request shape.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"goldbox-rpg/pkg/model"
)

// Metrics holds every Prometheus metric registered by the service.
type Metrics struct {
	// Sync engine metrics
	syncOperations  *prometheus.CounterVec
	syncFlagged     *prometheus.CounterVec
	syncDuration    *prometheus.HistogramVec

	// Connector metrics
	connectorConnections *prometheus.CounterVec
	connectorReconnects  *prometheus.CounterVec
	activeSessions       prometheus.Gauge

	// HTTP surface metrics
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	serverStartTime prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers every metric.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		syncOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playersync_operations_total",
				Help: "Total number of sync operations processed by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		syncFlagged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playersync_flagged_total",
				Help: "Total number of syncs flagged for operator review by reason",
			},
			[]string{"reason"},
		),
		syncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playersync_operation_duration_seconds",
				Help:    "Sync operation duration in seconds by kind",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		connectorConnections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playersync_connector_connections_total",
				Help: "Total connector connection events by server and type",
			},
			[]string{"server_id", "type"}, // type: "connected", "disconnected", or "<operation>_ok"/"<operation>_error" per dispatched request
		),
		connectorReconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playersync_connector_reconnects_total",
				Help: "Total reconnect attempts by server",
			},
			[]string{"server_id"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "playersync_active_sessions",
				Help: "Number of players currently holding a session lock",
			},
		),
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playersync_http_requests_total",
				Help: "Total HTTP requests to the offline tooling surface",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playersync_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		serverStartTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "playersync_start_time_seconds",
				Help: "Unix timestamp when the service started",
			},
		),
		registry: registry,
	}

	m.registry.MustRegister(
		m.syncOperations, m.syncFlagged, m.syncDuration,
		m.connectorConnections, m.connectorReconnects, m.activeSessions,
		m.requestCount, m.requestDuration, m.serverStartTime,
	)
	m.serverStartTime.SetToCurrentTime()

	return m
}

// Handler returns the HTTP handler exposing the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordSync records the outcome of one SyncEngine operation.
func (m *Metrics) RecordSync(kind model.AuditKind, outcome string, flagged bool, flagReason string, duration time.Duration) {
	m.syncOperations.WithLabelValues(string(kind), outcome).Inc()
	m.syncDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
	if flagged {
		m.syncFlagged.WithLabelValues(flagReason).Inc()
	}
}

// RecordConnectorEvent records a connector lifecycle event for serverID.
func (m *Metrics) RecordConnectorEvent(serverID, eventType string) {
	m.connectorConnections.WithLabelValues(serverID, eventType).Inc()
}

// RecordReconnectAttempt records one reconnect attempt for serverID.
func (m *Metrics) RecordReconnectAttempt(serverID string) {
	m.connectorReconnects.WithLabelValues(serverID).Inc()
}

// SetActiveSessions sets the current count of locked player sessions.
func (m *Metrics) SetActiveSessions(n float64) {
	m.activeSessions.Set(n)
}

// RecordHTTPRequest records one offline-tooling HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := http.StatusText(statusCode)
	if status == "" {
		status = "unknown"
	}
	m.requestCount.WithLabelValues(method, endpoint, status).Inc()
	m.requestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// AuditSink adapts Metrics into an audit.Sink, recording flagged syncs for
// operator dashboards without ever reading the audit log back (§9 Design
// Note).
type AuditSink struct {
	metrics *Metrics
}

// NewAuditSink wraps m as an audit.Sink.
func NewAuditSink(m *Metrics) *AuditSink {
	return &AuditSink{metrics: m}
}

func (s *AuditSink) Record(ctx context.Context, entry model.AuditEntry) {
	outcome := "ok"
	if entry.Flagged {
		outcome = "flagged"
	}
	s.metrics.RecordSync(entry.Kind, outcome, entry.Flagged, entry.FlagReason, time.Duration(entry.DurationMs)*time.Millisecond)
}
