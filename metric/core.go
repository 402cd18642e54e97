package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Label values for the processed-messages counter.
const (
	StatusValidated = "validated"
	StatusFailed    = "failed"

	// ErrorTypeNone is recorded on the accept path, mirroring the reject
	// path's per-violation error_type label.
	ErrorTypeNone = "none"
)

// Label values for the reload counter.
const (
	ReloadApplied  = "applied"
	ReloadRejected = "rejected"
	ReloadFailed   = "failed"
)

// Metrics contains all gateway-level metrics.
type Metrics struct {
	// Pipeline metrics
	MessagesReceived   *prometheus.CounterVec
	MessagesProcessed  *prometheus.CounterVec
	PublishErrors      *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec

	// Reload metrics
	ReloadsTotal *prometheus.CounterVec

	// Component metrics
	ComponentStatus   *prometheus.GaugeVec
	HealthCheckStatus *prometheus.GaugeVec

	// Broker connection metrics
	ConnectionStatus prometheus.Gauge
	NATSRTT          prometheus.Gauge
	NATSReconnects   prometheus.Counter
	CircuitBreaker   prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all gateway metrics
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "valgate",
				Subsystem: "messages",
				Name:      "received_total",
				Help:      "Total number of messages received from subscribed topics",
			},
			[]string{"source"},
		),

		MessagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "valgate",
				Subsystem: "messages",
				Name:      "processed_total",
				Help:      "Validation outcomes: one increment per accepted message, one per violation on rejection",
			},
			[]string{"status", "source", "error_type"},
		),

		PublishErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "valgate",
				Subsystem: "publish",
				Name:      "errors_total",
				Help:      "Total number of failed publishes to accept/reject topics",
			},
			[]string{"topic_kind"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "valgate",
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Per-message handling duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source"},
		),

		ReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "valgate",
				Subsystem: "reloads",
				Name:      "total",
				Help:      "Configuration reload attempts by result (applied, rejected, failed)",
			},
			[]string{"result"},
		),

		ComponentStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "valgate",
				Subsystem: "component",
				Name:      "status",
				Help:      "Component status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
			},
			[]string{"component"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "valgate",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"component"},
		),

		ConnectionStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "valgate",
				Name:      "connection_status",
				Help:      "Broker connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting, 4=circuit open)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "valgate",
				Subsystem: "nats",
				Name:      "rtt_milliseconds",
				Help:      "NATS round-trip time in milliseconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "valgate",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),

		CircuitBreaker: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "valgate",
				Subsystem: "nats",
				Name:      "circuit_breaker",
				Help:      "Connection circuit breaker status (0=closed, 1=open, 2=half-open)",
			},
		),
	}
}

// RecordMessageReceived increments the received counter for a source
func (c *Metrics) RecordMessageReceived(source string) {
	c.MessagesReceived.WithLabelValues(source).Inc()
}

// RecordValidated records an accepted message
func (c *Metrics) RecordValidated(source string) {
	c.MessagesProcessed.WithLabelValues(StatusValidated, source, ErrorTypeNone).Inc()
}

// RecordViolation records a single violation on the reject path. Callers
// invoke it once per violation so error_type counts stay proportional to
// the failure mix.
func (c *Metrics) RecordViolation(source, errorType string) {
	c.MessagesProcessed.WithLabelValues(StatusFailed, source, errorType).Inc()
}

// RecordPublishError increments the publish error counter for a topic kind
func (c *Metrics) RecordPublishError(topicKind string) {
	c.PublishErrors.WithLabelValues(topicKind).Inc()
}

// RecordProcessingDuration records per-message handling time
func (c *Metrics) RecordProcessingDuration(source string, duration time.Duration) {
	c.ProcessingDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordReload increments the reload counter for a result
func (c *Metrics) RecordReload(result string) {
	c.ReloadsTotal.WithLabelValues(result).Inc()
}

// RecordComponentStatus updates a component status gauge
func (c *Metrics) RecordComponentStatus(component string, status int) {
	c.ComponentStatus.WithLabelValues(component).Set(float64(status))
}

// RecordHealthStatus updates a health check gauge
func (c *Metrics) RecordHealthStatus(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(component).Set(value)
}

// RecordConnectionStatus updates the broker connection state gauge
func (c *Metrics) RecordConnectionStatus(state int) {
	c.ConnectionStatus.Set(float64(state))
}

// RecordNATSRTT updates the NATS round-trip time gauge
func (c *Metrics) RecordNATSRTT(rtt time.Duration) {
	c.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments the reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}

// RecordCircuitBreakerState updates the circuit breaker gauge
func (c *Metrics) RecordCircuitBreakerState(state int) {
	c.CircuitBreaker.Set(float64(state))
}
