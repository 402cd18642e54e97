// Package metric provides Prometheus-based metrics collection for the
// validation gateway.
//
// The package offers a centralized metrics registry managing both core
// gateway metrics (message counts, validation outcomes, reloads, broker
// connectivity) and custom component-specific metrics. The scrape handler
// is mounted by the HTTP service at /metrics.
//
// # Architecture
//
// The package follows a two-layer design:
//
//  1. Core Metrics: gateway-level metrics automatically registered (Metrics type)
//  2. Component Registry: extensible registration for component-specific
//     metrics (MetricsRegistrar interface)
//
// This separates infrastructure concerns (core metrics) from component
// concerns (sink queue depth, websocket client counts) while keeping a
// single registry behind one scrape endpoint.
//
// # Basic Usage
//
// Setting up metrics collection:
//
//	registry := metric.NewMetricsRegistry()
//	mux.Handle("/metrics", registry.Handler())
//
//	// Record core gateway metrics
//	core := registry.CoreMetrics()
//	core.RecordMessageReceived("sensor1")
//	core.RecordValidated("sensor1")
//	core.RecordViolation("sensor2", "out_of_range")
//
// # Core Metrics
//
// The registry automatically registers:
//
//   - valgate_messages_received_total{source}
//   - valgate_messages_processed_total{status,source,error_type}
//   - valgate_publish_errors_total{topic_kind}
//   - valgate_processing_duration_seconds{source}
//   - valgate_reloads_total{result}
//   - valgate_component_status{component}
//   - valgate_health_status{component}
//   - valgate_connection_status
//   - valgate_nats_rtt_milliseconds, valgate_nats_reconnects_total,
//     valgate_nats_circuit_breaker
//
// The processed counter keeps the historical label semantics: an accepted
// message increments {status="validated", error_type="none"} exactly once,
// while a rejected message increments {status="failed", error_type=<kind>}
// once per violation. Summing over error_type therefore counts violations,
// not messages; use status="validated" for message-level acceptance rates.
//
// # Component-Specific Metrics
//
// Components register custom metrics through the MetricsRegistrar
// interface:
//
//	clients := prometheus.NewGauge(prometheus.GaugeOpts{
//	    Namespace: "valgate",
//	    Subsystem: "notify",
//	    Name:      "clients",
//	    Help:      "Connected websocket clients",
//	})
//	err := registry.RegisterGauge("notify", "clients", clients)
//
// Registration is tracked per service/metric pair, so duplicate
// registrations are rejected before Prometheus sees them, and components
// can unregister their metrics on shutdown.
//
// # Runtime Metrics
//
// Go runtime and process collectors are registered automatically, so the
// scrape output includes go_goroutines, process_resident_memory_bytes, and
// friends without further setup.
package metric
