// Package health provides thread-safe health status tracking and aggregation
// for the gateway and its sub-components.
//
// # Health States
//
// The package supports three health states:
//   - Healthy: component operating normally
//   - Degraded: component operating with reduced capacity
//   - Unhealthy: component not functioning
//
// Degraded sits between the other two so transient conditions (a broker
// reconnect in progress, a recorder queue close to capacity) surface on the
// health endpoint without flipping the whole gateway to unhealthy.
//
// # Core Pieces
//
// Status is an immutable value describing one component: state, message,
// timestamp, optional metrics, optional sub-statuses. Monitor is a
// thread-safe registry of the latest Status per component name.
//
// Converters build Status values from the gateway's own runtime types:
//
//	broker := health.FromConnectionStatus("broker", transport.GetStatus())
//	queue := health.FromQueueStats("recorder", sink.Stats())
//	parse := health.FromError("config", err)
//
// A periodic collector feeds these into a Monitor, and the HTTP health
// endpoint serves the roll-up:
//
//	monitor.Update("broker", broker)
//	monitor.Update("recorder", queue)
//	overall := monitor.AggregateHealth("gateway")
//
// Aggregation uses worst-case rules: any unhealthy sub-component makes the
// system unhealthy; otherwise any degraded sub-component makes it degraded.
//
// # Sanitization
//
// Messages built from errors are sanitized before exposure. Broker errors can
// echo the connection URL, which may embed credentials, so URLs, file paths,
// IP addresses, ports, and credential-shaped fragments are replaced with
// placeholders ([URL], [PATH], [IP], [PORT], [REDACTED]). Sanitization is
// unconditional; there is no opt-out.
package health
