// Package service exposes the gateway over HTTP: configuration CRUD,
// status, health, metrics, and the configuration-change WebSocket.
//
// # Endpoints
//
//	GET  /api/broker            broker connection parameters
//	PUT  /api/broker            replace broker, reload, persist
//	GET  /api/mappings          topic mapping list
//	PUT  /api/mappings          replace mappings, reload, persist
//	GET  /api/schemas           all contract documents, keyed by name
//	POST /api/schemas           create a contract ({"name", "document"})
//	GET  /api/schemas/{name}    one contract document
//	PUT  /api/schemas/{name}    replace a contract, reload, persist
//	DEL  /api/schemas/{name}    delete a contract, clearing mapping references
//	GET  /api/status            engine + recorder runtime summary
//	GET  /healthz               health monitor roll-up (503 when unhealthy)
//	GET  /readyz                liveness probe
//	GET  /metrics               Prometheus scrape endpoint
//	GET  /ws/config-updates     WebSocket change notifications
//
// # Mutation pipeline
//
// Every mutating call runs the same all-or-nothing sequence under one
// lock: stage the complete document set in memory, reload the engine
// (compile everything, swap atomically), and persist to disk only after
// the swap succeeds. A rejected configuration returns 422 naming the
// defect and leaves both the live engine and the durable copy exactly
// as they were. Observers on /ws/config-updates hear a broadcast after
// the swap, via the reloader's notifier.
//
// Requests are pre-validated before any reload work: document names are
// sanitized, and raw contract documents are checked against the
// embedded meta-schema, so the post-swap persist step can only fail on
// I/O. That one partial-failure mode (config live, disk stale) is
// reported as a 500 naming it.
//
// Schema CRUD also works before a broker is configured: the engine has
// nothing to run yet, so staged contracts are compiled standalone and
// persisted without a reload.
package service
