// Package sink persists processing outcomes without touching hot-path
// latency.
//
// Every message the gateway finishes judging yields a Record: validated
// records keep the decoded payload fields, failed records keep the
// violation set and the reject report verbatim. Records flow through
// Async, a bounded queue drained by a small worker pool, so the
// pipeline's only cost per message is an enqueue. When storage cannot
// keep up the queue fills and new records are shed and counted; storage
// trouble never becomes routing trouble.
//
// # Backends
//
// Open selects the backend by URL scheme:
//
//	sqlite://gateway.db        embedded database, development
//	postgres://user@host/db    shared database, production
//	jetstream://OUTCOMES       republish outcomes to a JetStream stream
//	(empty)                    disabled, records discarded
//
// The relational store writes one row per record with JSON text columns
// for the payload and report, portable across SQLite and PostgreSQL.
// The JetStream store publishes each record to
// <stream>.<status>.<source> so consumers can subscribe to exactly the
// slice they want. An empty URL yields the Nop writer: the pipeline
// runs unchanged with persistence off.
//
// # Failure handling
//
// Writers classify their errors. Transient failures, an unreachable
// broker or database, are retried a bounded number of times with
// backoff; anything else fails the record immediately. A record that
// exhausts its retries is dropped and counted by the pool's failure
// metrics. Persistence is best-effort by contract: the accept and
// reject topics are the system of record, the sink is the archive.
package sink
