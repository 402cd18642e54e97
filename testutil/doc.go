// Package testutil provides test doubles and canned documents for the
// validation gateway's test suites.
//
// # Components
//
// FakeTransport — an in-memory broker connection:
//   - One subscription per subject, duplicates rejected, mirroring the
//     real client's semantics
//   - Records every published message for inspection
//   - Deliver injects an inbound message and runs the handler
//     synchronously, so assertions work immediately afterwards
//   - Injectable subscribe/unsubscribe/publish errors
//
// FakeDialer — hands out FakeTransports and remembers every dial, so a
// test can reach the connection an engine holds, or make the next dial
// fail to exercise broker-change error paths.
//
// Canned documents — TelemetryContract, SensorMapping, MappingDoc, and
// matching ValidReading/InvalidReading payloads give every suite the
// same small sensor vocabulary instead of each test inventing its own.
//
// # Thread safety
//
// Both fakes are safe for concurrent use. FakeTransport calls handlers
// outside its lock, so a handler may publish or resubscribe without
// deadlocking — the same discipline the real client follows.
//
// # Fakes versus a real broker
//
// Use FakeTransport for unit tests of routing and reload logic, where
// the interesting behavior is the gateway's and the broker is just a
// message source. Integration tests that care about real delivery,
// JetStream, or reconnects should use natsclient.NewTestClient, which
// runs an actual server via testcontainers; those tests carry a
// testing.Short guard.
package testutil
