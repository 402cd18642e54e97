// Package valgate is a telemetry validation gateway for NATS.
//
// Sensors publish raw JSON readings to inbound subjects. The gateway
// validates every reading against a data contract and republishes it:
// accepted payloads go byte-for-byte to an accept subject, rejected ones
// become a structured failure report on a reject subject. Contracts and
// routes are plain JSON documents, editable at runtime through an HTTP
// API; every change is compiled and applied atomically before it is
// persisted.
//
// # Architecture
//
//	┌──────────────────────────────────────┐
//	│             service                  │  HTTP API, health,
//	│  (config CRUD, status, websocket)    │  metrics, notifications
//	└──────────────────────────────────────┘
//	           ↓ stage / reload / persist
//	┌──────────────────────────────────────┐
//	│             engine                   │  subscribe, validate,
//	│   (snapshot worker + reloader)       │  route accept / reject
//	└──────────────────────────────────────┘
//	           ↓ outcomes
//	┌──────────────────────────────────────┐
//	│              sink                    │  async queue →
//	│    (sqlite / postgres / jetstream)   │  durable outcome store
//	└──────────────────────────────────────┘
//
// Configuration flows one way: the docstore holds the documents, the
// reloader compiles them into an immutable snapshot, and the engine
// worker swaps the snapshot in. A reload either fully applies or leaves
// the previous configuration running; nothing is persisted and no
// observer is notified until the swap has happened.
//
// # Packages
//
//   - contract: data-contract documents, compilation, checks
//   - validate: message decoding and per-field validation
//   - mapping: broker and topic-routing documents
//   - engine: routing engine, snapshots, reloader
//   - natsclient: NATS connection state machine
//   - sink: validation-outcome persistence
//   - notify: configuration-change WebSocket hub
//   - docstore: file-backed document storage
//   - service: HTTP API and server lifecycle
//   - metric, health, errors: operational plumbing
//
// # Getting Started
//
// Start a gateway against the shipped example configuration:
//
//	valgate --data=configs/example
//
// Generate traffic for it:
//
//	sensorsim --sensor=sensor1
//
// Then watch sensors.sensor1.validated and sensors.sensor1.failed, or
// query http://localhost:8000/api/status.
package valgate
