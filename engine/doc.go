// Package engine routes inbound telemetry through contract validation
// to accept/reject subjects, and swaps configuration snapshots into the
// live pipeline without dropping shared subscriptions.
//
// # Overview
//
// The engine is the junction of the system's two flows. The data flow:
// a message arrives on an inbound subject, the active snapshot resolves
// it to a source and a compiled contract, the validator judges it, and
// the original payload (accepted) or a violation report (rejected) is
// published onward; the outcome then feeds the persistence sink and the
// metrics counters. The control flow: the Reloader compiles edited
// configuration documents into a new immutable Snapshot and asks the
// engine to swap it in.
//
// # Architecture
//
//	                  ┌────────────┐
//	 inbound subjects │   NATS     │ accept/reject subjects
//	        ┌────────>│ transport  │<────────┐
//	        │         └─────┬──────┘         │
//	        │               │ deliver        │ publish
//	        │         ┌─────▼──────┐         │
//	        │         │  Engine    │─────────┘
//	        │         │ handleMsg  │──────────> sink + metrics
//	        │         └─────▲──────┘  forward
//	        │               │ Apply(snapshot)
//	        │         ┌─────┴──────┐
//	        └─────────│  Reloader  │<── mapping + contract documents
//	          derive  └────────────┘
//
// # Snapshot discipline
//
// All routing state lives in one immutable Snapshot behind an atomic
// pointer. Message handlers load the pointer once per message and use
// that snapshot throughout, so a message is never judged against a mix
// of old and new configuration. Reloads build a complete replacement
// off the hot path and the engine worker swaps the pointer; nothing is
// ever mutated in place.
//
// A dedicated worker goroutine is the only code that subscribes,
// unsubscribes, or replaces the transport. Apply hands it a snapshot as
// a single command and waits; the swap is diffed, not wholesale:
//
//  1. Unsubscribe subjects the new snapshot dropped.
//  2. Swap the snapshot pointer.
//  3. Subscribe subjects the new snapshot added.
//
// Subjects present in both snapshots are never touched, so their
// traffic flows through the reload with zero gap. A changed broker URL
// is the exception: the engine dials the new broker first (a failed
// dial fails the reload with the old connection intact), then moves the
// whole subscription set.
//
// # Hot path guarantees
//
// Per message, in order: resolve route, validate, publish outcome,
// forward to sink/metrics. The publish happens before the forward, so
// dashboards watching the accept/reject subjects are never staler than
// the archive. Sink submission never blocks: the sink queue sheds and
// counts when full. Per-source ordering follows from NATS delivering
// each subscription's messages serially.
//
// # Error handling
//
// Configuration errors never reach the engine; BuildSnapshot rejects
// them synchronously on the reloader's caller. Validation violations
// are data and travel the reject path. Transport publish failures are
// counted and logged, never fatal. Reload outcomes are counted as
// applied, rejected (bad configuration), or failed (swap did not
// complete; the previous snapshot stays live).
//
// # Example
//
//	eng, _ := engine.New(engine.Config{
//		Dial: func(ctx context.Context, url string) (engine.Transport, error) {
//			c, err := natsclient.NewClient(url)
//			if err != nil {
//				return nil, err
//			}
//			return c, c.Connect(ctx)
//		},
//		Sink:     asyncSink,
//		Registry: registry,
//		Logger:   logger,
//	})
//	_ = eng.Start(ctx)
//
//	rel, _ := engine.NewReloader(engine.ReloaderConfig{Engine: eng, Notifier: hub})
//	snap, err := rel.Reload(ctx, mappingDoc, contractDocs)
package engine
