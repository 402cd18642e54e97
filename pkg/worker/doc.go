// Package worker provides a generic, thread-safe worker pool for concurrent task processing.
//
// # Overview
//
// The worker pool manages a fixed number of goroutines that process work
// items from a bounded channel:
//   - Generic type support for type-safe work processing
//   - Bounded queue with non-blocking submit (shed on overflow)
//   - Context-aware cancellation and graceful shutdown
//   - Always-on atomic statistics plus optional Prometheus metrics
//
// The persistence sink is the main consumer: validation outcomes are
// submitted to a pool whose workers write them out, so a slow or
// unavailable store sheds records instead of stalling message routing.
//
// # Submit Semantics
//
// Submit() uses a non-blocking send. When the queue is at capacity the
// item is dropped, the dropped counter incremented, and ErrQueueFull
// returned. Callers on hot paths treat ErrQueueFull as a backpressure
// signal, not a failure to handle inline.
//
// # Usage
//
//	type outcomeRecord struct {
//	    Source  string
//	    Payload []byte
//	}
//
//	pool := worker.NewPool[outcomeRecord](
//	    4,    // workers
//	    1024, // queue size
//	    func(ctx context.Context, rec outcomeRecord) error {
//	        return store.Write(ctx, rec)
//	    },
//	)
//
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	defer pool.Stop(5 * time.Second)
//
//	if err := pool.Submit(rec); err != nil {
//	    if errors.Is(err, worker.ErrQueueFull) {
//	        // shed: count it and move on
//	    }
//	}
//
// With Prometheus metrics:
//
//	import "github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/metric"
//
//	registry := metric.NewMetricsRegistry()
//	pool := worker.NewPool[outcomeRecord](
//	    4, 1024, writeOutcome,
//	    worker.WithMetricsRegistry[outcomeRecord](registry, "valgate_sink"),
//	)
//
//	// Metrics exposed:
//	// - valgate_sink_queue_depth
//	// - valgate_sink_utilization
//	// - valgate_sink_submitted_total
//	// - valgate_sink_processed_total
//	// - valgate_sink_failed_total
//	// - valgate_sink_dropped_total
//	// - valgate_sink_processing_duration_seconds (histogram by status)
//
// # Shutdown
//
// Stop(timeout) closes the queue, lets workers drain remaining items, and
// waits up to timeout for them to finish, returning ErrStopTimeout if they
// don't. Per-work-item timeouts belong in the processor function via the
// context.
//
// # Thread Safety
//
// All public methods are safe for concurrent use. Statistics use atomic
// operations; lifecycle transitions are serialized by an internal mutex.
// Lifecycle guarantees:
//   - Start() can only be called once
//   - Submit() fails with a sentinel error if not started or already stopped
//   - Stop() is idempotent
//   - Workers complete in-flight work before exiting
//
// # Error Handling
//
// The pool uses plain sentinel errors (ErrPoolNotStarted, ErrQueueFull,
// ErrStopTimeout, ...) because pool errors are programming errors or
// backpressure signals. Processor errors are counted in the failed
// statistic but not interpreted; retry policy lives in the processor.
//
// # Known Limitations
//
//  1. No per-work-item timeout: implement in the processor function
//  2. No priority queues: all work is FIFO
//  3. No cancellation of individual queued items
//  4. Queue depth metric has 1-second granularity (ticker-based)
//  5. Worker count is fixed at pool creation
package worker
