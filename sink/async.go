package sink

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/metric"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/pkg/retry"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/pkg/worker"
)

const (
	defaultSinkWorkers   = 2
	defaultSinkQueueSize = 256
	defaultDrainTimeout  = 10 * time.Second

	// Pool metrics are published under this prefix, so the queue and
	// drop counters appear as valgate_sink_queue_depth,
	// valgate_sink_dropped_total and so on.
	sinkMetricsPrefix = "valgate_sink"
)

// AsyncConfig tunes the asynchronous sink. Zero values get defaults.
type AsyncConfig struct {
	// Workers is the number of concurrent writers draining the queue.
	Workers int

	// QueueSize bounds the number of records waiting to be written.
	// When the queue is full, Submit drops the record and the pool
	// counts it; the hot path never blocks on storage.
	QueueSize int

	// DrainTimeout caps how long Close waits for queued records.
	DrainTimeout time.Duration

	// Retry governs per-record write retries. Only errors classified
	// transient are retried.
	Retry retry.Config

	// Registry receives the pool's queue and throughput metrics.
	Registry *metric.MetricsRegistry

	Logger *slog.Logger
}

// Async decouples message processing from sink latency. Records are
// queued and written by a small worker pool; a slow or unavailable
// backend fills the queue and sheds new records rather than stalling
// the pipeline. Shedding is counted, never silent.
type Async struct {
	writer   Writer
	pool     *worker.Pool[Record]
	retryCfg retry.Config
	drain    time.Duration
	logger   *slog.Logger
	closed   atomic.Bool
}

// NewAsync wraps a writer with a bounded queue and worker pool. Start
// must be called before Submit.
func NewAsync(writer Writer, cfg AsyncConfig) *Async {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultSinkWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultSinkQueueSize
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}
	if cfg.Retry == (retry.Config{}) {
		cfg.Retry = retry.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	a := &Async{
		writer:   writer,
		retryCfg: cfg.Retry,
		drain:    cfg.DrainTimeout,
		logger:   cfg.Logger,
	}

	var opts []worker.Option[Record]
	if cfg.Registry != nil {
		opts = append(opts, worker.WithMetricsRegistry[Record](cfg.Registry, sinkMetricsPrefix))
	}
	a.pool = worker.NewPool(cfg.Workers, cfg.QueueSize, a.process, opts...)
	return a
}

// Start launches the sink workers. The context bounds the workers'
// lifetime: when it is cancelled, in-flight writes are abandoned.
func (a *Async) Start(ctx context.Context) error {
	return a.pool.Start(ctx)
}

// Submit queues a record for persistence. It never blocks: a full queue
// returns worker.ErrQueueFull and the record is dropped and counted.
// After Close, Submit returns ErrSinkClosed.
func (a *Async) Submit(rec Record) error {
	if a.closed.Load() {
		return errors.ErrSinkClosed
	}
	return a.pool.Submit(rec)
}

// Stats exposes the underlying pool counters for status reporting.
func (a *Async) Stats() worker.PoolStats {
	return a.pool.Stats()
}

// Close drains queued records, then closes the wrapped writer. Records
// still queued when the drain timeout expires are lost; the pool
// counters record how many were processed.
func (a *Async) Close(ctx context.Context) error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}

	stopErr := a.pool.Stop(a.drain)
	if stopErr != nil {
		a.logger.Warn("sink drain timed out, abandoning queued records", "error", stopErr)
	}

	if err := a.writer.Close(ctx); err != nil {
		return err
	}
	return stopErr
}

// process writes one record, retrying transient failures with backoff.
// Anything else, a record that cannot be marshaled for instance, fails
// on the first attempt. The returned error feeds the pool's failure
// counter.
func (a *Async) process(ctx context.Context, rec Record) error {
	err := retry.Do(ctx, a.retryCfg, func() error {
		werr := a.writer.Write(ctx, rec)
		if werr == nil || errors.IsTransient(werr) {
			return werr
		}
		return retry.NonRetryable(werr)
	})
	if err != nil {
		a.logger.Warn("sink write failed",
			"record", rec.ID,
			"source", rec.Source,
			"status", rec.Status,
			"error", err,
		)
	}
	return err
}
