package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/mapping"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/metric"
)

// defaultApplyTimeout caps how long a reload waits for the engine
// worker to acknowledge the swap before reporting failure.
const defaultApplyTimeout = 10 * time.Second

// Notifier is told that a new configuration is live. The broadcast is
// content-free: observers re-fetch whatever state they care about.
type Notifier interface {
	Broadcast()
}

// ReloaderConfig assembles a Reloader. Engine is required.
type ReloaderConfig struct {
	Engine       *Engine
	Notifier     Notifier
	Registry     *metric.MetricsRegistry
	Logger       *slog.Logger
	ApplyTimeout time.Duration
}

// Reloader turns raw configuration documents into live routing state.
// Compilation runs synchronously on the caller (an API handler or
// startup), so every configuration defect is reported to whoever made
// the change; only the finished snapshot crosses to the engine worker.
// Reloads are serialized: concurrent callers queue on a mutex rather
// than racing snapshots against each other.
type Reloader struct {
	engine   *Engine
	notifier Notifier
	metrics  *metric.Metrics
	logger   *slog.Logger
	timeout  time.Duration

	mu sync.Mutex
}

// NewReloader builds a reloader bound to an engine.
func NewReloader(cfg ReloaderConfig) (*Reloader, error) {
	if cfg.Engine == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("engine is required"),
			"engine", "NewReloader", "validate configuration")
	}
	if cfg.Registry == nil {
		cfg.Registry = metric.NewMetricsRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ApplyTimeout <= 0 {
		cfg.ApplyTimeout = defaultApplyTimeout
	}

	return &Reloader{
		engine:   cfg.Engine,
		notifier: cfg.Notifier,
		metrics:  cfg.Registry.CoreMetrics(),
		logger:   cfg.Logger,
		timeout:  cfg.ApplyTimeout,
	}, nil
}

// Reload compiles the documents and swaps the result into the engine.
// Three outcomes, counted separately:
//
//   - rejected: the configuration itself is bad (malformed mapping,
//     uncompilable contract, dangling contract reference). Nothing
//     reaches the engine; the error names the defect and wraps
//     ErrReloadRejected so callers can map it to a client fault.
//   - failed: the configuration compiled but the swap did not complete
//     (engine stopped, worker timeout, broker dial failure). The engine
//     keeps its previous snapshot.
//   - applied: the snapshot is live. Observers are notified after the
//     swap, never before.
//
// On success the applied snapshot is returned so callers can report its
// identity and only then persist the documents that produced it.
func (r *Reloader) Reload(ctx context.Context, doc mapping.Document, contractDocs map[string][]byte) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()

	snap, err := BuildSnapshot(doc, contractDocs)
	if err != nil {
		r.metrics.RecordReload(metric.ReloadRejected)
		r.logger.Warn("reload rejected", "error", err)
		return nil, fmt.Errorf("%w: %w", errors.ErrReloadRejected, err)
	}

	applyCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.engine.Apply(applyCtx, snap); err != nil {
		r.metrics.RecordReload(metric.ReloadFailed)
		r.logger.Error("reload failed",
			"snapshot", snap.ID(),
			"elapsed", time.Since(start),
			"error", err)
		return nil, err
	}

	r.metrics.RecordReload(metric.ReloadApplied)
	r.logger.Info("reload applied",
		"snapshot", snap.ID(),
		"sources", snap.Sources(),
		"contracts", snap.Contracts(),
		"elapsed", time.Since(start))

	if r.notifier != nil {
		r.notifier.Broadcast()
	}
	return snap, nil
}
