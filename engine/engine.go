package engine

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/mapping"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/metric"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/natsclient"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/sink"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/validate"
)

// Transport is the slice of the NATS client the engine drives. Dialed
// transports arrive connected; reconnect handling lives inside the
// implementation, the engine only subscribes, publishes, and closes.
type Transport interface {
	Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error
	Unsubscribe(subject string) error
	Subjects() []string
	Publish(ctx context.Context, subject string, data []byte) error
	GetStatus() *natsclient.Status
	Close(ctx context.Context) error
}

// DialFunc connects to a broker URL and returns a ready transport. The
// engine dials on startup and again whenever a reload changes the
// broker; a dial failure fails the reload and the engine keeps its
// current connection.
type DialFunc func(ctx context.Context, url string) (Transport, error)

// OutcomeSink receives one record per processed message. Submit must
// never block; the engine ignores its error beyond debug logging
// because shed records are already counted by the sink itself.
type OutcomeSink interface {
	Submit(rec sink.Record) error
}

// discardSink keeps the engine total when no sink is configured.
type discardSink struct{}

func (discardSink) Submit(sink.Record) error { return nil }

// applyRequest is the single command kind the engine worker accepts.
// ctx is the requester's: if it is already dead when the worker picks
// the request up, the swap is skipped so a timed-out reload cannot
// apply behind its caller's back.
type applyRequest struct {
	ctx  context.Context
	snap *Snapshot
	done chan error
}

// Config assembles an Engine. Dial is required; everything else
// defaults.
type Config struct {
	Dial     DialFunc
	Sink     OutcomeSink
	Registry *metric.MetricsRegistry
	Logger   *slog.Logger
}

// Engine owns the live routing state: one transport, one immutable
// configuration snapshot behind an atomic pointer, and one worker
// goroutine that is the only code allowed to change either. Message
// handlers run on the transport's delivery goroutines and share nothing
// with the worker but the snapshot pointer.
type Engine struct {
	dial    DialFunc
	sink    OutcomeSink
	metrics *metric.Metrics
	logger  *slog.Logger

	snapshot atomic.Pointer[Snapshot]
	commands chan applyRequest

	transportMu sync.RWMutex
	transport   Transport

	started atomic.Bool
	stopped atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Status is a point-in-time summary for the status API.
type Status struct {
	Connection *natsclient.Status `json:"connection,omitempty"`
	SnapshotID string             `json:"snapshot_id,omitempty"`
	BuiltAt    time.Time          `json:"built_at,omitempty"`
	Broker     string             `json:"broker,omitempty"`
	Sources    int                `json:"sources"`
	Contracts  int                `json:"contracts"`
	Subjects   []string           `json:"subjects,omitempty"`
}

// New builds an engine. No connection is made until the first Apply
// delivers a snapshot naming a broker.
func New(cfg Config) (*Engine, error) {
	if cfg.Dial == nil {
		return nil, errors.WrapInvalid(
			stderrors.New("dial function is required"),
			"engine", "New", "validate configuration")
	}
	if cfg.Sink == nil {
		cfg.Sink = discardSink{}
	}
	if cfg.Registry == nil {
		cfg.Registry = metric.NewMetricsRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Engine{
		dial:     cfg.Dial,
		sink:     cfg.Sink,
		metrics:  cfg.Registry.CoreMetrics(),
		logger:   cfg.Logger,
		commands: make(chan applyRequest),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start launches the engine worker. The context bounds the worker's
// lifetime; cancelling it is equivalent to Stop without the drain.
func (e *Engine) Start(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return errors.ErrAlreadyStarted
	}
	go e.run(ctx)
	e.metrics.RecordComponentStatus("engine", 1)
	e.logger.Info("routing engine started")
	return nil
}

// Stop shuts the worker down and drains the transport. Safe to call
// once started; repeated calls are no-ops.
func (e *Engine) Stop(ctx context.Context) error {
	if !e.started.Load() {
		return errors.ErrNotStarted
	}
	if !e.stopped.CompareAndSwap(false, true) {
		return nil
	}

	close(e.stopCh)
	<-e.doneCh

	var err error
	if t := e.getTransport(); t != nil {
		err = t.Close(ctx)
	}
	e.metrics.RecordComponentStatus("engine", 0)
	e.logger.Info("routing engine stopped")
	return err
}

// Apply hands a snapshot to the engine worker and waits for the swap to
// complete. The context is the caller's patience: on expiry the apply
// is reported failed and the engine keeps whichever snapshot it had.
// One snapshot is applied at a time; callers serialize on the worker.
func (e *Engine) Apply(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return errors.WrapInvalid(
			stderrors.New("nil snapshot"),
			"engine", "Apply", "validate snapshot")
	}
	if !e.started.Load() {
		return errors.ErrNotStarted
	}

	req := applyRequest{ctx: ctx, snap: snap, done: make(chan error, 1)}

	select {
	case e.commands <- req:
	case <-e.doneCh:
		return errors.ErrAlreadyStopped
	case <-ctx.Done():
		return errors.WrapTransient(ctx.Err(), "engine", "Apply", "submit snapshot to worker")
	}

	select {
	case err := <-req.done:
		return err
	case <-e.doneCh:
		return errors.ErrAlreadyStopped
	case <-ctx.Done():
		return errors.WrapTransient(ctx.Err(), "engine", "Apply", "await snapshot swap")
	}
}

// CurrentSnapshot returns the active snapshot, nil before the first
// successful Apply.
func (e *Engine) CurrentSnapshot() *Snapshot {
	return e.snapshot.Load()
}

// Status reports the engine's current connection and snapshot state.
func (e *Engine) Status() Status {
	st := Status{}
	if t := e.getTransport(); t != nil {
		st.Connection = t.GetStatus()
	}
	if snap := e.snapshot.Load(); snap != nil {
		st.SnapshotID = snap.ID()
		st.BuiltAt = snap.BuiltAt()
		st.Broker = snap.Broker().URL
		st.Sources = snap.Sources()
		st.Contracts = snap.Contracts()
		st.Subjects = snap.Subjects()
	}
	return st
}

// run is the engine worker: the sole goroutine that touches the
// transport and swaps the snapshot pointer, so snapshot application
// needs no locks against itself.
func (e *Engine) run(ctx context.Context) {
	defer close(e.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case req := <-e.commands:
			if err := req.ctx.Err(); err != nil {
				// The requester gave up while queued; applying now
				// would swap a snapshot its caller believes failed.
				req.done <- errors.WrapTransient(err, "engine", "apply", "request expired before swap")
				continue
			}
			req.done <- e.apply(ctx, req.snap)
		}
	}
}

// apply installs a snapshot. A changed broker URL forces a fresh
// connection carrying the whole subscription set; otherwise only the
// diff is touched: unsubscribe the subjects the new snapshot dropped,
// swap the pointer, subscribe the subjects it added. Shared subjects
// keep their subscriptions, so traffic on them never sees a gap.
//
// The diff runs against the transport's live subscription set rather
// than the outgoing snapshot's subject list. The two normally agree,
// but after a partly failed swap they do not, and diffing live state
// means re-applying the same document subscribes whatever is missing.
func (e *Engine) apply(ctx context.Context, snap *Snapshot) error {
	old := e.snapshot.Load()
	if old == nil || old.Broker().URL != snap.Broker().URL {
		return e.applyBrokerChange(ctx, snap)
	}

	t := e.getTransport()
	added, removed := mapping.DiffSubjects(t.Subjects(), snap.Subjects())

	for _, subject := range removed {
		if err := t.Unsubscribe(subject); err != nil && !stderrors.Is(err, natsclient.ErrNotSubscribed) {
			e.logger.Warn("unsubscribe failed during snapshot swap",
				"subject", subject, "error", err)
		}
	}

	e.snapshot.Store(snap)

	if err := e.subscribeAll(ctx, t, added); err != nil {
		return err
	}

	e.logger.Info("snapshot applied",
		"snapshot", snap.ID(),
		"sources", snap.Sources(),
		"subscribed", len(added),
		"unsubscribed", len(removed))
	return nil
}

// applyBrokerChange moves the engine to a new broker: dial first, so a
// failed dial leaves the old connection and snapshot fully live, then
// close the old transport, swap, and subscribe the new snapshot's
// entire subject set.
func (e *Engine) applyBrokerChange(ctx context.Context, snap *Snapshot) error {
	t, err := e.dial(ctx, snap.Broker().URL)
	if err != nil {
		return errors.WrapTransient(err, "engine", "apply", "dial broker")
	}

	if old := e.getTransport(); old != nil {
		if cerr := old.Close(ctx); cerr != nil {
			e.logger.Warn("closing previous broker connection failed", "error", cerr)
		}
	}

	e.setTransport(t)
	e.snapshot.Store(snap)

	if err := e.subscribeAll(ctx, t, snap.Subjects()); err != nil {
		return err
	}

	e.logger.Info("snapshot applied on new broker",
		"snapshot", snap.ID(),
		"broker", snap.Broker().URL,
		"sources", snap.Sources())
	return nil
}

// subscribeAll subscribes each subject, collecting failures so a partly
// subscribed swap is reported as a failed reload rather than silently
// running with holes.
func (e *Engine) subscribeAll(ctx context.Context, t Transport, subjects []string) error {
	var errs []error
	for _, subject := range subjects {
		if err := e.subscribe(ctx, t, subject); err != nil {
			errs = append(errs, err)
			e.logger.Error("subscribe failed during snapshot swap",
				"subject", subject, "error", err)
		}
	}
	if len(errs) > 0 {
		return errors.WrapTransient(
			stderrors.Join(errs...),
			"engine", "apply", "subscribe snapshot subjects")
	}
	return nil
}

// subscribe registers the message handler for one subject. The handler
// closes over the transport it was subscribed on: a message delivered
// by the old connection during a broker change publishes through that
// same connection, never through a transport it did not arrive on.
func (e *Engine) subscribe(ctx context.Context, t Transport, subject string) error {
	return t.Subscribe(ctx, subject, func(mctx context.Context, data []byte) {
		e.handleMessage(mctx, t, subject, data)
	})
}

// handleMessage is the hot path. It reads one consistent snapshot for
// the whole message, judges the payload, publishes the outcome, and
// only then forwards to sink and metrics: observers of the accept and
// reject subjects are never behind the archive, and sink trouble never
// delays routing.
func (e *Engine) handleMessage(ctx context.Context, t Transport, subject string, raw []byte) {
	start := time.Now()

	snap := e.snapshot.Load()
	if snap == nil {
		return
	}
	route, ok := snap.Route(subject)
	if !ok {
		// Subscriptions derive from the snapshot, so this means a
		// message raced a swap that dropped its subject. Drop it.
		e.logger.Warn("message on unmapped subject dropped", "subject", subject)
		return
	}

	e.metrics.RecordMessageReceived(route.Source)

	outcome := validate.Validate(route.Contract, raw)

	var report []byte
	if outcome.Valid {
		if err := t.Publish(ctx, route.Accept, raw); err != nil {
			e.metrics.RecordPublishError("accept")
			e.logger.Error("accept publish failed",
				"subject", route.Accept, "source", route.Source, "error", err)
		}
	} else {
		doc := validate.NewRejectReport(route.Source, raw, outcome.Violations, time.Now())
		var err error
		report, err = json.Marshal(doc)
		if err != nil {
			e.logger.Error("reject report marshal failed",
				"source", route.Source, "error", err)
		} else if err := t.Publish(ctx, route.Reject, report); err != nil {
			e.metrics.RecordPublishError("reject")
			e.logger.Error("reject publish failed",
				"subject", route.Reject, "source", route.Source, "error", err)
		}
	}

	e.forward(route, outcome, report)
	e.metrics.RecordProcessingDuration(route.Source, time.Since(start))
}

// forward hands the outcome to metrics and the sink. Accepted messages
// count once; rejected messages count once per violation so the
// error_type breakdown stays proportional to the failure mix. Sink
// submission is fire-and-forget: a full queue is the sink's problem and
// its counters already saw the drop.
func (e *Engine) forward(route Route, outcome validate.Outcome, report []byte) {
	var rec sink.Record
	if outcome.Valid {
		e.metrics.RecordValidated(route.Source)
		rec = sink.NewValidatedRecord(route.Source, outcome.Fields)
	} else {
		for _, v := range outcome.Violations {
			e.metrics.RecordViolation(route.Source, v.Kind)
		}
		rec = sink.NewFailedRecord(route.Source, outcome.Violations, report)
	}

	if err := e.sink.Submit(rec); err != nil {
		e.logger.Debug("outcome not persisted", "source", route.Source, "error", err)
	}
}

func (e *Engine) setTransport(t Transport) {
	e.transportMu.Lock()
	e.transport = t
	e.transportMu.Unlock()
}

func (e *Engine) getTransport() Transport {
	e.transportMu.RLock()
	defer e.transportMu.RUnlock()
	return e.transport
}
