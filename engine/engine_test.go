package engine

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/mapping"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/metric"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/natsclient"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/sink"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/testutil"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/validate"
)

const testBroker = "nats://localhost:4222"

// captureSink records everything the engine forwards. onSubmit, when
// set, runs inside Submit so tests can observe ordering.
type captureSink struct {
	mu       sync.Mutex
	records  []sink.Record
	onSubmit func(sink.Record)
	err      error
}

func (c *captureSink) Submit(rec sink.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.onSubmit != nil {
		c.onSubmit(rec)
	}
	if c.err != nil {
		return c.err
	}
	c.records = append(c.records, rec)
	return nil
}

func (c *captureSink) Records() []sink.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sink.Record, len(c.records))
	copy(out, c.records)
	return out
}

type testEngine struct {
	engine   *Engine
	dialer   *testutil.FakeDialer
	sink     *captureSink
	registry *metric.MetricsRegistry
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	te := &testEngine{
		dialer:   testutil.NewFakeDialer(),
		sink:     &captureSink{},
		registry: metric.NewMetricsRegistry(),
	}

	eng, err := New(Config{
		Dial: func(ctx context.Context, url string) (Transport, error) {
			ft, err := te.dialer.Dial(ctx, url)
			if err != nil {
				return nil, err
			}
			return ft, nil
		},
		Sink:     te.sink,
		Registry: te.registry,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	te.engine = eng
	return te
}

// start runs the engine and registers cleanup.
func (te *testEngine) start(t *testing.T) {
	t.Helper()
	require.NoError(t, te.engine.Start(context.Background()))
	t.Cleanup(func() {
		_ = te.engine.Stop(context.Background())
	})
}

func (te *testEngine) apply(t *testing.T, doc mapping.Document) *Snapshot {
	t.Helper()
	snap, err := BuildSnapshot(doc, testutil.ContractSet())
	require.NoError(t, err)
	require.NoError(t, te.engine.Apply(context.Background(), snap))
	return snap
}

func (te *testEngine) processed(status, source, errorType string) float64 {
	return promtestutil.ToFloat64(
		te.registry.CoreMetrics().MessagesProcessed.WithLabelValues(status, source, errorType))
}

func TestNew_RequiresDial(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestEngine_Lifecycle(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	snap, err := BuildSnapshot(testutil.MappingDoc(testBroker, "s1"), testutil.ContractSet())
	require.NoError(t, err)

	assert.ErrorIs(t, te.engine.Apply(ctx, snap), errors.ErrNotStarted)
	assert.ErrorIs(t, te.engine.Stop(ctx), errors.ErrNotStarted)

	require.NoError(t, te.engine.Start(ctx))
	assert.ErrorIs(t, te.engine.Start(ctx), errors.ErrAlreadyStarted)

	require.NoError(t, te.engine.Apply(ctx, snap))

	require.NoError(t, te.engine.Stop(ctx))
	assert.NoError(t, te.engine.Stop(ctx), "repeated stop is a no-op")

	err = te.engine.Apply(ctx, snap)
	assert.ErrorIs(t, err, errors.ErrAlreadyStopped)
}

func TestEngine_ApplyFirstSnapshot(t *testing.T) {
	te := newTestEngine(t)
	te.start(t)

	snap := te.apply(t, testutil.MappingDoc(testBroker, "s1", "s2"))

	require.Equal(t, 1, te.dialer.DialCount())
	assert.Equal(t, []string{testBroker}, te.dialer.DialedURLs())

	ft := te.dialer.Last()
	assert.Equal(t, []string{"sensors.s1.raw", "sensors.s2.raw"}, ft.Subjects())
	assert.Same(t, snap, te.engine.CurrentSnapshot())

	st := te.engine.Status()
	require.NotNil(t, st.Connection)
	assert.Equal(t, natsclient.StatusConnected, st.Connection.Status)
	assert.Equal(t, snap.ID(), st.SnapshotID)
	assert.Equal(t, testBroker, st.Broker)
	assert.Equal(t, 2, st.Sources)
	assert.Equal(t, 1, st.Contracts)
}

func TestEngine_StatusBeforeApply(t *testing.T) {
	te := newTestEngine(t)
	te.start(t)

	st := te.engine.Status()
	assert.Nil(t, st.Connection)
	assert.Empty(t, st.SnapshotID)
	assert.Zero(t, st.Sources)
	assert.Nil(t, te.engine.CurrentSnapshot())
}

func TestEngine_AcceptPath(t *testing.T) {
	te := newTestEngine(t)
	te.start(t)
	te.apply(t, testutil.MappingDoc(testBroker, "s1"))

	ft := te.dialer.Last()
	raw := testutil.ValidReading("sensor-1")
	require.NoError(t, ft.Deliver(context.Background(), "sensors.s1.raw", raw))

	accepted := ft.PublishedOn("sensors.s1.validated")
	require.Len(t, accepted, 1)
	assert.Equal(t, raw, accepted[0], "accepted payloads are republished verbatim")
	assert.Empty(t, ft.PublishedOn("sensors.s1.failed"))

	recs := te.sink.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, sink.StatusValidated, recs[0].Status)
	assert.Equal(t, "s1", recs[0].Source)
	assert.Equal(t, "sensor-1", recs[0].Fields["sensor_id"])

	received := promtestutil.ToFloat64(
		te.registry.CoreMetrics().MessagesReceived.WithLabelValues("s1"))
	assert.Equal(t, 1.0, received)
	assert.Equal(t, 1.0, te.processed(metric.StatusValidated, "s1", metric.ErrorTypeNone))
}

func TestEngine_RejectPath(t *testing.T) {
	te := newTestEngine(t)
	te.start(t)
	te.apply(t, testutil.MappingDoc(testBroker, "s1"))

	ft := te.dialer.Last()
	raw := testutil.InvalidReading("sensor-1")
	require.NoError(t, ft.Deliver(context.Background(), "sensors.s1.raw", raw))

	assert.Empty(t, ft.PublishedOn("sensors.s1.validated"))
	rejected := ft.PublishedOn("sensors.s1.failed")
	require.Len(t, rejected, 1)

	var report validate.RejectReport
	require.NoError(t, json.Unmarshal(rejected[0], &report))
	assert.Equal(t, "s1", report.Source)
	assert.NotEmpty(t, report.Timestamp)
	assert.JSONEq(t, string(raw), string(report.Original))
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "temperature", report.Errors[0].Field)
	assert.Equal(t, validate.KindOutOfRange, report.Errors[0].ErrorType)

	recs := te.sink.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, sink.StatusFailed, recs[0].Status)
	require.Len(t, recs[0].Violations, 1)
	assert.Equal(t, rejected[0], []byte(recs[0].Report),
		"the archived report matches the published one")

	assert.Equal(t, 1.0, te.processed(metric.StatusFailed, "s1", validate.KindOutOfRange))
	assert.Zero(t, te.processed(metric.StatusValidated, "s1", metric.ErrorTypeNone))
}

func TestEngine_RejectPath_BadFormat(t *testing.T) {
	te := newTestEngine(t)
	te.start(t)
	te.apply(t, testutil.MappingDoc(testBroker, "s1"))

	ft := te.dialer.Last()
	require.NoError(t, ft.Deliver(context.Background(), "sensors.s1.raw", []byte("not json")))

	rejected := ft.PublishedOn("sensors.s1.failed")
	require.Len(t, rejected, 1)

	var report validate.RejectReport
	require.NoError(t, json.Unmarshal(rejected[0], &report))
	require.Len(t, report.Errors, 1)
	assert.Equal(t, validate.KindBadFormat, report.Errors[0].ErrorType)
	assert.Equal(t, "payload", report.Errors[0].Field)

	assert.Equal(t, 1.0, te.processed(metric.StatusFailed, "s1", validate.KindBadFormat))
}

func TestEngine_PassThroughRoute(t *testing.T) {
	te := newTestEngine(t)
	te.start(t)

	doc := mapping.Document{
		Broker: mapping.BrokerConfig{URL: testBroker},
		Mappings: []mapping.Mapping{{
			Source:  "relay",
			Inbound: "relay.raw",
			Accept:  "relay.validated",
			Reject:  "relay.failed",
		}},
	}
	snap, err := BuildSnapshot(doc, nil)
	require.NoError(t, err)
	require.NoError(t, te.engine.Apply(context.Background(), snap))

	ft := te.dialer.Last()
	raw := []byte(`{"anything": "goes", "n": 3}`)
	require.NoError(t, ft.Deliver(context.Background(), "relay.raw", raw))
	assert.Len(t, ft.PublishedOn("relay.validated"), 1)

	require.NoError(t, ft.Deliver(context.Background(), "relay.raw", []byte("still not json")))
	assert.Len(t, ft.PublishedOn("relay.failed"), 1,
		"pass-through still requires a decodable payload")
}

func TestEngine_PublishPrecedesForward(t *testing.T) {
	te := newTestEngine(t)
	te.start(t)
	te.apply(t, testutil.MappingDoc(testBroker, "s1"))

	ft := te.dialer.Last()
	var publishedAtSubmit int
	te.sink.onSubmit = func(sink.Record) {
		publishedAtSubmit = ft.PublishCount("sensors.s1.validated")
	}

	require.NoError(t, ft.Deliver(context.Background(), "sensors.s1.raw", testutil.ValidReading("sensor-1")))
	assert.Equal(t, 1, publishedAtSubmit,
		"outcome publish happens before the sink sees the record")
}

func TestEngine_PublishFailureCountedAndForwarded(t *testing.T) {
	te := newTestEngine(t)
	te.start(t)
	te.apply(t, testutil.MappingDoc(testBroker, "s1"))

	ft := te.dialer.Last()
	ft.SetPublishError(stderrors.New("broker hiccup"))

	require.NoError(t, ft.Deliver(context.Background(), "sensors.s1.raw", testutil.ValidReading("sensor-1")))
	require.NoError(t, ft.Deliver(context.Background(), "sensors.s1.raw", testutil.InvalidReading("sensor-1")))

	m := te.registry.CoreMetrics()
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.PublishErrors.WithLabelValues("accept")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.PublishErrors.WithLabelValues("reject")))

	assert.Len(t, te.sink.Records(), 2,
		"outcomes still reach the sink when the publish fails")
}

func TestEngine_SinkErrorDoesNotStopRouting(t *testing.T) {
	te := newTestEngine(t)
	te.sink.err = stderrors.New("queue full")
	te.start(t)
	te.apply(t, testutil.MappingDoc(testBroker, "s1"))

	ft := te.dialer.Last()
	require.NoError(t, ft.Deliver(context.Background(), "sensors.s1.raw", testutil.ValidReading("sensor-1")))
	assert.Len(t, ft.PublishedOn("sensors.s1.validated"), 1)
}

func TestEngine_UnmappedSubjectDropped(t *testing.T) {
	te := newTestEngine(t)
	te.start(t)
	te.apply(t, testutil.MappingDoc(testBroker, "s1"))

	ft := te.dialer.Last()

	// A subscription whose subject the snapshot no longer routes, as
	// happens to a message racing a swap.
	require.NoError(t, te.engine.subscribe(context.Background(), ft, "sensors.ghost.raw"))
	require.NoError(t, ft.Deliver(context.Background(), "sensors.ghost.raw", testutil.ValidReading("sensor-9")))

	assert.Empty(t, ft.Published())
	assert.Empty(t, te.sink.Records())
	received := promtestutil.ToFloat64(
		te.registry.CoreMetrics().MessagesReceived.WithLabelValues("ghost"))
	assert.Zero(t, received)
}

func TestEngine_ApplyDiffsSubscriptions(t *testing.T) {
	te := newTestEngine(t)
	te.start(t)
	te.apply(t, testutil.MappingDoc(testBroker, "s1", "s2"))

	ft := te.dialer.Last()
	te.apply(t, testutil.MappingDoc(testBroker, "s2", "s3"))

	assert.Equal(t, 1, te.dialer.DialCount(), "same broker keeps the connection")
	assert.Equal(t, []string{"sensors.s2.raw", "sensors.s3.raw"}, ft.Subjects())

	ctx := context.Background()
	assert.ErrorIs(t, ft.Deliver(ctx, "sensors.s1.raw", testutil.ValidReading("sensor-1")),
		natsclient.ErrNotSubscribed, "dropped subject is unsubscribed")

	require.NoError(t, ft.Deliver(ctx, "sensors.s2.raw", testutil.ValidReading("sensor-2")))
	assert.Len(t, ft.PublishedOn("sensors.s2.validated"), 1, "shared subject keeps flowing")

	require.NoError(t, ft.Deliver(ctx, "sensors.s3.raw", testutil.ValidReading("sensor-3")))
	assert.Len(t, ft.PublishedOn("sensors.s3.validated"), 1, "added subject is live")
}

func TestEngine_ApplyBrokerChange(t *testing.T) {
	te := newTestEngine(t)
	te.start(t)
	snap1 := te.apply(t, testutil.MappingDoc(testBroker, "s1", "s2"))

	first := te.dialer.Last()
	snap2 := te.apply(t, testutil.MappingDoc("nats://other:4222", "s1", "s3"))

	require.Equal(t, 2, te.dialer.DialCount())
	assert.True(t, first.Closed(), "old connection is closed after the move")

	second := te.dialer.Last()
	assert.Equal(t, []string{"sensors.s1.raw", "sensors.s3.raw"}, second.Subjects(),
		"new connection carries the whole subject set")
	assert.Same(t, snap2, te.engine.CurrentSnapshot())
	assert.NotEqual(t, snap1.ID(), snap2.ID())
}

func TestEngine_BrokerDialFailureKeepsOldState(t *testing.T) {
	te := newTestEngine(t)
	te.start(t)
	snap1 := te.apply(t, testutil.MappingDoc(testBroker, "s1"))

	ft := te.dialer.Last()
	te.dialer.SetDialError(stderrors.New("connection refused"))

	snap2, err := BuildSnapshot(testutil.MappingDoc("nats://other:4222", "s1"), testutil.ContractSet())
	require.NoError(t, err)
	err = te.engine.Apply(context.Background(), snap2)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))

	assert.Same(t, snap1, te.engine.CurrentSnapshot(), "failed dial leaves the old snapshot live")
	assert.False(t, ft.Closed(), "old connection stays open")

	require.NoError(t, ft.Deliver(context.Background(), "sensors.s1.raw", testutil.ValidReading("sensor-1")))
	assert.Len(t, ft.PublishedOn("sensors.s1.validated"), 1, "routing continues on the old snapshot")
}

func TestEngine_SubscribeFailureRecoversOnReapply(t *testing.T) {
	te := newTestEngine(t)
	te.start(t)
	te.apply(t, testutil.MappingDoc(testBroker, "s1"))

	ft := te.dialer.Last()
	ft.SetSubscribeError(stderrors.New("subscription limit"))

	snap2, err := BuildSnapshot(testutil.MappingDoc(testBroker, "s1", "s2"), testutil.ContractSet())
	require.NoError(t, err)
	err = te.engine.Apply(context.Background(), snap2)
	require.Error(t, err, "a partly subscribed swap is reported failed")
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, []string{"sensors.s1.raw"}, ft.Subjects())

	// The next apply diffs against the live subscription set, so the
	// missing subject is picked up once subscribing works again.
	ft.SetSubscribeError(nil)
	snap3, err := BuildSnapshot(testutil.MappingDoc(testBroker, "s1", "s2"), testutil.ContractSet())
	require.NoError(t, err)
	require.NoError(t, te.engine.Apply(context.Background(), snap3))
	assert.Equal(t, []string{"sensors.s1.raw", "sensors.s2.raw"}, ft.Subjects())
}

func TestEngine_ApplyNilSnapshot(t *testing.T) {
	te := newTestEngine(t)
	te.start(t)

	err := te.engine.Apply(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestEngine_ApplyExpiredContext(t *testing.T) {
	te := newTestEngine(t)
	te.start(t)
	snap1 := te.apply(t, testutil.MappingDoc(testBroker, "s1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap2, err := BuildSnapshot(testutil.MappingDoc(testBroker, "s1", "s2"), testutil.ContractSet())
	require.NoError(t, err)
	err = te.engine.Apply(ctx, snap2)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))

	assert.Same(t, snap1, te.engine.CurrentSnapshot(),
		"an expired request never swaps behind its caller's back")
}

func TestEngine_StopClosesTransport(t *testing.T) {
	te := newTestEngine(t)
	require.NoError(t, te.engine.Start(context.Background()))
	te.apply(t, testutil.MappingDoc(testBroker, "s1"))

	ft := te.dialer.Last()
	require.NoError(t, te.engine.Stop(context.Background()))
	assert.True(t, ft.Closed())

	status := promtestutil.ToFloat64(
		te.registry.CoreMetrics().ComponentStatus.WithLabelValues("engine"))
	assert.Zero(t, status)
}

func TestEngine_ConcurrentDeliveryDuringApply(t *testing.T) {
	te := newTestEngine(t)
	te.start(t)
	te.apply(t, testutil.MappingDoc(testBroker, "s1"))

	ft := te.dialer.Last()
	ctx := context.Background()

	// Hammer the shared subject while snapshots swap underneath it.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_ = ft.Deliver(ctx, "sensors.s1.raw", testutil.ValidReading("sensor-1"))
		}
	}()

	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			te.apply(t, testutil.MappingDoc(testBroker, "s1", "s2"))
		} else {
			te.apply(t, testutil.MappingDoc(testBroker, "s1"))
		}
	}
	<-done

	assert.Equal(t, 50, ft.PublishCount("sensors.s1.validated"),
		"a subject present in every snapshot never drops a message")
}
