package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/engine"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/metric"
)

// The reloader announces applied configurations through the hub.
var _ engine.Notifier = (*Hub)(nil)

// newTestHub returns a hub with its own metrics registry and an
// httptest server exposing it as the upgrade endpoint.
func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(Config{Metrics: metric.NewMetricsRegistry()})
	t.Cleanup(hub.Close)

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	return hub, srv
}

// dialSubscriber connects a WebSocket client to the test server.
func dialSubscriber(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// readFrame reads one frame from a client connection, failing the test
// if none arrives in time.
func readFrame(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)

	return msgType, data
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == want },
		2*time.Second, 10*time.Millisecond, "expected %d connected subscribers", want)
}

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	hub, srv := newTestHub(t)

	conns := []*websocket.Conn{
		dialSubscriber(t, srv),
		dialSubscriber(t, srv),
		dialSubscriber(t, srv),
	}
	waitForClients(t, hub, 3)

	hub.Broadcast()

	for _, conn := range conns {
		msgType, data := readFrame(t, conn)
		assert.Equal(t, websocket.TextMessage, msgType)
		assert.Equal(t, ConfigUpdated, string(data))
	}

	assert.Equal(t, float64(3), testutil.ToFloat64(hub.metrics.notificationsSent))
	assert.Equal(t, float64(3), testutil.ToFloat64(hub.metrics.clientsConnected))
	assert.Equal(t, float64(3), testutil.ToFloat64(hub.metrics.connectionsTotal))
}

func TestHub_BroadcastWithNoSubscribers(t *testing.T) {
	hub, _ := newTestHub(t)

	hub.Broadcast()

	assert.Equal(t, float64(0), testutil.ToFloat64(hub.metrics.notificationsSent))
}

func TestHub_EvictsClosedSubscriber(t *testing.T) {
	hub, srv := newTestHub(t)

	gone := dialSubscriber(t, srv)
	stays := dialSubscriber(t, srv)
	waitForClients(t, hub, 2)

	// An abrupt close is noticed by the read loop, not by a failed send.
	require.NoError(t, gone.Close())
	waitForClients(t, hub, 1)

	hub.Broadcast()

	_, data := readFrame(t, stays)
	assert.Equal(t, ConfigUpdated, string(data))

	assert.Equal(t, float64(1),
		testutil.ToFloat64(hub.metrics.disconnectionsTotal.WithLabelValues("client_closed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(hub.metrics.notificationsSent))
}

func TestHub_RepeatedBroadcastsAndConcurrency(t *testing.T) {
	const (
		broadcasters   = 2
		perBroadcaster = 10
		subscribers    = 3
	)

	hub, srv := newTestHub(t)

	conns := make([]*websocket.Conn, 0, subscribers)
	for i := 0; i < subscribers; i++ {
		conns = append(conns, dialSubscriber(t, srv))
	}
	waitForClients(t, hub, subscribers)

	var wg sync.WaitGroup
	for i := 0; i < broadcasters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perBroadcaster; j++ {
				hub.Broadcast()
			}
		}()
	}
	wg.Wait()

	// Every subscriber sees every broadcast exactly once.
	for _, conn := range conns {
		for i := 0; i < broadcasters*perBroadcaster; i++ {
			_, data := readFrame(t, conn)
			assert.Equal(t, ConfigUpdated, string(data))
		}
	}

	assert.Equal(t, float64(broadcasters*perBroadcaster*subscribers),
		testutil.ToFloat64(hub.metrics.notificationsSent))
}

func TestHub_RejectsPlainHTTPRequest(t *testing.T) {
	hub, srv := newTestHub(t)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, float64(1),
		testutil.ToFloat64(hub.metrics.errorsTotal.WithLabelValues("connection_upgrade")))
}

func TestHub_CloseDisconnectsSubscribers(t *testing.T) {
	hub, srv := newTestHub(t)

	conn := dialSubscriber(t, srv)
	waitForClients(t, hub, 1)

	hub.Close()

	// The subscriber is told the server is going away before the
	// connection drops.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	var closeErr *websocket.CloseError
	if assert.ErrorAs(t, err, &closeErr) {
		assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
	}

	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, float64(1),
		testutil.ToFloat64(hub.metrics.disconnectionsTotal.WithLabelValues("shutdown")))

	// Closing twice is fine, and late upgrades are refused.
	hub.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHub_BroadcastAfterClose(t *testing.T) {
	hub, srv := newTestHub(t)

	dialSubscriber(t, srv)
	waitForClients(t, hub, 1)

	hub.Close()
	hub.Broadcast()

	assert.Equal(t, float64(0), testutil.ToFloat64(hub.metrics.notificationsSent))
}

func TestHub_NoMetricsRegistry(t *testing.T) {
	hub := NewHub(Config{})
	t.Cleanup(hub.Close)

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn := dialSubscriber(t, srv)
	waitForClients(t, hub, 1)

	hub.Broadcast()

	_, data := readFrame(t, conn)
	assert.Equal(t, ConfigUpdated, string(data))
}
