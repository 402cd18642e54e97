package notify

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/metric"
)

// ConfigUpdated is the text frame pushed to every subscriber when a new
// configuration goes live. Clients treat it as a cue to re-fetch the
// configuration over the HTTP API; the frame itself carries no payload.
const ConfigUpdated = "config_updated"

const (
	// pongWait is how long a client may stay silent before its connection
	// is considered dead. Must exceed pingPeriod so well-behaved clients
	// always get a chance to answer.
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

// Config holds construction options for a Hub.
type Config struct {
	// Metrics is the registry notification metrics are registered with.
	// Nil disables metrics.
	Metrics *metric.MetricsRegistry
	// Logger defaults to slog.Default when nil.
	Logger *slog.Logger
}

// Hub fans configuration-change notifications out to WebSocket
// subscribers. It implements http.Handler for the upgrade endpoint and
// the engine's Notifier contract through Broadcast.
//
// The zero value is not usable; construct with NewHub.
type Hub struct {
	logger   *slog.Logger
	metrics  *Metrics
	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*client

	shutdown  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// client tracks per-connection state. writeMu serializes frame writes;
// gorilla/websocket panics on concurrent writes to one connection.
type client struct {
	conn        *websocket.Conn
	connectedAt time.Time
	lastPong    atomic.Value // time.Time
	closed      atomic.Bool
	closeOnce   sync.Once
	writeMu     sync.Mutex
}

// Metrics holds Prometheus metrics for the notification hub.
type Metrics struct {
	clientsConnected    prometheus.Gauge
	connectionsTotal    prometheus.Counter
	disconnectionsTotal *prometheus.CounterVec
	notificationsSent   prometheus.Counter
	broadcastDuration   prometheus.Histogram
	errorsTotal         *prometheus.CounterVec
}

// newMetrics creates and registers hub metrics. A nil registry returns
// nil metrics and every recording site checks for that.
func newMetrics(registry *metric.MetricsRegistry) *Metrics {
	if registry == nil {
		return nil
	}

	metrics := &Metrics{
		clientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "valgate",
			Subsystem: "notify",
			Name:      "clients_connected",
			Help:      "Number of currently connected notification subscribers",
		}),

		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "valgate",
			Subsystem: "notify",
			Name:      "client_connections_total",
			Help:      "Total subscriber connections accepted",
		}),

		disconnectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "valgate",
			Subsystem: "notify",
			Name:      "client_disconnections_total",
			Help:      "Total subscriber disconnections",
		}, []string{"disconnect_reason"}),

		notificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "valgate",
			Subsystem: "notify",
			Name:      "notifications_sent_total",
			Help:      "Total notification frames delivered to subscribers",
		}),

		broadcastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "valgate",
			Subsystem: "notify",
			Name:      "broadcast_duration_seconds",
			Help:      "Time to notify all connected subscribers",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),

		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "valgate",
			Subsystem: "notify",
			Name:      "errors_total",
			Help:      "Notification hub errors",
		}, []string{"error_type"}),
	}

	registry.PrometheusRegistry().MustRegister(
		metrics.clientsConnected,
		metrics.connectionsTotal,
		metrics.disconnectionsTotal,
		metrics.notificationsSent,
		metrics.broadcastDuration,
		metrics.errorsTotal,
	)

	return metrics
}

// NewHub creates a hub and starts its keepalive loop. Callers must Close
// the hub when done with it.
func NewHub(cfg Config) *Hub {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	h := &Hub{
		logger:  cfg.Logger.With("component", "notify"),
		metrics: newMetrics(cfg.Metrics),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Configuration dashboards are served from arbitrary origins.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		clients:  make(map[*websocket.Conn]*client),
		shutdown: make(chan struct{}),
	}

	h.wg.Add(1)
	go h.pingLoop()

	return h
}

// ServeHTTP upgrades the request to a WebSocket connection and registers
// it as a subscriber. The subscriber receives a ConfigUpdated frame on
// every Broadcast until it disconnects or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.shutdown:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		if h.metrics != nil {
			h.metrics.errorsTotal.WithLabelValues("connection_upgrade").Inc()
		}
		return
	}

	c := &client{
		conn:        conn,
		connectedAt: time.Now(),
	}
	c.lastPong.Store(time.Now())

	h.clientsMu.Lock()
	h.clients[conn] = c
	count := len(h.clients)
	h.clientsMu.Unlock()

	if h.metrics != nil {
		h.metrics.connectionsTotal.Inc()
		h.metrics.clientsConnected.Set(float64(count))
	}
	h.logger.Debug("subscriber connected", "remote", r.RemoteAddr, "clients", count)

	h.wg.Add(1)
	go h.readLoop(conn, c)
}

// readLoop drains the client connection. Subscribers never send
// application data; the loop exists so pongs and close frames are
// processed and the connection's death is noticed.
func (h *Hub) readLoop(conn *websocket.Conn, c *client) {
	defer h.wg.Done()
	defer h.removeClient(conn, c, "client_closed")

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		c.lastPong.Store(time.Now())
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-h.shutdown:
			return
		default:
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		// Inbound frames are ignored.
	}
}

// Broadcast pushes a ConfigUpdated frame to every connected subscriber.
// Sends run concurrently and the call returns once all of them finish;
// the per-frame write deadline bounds how long a stalled client can hold
// it up. Clients whose send fails are evicted.
func (h *Hub) Broadcast() {
	start := time.Now()

	conns, clients := h.snapshotClients()

	var wg sync.WaitGroup
	for _, conn := range conns {
		c := clients[conn]
		if c.closed.Load() {
			continue
		}
		wg.Add(1)
		go h.sendNotification(&wg, conn, c)
	}
	wg.Wait()

	if h.metrics != nil {
		h.metrics.broadcastDuration.Observe(time.Since(start).Seconds())
	}
	h.logger.Debug("configuration change broadcast", "clients", len(conns))
}

// sendNotification delivers one ConfigUpdated frame to one subscriber.
func (h *Hub) sendNotification(wg *sync.WaitGroup, conn *websocket.Conn, c *client) {
	defer wg.Done()

	if err := h.writeText(conn, c, []byte(ConfigUpdated)); err != nil {
		h.removeClient(conn, c, "send_failed")
		if h.metrics != nil {
			h.metrics.errorsTotal.WithLabelValues("client_send").Inc()
		}
		return
	}

	if h.metrics != nil {
		h.metrics.notificationsSent.Inc()
	}
}

// writeText sends a text frame under the client's write lock.
func (h *Hub) writeText(conn *websocket.Conn, c *client, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// pingLoop keeps idle connections alive and surfaces dead ones between
// broadcasts.
func (h *Hub) pingLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-h.shutdown:
			return
		case <-ticker.C:
			h.pingClients()
		}
	}
}

// pingClients sends a ping frame to every subscriber, evicting any whose
// connection errors.
func (h *Hub) pingClients() {
	conns, clients := h.snapshotClients()

	for _, conn := range conns {
		c := clients[conn]
		if c.closed.Load() {
			continue
		}

		c.writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteMessage(websocket.PingMessage, nil)
		c.writeMu.Unlock()

		if err != nil {
			h.removeClient(conn, c, "ping_failed")
			if h.metrics != nil {
				h.metrics.errorsTotal.WithLabelValues("client_ping").Inc()
			}
		}
	}
}

// snapshotClients copies the client set so sends and pings iterate
// without holding the registry lock.
func (h *Hub) snapshotClients() ([]*websocket.Conn, map[*websocket.Conn]*client) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	conns := make([]*websocket.Conn, 0, len(h.clients))
	clients := make(map[*websocket.Conn]*client, len(h.clients))
	for conn, c := range h.clients {
		conns = append(conns, conn)
		clients[conn] = c
	}
	return conns, clients
}

// removeClient unregisters and closes a client connection exactly once.
func (h *Hub) removeClient(conn *websocket.Conn, c *client, reason string) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		h.clientsMu.Lock()
		delete(h.clients, conn)
		count := len(h.clients)
		h.clientsMu.Unlock()

		if h.metrics != nil {
			h.metrics.disconnectionsTotal.WithLabelValues(reason).Inc()
			h.metrics.clientsConnected.Set(float64(count))
		}
		h.logger.Debug("subscriber disconnected",
			"reason", reason, "connected_for", time.Since(c.connectedAt), "clients", count)

		_ = conn.Close()
	})
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Close stops the keepalive loop and disconnects every subscriber. Each
// client is sent a going-away close frame before its connection drops.
// Close is idempotent and safe to call while broadcasts are in flight.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.shutdown)

		conns, clients := h.snapshotClients()
		for _, conn := range conns {
			// WriteControl is safe alongside concurrent writes, so no
			// write lock is needed for the goodbye frame.
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			h.removeClient(conn, clients[conn], "shutdown")
		}

		done := make(chan struct{})
		go func() {
			h.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			h.logger.Warn("notification goroutines did not exit within timeout")
		}
	})
}
