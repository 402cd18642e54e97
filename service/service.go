// Package service exposes the gateway's HTTP surface: the configuration
// API, status and health endpoints, the Prometheus scrape handler, and
// the configuration-change WebSocket.
package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/docstore"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/engine"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/health"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/metric"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/notify"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/sink"
)

const (
	defaultPort           = 8000
	defaultHealthInterval = 10 * time.Second
	shutdownTimeout       = 5 * time.Second
)

// Config assembles a Service. Store, Engine, and Reloader are required;
// everything else defaults.
type Config struct {
	Store    *docstore.Store
	Engine   *engine.Engine
	Reloader *engine.Reloader

	// Hub, when set, is mounted at /ws/config-updates. The reloader
	// should hold the same hub as its Notifier so clients hear about
	// every applied configuration, whichever path triggered it.
	Hub *notify.Hub

	// Sink, when set, contributes queue statistics to /api/status and a
	// recorder sub-status to /healthz.
	Sink *sink.Async

	Monitor  *health.Monitor
	Registry *metric.MetricsRegistry
	Logger   *slog.Logger

	// Port is the HTTP listen port, default 8000.
	Port int

	// HealthInterval is how often component health is collected,
	// default 10s.
	HealthInterval time.Duration
}

// Service runs the gateway's HTTP server and the periodic health
// collector. Configuration mutations are serialized: each one stages a
// complete document set, reloads the engine, and persists to disk only
// after the swap succeeds.
type Service struct {
	store    *docstore.Store
	engine   *engine.Engine
	reloader *engine.Reloader
	hub      *notify.Hub
	sink     *sink.Async
	monitor  *health.Monitor
	registry *metric.MetricsRegistry
	logger   *slog.Logger

	port           int
	healthInterval time.Duration
	startedAt      time.Time

	// configMu spans stage, reload, and persist for every mutation so
	// concurrent API calls cannot interleave a reload of one document
	// set with the persist of another.
	configMu sync.Mutex

	server *http.Server

	started atomic.Bool
	stopped atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New builds a service from its parts.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.WrapInvalid(
			stderrors.New("document store is required"),
			"service", "New", "validate configuration")
	}
	if cfg.Engine == nil {
		return nil, errors.WrapInvalid(
			stderrors.New("engine is required"),
			"service", "New", "validate configuration")
	}
	if cfg.Reloader == nil {
		return nil, errors.WrapInvalid(
			stderrors.New("reloader is required"),
			"service", "New", "validate configuration")
	}
	if cfg.Monitor == nil {
		cfg.Monitor = health.NewMonitor()
	}
	if cfg.Registry == nil {
		cfg.Registry = metric.NewMetricsRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = defaultHealthInterval
	}

	return &Service{
		store:          cfg.Store,
		engine:         cfg.Engine,
		reloader:       cfg.Reloader,
		hub:            cfg.Hub,
		sink:           cfg.Sink,
		monitor:        cfg.Monitor,
		registry:       cfg.Registry,
		logger:         cfg.Logger.With("component", "service"),
		port:           cfg.Port,
		healthInterval: cfg.HealthInterval,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}, nil
}

// Start brings up the HTTP server and the health collector. The server
// listens in the background; startup errors after bind surface in the
// log, not here.
func (s *Service) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.ErrAlreadyStarted
	}

	s.startedAt = time.Now()

	mux := http.NewServeMux()
	s.RegisterHTTPHandlers("/", mux)

	s.server = &http.Server{
		Addr:         ":" + strconv.Itoa(s.port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Capture server reference before goroutine to avoid race condition
	server := s.server
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	go s.healthLoop(ctx)

	s.logger.Info("HTTP service started", "addr", s.server.Addr)
	return nil
}

// Stop shuts the HTTP server down gracefully and stops the health
// collector. Repeated calls are no-ops.
func (s *Service) Stop(ctx context.Context) error {
	if !s.started.Load() {
		return errors.ErrNotStarted
	}
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}

	close(s.stopCh)
	<-s.doneCh

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return errors.WrapTransient(err, "service", "Stop", "shut down HTTP server")
	}
	s.logger.Info("HTTP service stopped")
	return nil
}

// healthLoop periodically refreshes the health monitor from the live
// components until the service stops or the context is cancelled.
func (s *Service) healthLoop(ctx context.Context) {
	defer close(s.doneCh)

	// Populate immediately so /healthz is meaningful before the first tick.
	s.collectHealth()

	ticker := time.NewTicker(s.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.collectHealth()
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// collectHealth snapshots each component's state into the monitor.
func (s *Service) collectHealth() {
	st := s.engine.Status()

	if st.Connection == nil && st.SnapshotID == "" {
		// Idle gateway: nothing configured yet, so there is no
		// connection to be unhealthy about.
		s.monitor.UpdateDegraded("broker", "No broker configured")
	} else {
		s.monitor.Update("broker", health.FromConnectionStatus("broker", st.Connection))
	}

	if st.SnapshotID == "" {
		s.monitor.UpdateDegraded("engine", "No configuration applied")
	} else {
		s.monitor.UpdateHealthy("engine",
			fmt.Sprintf("Routing %d sources against %d contracts", st.Sources, st.Contracts))
	}

	if s.sink != nil {
		s.monitor.Update("recorder", health.FromQueueStats("recorder", s.sink.Stats()))
	}
}
