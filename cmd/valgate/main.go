// Package main implements the entry point for the valgate gateway.
// valgate subscribes to raw telemetry topics on a NATS broker, validates
// each message against its data contract, and republishes it to an
// accept or reject topic. Configuration is file-backed and editable at
// runtime through the HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/contract"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/docstore"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/engine"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/metric"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/natsclient"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/notify"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/service"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/sink"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "valgate"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	// Run application with proper error handling
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

// gateway bundles the running pieces so shutdown reads in order.
type gateway struct {
	service  *service.Service
	engine   *engine.Engine
	recorder *sink.Async
	sinkConn *natsclient.Client
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	store, err := docstore.Open(cliCfg.DataDir, logger)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}

	if cliCfg.Validate {
		return validateStoredConfig(store)
	}

	ctx := context.Background()

	// Shared infrastructure: metrics registry and change-notification hub.
	registry := metric.NewMetricsRegistry()
	hub := notify.NewHub(notify.Config{Metrics: registry, Logger: logger})
	defer hub.Close()

	recorder, sinkConn, err := setupRecorder(ctx, cliCfg, registry, logger)
	if err != nil {
		return err
	}

	eng, reloader, err := setupEngine(ctx, hub, recorder, registry, logger)
	if err != nil {
		return err
	}

	if err := applyStoredConfig(ctx, store, reloader); err != nil {
		return err
	}

	svc, err := service.New(service.Config{
		Store:          store,
		Engine:         eng,
		Reloader:       reloader,
		Hub:            hub,
		Sink:           recorder,
		Registry:       registry,
		Logger:         logger,
		Port:           cliCfg.Port,
		HealthInterval: cliCfg.HealthInterval,
	})
	if err != nil {
		return fmt.Errorf("create HTTP service: %w", err)
	}

	gw := &gateway{service: svc, engine: eng, recorder: recorder, sinkConn: sinkConn}
	return runWithSignalHandling(ctx, gw, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting valgate (telemetry validation gateway)",
		"version", Version,
		"build_time", BuildTime,
		"data_dir", cliCfg.DataDir,
		"port", cliCfg.Port)

	return cliCfg, logger, false, nil
}

// validateStoredConfig compiles the persisted documents without touching
// a broker, mirroring what a reload would accept or reject.
func validateStoredConfig(store *docstore.Store) error {
	doc, err := store.LoadMapping()
	if err != nil {
		return fmt.Errorf("load mapping document: %w", err)
	}
	contracts, err := store.LoadContracts()
	if err != nil {
		return fmt.Errorf("load contract documents: %w", err)
	}

	// Without a broker there is nothing to route; compile the contracts
	// on their own so defects are still caught.
	if doc.Broker.URL == "" {
		if _, err := contract.NewStore(contracts); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		slog.Info("Configuration is valid", "broker", "not configured", "contracts", len(contracts))
		return nil
	}

	snap, err := engine.BuildSnapshot(doc, contracts)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("Configuration is valid",
		"broker", doc.Broker.URL,
		"sources", snap.Sources(),
		"contracts", snap.Contracts())
	return nil
}

// setupRecorder opens the configured outcome sink and wraps it in the
// async writer pool. Returns nil when persistence is disabled.
func setupRecorder(
	ctx context.Context,
	cliCfg *CLIConfig,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*sink.Async, *natsclient.Client, error) {
	if cliCfg.SinkURL == "" {
		slog.Info("Outcome persistence disabled")
		return nil, nil, nil
	}

	opts := []sink.Option{sink.WithLogger(logger)}

	// jetstream:// sinks get their own connection so outcome publishing
	// never competes with gateway routing.
	var sinkConn *natsclient.Client
	if strings.HasPrefix(cliCfg.SinkURL, "jetstream://") {
		client, err := natsclient.NewClient(cliCfg.SinkNATSURL,
			natsclient.WithName(appName+"-sink"),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("create sink NATS client: %w", err)
		}
		if err := client.Connect(ctx); err != nil {
			return nil, nil, fmt.Errorf("connect sink NATS client: %w", err)
		}
		sinkConn = client
		opts = append(opts, sink.WithClient(client))
	}

	writer, err := sink.Open(ctx, cliCfg.SinkURL, opts...)
	if err != nil {
		if sinkConn != nil {
			_ = sinkConn.Close(ctx)
		}
		return nil, nil, fmt.Errorf("open outcome sink: %w", err)
	}

	recorder := sink.NewAsync(writer, sink.AsyncConfig{
		Workers:   cliCfg.SinkWorkers,
		QueueSize: cliCfg.SinkQueueSize,
		Registry:  registry,
		Logger:    logger,
	})
	if err := recorder.Start(ctx); err != nil {
		_ = writer.Close(ctx)
		if sinkConn != nil {
			_ = sinkConn.Close(ctx)
		}
		return nil, nil, fmt.Errorf("start outcome recorder: %w", err)
	}

	slog.Info("Outcome recorder started",
		"sink", cliCfg.SinkURL,
		"workers", cliCfg.SinkWorkers,
		"queue_size", cliCfg.SinkQueueSize)
	return recorder, sinkConn, nil
}

// setupEngine creates and starts the routing engine and its reloader.
func setupEngine(
	ctx context.Context,
	hub *notify.Hub,
	recorder *sink.Async,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*engine.Engine, *engine.Reloader, error) {
	engCfg := engine.Config{
		Dial:     brokerDialer(registry),
		Registry: registry,
		Logger:   logger,
	}
	if recorder != nil {
		engCfg.Sink = recorder
	}

	eng, err := engine.New(engCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create engine: %w", err)
	}
	if err := eng.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("start engine: %w", err)
	}

	reloader, err := engine.NewReloader(engine.ReloaderConfig{
		Engine:   eng,
		Notifier: hub,
		Registry: registry,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create reloader: %w", err)
	}

	return eng, reloader, nil
}

// brokerDialer dials broker URLs on behalf of the engine. Each dial is a
// fresh client so a reload that changes the broker swaps connections
// cleanly; reconnect and circuit handling live inside the client.
func brokerDialer(registry *metric.MetricsRegistry) engine.DialFunc {
	return func(ctx context.Context, url string) (engine.Transport, error) {
		client, err := natsclient.NewClient(url,
			natsclient.WithName(appName),
			natsclient.WithMetrics(registry),
		)
		if err != nil {
			return nil, fmt.Errorf("create broker client: %w", err)
		}
		if err := client.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connect to broker: %w", err)
		}
		return client, nil
	}
}

// applyStoredConfig compiles and applies the persisted documents. A
// fresh installation has no broker yet; the gateway starts idle and
// waits for configuration through the API.
func applyStoredConfig(ctx context.Context, store *docstore.Store, reloader *engine.Reloader) error {
	doc, err := store.LoadMapping()
	if err != nil {
		return fmt.Errorf("load mapping document: %w", err)
	}
	if doc.Broker.URL == "" {
		slog.Info("No broker configured, starting idle")
		return nil
	}

	contracts, err := store.LoadContracts()
	if err != nil {
		return fmt.Errorf("load contract documents: %w", err)
	}

	snap, err := reloader.Reload(ctx, doc, contracts)
	if err != nil {
		return fmt.Errorf("apply stored configuration: %w", err)
	}

	slog.Info("Stored configuration applied",
		"snapshot", snap.ID(),
		"broker", doc.Broker.URL,
		"sources", snap.Sources(),
		"contracts", snap.Contracts())
	return nil
}

// runWithSignalHandling starts the HTTP service and waits for shutdown signals
func runWithSignalHandling(ctx context.Context, gw *gateway, shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := gw.service.Start(signalCtx); err != nil {
		return fmt.Errorf("start HTTP service: %w", err)
	}
	slog.Info("valgate started successfully (validation gateway ready)")

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := shutdown(shutdownCtx, gw); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("valgate shutdown complete")
	return nil
}

// shutdown stops the HTTP surface and the engine in parallel, then
// drains the outcome recorder so every routed message's record gets its
// chance to land before the process exits.
func shutdown(ctx context.Context, gw *gateway) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gw.service.Stop(gctx) })
	g.Go(func() error { return gw.engine.Stop(gctx) })
	err := g.Wait()

	if gw.recorder != nil {
		if cerr := gw.recorder.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}
	if gw.sinkConn != nil {
		if cerr := gw.sinkConn.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}

	if err != nil {
		slog.Error("Error stopping components", "error", err)
		return err
	}
	return nil
}

// printHelp prints help information
func printHelp() {
	printDetailedHelp()
}
