// Package main implements sensorsim, a synthetic telemetry publisher
// for exercising the valgate gateway. It emits JSON readings for one
// sensor profile at a steady rate, corrupting a configurable fraction
// of them with the fault classes real deployments produce.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/natsclient"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "sensorsim"
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

	if err := run(); err != nil {
		slog.Error("Simulator failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	profile, err := resolveProfile(cliCfg)
	if err != nil {
		return err
	}

	topic := cliCfg.Topic
	if topic == "" {
		topic = "sensors." + profile.SensorID + ".raw"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := natsclient.NewClient(cliCfg.BrokerURL, natsclient.WithName(appName))
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer func() { _ = client.Close(context.Background()) }()

	slog.Info("Publishing readings",
		"sensor", profile.SensorID,
		"topic", topic,
		"rate", cliCfg.Rate,
		"fault_ratio", profile.FaultRatio)

	gen := NewGenerator(profile, cliCfg.Seed)
	publishLoop(ctx, client, gen, topic, cliCfg)
	return nil
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	return cliCfg, false, nil
}

// resolveProfile picks the built-in profile, applies the optional YAML
// override file, then the fault-ratio flag.
func resolveProfile(cliCfg *CLIConfig) (Profile, error) {
	profiles := builtinProfiles()
	profile, ok := profiles[cliCfg.Sensor]
	if !ok {
		names := make([]string, 0, len(profiles))
		for name := range profiles {
			names = append(names, name)
		}
		sort.Strings(names)
		return Profile{}, fmt.Errorf("unknown sensor %q (have %s)", cliCfg.Sensor, strings.Join(names, ", "))
	}

	if cliCfg.ProfileFile != "" {
		merged, err := applyProfileFile(profile, cliCfg.ProfileFile)
		if err != nil {
			return Profile{}, err
		}
		profile = merged
	}

	if cliCfg.FaultRatio >= 0 {
		profile.FaultRatio = cliCfg.FaultRatio
	}

	if err := profile.Validate(); err != nil {
		return Profile{}, fmt.Errorf("invalid profile: %w", err)
	}
	return profile, nil
}

// publishLoop sends readings until the count is reached or the context
// is cancelled by a shutdown signal.
func publishLoop(ctx context.Context, client *natsclient.Client, gen *Generator, topic string, cliCfg *CLIConfig) {
	limiter := rate.NewLimiter(rate.Limit(cliCfg.Rate), 1)

	var sent, faulty, failed int
	for cliCfg.Count == 0 || sent < cliCfg.Count {
		if err := limiter.Wait(ctx); err != nil {
			slog.Info("Received shutdown signal")
			break
		}

		payload, fault := gen.Next()
		sent++

		if err := client.Publish(ctx, topic, payload); err != nil {
			failed++
			slog.Warn("Publish failed", "error", err)
			continue
		}

		if fault != "" {
			faulty++
			slog.Info("Sent faulty reading", "fault", fault, "payload", string(payload))
		} else {
			slog.Debug("Sent reading", "payload", string(payload))
		}
	}

	slog.Info("Publisher stopped", "sent", sent, "faulty", faulty, "failed", failed)
}
