package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	DataDir         string
	Port            int
	SinkURL         string
	SinkNATSURL     string
	SinkWorkers     int
	SinkQueueSize   int
	LogLevel        string
	LogFormat       string
	Debug           bool
	HealthInterval  time.Duration
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.DataDir, "data",
		getEnv("VALGATE_DATA", "data"),
		"Directory holding config.json and schemas/ (env: VALGATE_DATA)")

	flag.StringVar(&cfg.DataDir, "d",
		getEnv("VALGATE_DATA", "data"),
		"Directory holding config.json and schemas/ (env: VALGATE_DATA)")

	flag.IntVar(&cfg.Port, "port",
		getEnvInt("VALGATE_PORT", 8000),
		"HTTP API port (env: VALGATE_PORT)")

	flag.StringVar(&cfg.SinkURL, "sink",
		getEnv("VALGATE_SINK", ""),
		"Outcome sink URL: sqlite://, postgres://, jetstream://; empty disables (env: VALGATE_SINK)")

	flag.StringVar(&cfg.SinkNATSURL, "sink-nats",
		getEnv("VALGATE_SINK_NATS", "nats://localhost:4222"),
		"NATS server for jetstream:// sinks (env: VALGATE_SINK_NATS)")

	flag.IntVar(&cfg.SinkWorkers, "sink-workers",
		getEnvInt("VALGATE_SINK_WORKERS", 2),
		"Concurrent sink writers (env: VALGATE_SINK_WORKERS)")

	flag.IntVar(&cfg.SinkQueueSize, "sink-queue",
		getEnvInt("VALGATE_SINK_QUEUE", 256),
		"Outcome queue size before records are shed (env: VALGATE_SINK_QUEUE)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("VALGATE_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: VALGATE_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("VALGATE_LOG_FORMAT", "json"),
		"Log format: json, text (env: VALGATE_LOG_FORMAT)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool("VALGATE_DEBUG", false),
		"Enable debug mode (env: VALGATE_DEBUG)")

	flag.DurationVar(&cfg.HealthInterval, "health-interval",
		getEnvDuration("VALGATE_HEALTH_INTERVAL", 10*time.Second),
		"Component health collection interval (env: VALGATE_HEALTH_INTERVAL)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("VALGATE_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: VALGATE_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Compile the stored configuration and exit")

	// Custom usage
	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()

	// Override log level if debug is set
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}

	// Validate log level
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	// Validate log format
	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.SinkWorkers < 1 {
		return fmt.Errorf("invalid sink worker count: %d", cfg.SinkWorkers)
	}

	if cfg.SinkQueueSize < 1 {
		return fmt.Errorf("invalid sink queue size: %d", cfg.SinkQueueSize)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Telemetry Validation Gateway

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run against the shipped example configuration
  %s --data=configs/example

  # Run with debug logging
  %s --log-level=debug --log-format=text

  # Persist outcomes to an embedded database
  %s --sink=sqlite://valgate.db

  # Run with environment variables
  export VALGATE_DATA=/etc/valgate
  export VALGATE_SINK=jetstream://OUTCOMES
  %s

  # Compile the stored configuration without starting
  %s --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
