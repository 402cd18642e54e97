package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	BrokerURL   string
	Sensor      string
	Topic       string
	Rate        float64
	FaultRatio  float64
	Count       int
	ProfileFile string
	Seed        int64
	LogLevel    string
	LogFormat   string
	ShowVersion bool
	ShowHelp    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.BrokerURL, "broker",
		getEnv("SENSORSIM_BROKER", "nats://localhost:4222"),
		"NATS broker URL (env: SENSORSIM_BROKER)")

	flag.StringVar(&cfg.Sensor, "sensor",
		getEnv("SENSORSIM_SENSOR", "sensor1"),
		"Built-in profile: sensor1, sensor2, sensor3 (env: SENSORSIM_SENSOR)")

	flag.StringVar(&cfg.Sensor, "s",
		getEnv("SENSORSIM_SENSOR", "sensor1"),
		"Built-in profile: sensor1, sensor2, sensor3 (env: SENSORSIM_SENSOR)")

	flag.StringVar(&cfg.Topic, "topic",
		getEnv("SENSORSIM_TOPIC", ""),
		"Publish subject, default sensors.<sensor>.raw (env: SENSORSIM_TOPIC)")

	flag.Float64Var(&cfg.Rate, "rate",
		getEnvFloat("SENSORSIM_RATE", 0.5),
		"Readings per second (env: SENSORSIM_RATE)")

	flag.Float64Var(&cfg.FaultRatio, "fault-ratio",
		getEnvFloat("SENSORSIM_FAULT_RATIO", -1),
		"Fraction of faulty readings 0..1, -1 keeps the profile's value (env: SENSORSIM_FAULT_RATIO)")

	flag.IntVar(&cfg.Count, "count",
		getEnvInt("SENSORSIM_COUNT", 0),
		"Stop after this many readings, 0 for unlimited (env: SENSORSIM_COUNT)")

	flag.StringVar(&cfg.ProfileFile, "profile",
		getEnv("SENSORSIM_PROFILE", ""),
		"YAML file overriding the built-in profile (env: SENSORSIM_PROFILE)")

	flag.Int64Var(&cfg.Seed, "seed",
		getEnvInt64("SENSORSIM_SEED", 0),
		"Random seed, 0 for time-based (env: SENSORSIM_SEED)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("SENSORSIM_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: SENSORSIM_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("SENSORSIM_LOG_FORMAT", "text"),
		"Log format: json, text (env: SENSORSIM_LOG_FORMAT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")

	// Custom usage
	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.BrokerURL == "" {
		return fmt.Errorf("broker URL must not be empty")
	}

	if cfg.Rate <= 0 {
		return fmt.Errorf("invalid rate: %v", cfg.Rate)
	}

	if cfg.FaultRatio > 1 {
		return fmt.Errorf("invalid fault ratio: %v", cfg.FaultRatio)
	}

	if cfg.Count < 0 {
		return fmt.Errorf("invalid count: %d", cfg.Count)
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

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Synthetic Sensor Publisher

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Publish sensor1 readings every two seconds
  %s --sensor=sensor1

  # Publish faster with every third reading faulty
  %s --sensor=sensor2 --rate=10 --fault-ratio=0.33

  # Publish a fixed batch with a reproducible seed
  %s --sensor=sensor3 --count=100 --seed=42

  # Override field ranges from a YAML profile
  %s --sensor=sensor1 --profile=configs/cold_storage.yaml

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
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
