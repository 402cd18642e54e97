package health

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/natsclient"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/pkg/worker"
)

// Pre-compiled regexes for error message sanitization (performance optimization)
var (
	httpURLRegex     = regexp.MustCompile(`https?://[^\s]+`)
	natsURLRegex     = regexp.MustCompile(`nats://[^\s]+`)
	wsURLRegex       = regexp.MustCompile(`wss?://[^\s]+`)
	unixPathRegex    = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	windowsPathRegex = regexp.MustCompile(`[A-Z]:\\[^:\s]+`)
	ipAddrRegex      = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex        = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex  = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// sanitizeErrorMessage removes potentially sensitive information from error
// messages before they are exposed on health endpoints. Broker errors in
// particular can echo the connection URL, which may carry credentials.
//
// Sanitization patterns:
//   - URLs (http://, https://, nats://, ws://, wss://) → [URL]
//   - File paths (Unix: /path/to/file, Windows: C:\path\to\file) → [PATH]
//   - IP addresses (192.168.1.100) → [IP]
//   - Port numbers (:8080) → [PORT]
//   - Credentials (password=X, token=X, key=X, secret=X) → [REDACTED]
func sanitizeErrorMessage(err string) string {
	if err == "" {
		return ""
	}

	sanitized := err

	// Remove URLs first (before paths, as they contain paths)
	sanitized = httpURLRegex.ReplaceAllString(sanitized, "[URL]")
	sanitized = natsURLRegex.ReplaceAllString(sanitized, "[URL]")
	sanitized = wsURLRegex.ReplaceAllString(sanitized, "[URL]")

	// Remove file paths (Unix and Windows)
	sanitized = unixPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = windowsPathRegex.ReplaceAllString(sanitized, "[PATH]")

	// Remove IP addresses
	sanitized = ipAddrRegex.ReplaceAllString(sanitized, "[IP]")

	// Remove port numbers
	sanitized = portRegex.ReplaceAllString(sanitized, "[PORT]")

	// Remove potential credentials (basic patterns) - check against lowercase but replace in original case
	lowerSanitized := strings.ToLower(sanitized)
	if strings.Contains(lowerSanitized, "password") || strings.Contains(lowerSanitized, "token") ||
		strings.Contains(lowerSanitized, "key") || strings.Contains(lowerSanitized, "secret") ||
		strings.Contains(lowerSanitized, "credential") {
		sanitized = credentialRegex.ReplaceAllString(sanitized, "[REDACTED]")
	}

	return sanitized
}

// FromError converts an error into an unhealthy status for the named
// component. The error message is sanitized before exposure. A nil error
// yields a healthy status.
func FromError(name string, err error) Status {
	if err == nil {
		return NewHealthy(name, "OK")
	}
	return NewUnhealthy(name, sanitizeErrorMessage(err.Error()))
}

// FromConnectionStatus converts a broker connection status into a health
// status. Connected maps to healthy, transitional states (connecting,
// reconnecting) to degraded, and disconnected or circuit-open to unhealthy.
func FromConnectionStatus(name string, s *natsclient.Status) Status {
	if s == nil {
		return NewUnhealthy(name, "No connection status available")
	}

	switch s.Status {
	case natsclient.StatusConnected:
		return NewHealthy(name, fmt.Sprintf("Connected (RTT: %v, %d subscriptions)", s.RTT, s.Subscriptions))
	case natsclient.StatusConnecting:
		return NewDegraded(name, "Connecting to broker")
	case natsclient.StatusReconnecting:
		return NewDegraded(name, fmt.Sprintf("Reconnecting to broker (%d failures)", s.FailureCount))
	case natsclient.StatusCircuitOpen:
		return NewUnhealthy(name, fmt.Sprintf("Circuit open after %d consecutive failures", s.FailureCount))
	default:
		return NewUnhealthy(name, fmt.Sprintf("Disconnected (%d failures)", s.FailureCount))
	}
}

// FromQueueStats converts worker pool statistics into a health status.
// A pool with no running workers is unhealthy, a nearly-full queue is
// degraded, anything else is healthy. The raw counters travel along as
// health metrics.
func FromQueueStats(name string, stats worker.PoolStats) Status {
	metrics := &Metrics{
		ErrorCount:        int(stats.Failed),
		MessagesProcessed: stats.Processed,
		QueueDepth:        stats.QueueDepth,
		QueueCapacity:     stats.QueueSize,
		Dropped:           stats.Dropped,
	}

	var status Status
	switch {
	case stats.Workers == 0:
		status = NewUnhealthy(name, "No workers running")
	case stats.QueueSize > 0 && stats.QueueDepth*10 >= stats.QueueSize*9:
		status = NewDegraded(name, fmt.Sprintf("Queue nearly full (%d/%d)", stats.QueueDepth, stats.QueueSize))
	default:
		status = NewHealthy(name, fmt.Sprintf("Queue %d/%d, %d processed", stats.QueueDepth, stats.QueueSize, stats.Processed))
	}

	return status.WithMetrics(metrics)
}
