// Package errors provides standardized error handling for the validation
// gateway.
//
// # Overview
//
// The package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable),
// and Fatal (unrecoverable, stop processing).
//
// Classification lets components make retry and shutdown decisions without
// hardcoded error string matching, and integrates with Go's standard error
// handling patterns: errors.Is(), errors.As(), and wrapping chains all work
// through ClassifiedError.
//
// Note that a message failing validation is NOT an error in this system.
// Contract violations are ordinary data carried on the reject path; this
// package covers operational failures only (broken connections, bad
// configuration, unavailable storage).
//
// # Error Classification
//
//   - Transient: network timeouts, connection loss, temporary unavailability
//     (retry recommended)
//   - Invalid: malformed documents, unknown contract references, duplicate
//     topics (do not retry)
//   - Fatal: resource exhaustion, unusable configuration at startup (stop
//     processing)
//
// # Quick Start
//
// Return standard error variables for known conditions:
//
//	if _, ok := store.Lookup(name); !ok {
//	    return errors.ErrContractNotFound
//	}
//
// Wrap errors with component context:
//
//	if err := client.Publish(ctx, topic, data); err != nil {
//	    return errors.Wrap(err, "engine", "route", "publish accept")
//	}
//
// Check classification for retry logic:
//
//	if err := op(); err != nil {
//	    if errors.IsTransient(err) {
//	        cfg := errors.DefaultRetryConfig()
//	        if cfg.ShouldRetry(err, attempt) {
//	            time.Sleep(cfg.BackoffDelay(attempt))
//	        }
//	    }
//	}
//
// # Error Wrapping Pattern
//
// All wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// The format keeps log lines parseable and makes the failing component and
// operation visible without a stack trace. Three classification-aware
// wrappers exist alongside the plain Wrap():
//
//	errors.WrapTransient(err, "sink", "Write", "insert record")
//	errors.WrapInvalid(err, "contract", "Compile", "parse check")
//	errors.WrapFatal(err, "main", "run", "open sink")
//
// # Retry Integration
//
// RetryConfig bridges classification into the pkg/retry backoff executor:
//
//	cfg := errors.DefaultRetryConfig()
//	err := retry.Do(ctx, cfg.ToRetryConfig(), func() error {
//	    return sink.Write(ctx, rec)
//	})
package errors
