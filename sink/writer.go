package sink

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/natsclient"
)

// Writer persists processing outcomes. Implementations must be safe for
// concurrent use; the async layer calls Write from multiple workers.
type Writer interface {
	// Write persists one record. Errors classified transient are
	// retried by the async layer; anything else fails the record.
	Write(ctx context.Context, rec Record) error

	// Close releases the writer's resources. Writes after Close fail.
	Close(ctx context.Context) error
}

// Nop is the disabled sink: every write succeeds and nothing is stored.
// Open returns it when no sink URL is configured, so the pipeline runs
// unchanged with persistence switched off.
type Nop struct{}

func (Nop) Write(context.Context, Record) error { return nil }
func (Nop) Close(context.Context) error         { return nil }

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	client *natsclient.Client
	logger *slog.Logger
}

// WithClient supplies the NATS client used by jetstream:// sinks. The
// writer borrows the connection; closing the writer does not close it.
func WithClient(client *natsclient.Client) Option {
	return func(o *openOptions) { o.client = client }
}

// WithLogger sets the logger for the opened writer.
func WithLogger(logger *slog.Logger) Option {
	return func(o *openOptions) { o.logger = logger }
}

// Open builds the writer for a sink URL. Supported schemes:
//
//	(empty)        disabled sink, all writes discarded
//	sqlite://path  relational store on an embedded database file
//	postgres://... relational store on a PostgreSQL server
//	jetstream://S  publish outcomes to JetStream stream S
//
// Opening verifies the backend is reachable (ping, stream creation), so
// a misconfigured sink fails at startup instead of shedding every
// record at runtime.
func Open(ctx context.Context, rawURL string, opts ...Option) (Writer, error) {
	if rawURL == "" {
		return Nop{}, nil
	}

	o := openOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.WrapInvalid(err, "sink", "Open", "parse sink url")
	}

	switch u.Scheme {
	case "sqlite", "postgres":
		return OpenSQLStore(ctx, rawURL, o.logger)
	case "jetstream":
		if o.client == nil {
			return nil, fmt.Errorf("%w: jetstream sink requires a NATS client", errors.ErrInvalidConfig)
		}
		return OpenJSStore(ctx, u, o.client, o.logger)
	default:
		return nil, fmt.Errorf("%w: unsupported sink scheme %q", errors.ErrInvalidConfig, u.Scheme)
	}
}
