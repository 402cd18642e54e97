package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/natsclient"
)

// JSStore persists outcomes by publishing them to a JetStream stream,
// one message per record on <prefix>.<status>.<source>, so downstream
// consumers can subscribe to exactly the slice they care about
// (outcomes.failed.> for a failure dashboard, outcomes.validated.s1 for
// one source's archive).
type JSStore struct {
	client *natsclient.Client
	stream string
	prefix string
	logger *slog.Logger
}

// streamRecord is the wire form of a persisted outcome.
type streamRecord struct {
	ID          string          `json:"id"`
	Measurement string          `json:"measurement"`
	Status      string          `json:"status"`
	Source      string          `json:"source"`
	Timestamp   string          `json:"timestamp"`
	ErrorType   string          `json:"error_type,omitempty"`
	ErrorField  string          `json:"error_field,omitempty"`
	Fields      map[string]any  `json:"fields,omitempty"`
	Report      json.RawMessage `json:"report,omitempty"`
}

// OpenJSStore builds a JetStream-backed writer from a parsed
// jetstream://STREAM URL and ensures the stream exists, bound to
// <lowercase(stream)>.> subjects. The client is borrowed; Close does
// not touch the connection.
func OpenJSStore(ctx context.Context, u *url.URL, client *natsclient.Client, logger *slog.Logger) (*JSStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	stream := u.Host
	if stream == "" {
		stream = strings.Trim(u.Path, "/")
	}
	if stream == "" {
		return nil, fmt.Errorf("%w: jetstream sink url names no stream", errors.ErrInvalidConfig)
	}

	prefix := strings.ToLower(stream)
	_, err := client.CreateStream(ctx, jetstream.StreamConfig{
		Name:        stream,
		Description: "validation outcomes",
		Subjects:    []string{prefix + ".>"},
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "sink", "OpenJSStore", "create outcome stream")
	}

	logger.Info("sink stream ready", "stream", stream, "subjects", prefix+".>")
	return &JSStore{client: client, stream: stream, prefix: prefix, logger: logger}, nil
}

// Write publishes one record. Publish failures are transient: the
// broker being briefly unreachable is the normal failure mode here, and
// the async layer's bounded retry absorbs it.
func (s *JSStore) Write(ctx context.Context, rec Record) error {
	wire := streamRecord{
		ID:          rec.ID,
		Measurement: rec.Measurement,
		Status:      string(rec.Status),
		Source:      rec.Source,
		Timestamp:   rec.Timestamp.UTC().Format(time.RFC3339Nano),
		Fields:      rec.Fields,
		Report:      rec.Report,
	}
	if kind, field, ok := rec.PrimaryViolation(); ok {
		wire.ErrorType, wire.ErrorField = kind, field
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return errors.WrapInvalid(err, "sink", "Write", "marshal outcome record")
	}

	if err := s.client.PublishToStream(ctx, s.subjectFor(rec), payload); err != nil {
		return errors.WrapTransient(err, "sink", "Write", "publish outcome")
	}
	return nil
}

// subjectFor renders the outcome subject for a record.
func (s *JSStore) subjectFor(rec Record) string {
	return s.prefix + "." + string(rec.Status) + "." + subjectToken(rec.Source)
}

// subjectToken makes a source identifier safe to embed as a single
// subject token. Dots would split the token and wildcards would change
// its meaning for subscribers.
func subjectToken(source string) string {
	if source == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '*', '>':
			return '_'
		}
		return r
	}, source)
}

// Close is a no-op: the store borrows its connection and the stream
// outlives the writer.
func (s *JSStore) Close(context.Context) error { return nil }
