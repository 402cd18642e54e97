package sink

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	valerrors "github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/natsclient"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/validate"
)

func TestSubjectFor(t *testing.T) {
	s := &JSStore{prefix: "outcomes"}

	tests := []struct {
		name    string
		rec     Record
		subject string
	}{
		{
			name:    "validated record",
			rec:     Record{Status: StatusValidated, Source: "sensor-1"},
			subject: "outcomes.validated.sensor-1",
		},
		{
			name:    "failed record",
			rec:     Record{Status: StatusFailed, Source: "sensor-2"},
			subject: "outcomes.failed.sensor-2",
		},
		{
			name:    "source with subject metacharacters",
			rec:     Record{Status: StatusValidated, Source: "plant.a sensor*>"},
			subject: "outcomes.validated.plant_a_sensor__",
		},
		{
			name:    "empty source",
			rec:     Record{Status: StatusFailed, Source: ""},
			subject: "outcomes.failed.unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.subject, s.subjectFor(tt.rec))
		})
	}
}

func TestOpenJSStoreRejectsEmptyStream(t *testing.T) {
	u, err := url.Parse("jetstream://")
	require.NoError(t, err)

	_, err = OpenJSStore(context.Background(), u, &natsclient.Client{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, valerrors.ErrInvalidConfig)
}

func TestJSStoreAgainstRealStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	tc := natsclient.NewTestClient(t, natsclient.WithJetStream())

	u, err := url.Parse("jetstream://OUTCOMES")
	require.NoError(t, err)

	store, err := OpenJSStore(ctx, u, tc.Client, nil)
	require.NoError(t, err)
	defer store.Close(ctx)

	// Subscribe through core NATS before publishing; JetStream delivers
	// to matching core subscriptions as well.
	nc := tc.GetNativeConnection()
	failedSub, err := nc.SubscribeSync("outcomes.failed.>")
	require.NoError(t, err)
	defer failedSub.Unsubscribe()

	validated := NewValidatedRecord("sensor-1", map[string]any{"temperature": 21.5})
	require.NoError(t, store.Write(ctx, validated))

	failed := NewFailedRecord("sensor-2", []validate.Violation{
		{Field: "temperature", Kind: validate.KindWrongType, Reason: "expected number, got string"},
	}, json.RawMessage(`{"source":"sensor-2"}`))
	require.NoError(t, store.Write(ctx, failed))

	// Both records landed in the stream.
	stream, err := tc.Client.GetStream(ctx, "OUTCOMES")
	require.NoError(t, err)
	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.State.Msgs)

	// The failed record is routed under its status and carries the
	// primary violation columns.
	msg, err := failedSub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "outcomes.failed.sensor-2", msg.Subject)

	var wire streamRecord
	require.NoError(t, json.Unmarshal(msg.Data, &wire))
	assert.Equal(t, failed.ID, wire.ID)
	assert.Equal(t, "failed", wire.Status)
	assert.Equal(t, "sensor-2", wire.Source)
	assert.Equal(t, validate.KindWrongType, wire.ErrorType)
	assert.Equal(t, "temperature", wire.ErrorField)
	assert.JSONEq(t, `{"source":"sensor-2"}`, string(wire.Report))
}

func TestJSStoreWriteFailsWhenDisconnected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	tc := natsclient.NewTestClient(t, natsclient.WithJetStream())

	u, err := url.Parse("jetstream://DISCONNECTED")
	require.NoError(t, err)
	store, err := OpenJSStore(ctx, u, tc.Client, nil)
	require.NoError(t, err)

	require.NoError(t, tc.Client.Close(ctx))

	err = store.Write(ctx, NewValidatedRecord("sensor-1", nil))
	require.Error(t, err)
	assert.True(t, valerrors.IsTransient(err), "publish failures must be retryable")
}
