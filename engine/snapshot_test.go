package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/mapping"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/testutil"
)

func TestBuildSnapshot(t *testing.T) {
	doc := testutil.MappingDoc("nats://localhost:4222", "s1", "s2")

	snap, err := BuildSnapshot(doc, testutil.ContractSet())
	require.NoError(t, err)

	assert.NotEmpty(t, snap.ID())
	assert.False(t, snap.BuiltAt().IsZero())
	assert.Equal(t, "nats://localhost:4222", snap.Broker().URL)
	assert.Equal(t, 2, snap.Sources())
	assert.Equal(t, 1, snap.Contracts())
	assert.Equal(t, []string{"sensors.s1.raw", "sensors.s2.raw"}, snap.Subjects())

	route, ok := snap.Route("sensors.s1.raw")
	require.True(t, ok)
	assert.Equal(t, "s1", route.Source)
	assert.Equal(t, "sensors.s1.validated", route.Accept)
	assert.Equal(t, "sensors.s1.failed", route.Reject)
	require.NotNil(t, route.Contract)
	assert.Equal(t, testutil.TelemetryContractName, route.Contract.Name)

	_, ok = snap.Route("sensors.unknown.raw")
	assert.False(t, ok)
}

func TestBuildSnapshot_PassThrough(t *testing.T) {
	doc := mapping.Document{
		Broker: mapping.BrokerConfig{URL: "nats://localhost:4222"},
		Mappings: []mapping.Mapping{{
			Source:  "relay",
			Inbound: "relay.raw",
			Accept:  "relay.validated",
			Reject:  "relay.failed",
			// no contract: every decodable message is accepted
		}},
	}

	snap, err := BuildSnapshot(doc, nil)
	require.NoError(t, err)

	route, ok := snap.Route("relay.raw")
	require.True(t, ok)
	assert.Nil(t, route.Contract)
}

func TestBuildSnapshot_Rejects(t *testing.T) {
	valid := testutil.SensorMapping("s1")

	tests := []struct {
		name      string
		doc       mapping.Document
		contracts map[string][]byte
		wantIn    string
	}{
		{
			name: "duplicate inbound subject",
			doc: mapping.Document{
				Broker: mapping.BrokerConfig{URL: "nats://localhost:4222"},
				Mappings: []mapping.Mapping{
					valid,
					{Source: "s2", Inbound: valid.Inbound, Accept: "a.b", Reject: "c.d"},
				},
			},
			contracts: testutil.ContractSet(),
			wantIn:    "already routed",
		},
		{
			name: "accept equals inbound",
			doc: mapping.Document{
				Broker: mapping.BrokerConfig{URL: "nats://localhost:4222"},
				Mappings: []mapping.Mapping{
					{Source: "s1", Inbound: "loop.raw", Accept: "loop.raw", Reject: "loop.failed"},
				},
			},
			wantIn: "equals inbound",
		},
		{
			name: "uncompilable contract",
			doc:  testutil.MappingDoc("nats://localhost:4222", "s1"),
			contracts: map[string][]byte{
				testutil.TelemetryContractName: []byte(`{"strict": true, "columns": {"x": {"dtype": "quaternion"}}}`),
			},
			wantIn: "quaternion",
		},
		{
			name:      "dangling contract reference",
			doc:       testutil.MappingDoc("nats://localhost:4222", "s1"),
			contracts: map[string][]byte{},
			wantIn:    "telemetry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := BuildSnapshot(tt.doc, tt.contracts)
			require.Error(t, err)
			assert.Nil(t, snap)
			assert.True(t, errors.IsInvalid(err), "compile failures must classify as invalid: %v", err)
			assert.Contains(t, err.Error(), tt.wantIn)
		})
	}
}

func TestBuildSnapshot_DanglingReferenceWrapsSentinel(t *testing.T) {
	doc := testutil.MappingDoc("nats://localhost:4222", "s1")

	_, err := BuildSnapshot(doc, map[string][]byte{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrContractNotFound)
}
