package contract

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		token string
		want  FieldType
	}{
		{"string", TypeString},
		{"str", TypeString},
		{"integer", TypeInteger},
		{"int", TypeInteger},
		{"int64", TypeInteger},
		{"float", TypeFloat},
		{"float64", TypeFloat},
		{"boolean", TypeBoolean},
		{"bool", TypeBoolean},
		{"datetime", TypeDatetime},
		{"datetime64[ns]", TypeDatetime},
		{" Float64 ", TypeFloat},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseFieldType(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFieldType("decimal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dtype")
}

func TestConvertValue_Strict(t *testing.T) {
	tests := []struct {
		name  string
		value any
		ft    FieldType
		want  any
		ok    bool
	}{
		{"string ok", "hello", TypeString, "hello", true},
		{"string rejects number", json.Number("3"), TypeString, nil, false},
		{"integer ok", json.Number("42"), TypeInteger, int64(42), true},
		{"integer rejects fractional literal", json.Number("3.0"), TypeInteger, nil, false},
		{"integer rejects string", "42", TypeInteger, nil, false},
		{"float accepts integral literal", json.Number("3"), TypeFloat, 3.0, true},
		{"float ok", json.Number("25.5"), TypeFloat, 25.5, true},
		{"float rejects string", "25.5", TypeFloat, nil, false},
		{"boolean ok", true, TypeBoolean, true, true},
		{"boolean rejects string", "true", TypeBoolean, nil, false},
		{"datetime rejects number", json.Number("1700000000"), TypeDatetime, nil, false},
		{"object rejected", map[string]any{"a": 1}, TypeString, nil, false},
		{"array rejected", []any{1.0}, TypeFloat, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ConvertValue(tt.value, tt.ft, false)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestConvertValue_Coerce(t *testing.T) {
	tests := []struct {
		name  string
		value any
		ft    FieldType
		want  any
	}{
		{"string from number keeps literal", json.Number("3.50"), TypeString, "3.50"},
		{"string from bool", true, TypeString, "true"},
		{"integer from integral float", json.Number("3.0"), TypeInteger, int64(3)},
		{"integer from string", " 42 ", TypeInteger, int64(42)},
		{"integer from bool", true, TypeInteger, int64(1)},
		{"float from string", "25.5", TypeFloat, 25.5},
		{"boolean from string", "True", TypeBoolean, true},
		{"boolean from zero", json.Number("0"), TypeBoolean, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ConvertValue(tt.value, tt.ft, true)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	// coercion does not make everything pass
	_, ok := ConvertValue(json.Number("3.7"), TypeInteger, true)
	assert.False(t, ok, "non-integral float must not coerce to integer")
	_, ok = ConvertValue("not a number", TypeFloat, true)
	assert.False(t, ok)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{"rfc3339", "2026-08-25T10:30:00Z", true},
		{"rfc3339 with offset", "2026-08-25T10:30:00+03:00", true},
		{"rfc3339 nano", "2026-08-25T10:30:00.123456789Z", true},
		{"naive iso", "2026-08-25T10:30:00.123456", true},
		{"space separated", "2026-08-25 10:30:00", true},
		{"date only", "2026-08-25", false},
		{"garbage", "not-a-date", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, ok := ParseTimestamp(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.False(t, ts.IsZero())
			}
		})
	}

	ts, ok := ParseTimestamp("2026-08-25T10:30:00Z")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC), ts)
}
