package contract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompileCheck(t *testing.T, kind, arg string, ft FieldType) Check {
	t.Helper()
	c, err := compileCheck(kind, json.RawMessage(arg), ft)
	require.NoError(t, err)
	return c
}

func TestCompileCheck_TypeCompatibility(t *testing.T) {
	tests := []struct {
		name string
		kind string
		arg  string
		ft   FieldType
	}{
		{"range on string", "in_range", `{"min": 0, "max": 1}`, TypeString},
		{"comparison on boolean", "greater_than", `0`, TypeBoolean},
		{"regex on float", "str_matches", `"^s"`, TypeFloat},
		{"prefix on integer", "str_startswith", `"s"`, TypeInteger},
		{"equality on datetime", "equal_to", `"2026-01-01T00:00:00Z"`, TypeDatetime},
		{"membership on datetime", "isin", `["a"]`, TypeDatetime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileCheck(tt.kind, json.RawMessage(tt.arg), tt.ft)
			require.Error(t, err)
		})
	}
}

func TestCompileCheck_Arguments(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		arg     string
		ft      FieldType
		wantErr string
	}{
		{"unknown kind", "str_contains", `"x"`, TypeString, "unknown check kind"},
		{"range min over max", "in_range", `{"min": 10, "max": 1}`, TypeFloat, "exceeds max"},
		{"range missing max", "in_range", `{"min": 10}`, TypeFloat, "both min and max"},
		{"range not object", "in_range", `5`, TypeFloat, "must be an object"},
		{"comparison not number", "greater_than", `"high"`, TypeFloat, "must be a number"},
		{"equality null", "equal_to", `null`, TypeString, "must not be null"},
		{"equality wrong scalar", "equal_to", `"sensor1"`, TypeInteger, "does not fit dtype"},
		{"set empty", "isin", `[]`, TypeString, "must not be empty"},
		{"set element mismatch", "isin", `["ok", 3]`, TypeString, "does not fit dtype"},
		{"bad regexp", "str_matches", `"["`, TypeString, "invalid pattern"},
		{"pattern not string", "str_matches", `7`, TypeString, "must be a string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileCheck(tt.kind, json.RawMessage(tt.arg), tt.ft)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompileCheck_RangeAliases(t *testing.T) {
	// "between" and the historical min_value/max_value keys still compile
	c, err := compileCheck("between", json.RawMessage(`{"min_value": -20, "max_value": 10}`), TypeFloat)
	require.NoError(t, err)
	assert.Equal(t, CheckInRange, c.Kind)

	ok, _ := c.Evaluate(-5.0)
	assert.True(t, ok)
	ok, reason := c.Evaluate(11.0)
	assert.False(t, ok)
	assert.Contains(t, reason, "outside range")
}

func TestCheckEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		check  Check
		value  any
		ok     bool
		reason string
	}{
		{"in_range pass", mustCompileCheck(t, "in_range", `{"min": -40, "max": 85}`, TypeFloat), 25.5, true, ""},
		{"in_range min edge", mustCompileCheck(t, "in_range", `{"min": -40, "max": 85}`, TypeFloat), -40.0, true, ""},
		{"in_range fail", mustCompileCheck(t, "in_range", `{"min": -40, "max": 85}`, TypeFloat), 150.0, false, "outside range [-40, 85]"},
		{"greater_than pass", mustCompileCheck(t, "greater_than", `0`, TypeFloat), 0.1, true, ""},
		{"greater_than boundary fails", mustCompileCheck(t, "greater_than", `0`, TypeFloat), 0.0, false, "must be greater than 0"},
		{"gte boundary passes", mustCompileCheck(t, "greater_than_or_equal_to", `0`, TypeInteger), int64(0), true, ""},
		{"less_than fail", mustCompileCheck(t, "less_than", `1200`, TypeFloat), 1350.0, false, "must be less than 1200"},
		{"lte pass", mustCompileCheck(t, "less_than_or_equal_to", `100`, TypeInteger), int64(100), true, ""},
		{"equal_to pass", mustCompileCheck(t, "equal_to", `"sensor1"`, TypeString), "sensor1", true, ""},
		{"equal_to fail", mustCompileCheck(t, "equal_to", `"sensor1"`, TypeString), "sensor9", false, "does not equal sensor1"},
		{"equal_to numeric cross", mustCompileCheck(t, "equal_to", `3`, TypeFloat), 3.0, true, ""},
		{"not_equal_to fail", mustCompileCheck(t, "not_equal_to", `0`, TypeInteger), int64(0), false, "equals disallowed 0"},
		{"isin pass", mustCompileCheck(t, "isin", `["ok", "warn", "alarm"]`, TypeString), "warn", true, ""},
		{"isin fail", mustCompileCheck(t, "isin", `["ok", "warn"]`, TypeString), "panic", false, "not in allowed set [ok, warn]"},
		{"notin fail", mustCompileCheck(t, "notin", `[0]`, TypeInteger), int64(0), false, "in disallowed set"},
		{"str_matches pass", mustCompileCheck(t, "str_matches", `"^sensor[0-9]+$"`, TypeString), "sensor12", true, ""},
		{"str_matches fail", mustCompileCheck(t, "str_matches", `"^sensor[0-9]+$"`, TypeString), "gateway", false, "does not match pattern"},
		{"startswith fail", mustCompileCheck(t, "str_startswith", `"mqtt/"`, TypeString), "amqp/plant1", false, `does not start with "mqtt/"`},
		{"endswith pass", mustCompileCheck(t, "str_endswith", `"/data"`, TypeString), "mqtt/sensor1/data", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := tt.check.Evaluate(tt.value)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.Contains(t, reason, tt.reason)
			} else {
				assert.Empty(t, reason)
			}
		})
	}
}
