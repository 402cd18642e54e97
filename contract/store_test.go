package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
)

func TestNewStore(t *testing.T) {
	docs := map[string][]byte{
		"sensor1": []byte(sensorDocument),
		"machine": []byte(`{"columns": {"rpm": {"dtype": "int", "checks": {"greater_than_or_equal_to": 0}}}}`),
	}

	s, err := NewStore(docs)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"machine", "sensor1"}, s.Names())

	c, err := s.Lookup("sensor1")
	require.NoError(t, err)
	assert.Equal(t, "sensor1", c.Name)

	_, err = s.Lookup("sensor9")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrContractNotFound)
}

func TestNewStore_FailFast(t *testing.T) {
	docs := map[string][]byte{
		"zz-broken": []byte(`{"columns": {"a": {"dtype": "decimal"}}}`),
		"aa-broken": []byte(`{"columns": {"b": {"dtype": "decimal"}}}`),
		"fine":      []byte(`{"columns": {"c": {"dtype": "str"}}}`),
	}

	// compilation walks names in sorted order, so the first failure is
	// always aa-broken no matter how the map iterates
	for i := 0; i < 10; i++ {
		_, err := NewStore(docs)
		require.Error(t, err)

		var ce *CompileError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "aa-broken", ce.Contract)
	}
}

func TestNewStore_Empty(t *testing.T) {
	s, err := NewStore(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Names())
}
