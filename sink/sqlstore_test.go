package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	valerrors "github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/validate"
)

type outcomeRow struct {
	ID          string         `db:"id"`
	Measurement string         `db:"measurement"`
	Status      string         `db:"status"`
	Source      string         `db:"source"`
	RecordedAt  string         `db:"recorded_at"`
	ErrorType   sql.NullString `db:"error_type"`
	ErrorField  sql.NullString `db:"error_field"`
	Fields      sql.NullString `db:"fields"`
	Report      sql.NullString `db:"report"`
}

func openTestStore(t *testing.T) (*SQLStore, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "outcomes.db")
	store, err := OpenSQLStore(context.Background(), "sqlite://"+dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })
	return store, dbPath
}

func TestSQLStoreWriteValidated(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	fields := map[string]any{"temperature": 21.5, "unit": "C"}
	rec := NewValidatedRecord("sensor-1", fields)
	require.NoError(t, store.Write(ctx, rec))

	var row outcomeRow
	require.NoError(t, store.db.Get(&row, "SELECT * FROM outcomes WHERE id = ?", rec.ID))

	assert.Equal(t, DefaultMeasurement, row.Measurement)
	assert.Equal(t, "validated", row.Status)
	assert.Equal(t, "sensor-1", row.Source)
	assert.False(t, row.ErrorType.Valid, "validated rows have no error columns")
	assert.False(t, row.ErrorField.Valid)
	assert.False(t, row.Report.Valid)

	ts, err := time.Parse(time.RFC3339Nano, row.RecordedAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)

	require.True(t, row.Fields.Valid)
	var stored map[string]any
	require.NoError(t, json.Unmarshal([]byte(row.Fields.String), &stored))
	assert.Equal(t, fields, stored)
}

func TestSQLStoreWriteFailed(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	violations := []validate.Violation{
		{Field: "temperature", Kind: validate.KindWrongType, Reason: "expected number, got string"},
		{Field: "humidity", Kind: validate.KindOutOfRange, Reason: "above maximum"},
	}
	report := json.RawMessage(`{"source":"sensor-2","errors":[{"field":"temperature"}]}`)
	rec := NewFailedRecord("sensor-2", violations, report)
	require.NoError(t, store.Write(ctx, rec))

	var row outcomeRow
	require.NoError(t, store.db.Get(&row, "SELECT * FROM outcomes WHERE id = ?", rec.ID))

	assert.Equal(t, "failed", row.Status)
	require.True(t, row.ErrorType.Valid)
	assert.Equal(t, validate.KindWrongType, row.ErrorType.String, "primary violation drives the error columns")
	require.True(t, row.ErrorField.Valid)
	assert.Equal(t, "temperature", row.ErrorField.String)
	assert.False(t, row.Fields.Valid, "failed rows store the report, not fields")
	require.True(t, row.Report.Valid)
	assert.JSONEq(t, string(report), row.Report.String)
}

func TestSQLStoreCounts(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	require.NoError(t, store.Write(ctx, NewValidatedRecord("sensor-1", map[string]any{"v": 1.0})))
	require.NoError(t, store.Write(ctx, NewValidatedRecord("sensor-2", map[string]any{"v": 2.0})))
	require.NoError(t, store.Write(ctx, NewFailedRecord("sensor-1", []validate.Violation{
		{Field: "v", Kind: validate.KindMissingField, Reason: "required"},
	}, nil)))

	total, err := store.CountOutcomes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	validated, err := store.CountByStatus(ctx, StatusValidated)
	require.NoError(t, err)
	assert.Equal(t, int64(2), validated)

	failed, err := store.CountByStatus(ctx, StatusFailed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), failed)
}

func TestSQLStoreReopenKeepsRows(t *testing.T) {
	ctx := context.Background()
	store, dbPath := openTestStore(t)

	require.NoError(t, store.Write(ctx, NewValidatedRecord("sensor-1", nil)))
	require.NoError(t, store.Close(ctx))

	// Bootstrap uses IF NOT EXISTS, so reopening the same file must not
	// clobber existing rows.
	reopened, err := OpenSQLStore(ctx, "sqlite://"+dbPath, nil)
	require.NoError(t, err)
	defer reopened.Close(ctx)

	total, err := reopened.CountOutcomes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestOpenSQLStoreRejectsBadURLs(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		dbURL string
	}{
		{name: "unsupported scheme", dbURL: "mysql://localhost/outcomes"},
		{name: "no scheme", dbURL: "just-a-path.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenSQLStore(ctx, tt.dbURL, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, valerrors.ErrInvalidConfig)
		})
	}
}
