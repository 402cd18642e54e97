package sink

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/validate"
)

// Status labels a persisted outcome: either the message passed its
// contract or it did not. There is no third state; messages that never
// reached validation (unresolvable subject) are not persisted.
type Status string

const (
	StatusValidated Status = "validated"
	StatusFailed    Status = "failed"
)

// DefaultMeasurement is the measurement name stamped on records unless
// the caller overrides it.
const DefaultMeasurement = "telemetry"

// Record is one processing outcome bound for persistence. Validated
// records carry the decoded payload fields; failed records carry the
// violation set and the serialized reject report. Source comes from the
// mapping that routed the message, never from the payload, so a record
// is attributable even when the payload lied about its identity.
type Record struct {
	ID          string
	Measurement string
	Status      Status
	Source      string
	Timestamp   time.Time
	Fields      map[string]any
	Violations  []validate.Violation
	Report      json.RawMessage
}

// NewValidatedRecord builds the record for a message that passed its
// contract. Fields is the decoded payload; the record does not copy it,
// so the caller must not mutate the map afterwards.
func NewValidatedRecord(source string, fields map[string]any) Record {
	return Record{
		ID:          uuid.NewString(),
		Measurement: DefaultMeasurement,
		Status:      StatusValidated,
		Source:      source,
		Timestamp:   time.Now().UTC(),
		Fields:      fields,
	}
}

// NewFailedRecord builds the record for a message that failed its
// contract. Violations are expected most-severe-first (Validate returns
// them that way); report is the marshaled reject document published to
// the reject topic, carried here verbatim so storage holds the same
// evidence the reject consumers saw.
func NewFailedRecord(source string, violations []validate.Violation, report json.RawMessage) Record {
	return Record{
		ID:          uuid.NewString(),
		Measurement: DefaultMeasurement,
		Status:      StatusFailed,
		Source:      source,
		Timestamp:   time.Now().UTC(),
		Violations:  violations,
		Report:      report,
	}
}

// PrimaryViolation returns the kind and field of the most severe
// violation, which stores surface as dedicated columns so failure
// dashboards can group without parsing the full report. ok is false for
// validated records.
func (r Record) PrimaryViolation() (kind, field string, ok bool) {
	if len(r.Violations) == 0 {
		return "", "", false
	}
	return r.Violations[0].Kind, r.Violations[0].Field, true
}
