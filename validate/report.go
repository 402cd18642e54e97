package validate

import (
	"encoding/json"
	"time"
)

// RejectReport is the document published to a reject topic when a
// message fails validation. The original payload is carried verbatim so
// downstream consumers can reprocess it after a contract fix.
type RejectReport struct {
	Timestamp string          `json:"timestamp"`
	Source    string          `json:"source"`
	Errors    []ReportError   `json:"errors"`
	Original  json.RawMessage `json:"original"`
}

// ReportError is one violation as it appears on the wire.
type ReportError struct {
	Field     string `json:"field"`
	ErrorType string `json:"error_type"`
	Reason    string `json:"reason"`
	Value     any    `json:"value,omitempty"`
}

// NewRejectReport builds the reject document for a failed message.
// Violations are expected to be sorted already (Validate returns them
// that way). A payload that was not valid JSON is embedded as a string.
func NewRejectReport(source string, raw []byte, violations []Violation, now time.Time) RejectReport {
	reportErrors := make([]ReportError, len(violations))
	for i, v := range violations {
		reportErrors[i] = ReportError{
			Field:     v.Field,
			ErrorType: v.Kind,
			Reason:    v.Reason,
			Value:     v.Value,
		}
	}

	report := RejectReport{
		Timestamp: now.UTC().Format(time.RFC3339),
		Source:    source,
		Errors:    reportErrors,
	}
	if json.Valid(raw) {
		report.Original = json.RawMessage(raw)
	} else {
		quoted, err := json.Marshal(string(raw))
		if err != nil {
			quoted = []byte(`""`)
		}
		report.Original = quoted
	}
	return report
}
