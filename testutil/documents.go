package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/mapping"
)

// TelemetryContractName is the contract the canned mappings reference.
const TelemetryContractName = "telemetry"

// TelemetryContract returns a strict contract document for a temperature
// sensor: id, timestamp, temperature in a physical range, and an
// optional humidity reading.
func TelemetryContract() []byte {
	return []byte(`{
  "strict": true,
  "ordered": false,
  "coerce": false,
  "columns": {
    "sensor_id":   {"dtype": "str", "nullable": false, "checks": {"str_startswith": "sensor-"}},
    "timestamp":   {"dtype": "float", "nullable": false, "checks": {"greater_than": 0}},
    "temperature": {"dtype": "float", "nullable": false, "checks": {"in_range": [-40, 85]}},
    "humidity":    {"dtype": "float", "nullable": true, "checks": {"in_range": [0, 100]}}
  }
}`)
}

// ContractSet returns the contract documents the canned mapping
// documents reference, keyed by contract name.
func ContractSet() map[string][]byte {
	return map[string][]byte{
		TelemetryContractName: TelemetryContract(),
	}
}

// SensorMapping builds the conventional route for one sensor source:
// raw readings arrive on sensors.<id>.raw and leave on the validated or
// failed subject.
func SensorMapping(id string) mapping.Mapping {
	return mapping.Mapping{
		Source:   id,
		Inbound:  "sensors." + id + ".raw",
		Accept:   "sensors." + id + ".validated",
		Reject:   "sensors." + id + ".failed",
		Contract: TelemetryContractName,
	}
}

// MappingDoc builds a mapping document routing one SensorMapping per
// sensor id against the given broker.
func MappingDoc(brokerURL string, ids ...string) mapping.Document {
	doc := mapping.Document{Broker: mapping.BrokerConfig{URL: brokerURL}}
	for _, id := range ids {
		doc.Mappings = append(doc.Mappings, SensorMapping(id))
	}
	return doc
}

// ValidReading returns a payload that satisfies TelemetryContract.
func ValidReading(sensorID string) []byte {
	return fmt.Appendf(nil, `{"sensor_id":%q,"timestamp":1700000000.5,"temperature":21.5,"humidity":40}`, sensorID)
}

// InvalidReading returns a payload whose temperature is outside the
// contract's range, producing an out_of_range violation.
func InvalidReading(sensorID string) []byte {
	return fmt.Appendf(nil, `{"sensor_id":%q,"timestamp":1700000000.5,"temperature":900,"humidity":40}`, sensorID)
}

// MustJSON marshals v or panics. For building test payloads inline.
func MustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
