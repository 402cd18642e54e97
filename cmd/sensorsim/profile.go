package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// timestampLayout is the reading timestamp format the gateway's example
// contracts expect.
const timestampLayout = "2006-01-02 15:04:05"

// Fault classes a generator can inject into a reading.
const (
	faultOutOfBounds        = "out_of_bounds"
	faultMissingKey         = "missing_key"
	faultWrongType          = "wrong_type"
	faultNullValue          = "null_value"
	faultExtraField         = "extra_field"
	faultMalformedTimestamp = "malformed_timestamp"
	faultWrongID            = "wrong_id"
	faultCorruptPayload     = "corrupt_payload"
)

var faultKinds = []string{
	faultOutOfBounds,
	faultMissingKey,
	faultWrongType,
	faultNullValue,
	faultExtraField,
	faultMalformedTimestamp,
	faultWrongID,
	faultCorruptPayload,
}

// FieldSpec describes one numeric reading: a uniform draw from
// [Min, Max] rounded to Precision decimal places. When Product names
// other fields, the value is their product instead of a draw and
// Min/Max only bound what counts as in range for fault injection.
type FieldSpec struct {
	Name      string   `yaml:"name"`
	Min       float64  `yaml:"min"`
	Max       float64  `yaml:"max"`
	Precision int      `yaml:"precision"`
	Product   []string `yaml:"product,omitempty"`
}

// ExtraField is the unexpected key an extra_field fault injects.
type ExtraField struct {
	Name  string `yaml:"name"`
	Value any    `yaml:"value"`
}

// Profile describes one simulated sensor: its identity, the fields it
// reports, and how often it misbehaves.
type Profile struct {
	SensorID   string      `yaml:"sensor_id"`
	FaultRatio float64     `yaml:"fault_ratio"`
	Fields     []FieldSpec `yaml:"fields"`
	Extra      ExtraField  `yaml:"extra_field"`
	WrongID    string      `yaml:"wrong_id"`
}

// Validate checks that the profile can generate readings.
func (p Profile) Validate() error {
	if p.SensorID == "" {
		return fmt.Errorf("profile has no sensor_id")
	}
	if p.FaultRatio < 0 || p.FaultRatio > 1 {
		return fmt.Errorf("fault ratio %v outside [0, 1]", p.FaultRatio)
	}
	if len(p.Fields) == 0 {
		return fmt.Errorf("profile %s has no fields", p.SensorID)
	}
	for _, f := range p.Fields {
		if f.Name == "" {
			return fmt.Errorf("profile %s has a field without a name", p.SensorID)
		}
		if f.Min > f.Max {
			return fmt.Errorf("field %s: min %v above max %v", f.Name, f.Min, f.Max)
		}
	}
	return nil
}

// builtinProfiles returns the three stock sensors. Ranges match the
// contracts under configs/schemas, so a clean reading always validates
// and an injected fault always lands on the reject topic.
func builtinProfiles() map[string]Profile {
	return map[string]Profile{
		"sensor1": {
			SensorID:   "sensor1",
			FaultRatio: 0.1,
			Fields: []FieldSpec{
				{Name: "temperature", Min: -40, Max: 85, Precision: 2},
				{Name: "humidity", Min: 0, Max: 100, Precision: 2},
			},
			Extra:   ExtraField{Name: "extra_info", Value: "this-is-not-allowed"},
			WrongID: "sensorX",
		},
		"sensor2": {
			SensorID:   "sensor2",
			FaultRatio: 0.1,
			Fields: []FieldSpec{
				{Name: "pressure", Min: 950, Max: 1050, Precision: 2},
				{Name: "acceleration", Min: -10, Max: 10, Precision: 2},
			},
			Extra:   ExtraField{Name: "vibration", Value: 99.9},
			WrongID: "invalid-sensor-2",
		},
		"sensor3": {
			SensorID:   "sensor3",
			FaultRatio: 0.1,
			Fields: []FieldSpec{
				{Name: "voltage", Min: 110, Max: 230, Precision: 2},
				{Name: "current", Min: 0, Max: 20, Precision: 2},
				{Name: "power", Min: 0, Max: 4600, Precision: 2, Product: []string{"voltage", "current"}},
			},
			Extra:   ExtraField{Name: "frequency", Value: "50Hz"},
			WrongID: "invalid-sensor-3",
		},
	}
}

// profileOverride is the YAML file form. Pointer fields distinguish
// "absent" from a deliberate zero, so a file can set fault_ratio: 0.
type profileOverride struct {
	SensorID   *string     `yaml:"sensor_id"`
	FaultRatio *float64    `yaml:"fault_ratio"`
	Fields     []FieldSpec `yaml:"fields"`
	Extra      *ExtraField `yaml:"extra_field"`
	WrongID    *string     `yaml:"wrong_id"`
}

// applyProfileFile merges a YAML profile file over a built-in profile.
// Only keys present in the file change; a fields list replaces the whole
// built-in list.
func applyProfileFile(base Profile, path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile file: %w", err)
	}

	var ov profileOverride
	if err := yaml.Unmarshal(raw, &ov); err != nil {
		return Profile{}, fmt.Errorf("parse profile file: %w", err)
	}

	if ov.SensorID != nil {
		base.SensorID = *ov.SensorID
	}
	if ov.FaultRatio != nil {
		base.FaultRatio = *ov.FaultRatio
	}
	if len(ov.Fields) > 0 {
		base.Fields = ov.Fields
	}
	if ov.Extra != nil {
		base.Extra = *ov.Extra
	}
	if ov.WrongID != nil {
		base.WrongID = *ov.WrongID
	}
	return base, nil
}

// Generator produces readings for one profile. Not safe for concurrent
// use; each simulated sensor gets its own.
type Generator struct {
	profile Profile
	rng     *rand.Rand
	now     func() time.Time
}

// NewGenerator seeds a generator. Seed 0 means "different every run".
func NewGenerator(p Profile, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		profile: p,
		rng:     rand.New(rand.NewSource(seed)),
		now:     time.Now,
	}
}

// Next returns one payload and the fault class injected into it, empty
// string for a clean reading.
func (g *Generator) Next() ([]byte, string) {
	reading := g.reading()

	if g.rng.Float64() >= g.profile.FaultRatio {
		return mustMarshal(reading), ""
	}

	kind := faultKinds[g.rng.Intn(len(faultKinds))]
	if kind == faultCorruptPayload {
		// Truncated JSON: the gateway cannot decode this at all.
		whole := mustMarshal(reading)
		return whole[:len(whole)/2], kind
	}

	g.injectFault(reading, kind)
	return mustMarshal(reading), kind
}

// reading builds one clean reading: identity, wall-clock timestamp, and
// a value per field spec.
func (g *Generator) reading() map[string]any {
	m := map[string]any{
		"sensor_id": g.profile.SensorID,
		"timestamp": g.now().Format(timestampLayout),
	}
	for _, f := range g.profile.Fields {
		if len(f.Product) > 0 {
			prod := 1.0
			for _, name := range f.Product {
				if v, ok := m[name].(float64); ok {
					prod *= v
				}
			}
			m[f.Name] = roundTo(prod, f.Precision)
			continue
		}
		m[f.Name] = roundTo(f.Min+g.rng.Float64()*(f.Max-f.Min), f.Precision)
	}
	return m
}

// injectFault corrupts one reading in place.
func (g *Generator) injectFault(m map[string]any, kind string) {
	f := g.profile.Fields[g.rng.Intn(len(g.profile.Fields))]

	switch kind {
	case faultOutOfBounds:
		span := math.Max(f.Max-f.Min, 1)
		if g.rng.Float64() < 0.5 {
			m[f.Name] = roundTo(f.Max+1+g.rng.Float64()*span/2, f.Precision)
		} else {
			m[f.Name] = roundTo(f.Min-1-g.rng.Float64()*span/2, f.Precision)
		}
	case faultMissingKey:
		delete(m, f.Name)
	case faultWrongType:
		m[f.Name] = "invalid-" + f.Name
	case faultNullValue:
		m[f.Name] = nil
	case faultExtraField:
		m[g.profile.Extra.Name] = g.profile.Extra.Value
	case faultMalformedTimestamp:
		m["timestamp"] = g.now().Format("2006/01/02 15:04:05")
	case faultWrongID:
		m["sensor_id"] = g.profile.WrongID
	}
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
