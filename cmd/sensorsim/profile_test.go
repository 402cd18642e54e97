package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBuiltinProfilesValidate(t *testing.T) {
	for name, profile := range builtinProfiles() {
		if err := profile.Validate(); err != nil {
			t.Errorf("profile %s does not validate: %v", name, err)
		}
		if profile.SensorID != name {
			t.Errorf("profile %s reports sensor_id %s", name, profile.SensorID)
		}
	}
}

func TestGenerator_CleanReadings(t *testing.T) {
	profile := builtinProfiles()["sensor1"]
	profile.FaultRatio = 0
	gen := NewGenerator(profile, 1)

	for i := 0; i < 50; i++ {
		payload, fault := gen.Next()
		if fault != "" {
			t.Fatalf("fault %q injected with ratio 0", fault)
		}

		var reading map[string]any
		if err := json.Unmarshal(payload, &reading); err != nil {
			t.Fatalf("clean reading is not JSON: %v", err)
		}

		if reading["sensor_id"] != "sensor1" {
			t.Errorf("sensor_id = %v", reading["sensor_id"])
		}
		ts, ok := reading["timestamp"].(string)
		if !ok {
			t.Fatalf("timestamp is %T, want string", reading["timestamp"])
		}
		if _, err := time.Parse(timestampLayout, ts); err != nil {
			t.Errorf("timestamp %q does not parse: %v", ts, err)
		}

		temp, ok := reading["temperature"].(float64)
		if !ok || temp < -40 || temp > 85 {
			t.Errorf("temperature %v outside profile range", reading["temperature"])
		}
		hum, ok := reading["humidity"].(float64)
		if !ok || hum < 0 || hum > 100 {
			t.Errorf("humidity %v outside profile range", reading["humidity"])
		}
	}
}

func TestGenerator_ProductField(t *testing.T) {
	profile := builtinProfiles()["sensor3"]
	profile.FaultRatio = 0
	gen := NewGenerator(profile, 7)

	payload, _ := gen.Next()
	var reading map[string]float64
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("unmarshal reading: %v", err)
	}
	reading = map[string]float64{}
	for _, key := range []string{"voltage", "current", "power"} {
		var v float64
		if err := json.Unmarshal(raw[key], &v); err != nil {
			t.Fatalf("field %s: %v", key, err)
		}
		reading[key] = v
	}

	want := reading["voltage"] * reading["current"]
	got := reading["power"]
	if diff := got - want; diff > 0.01 || diff < -0.01 {
		t.Errorf("power = %v, want voltage*current = %v", got, want)
	}
}

func TestGenerator_FaultDistribution(t *testing.T) {
	profile := builtinProfiles()["sensor2"]
	profile.FaultRatio = 1
	gen := NewGenerator(profile, 99)

	seen := map[string]int{}
	for i := 0; i < 400; i++ {
		payload, fault := gen.Next()
		if fault == "" {
			t.Fatal("clean reading generated with ratio 1")
		}
		seen[fault]++

		var reading map[string]any
		decodable := json.Unmarshal(payload, &reading) == nil
		if fault == faultCorruptPayload && decodable {
			t.Errorf("corrupt payload decoded cleanly: %s", payload)
		}
		if fault != faultCorruptPayload && !decodable {
			t.Errorf("fault %s produced undecodable payload: %s", fault, payload)
		}
	}

	for _, kind := range faultKinds {
		if seen[kind] == 0 {
			t.Errorf("fault class %s never generated in 400 readings", kind)
		}
	}
}

func TestGenerator_FaultEffects(t *testing.T) {
	profile := builtinProfiles()["sensor1"]
	gen := NewGenerator(profile, 3)

	fieldNames := map[string]FieldSpec{}
	for _, f := range profile.Fields {
		fieldNames[f.Name] = f
	}

	tests := []struct {
		kind  string
		check func(t *testing.T, m map[string]any)
	}{
		{faultOutOfBounds, func(t *testing.T, m map[string]any) {
			for name, spec := range fieldNames {
				if v, ok := m[name].(float64); ok && (v < spec.Min || v > spec.Max) {
					return
				}
			}
			t.Error("no field out of range")
		}},
		{faultMissingKey, func(t *testing.T, m map[string]any) {
			for name := range fieldNames {
				if _, ok := m[name]; !ok {
					return
				}
			}
			t.Error("no field missing")
		}},
		{faultWrongType, func(t *testing.T, m map[string]any) {
			for name := range fieldNames {
				if _, ok := m[name].(string); ok {
					return
				}
			}
			t.Error("no field with a string value")
		}},
		{faultNullValue, func(t *testing.T, m map[string]any) {
			for name := range fieldNames {
				if v, ok := m[name]; ok && v == nil {
					return
				}
			}
			t.Error("no field set to null")
		}},
		{faultExtraField, func(t *testing.T, m map[string]any) {
			if _, ok := m["extra_info"]; !ok {
				t.Error("extra field not added")
			}
		}},
		{faultMalformedTimestamp, func(t *testing.T, m map[string]any) {
			ts, _ := m["timestamp"].(string)
			if _, err := time.Parse(timestampLayout, ts); err == nil {
				t.Errorf("timestamp %q still well formed", ts)
			}
		}},
		{faultWrongID, func(t *testing.T, m map[string]any) {
			if m["sensor_id"] != "sensorX" {
				t.Errorf("sensor_id = %v, want sensorX", m["sensor_id"])
			}
		}},
	}

	for _, tc := range tests {
		t.Run(tc.kind, func(t *testing.T) {
			reading := gen.reading()
			gen.injectFault(reading, tc.kind)
			tc.check(t, reading)
		})
	}
}

func TestApplyProfileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	override := `
fault_ratio: 0
fields:
  - name: temperature
    min: -30
    max: 0
    precision: 1
`
	if err := os.WriteFile(path, []byte(override), 0o644); err != nil {
		t.Fatalf("write override file: %v", err)
	}

	base := builtinProfiles()["sensor1"]
	merged, err := applyProfileFile(base, path)
	if err != nil {
		t.Fatalf("apply profile file: %v", err)
	}

	// Absent keys keep the built-in values.
	if merged.SensorID != "sensor1" {
		t.Errorf("sensor_id = %s", merged.SensorID)
	}
	if merged.WrongID != "sensorX" {
		t.Errorf("wrong_id = %s", merged.WrongID)
	}

	// Present keys replace them, including a deliberate zero.
	if merged.FaultRatio != 0 {
		t.Errorf("fault_ratio = %v, want 0", merged.FaultRatio)
	}
	if len(merged.Fields) != 1 || merged.Fields[0].Name != "temperature" {
		t.Fatalf("fields = %+v", merged.Fields)
	}
	if merged.Fields[0].Min != -30 || merged.Fields[0].Max != 0 {
		t.Errorf("temperature range = [%v, %v]", merged.Fields[0].Min, merged.Fields[0].Max)
	}
}

func TestApplyProfileFile_Missing(t *testing.T) {
	if _, err := applyProfileFile(builtinProfiles()["sensor1"], "does-not-exist.yaml"); err == nil {
		t.Fatal("expected error for missing profile file")
	}
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Profile)
		wantErr bool
	}{
		{"builtin", func(*Profile) {}, false},
		{"no sensor id", func(p *Profile) { p.SensorID = "" }, true},
		{"ratio above one", func(p *Profile) { p.FaultRatio = 1.5 }, true},
		{"no fields", func(p *Profile) { p.Fields = nil }, true},
		{"inverted range", func(p *Profile) { p.Fields[0].Min = 10; p.Fields[0].Max = -10 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			profile := builtinProfiles()["sensor1"]
			tc.mutate(&profile)
			err := profile.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestResolveProfile(t *testing.T) {
	t.Run("unknown sensor", func(t *testing.T) {
		_, err := resolveProfile(&CLIConfig{Sensor: "sensor9", FaultRatio: -1})
		if err == nil {
			t.Fatal("expected error for unknown sensor")
		}
	})

	t.Run("flag overrides ratio", func(t *testing.T) {
		profile, err := resolveProfile(&CLIConfig{Sensor: "sensor2", FaultRatio: 0.5})
		if err != nil {
			t.Fatalf("resolve profile: %v", err)
		}
		if profile.FaultRatio != 0.5 {
			t.Errorf("fault_ratio = %v, want 0.5", profile.FaultRatio)
		}
	})

	t.Run("negative flag keeps profile ratio", func(t *testing.T) {
		profile, err := resolveProfile(&CLIConfig{Sensor: "sensor2", FaultRatio: -1})
		if err != nil {
			t.Fatalf("resolve profile: %v", err)
		}
		if profile.FaultRatio != 0.1 {
			t.Errorf("fault_ratio = %v, want 0.1", profile.FaultRatio)
		}
	})
}
