package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// decodePayload decodes a message payload as a flat JSON object,
// preserving the order in which fields appear. Numbers are kept as
// json.Number so integer and float literals stay distinguishable.
// Duplicate keys keep their first position and last value.
func decodePayload(raw []byte) (map[string]any, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("payload is not a JSON object")
	}

	fields := make(map[string]any)
	order := make([]string, 0, 8)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("payload is not valid JSON: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("payload is not valid JSON: unexpected token %v", keyTok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("payload is not valid JSON: %w", err)
		}
		if _, seen := fields[key]; !seen {
			order = append(order, key)
		}
		fields[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, fmt.Errorf("payload has trailing data")
	}

	return fields, order, nil
}
