// Package contract compiles data-contract documents into immutable,
// validated contracts and provides named lookup over a compiled set.
//
// A contract document is a JSON object describing the shape of one
// source's telemetry: per-field type, nullability, and value checks, plus
// document-wide strictness and coercion flags. Documents are compiled once
// per configuration load; message validation only ever sees the compiled
// form, so a document that passes Compile can never fail structurally at
// message time.
package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Document is the parsed but uncompiled form of a contract document.
//
// Column order is significant: it is the declared field order used by
// ordered-mode validation and by the deterministic evaluation sequence, so
// columns are kept as a slice in document order rather than a map.
type Document struct {
	Strict  bool        `json:"strict"`
	Ordered bool        `json:"ordered"`
	Coerce  bool        `json:"coerce"`
	Columns []ColumnDef `json:"-"`
}

// ColumnDef pairs a column name with its specification.
type ColumnDef struct {
	Name string
	Spec ColumnSpec
}

// ColumnSpec describes a single declared field.
type ColumnSpec struct {
	DType    string    `json:"dtype"`
	Nullable bool      `json:"nullable"`
	Unique   bool      `json:"unique"`
	Coerce   *bool     `json:"coerce,omitempty"` // nil inherits the document flag
	Checks   CheckList `json:"checks,omitempty"`
}

// CheckDef is one uncompiled check: a kind token and its raw argument.
type CheckDef struct {
	Kind string
	Arg  json.RawMessage
}

// CheckList preserves the declaration order of a column's checks. Order
// matters because violations of equal severity keep evaluation order, and
// evaluation order must not depend on map iteration.
type CheckList []CheckDef

// UnmarshalJSON walks the checks object token by token so declaration
// order survives the decode.
func (cl *CheckList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("checks must be a JSON object")
	}

	var out CheckList
	seen := make(map[string]bool)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		kind := keyTok.(string)
		if seen[kind] {
			return fmt.Errorf("duplicate check %q", kind)
		}
		seen[kind] = true

		var arg json.RawMessage
		if err := dec.Decode(&arg); err != nil {
			return fmt.Errorf("check %q: %w", kind, err)
		}
		out = append(out, CheckDef{Kind: kind, Arg: arg})
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return err
	}

	*cl = out
	return nil
}

// UnmarshalJSON decodes a contract document, preserving column order.
func (d *Document) UnmarshalJSON(data []byte) error {
	var aux struct {
		Strict  bool            `json:"strict"`
		Ordered bool            `json:"ordered"`
		Coerce  bool            `json:"coerce"`
		Columns json.RawMessage `json:"columns"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	d.Strict = aux.Strict
	d.Ordered = aux.Ordered
	d.Coerce = aux.Coerce
	d.Columns = nil

	if len(aux.Columns) == 0 || bytes.Equal(bytes.TrimSpace(aux.Columns), []byte("null")) {
		return nil
	}

	cols, err := decodeOrderedColumns(aux.Columns)
	if err != nil {
		return err
	}
	d.Columns = cols
	return nil
}

// MarshalJSON emits the document with columns in declared order.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"strict":`)
	writeBool(&buf, d.Strict)
	buf.WriteString(`,"ordered":`)
	writeBool(&buf, d.Ordered)
	buf.WriteString(`,"coerce":`)
	writeBool(&buf, d.Coerce)
	buf.WriteString(`,"columns":{`)
	for i, col := range d.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		nameJSON, err := json.Marshal(col.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(nameJSON)
		buf.WriteByte(':')
		specJSON, err := json.Marshal(specWire(col.Spec))
		if err != nil {
			return nil, err
		}
		buf.Write(specJSON)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteString("true")
	} else {
		buf.WriteString("false")
	}
}

// specWire renders a ColumnSpec for marshalling: checks become a plain
// object in declared order.
func specWire(spec ColumnSpec) map[string]any {
	out := map[string]any{
		"dtype":    spec.DType,
		"nullable": spec.Nullable,
	}
	if spec.Unique {
		out["unique"] = true
	}
	if spec.Coerce != nil {
		out["coerce"] = *spec.Coerce
	}
	if len(spec.Checks) > 0 {
		checks := make(map[string]json.RawMessage, len(spec.Checks))
		for _, c := range spec.Checks {
			checks[c.Kind] = c.Arg
		}
		out["checks"] = checks
	}
	return out
}

// decodeOrderedColumns walks the columns object token by token. Duplicate
// column names are rejected here rather than silently last-wins, since a
// duplicate always signals an authoring mistake.
func decodeOrderedColumns(raw json.RawMessage) ([]ColumnDef, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("columns must be a JSON object")
	}

	var cols []ColumnDef
	seen := make(map[string]bool)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name := keyTok.(string)
		if name == "" {
			return nil, fmt.Errorf("column name must not be empty")
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true

		var spec ColumnSpec
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		cols = append(cols, ColumnDef{Name: name, Spec: spec})
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}

	return cols, nil
}

// ParseDocument decodes raw bytes into a Document.
func ParseDocument(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}
