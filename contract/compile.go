package contract

import (
	"fmt"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/errors"
)

// Contract is a compiled, immutable data contract. All document parsing,
// dtype resolution, and check argument validation happened at compile
// time; validating a message against a Contract cannot fail for
// structural reasons.
type Contract struct {
	Name    string
	Strict  bool
	Ordered bool
	Columns []Column

	byName map[string]int
}

// Column is a compiled column definition. Unique is informational:
// validation sees one message at a time, so there is nothing to
// deduplicate against.
type Column struct {
	Name     string
	Type     FieldType
	Nullable bool
	Unique   bool
	Coerce   bool
	Checks   []Check
}

// Lookup returns the column with the given name.
func (c *Contract) Lookup(name string) (Column, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Column{}, false
	}
	return c.Columns[i], true
}

// FieldNames returns the column names in declaration order.
func (c *Contract) FieldNames() []string {
	names := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		names[i] = col.Name
	}
	return names
}

// CompileError reports why a document failed to compile, naming the
// contract and, when the problem is column-scoped, the column.
type CompileError struct {
	Contract string
	Column   string
	Err      error
}

func (e *CompileError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("contract %s: column %s: %v", e.Contract, e.Column, e.Err)
	}
	return fmt.Sprintf("contract %s: %v", e.Contract, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Compile parses and compiles a raw contract document. Any defect in the
// document surfaces here, never during validation.
func Compile(name string, raw []byte) (*Contract, error) {
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, &CompileError{Contract: name, Err: err}
	}
	return CompileDocument(name, doc)
}

// CompileDocument compiles an already-parsed document.
func CompileDocument(name string, doc Document) (*Contract, error) {
	if len(doc.Columns) == 0 {
		return nil, &CompileError{Contract: name, Err: errors.ErrEmptyContract}
	}

	compiled := &Contract{
		Name:    name,
		Strict:  doc.Strict,
		Ordered: doc.Ordered,
		Columns: make([]Column, 0, len(doc.Columns)),
		byName:  make(map[string]int, len(doc.Columns)),
	}

	for _, def := range doc.Columns {
		ft, err := ParseFieldType(def.Spec.DType)
		if err != nil {
			return nil, &CompileError{Contract: name, Column: def.Name, Err: err}
		}

		coerce := doc.Coerce
		if def.Spec.Coerce != nil {
			coerce = *def.Spec.Coerce
		}

		col := Column{
			Name:     def.Name,
			Type:     ft,
			Nullable: def.Spec.Nullable,
			Unique:   def.Spec.Unique,
			Coerce:   coerce,
			Checks:   make([]Check, 0, len(def.Spec.Checks)),
		}
		for _, cd := range def.Spec.Checks {
			check, err := compileCheck(cd.Kind, cd.Arg, ft)
			if err != nil {
				return nil, &CompileError{Contract: name, Column: def.Name, Err: err}
			}
			col.Checks = append(col.Checks, check)
		}

		compiled.byName[col.Name] = len(compiled.Columns)
		compiled.Columns = append(compiled.Columns, col)
	}

	return compiled, nil
}
