package validate

import (
	"fmt"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/contract"
)

// Outcome is the result of validating one message payload. It always
// exists: decoding failures, type mismatches, and check failures all
// land in Violations rather than surfacing as errors.
type Outcome struct {
	// Valid reports whether the payload satisfied the contract.
	Valid bool
	// Fields holds the decoded payload, with contract columns replaced
	// by their normalized values where conversion succeeded. Absent
	// columns have no entry.
	Fields map[string]any
	// Violations lists everything wrong with the payload, most severe
	// first.
	Violations []Violation
}

// Validate checks a raw payload against a compiled contract. It is a
// total function: any payload yields an Outcome, never an error, so the
// hot path has exactly two exits — accept and reject.
//
// A nil contract means the source is mapped as pass-through: the
// payload only has to be a JSON object.
func Validate(c *contract.Contract, raw []byte) Outcome {
	fields, order, err := decodePayload(raw)
	if err != nil {
		return Outcome{
			Violations: []Violation{{
				Field:  "payload",
				Kind:   KindBadFormat,
				Reason: err.Error(),
			}},
		}
	}
	if c == nil {
		return Outcome{Valid: true, Fields: fields}
	}

	var violations []Violation

	for _, col := range c.Columns {
		value, present := fields[col.Name]
		if !present {
			violations = append(violations, Violation{
				Field:  col.Name,
				Kind:   KindMissingField,
				Reason: fmt.Sprintf("required field %s is missing", col.Name),
			})
			continue
		}
		if value == nil {
			if !col.Nullable {
				violations = append(violations, Violation{
					Field:  col.Name,
					Kind:   KindNullValue,
					Reason: fmt.Sprintf("field %s is null but not nullable", col.Name),
				})
			}
			continue
		}

		normalized, ok := contract.ConvertValue(value, col.Type, col.Coerce)
		if !ok {
			violations = append(violations, Violation{
				Field:  col.Name,
				Kind:   KindWrongType,
				Reason: fmt.Sprintf("expected %s, got %s", col.Type, contract.JSONTypeName(value)),
				Value:  value,
			})
			continue
		}
		fields[col.Name] = normalized

		// checks run in declaration order and every failure is kept
		for _, check := range col.Checks {
			if ok, reason := check.Evaluate(normalized); !ok {
				violations = append(violations, Violation{
					Field:  col.Name,
					Kind:   KindForCheck(check.Kind),
					Reason: reason,
					Value:  normalized,
				})
			}
		}
	}

	if c.Strict {
		for _, name := range order {
			if _, known := c.Lookup(name); !known {
				violations = append(violations, Violation{
					Field:  name,
					Kind:   KindUnexpectedField,
					Reason: fmt.Sprintf("field %s is not declared by the contract", name),
					Value:  fields[name],
				})
			}
		}
	}

	if c.Ordered {
		if v, misplaced := checkColumnOrder(c, order); misplaced {
			violations = append(violations, v)
		}
	}

	SortViolations(violations)
	return Outcome{
		Valid:      len(violations) == 0,
		Fields:     fields,
		Violations: violations,
	}
}

// checkColumnOrder verifies that the contract columns present in the
// payload appear in declaration order. Undeclared fields are ignored.
// Only the first misplaced column is reported; once one column is out
// of place every column after it would be too.
func checkColumnOrder(c *contract.Contract, order []string) (Violation, bool) {
	declared := make([]string, 0, len(order))
	for _, col := range c.Columns {
		for _, name := range order {
			if name == col.Name {
				declared = append(declared, col.Name)
				break
			}
		}
	}

	i := 0
	for _, name := range order {
		if _, known := c.Lookup(name); !known {
			continue
		}
		if name != declared[i] {
			return Violation{
				Field:  name,
				Kind:   checkFailedPrefix + "column_ordered",
				Reason: fmt.Sprintf("field %s out of order, expected %s", name, declared[i]),
			}, true
		}
		i++
	}
	return Violation{}, false
}
