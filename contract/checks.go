package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CheckKind enumerates the supported value checks. The set is closed:
// compiling a document with any other kind fails.
type CheckKind int

const (
	CheckInRange CheckKind = iota
	CheckGreaterThan
	CheckGreaterThanOrEqual
	CheckLessThan
	CheckLessThanOrEqual
	CheckEqualTo
	CheckNotEqualTo
	CheckIsIn
	CheckNotIn
	CheckStrMatches
	CheckStrStartsWith
	CheckStrEndsWith
)

// String returns the wire token for the kind.
func (k CheckKind) String() string {
	switch k {
	case CheckInRange:
		return "in_range"
	case CheckGreaterThan:
		return "greater_than"
	case CheckGreaterThanOrEqual:
		return "greater_than_or_equal_to"
	case CheckLessThan:
		return "less_than"
	case CheckLessThanOrEqual:
		return "less_than_or_equal_to"
	case CheckEqualTo:
		return "equal_to"
	case CheckNotEqualTo:
		return "not_equal_to"
	case CheckIsIn:
		return "isin"
	case CheckNotIn:
		return "notin"
	case CheckStrMatches:
		return "str_matches"
	case CheckStrStartsWith:
		return "str_startswith"
	case CheckStrEndsWith:
		return "str_endswith"
	default:
		return "unknown"
	}
}

// ParseCheckKind resolves a wire token to a CheckKind. "between" is an
// accepted alias for in_range.
func ParseCheckKind(token string) (CheckKind, error) {
	switch strings.TrimSpace(token) {
	case "in_range", "between":
		return CheckInRange, nil
	case "greater_than":
		return CheckGreaterThan, nil
	case "greater_than_or_equal_to":
		return CheckGreaterThanOrEqual, nil
	case "less_than":
		return CheckLessThan, nil
	case "less_than_or_equal_to":
		return CheckLessThanOrEqual, nil
	case "equal_to":
		return CheckEqualTo, nil
	case "not_equal_to":
		return CheckNotEqualTo, nil
	case "isin":
		return CheckIsIn, nil
	case "notin":
		return CheckNotIn, nil
	case "str_matches":
		return CheckStrMatches, nil
	case "str_startswith":
		return CheckStrStartsWith, nil
	case "str_endswith":
		return CheckStrEndsWith, nil
	default:
		return 0, fmt.Errorf("unknown check kind %q", token)
	}
}

// Check is a compiled, ready-to-evaluate value check. All argument
// parsing and validation happens at compile time; Evaluate never fails
// for structural reasons.
type Check struct {
	Kind CheckKind

	min, max float64        // in_range bounds
	bound    float64        // comparison operand
	target   any            // equal_to / not_equal_to operand, normalized
	set      []any          // isin / notin members, normalized
	pattern  *regexp.Regexp // str_matches
	affix    string         // str_startswith / str_endswith operand
}

// numericKind reports whether the kind compares against numeric bounds.
func numericKind(k CheckKind) bool {
	switch k {
	case CheckInRange, CheckGreaterThan, CheckGreaterThanOrEqual, CheckLessThan, CheckLessThanOrEqual:
		return true
	}
	return false
}

// stringKind reports whether the kind operates on string values only.
func stringKind(k CheckKind) bool {
	switch k {
	case CheckStrMatches, CheckStrStartsWith, CheckStrEndsWith:
		return true
	}
	return false
}

// compileCheck builds a Check from its raw document form, enforcing that
// the kind is applicable to the column's declared type.
func compileCheck(token string, arg json.RawMessage, ft FieldType) (Check, error) {
	kind, err := ParseCheckKind(token)
	if err != nil {
		return Check{}, err
	}

	switch {
	case numericKind(kind):
		if ft != TypeInteger && ft != TypeFloat {
			return Check{}, fmt.Errorf("check %s requires a numeric column, dtype is %s", kind, ft)
		}
	case stringKind(kind):
		if ft != TypeString {
			return Check{}, fmt.Errorf("check %s requires a string column, dtype is %s", kind, ft)
		}
	default:
		// equality and membership work on any scalar except datetime
		if ft == TypeDatetime {
			return Check{}, fmt.Errorf("check %s is not applicable to datetime columns", kind)
		}
	}

	c := Check{Kind: kind}
	switch kind {
	case CheckInRange:
		min, max, err := decodeRangeArg(arg)
		if err != nil {
			return Check{}, fmt.Errorf("check %s: %w", kind, err)
		}
		c.min, c.max = min, max
	case CheckGreaterThan, CheckGreaterThanOrEqual, CheckLessThan, CheckLessThanOrEqual:
		bound, err := decodeNumberArg(arg)
		if err != nil {
			return Check{}, fmt.Errorf("check %s: %w", kind, err)
		}
		c.bound = bound
	case CheckEqualTo, CheckNotEqualTo:
		target, err := decodeScalarArg(arg, ft)
		if err != nil {
			return Check{}, fmt.Errorf("check %s: %w", kind, err)
		}
		c.target = target
	case CheckIsIn, CheckNotIn:
		set, err := decodeSetArg(arg, ft)
		if err != nil {
			return Check{}, fmt.Errorf("check %s: %w", kind, err)
		}
		c.set = set
	case CheckStrMatches:
		expr, err := decodeStringArg(arg)
		if err != nil {
			return Check{}, fmt.Errorf("check %s: %w", kind, err)
		}
		pattern, err := regexp.Compile(expr)
		if err != nil {
			return Check{}, fmt.Errorf("check %s: invalid pattern: %w", kind, err)
		}
		c.pattern = pattern
	case CheckStrStartsWith, CheckStrEndsWith:
		affix, err := decodeStringArg(arg)
		if err != nil {
			return Check{}, fmt.Errorf("check %s: %w", kind, err)
		}
		c.affix = affix
	}
	return c, nil
}

// Evaluate applies the check to a normalized column value and reports
// whether it passed. On failure the second return is a human-readable
// reason for the reject report.
func (c Check) Evaluate(value any) (bool, string) {
	switch c.Kind {
	case CheckInRange:
		f, _ := numericValue(value)
		if f < c.min || f > c.max {
			return false, fmt.Sprintf("value %s outside range [%s, %s]",
				formatValue(value), formatFloat(c.min), formatFloat(c.max))
		}
	case CheckGreaterThan:
		f, _ := numericValue(value)
		if !(f > c.bound) {
			return false, fmt.Sprintf("value %s must be greater than %s", formatValue(value), formatFloat(c.bound))
		}
	case CheckGreaterThanOrEqual:
		f, _ := numericValue(value)
		if !(f >= c.bound) {
			return false, fmt.Sprintf("value %s must be at least %s", formatValue(value), formatFloat(c.bound))
		}
	case CheckLessThan:
		f, _ := numericValue(value)
		if !(f < c.bound) {
			return false, fmt.Sprintf("value %s must be less than %s", formatValue(value), formatFloat(c.bound))
		}
	case CheckLessThanOrEqual:
		f, _ := numericValue(value)
		if !(f <= c.bound) {
			return false, fmt.Sprintf("value %s must be at most %s", formatValue(value), formatFloat(c.bound))
		}
	case CheckEqualTo:
		if !scalarEqual(value, c.target) {
			return false, fmt.Sprintf("value %s does not equal %s", formatValue(value), formatValue(c.target))
		}
	case CheckNotEqualTo:
		if scalarEqual(value, c.target) {
			return false, fmt.Sprintf("value %s equals disallowed %s", formatValue(value), formatValue(c.target))
		}
	case CheckIsIn:
		if !inSet(value, c.set) {
			return false, fmt.Sprintf("value %s not in allowed set %s", formatValue(value), formatSet(c.set))
		}
	case CheckNotIn:
		if inSet(value, c.set) {
			return false, fmt.Sprintf("value %s in disallowed set %s", formatValue(value), formatSet(c.set))
		}
	case CheckStrMatches:
		s, _ := value.(string)
		if !c.pattern.MatchString(s) {
			return false, fmt.Sprintf("value %q does not match pattern %s", s, c.pattern.String())
		}
	case CheckStrStartsWith:
		s, _ := value.(string)
		if !strings.HasPrefix(s, c.affix) {
			return false, fmt.Sprintf("value %q does not start with %q", s, c.affix)
		}
	case CheckStrEndsWith:
		s, _ := value.(string)
		if !strings.HasSuffix(s, c.affix) {
			return false, fmt.Sprintf("value %q does not end with %q", s, c.affix)
		}
	}
	return true, ""
}

// numericValue widens a normalized numeric value to float64.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// scalarEqual compares normalized scalars, treating int64 and float64 as
// the same numeric domain so 3 equals 3.0.
func scalarEqual(a, b any) bool {
	fa, aok := numericValue(a)
	fb, bok := numericValue(b)
	if aok && bok {
		return fa == fb
	}
	return a == b
}

func inSet(v any, set []any) bool {
	for _, member := range set {
		if scalarEqual(v, member) {
			return true
		}
	}
	return false
}

// decodeRangeArg reads {"min": x, "max": y}. The historical
// min_value/max_value keys are accepted as aliases.
func decodeRangeArg(arg json.RawMessage) (float64, float64, error) {
	var raw struct {
		Min      *json.Number `json:"min"`
		Max      *json.Number `json:"max"`
		MinValue *json.Number `json:"min_value"`
		MaxValue *json.Number `json:"max_value"`
	}
	dec := json.NewDecoder(bytes.NewReader(arg))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return 0, 0, fmt.Errorf("argument must be an object with min and max: %w", err)
	}
	if raw.Min == nil {
		raw.Min = raw.MinValue
	}
	if raw.Max == nil {
		raw.Max = raw.MaxValue
	}
	if raw.Min == nil || raw.Max == nil {
		return 0, 0, fmt.Errorf("argument must supply both min and max")
	}
	min, err := raw.Min.Float64()
	if err != nil {
		return 0, 0, fmt.Errorf("min is not a number: %w", err)
	}
	max, err := raw.Max.Float64()
	if err != nil {
		return 0, 0, fmt.Errorf("max is not a number: %w", err)
	}
	if min > max {
		return 0, 0, fmt.Errorf("min %s exceeds max %s", formatFloat(min), formatFloat(max))
	}
	return min, max, nil
}

func decodeNumberArg(arg json.RawMessage) (float64, error) {
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(arg))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return 0, fmt.Errorf("argument must be a number: %w", err)
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("argument must be a number: %w", err)
	}
	return f, nil
}

func decodeStringArg(arg json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(arg, &s); err != nil {
		return "", fmt.Errorf("argument must be a string: %w", err)
	}
	return s, nil
}

// decodeScalarArg reads a scalar operand and normalizes it to the
// column's type, so evaluation compares like with like.
func decodeScalarArg(arg json.RawMessage, ft FieldType) (any, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(arg))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("argument must be a scalar: %w", err)
	}
	if v == nil {
		return nil, fmt.Errorf("argument must not be null")
	}
	normalized, ok := ConvertValue(v, ft, false)
	if !ok {
		return nil, fmt.Errorf("argument %s does not fit dtype %s", formatValue(v), ft)
	}
	return normalized, nil
}

// decodeSetArg reads a non-empty array of scalars, each normalized to the
// column's type.
func decodeSetArg(arg json.RawMessage, ft FieldType) ([]any, error) {
	var raw []any
	dec := json.NewDecoder(bytes.NewReader(arg))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("argument must be an array: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("argument must not be empty")
	}
	set := make([]any, 0, len(raw))
	for i, v := range raw {
		if v == nil {
			return nil, fmt.Errorf("element %d must not be null", i)
		}
		normalized, ok := ConvertValue(v, ft, false)
		if !ok {
			return nil, fmt.Errorf("element %d (%s) does not fit dtype %s", i, formatValue(v), ft)
		}
		set = append(set, normalized)
	}
	return set, nil
}

// formatValue renders a normalized or raw decoded value for reasons and
// compile errors.
func formatValue(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return formatFloat(n)
	case bool:
		return strconv.FormatBool(n)
	case json.Number:
		return n.String()
	case time.Time:
		return n.Format(time.RFC3339)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatSet(set []any) string {
	parts := make([]string, len(set))
	for i, v := range set {
		parts[i] = formatValue(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
