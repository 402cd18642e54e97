package contract

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FieldType is the declared type of a contract column.
type FieldType int

const (
	// TypeString accepts JSON strings
	TypeString FieldType = iota
	// TypeInteger accepts integral JSON numbers
	TypeInteger
	// TypeFloat accepts any JSON number
	TypeFloat
	// TypeBoolean accepts JSON booleans
	TypeBoolean
	// TypeDatetime accepts timestamp strings (RFC 3339 or "2006-01-02 15:04:05",
	// with or without fractional seconds and zone)
	TypeDatetime
)

// String returns the canonical dtype token
func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeBoolean:
		return "boolean"
	case TypeDatetime:
		return "datetime"
	default:
		return "unknown"
	}
}

// ParseFieldType resolves a dtype token to a FieldType. Tokens from the
// historical document format (str, int64, float64, datetime64[ns]) are
// accepted as aliases so existing contract documents keep working.
func ParseFieldType(token string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "string", "str":
		return TypeString, nil
	case "integer", "int", "int64":
		return TypeInteger, nil
	case "float", "float64":
		return TypeFloat, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "datetime", "timestamp", "datetime64[ns]":
		return TypeDatetime, nil
	default:
		return 0, fmt.Errorf("unknown dtype %q", token)
	}

}

// timestampLayouts are tried in order when parsing datetime values. The
// zoneless variants cover producers that emit naive local timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a timestamp string against the accepted layouts.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// JSONTypeName names the JSON type of a decoded value, for violation
// reasons ("expected integer, got string").
func JSONTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number, float64, int64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// ConvertValue normalizes a decoded JSON value to the Go representation of
// a field type: string, int64, float64, bool, or time.Time. The second
// return reports whether the value conforms.
//
// Without coercion the value must already carry the declared type in its
// JSON form; an integer column rejects the literal 3.0 but accepts 3,
// while a float column accepts both. With coercion, string forms of
// numbers and booleans, integral floats for integer columns, and numeric
// booleans are converted. Nulls never reach this function; the validator
// handles them against the nullable flag first.
func ConvertValue(value any, t FieldType, coerce bool) (any, bool) {
	switch t {
	case TypeString:
		return convertString(value, coerce)
	case TypeInteger:
		return convertInteger(value, coerce)
	case TypeFloat:
		return convertFloat(value, coerce)
	case TypeBoolean:
		return convertBoolean(value, coerce)
	case TypeDatetime:
		return convertDatetime(value)
	default:
		return nil, false
	}
}

func convertString(value any, coerce bool) (any, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		if coerce {
			return v.String(), true
		}
	case bool:
		if coerce {
			return strconv.FormatBool(v), true
		}
	}
	return nil, false
}

func convertInteger(value any, coerce bool) (any, bool) {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		if coerce {
			if f, err := v.Float64(); err == nil && f == math.Trunc(f) {
				return int64(f), true
			}
		}
	case string:
		if coerce {
			if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return i, true
			}
		}
	case bool:
		if coerce {
			if v {
				return int64(1), true
			}
			return int64(0), true
		}
	}
	return nil, false
}

func convertFloat(value any, coerce bool) (any, bool) {
	switch v := value.(type) {
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	case string:
		if coerce {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return nil, false
}

func convertBoolean(value any, coerce bool) (any, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		if coerce {
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "1":
				return true, true
			case "false", "0":
				return false, true
			}
		}
	case json.Number:
		if coerce {
			switch v.String() {
			case "1":
				return true, true
			case "0":
				return false, true
			}
		}
	}
	return nil, false
}

// convertDatetime parses from string regardless of the coerce flag;
// datetime has no non-string JSON form to be strict about.
func convertDatetime(value any) (any, bool) {
	s, ok := value.(string)
	if !ok {
		return nil, false
	}
	if ts, ok := ParseTimestamp(s); ok {
		return ts, true
	}
	return nil, false
}
