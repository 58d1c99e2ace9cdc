package utils

import (
	"reflect"
	"strconv"
	"strings"
)

// ParseValue types a raw text cell: int64 first, then float64, else the
// trimmed string. Empty cells return nil.
func ParseValue(s string) interface{} {
	// Trim whitespace first
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	// try int
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	// try float
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// Numeric safely converts supported types to float64.
func Numeric(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case float32:
		return float64(val), true
	default:
		if v == nil {
			return 0, false
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() >= reflect.Int && rv.Kind() <= reflect.Float64 {
			return rv.Convert(reflect.TypeOf(float64(0))).Float(), true
		}
		return 0, false
	}
}

// FormatFloat renders a float with the shortest representation that parses
// back to the same value, keeping a decimal point on integral values.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if strings.ContainsAny(s, ".eEIN") {
		return s
	}
	return s + ".0"
}
