package pivot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// normalizeScalar folds every numeric representation into float64 so that
// "is this a measure" is a single type switch everywhere else.
func normalizeScalar(v interface{}) interface{} {
	switch n := v.(type) {
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}

// isNumber reports whether v is a measure value.
func isNumber(v interface{}) bool {
	_, ok := normalizeScalar(v).(float64)
	return ok
}

// numberOrZero returns v as float64, or 0 for anything non-numeric.
func numberOrZero(v interface{}) float64 {
	if f, ok := normalizeScalar(v).(float64); ok {
		return f
	}
	return 0
}

// text renders a scalar for string comparison and labels. nil is empty.
func text(v interface{}) string {
	switch s := normalizeScalar(v).(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(s)
	}
}

// parseTerm reads a user-entered filter term as a number.
// Empty or unparsable terms report false.
func parseTerm(v interface{}) (float64, bool) {
	switch t := normalizeScalar(v).(type) {
	case float64:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// isBlank reports a nil or empty-string term.
func isBlank(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}
