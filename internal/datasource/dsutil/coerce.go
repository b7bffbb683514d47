package dsutil

import (
	"encoding/json"
	"strconv"
	"time"
)

// CoerceJSONScalar narrows a JSON-originated value to the narrowest native
// type in the int32 -> int64 -> decimal -> float64 -> string ladder
// (§4.3.1), preserving booleans and passing nulls through unchanged. The
// "decimal" rung is represented as a string so callers can hand it to a
// driver's exact-numeric bind without float rounding.
func CoerceJSONScalar(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case bool:
		return val
	case json.Number:
		return coerceNumber(val)
	case float64:
		// encoding/json default-decodes numbers into float64; recover the
		// narrowest representation via its string form.
		return coerceNumber(json.Number(strconv.FormatFloat(val, 'f', -1, 64)))
	case string:
		return val
	default:
		return val
	}
}

func coerceNumber(n json.Number) any {
	s := n.String()
	if i, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int32(i)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if hasFractionalDigits(s) {
		// Plain decimal literal with a fractional part - keep it as the
		// literal text, the "decimal" rung, whatever its precision.
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// hasFractionalDigits reports whether s is a plain (non-exponential)
// decimal literal with a fractional part, e.g. "19.99".
func hasFractionalDigits(s string) bool {
	dot := false
	for _, r := range s {
		switch {
		case r == '.':
			dot = true
		case r == 'e' || r == 'E':
			return false
		}
	}
	return dot
}

// NormalizeTimestamp coerces an offset-bearing time.Time to naive UTC
// (§4.3.3): the wall-clock UTC instant, stripped of its original location.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC()
}
