package expr

import (
	"math"
	"strconv"
)

// ToNumber coerces a value to a float64. The coercion is total: it never
// fails and never returns NaN or an infinity - anything that does not
// parse as a finite number becomes 0.
//
//	ToNumber(Number(12.5)) == 12.5
//	ToNumber(String("12.5")) == 12.5
//	ToNumber(String("abc")) == 0
//	ToNumber(Bool(true)) == 1
//	ToNumber(nil) == 0
func ToNumber(v Value) float64 {
	switch val := v.(type) {
	case Number:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	case String:
		f, err := strconv.ParseFloat(string(val), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	case Bool:
		if val {
			return 1
		}
		return 0
	default:
		// undefined, null, lists and objects all coerce to 0
		return 0
	}
}

// ToBool coerces a value to a boolean. Undefined, null, false, 0 and
// the empty string are falsy; everything else (including empty lists
// and objects) is truthy.
func ToBool(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return false
	case Bool:
		return bool(val)
	case Number:
		return float64(val) != 0
	case String:
		return val != ""
	default:
		return true
	}
}

// ToString coerces a value to a string for use as a key: slot ids,
// event names, dynamic mutation paths. Non-scalar values render as
// compact JSON; undefined renders as the empty string.
func ToString(v Value) string {
	switch val := v.(type) {
	case nil:
		return ""
	case String:
		return string(val)
	case Number:
		return string(marshalNumber(float64(val)))
	case Bool:
		return strconv.FormatBool(bool(val))
	default:
		return formatValue(v)
	}
}
