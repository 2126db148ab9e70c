package types

import (
	"math"
	"strconv"
	"strings"
)

// =============================================================================
// SCALAR VALUE EXTRACTION UTILITIES
// =============================================================================
//
// These functions provide safe, type-aware extraction from decoded YAML
// scalars. They replace bare type assertions on interface{} values that panic
// on type mismatch.
//
// Decoded values can be any of these Go types (after yaml.v3 resolves the
// scalar tag):
//   - string:    !!str scalars, including quoted numbers
//   - int:       !!int scalars that fit in an int
//   - int64:     !!int scalars outside the int range on 32-bit platforms
//   - uint64:    !!int scalars above math.MaxInt64
//   - float64:   !!float scalars, including .inf and .nan
//   - bool:      !!bool scalars
//   - time.Time: !!timestamp scalars
//   - nil:       !!null scalars

// Number is an exact integer or a float. Integer arithmetic stays integral
// until a float operand (or an overflow) promotes the result.
type Number struct {
	i       int64
	f       float64
	isFloat bool
}

// Int returns an integral Number.
func Int(v int64) Number {
	return Number{i: v}
}

// Float returns a floating point Number.
func Float(v float64) Number {
	return Number{f: v, isFloat: true}
}

// Float64 returns n as a float64.
func (n Number) Float64() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

// Add returns n + o.
func (n Number) Add(o Number) Number {
	if n.isFloat || o.isFloat {
		return Float(n.Float64() + o.Float64())
	}
	sum := n.i + o.i
	// Signed overflow: both operands share a sign the sum does not.
	if (n.i >= 0) == (o.i >= 0) && (sum >= 0) != (n.i >= 0) {
		return Float(float64(n.i) + float64(o.i))
	}
	return Int(sum)
}

// String formats integers in decimal. Floats use their shortest round-trip
// digits, in plain decimal notation when the decimal exponent is in [-4, 16)
// and in exponent notation otherwise. Plain floats always carry a fraction
// so an integral float still reads as a float ("85.0").
func (n Number) String() string {
	if !n.isFloat {
		return strconv.FormatInt(n.i, 10)
	}
	return formatFloat(n.f)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.LastIndexByte(sci, 'e')+1:])
	if err != nil || exp < -4 || exp >= 16 {
		return sci
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ExtractNumber extracts a Number from a decoded scalar.
// Returns (value, true) on success, (Number{}, false) if the value is not
// numeric. Strings are never parsed: a quoted "10" is text, not a count.
func ExtractNumber(arg interface{}) (Number, bool) {
	switch v := arg.(type) {
	case int:
		return Int(int64(v)), true
	case int64:
		return Int(v), true
	case int32:
		return Int(int64(v)), true
	case uint64:
		if v > math.MaxInt64 {
			return Float(float64(v)), true
		}
		return Int(int64(v)), true
	case float64:
		return Float(v), true
	case float32:
		return Float(float64(v)), true
	default:
		return Number{}, false
	}
}
