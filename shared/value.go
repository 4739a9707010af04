package shared

import (
	"math"
	"strconv"
)

// Value represents an optional indicator value. The zero value is undefined.
type Value struct {
	v  float64
	ok bool
}

// Undefined is the undefined indicator value.
var Undefined = Value{}

// Defined wraps the provided number as a defined value. Non-finite numbers are undefined.
func Defined(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined
	}

	return Value{v: v, ok: true}
}

// Get returns the wrapped number and whether it is defined.
func (v Value) Get() (float64, bool) {
	return v.v, v.ok
}

// IsDefined returns whether the value is defined.
func (v Value) IsDefined() bool {
	return v.ok
}

// String stringifies the value.
func (v Value) String() string {
	if !v.ok {
		return "undefined"
	}

	return strconv.FormatFloat(v.v, 'f', -1, 64)
}

// MarshalJSON encodes undefined values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}

	return strconv.AppendFloat(nil, v.v, 'f', -1, 64), nil
}

// UnmarshalJSON decodes null as an undefined value.
func (v *Value) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*v = Undefined
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}

	*v = Defined(f)
	return nil
}

// DefinedValues returns the defined numbers of the provided values in order.
func DefinedValues(values []Value) []float64 {
	out := make([]float64, 0, len(values))
	for idx := range values {
		if values[idx].ok {
			out = append(out, values[idx].v)
		}
	}

	return out
}
