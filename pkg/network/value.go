package network

import (
	"fmt"
	"math"
	"strconv"
)

// ValueType represents the type of a component attribute value
type ValueType uint8

const (
	TypeString ValueType = iota
	TypeFloat
	TypeInt
	TypeBool
)

// Value represents a typed component attribute value.
// Component tables are heterogeneous: electrical quantities are floats,
// carrier and siting references are strings, commitment flags are bools.
type Value struct {
	Type  ValueType
	str   string
	num   float64
	truth bool
}

// Helper functions to create typed values
func StringValue(s string) Value {
	return Value{Type: TypeString, str: s}
}

func FloatValue(f float64) Value {
	return Value{Type: TypeFloat, num: f}
}

func IntValue(i int64) Value {
	return Value{Type: TypeInt, num: float64(i)}
}

func BoolValue(b bool) Value {
	return Value{Type: TypeBool, truth: b}
}

// AsString returns the string form of the value. Numeric and bool values
// are formatted rather than rejected, since aggregation rule output is
// frequently re-serialized into name keys.
func (v Value) AsString() string {
	switch v.Type {
	case TypeString:
		return v.str
	case TypeFloat:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case TypeInt:
		return strconv.FormatInt(int64(v.num), 10)
	case TypeBool:
		return strconv.FormatBool(v.truth)
	}
	return ""
}

// AsFloat returns the numeric form of the value.
// Strings that do not parse as numbers come back as an error, never as a
// silent zero; bad numerics silently entering electrical quantities is
// exactly the failure mode the rule engine exists to prevent.
func (v Value) AsFloat() (float64, error) {
	switch v.Type {
	case TypeFloat, TypeInt:
		return v.num, nil
	case TypeBool:
		if v.truth {
			return 1, nil
		}
		return 0, nil
	case TypeString:
		f, err := strconv.ParseFloat(v.str, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v.str)
		}
		return f, nil
	}
	return 0, fmt.Errorf("unknown value type %d", v.Type)
}

// AsInt returns the integer form of the value.
func (v Value) AsInt() (int64, error) {
	f, err := v.AsFloat()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// AsBool returns the boolean form of the value.
func (v Value) AsBool() (bool, error) {
	switch v.Type {
	case TypeBool:
		return v.truth, nil
	case TypeFloat, TypeInt:
		return v.num != 0, nil
	case TypeString:
		return strconv.ParseBool(v.str)
	}
	return false, fmt.Errorf("unknown value type %d", v.Type)
}

// IsNaN reports whether the value is a float NaN. NaN floats mark missing
// observations in imported tables and are skipped by mean-type rules.
func (v Value) IsNaN() bool {
	return v.Type == TypeFloat && math.IsNaN(v.num)
}

// Equal reports whether two values are equal in type and content.
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case TypeString:
		return v.str == other.str
	case TypeFloat, TypeInt:
		return v.num == other.num || (math.IsNaN(v.num) && math.IsNaN(other.num))
	case TypeBool:
		return v.truth == other.truth
	}
	return false
}
