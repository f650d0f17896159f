// Package elemental is the host's default JSON family: a live, mutable value
// graph. Objects and arrays parsed from text are materialised lazily, on the
// first access to their contents.
//
// Numbers remember whether they were created as integers or as floating
// point values; see Number.
package elemental

import (
	"fmt"
	"strconv"

	"github.com/mcncl/jsonmigration/jsontree"
)

// Type identifies the kind of an elemental value.
type Type int

const (
	TypeNull Type = iota
	TypeBoolean
	TypeNumber
	TypeString
	TypeArray
	TypeObject
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "NULL"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeNumber:
		return "NUMBER"
	case TypeString:
		return "STRING"
	case TypeArray:
		return "ARRAY"
	case TypeObject:
		return "OBJECT"
	default:
		return fmt.Sprintf("TYPE(%d)", int(t))
	}
}

// Value is any elemental JSON value.
type Value interface {
	Type() Type
	ToJSON() string
	// JSEquals compares the way JavaScript's == does for JSON values:
	// primitives by value, objects and arrays by identity.
	JSEquals(other Value) bool
}

// Null is the JSON null literal.
type Null struct{}

// String is a JSON string.
type String string

// Boolean is a JSON boolean.
type Boolean bool

func (Null) Type() Type      { return TypeNull }
func (Null) ToJSON() string  { return "null" }
func (Null) String() string  { return "null" }
func (n Null) JSEquals(o Value) bool {
	if o == nil {
		return true
	}
	return o.Type() == TypeNull
}

func (String) Type() Type { return TypeString }
func (s String) ToJSON() string {
	return quote(string(s))
}
func (s String) JSEquals(o Value) bool {
	other, ok := o.(String)
	return ok && other == s
}

func (Boolean) Type() Type { return TypeBoolean }
func (b Boolean) ToJSON() string {
	return strconv.FormatBool(bool(b))
}
func (b Boolean) JSEquals(o Value) bool {
	other, ok := o.(Boolean)
	return ok && other == b
}

// Number is a JSON number carrying an integer or floating point subtype.
type Number struct {
	f       float64
	i       int64
	integer bool
}

// Int returns an integer-typed number.
func Int(i int64) Number {
	return Number{f: float64(i), i: i, integer: true}
}

// Float returns a floating point number.
func Float(f float64) Number {
	return Number{f: f}
}

func (Number) Type() Type { return TypeNumber }

// IsInteger reports whether n was created as an integer.
func (n Number) IsInteger() bool { return n.integer }

// Float64 returns n as a double.
func (n Number) Float64() float64 { return n.f }

// Int64 returns n as an integer, truncating floating point values.
func (n Number) Int64() int64 {
	if n.integer {
		return n.i
	}
	return int64(n.f)
}

func (n Number) ToJSON() string {
	if n.integer {
		return strconv.FormatInt(n.i, 10)
	}
	return jsontree.FormatNumber(n.f)
}

func (n Number) String() string { return n.ToJSON() }

func (n Number) JSEquals(o Value) bool {
	other, ok := o.(Number)
	return ok && other.f == n.f
}

// Create returns the elemental value for a Go string, bool, integer or float.
// Any other type yields an error.
func Create(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Boolean(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	default:
		return nil, fmt.Errorf("cannot create elemental value from %T", v)
	}
}
