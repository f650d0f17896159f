// Package codec decodes elemental values into Go values and encodes plain Go
// values as elemental values, without any type information on the wire.
package codec

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/mcncl/jsonmigration/elemental"
	"github.com/mcncl/jsonmigration/internal/errors"
)

var elementalValueType = reflect.TypeFor[elemental.Value]()

// DecodeAs converts v to target. Strings, booleans and numbers are coerced
// the way JavaScript coerces them; elemental value types are returned as is.
// Null decodes to the zero value of any non-primitive target.
func DecodeAs(v elemental.Value, target reflect.Type) (any, error) {
	if target == nil {
		return nil, errors.NewConversionError("decode target type is nil", errors.ErrNilType)
	}
	if v == nil {
		v = elemental.Null{}
	}
	if target.Implements(elementalValueType) {
		if reflect.TypeOf(v).AssignableTo(target) {
			return v, nil
		}
		if v.Type() == elemental.TypeNull && (target.Kind() == reflect.Pointer || target.Kind() == reflect.Interface) {
			return reflect.Zero(target).Interface(), nil
		}
		return nil, mismatch(v, target)
	}
	if v.Type() == elemental.TypeNull && !primitive(target.Kind()) {
		return reflect.Zero(target).Interface(), nil
	}

	out := reflect.New(target).Elem()
	switch k := target.Kind(); {
	case k == reflect.String:
		out.SetString(asString(v))
	case k == reflect.Bool:
		out.SetBool(asBoolean(v))
	case k == reflect.Float32 || k == reflect.Float64:
		out.SetFloat(asNumber(v))
	case k >= reflect.Int && k <= reflect.Int64:
		f := asNumber(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			out.SetInt(0)
			break
		}
		// int64(f) is implementation defined outside the int64 range.
		if f >= math.MaxInt64 || f < math.MinInt64 {
			return nil, mismatch(v, target)
		}
		i := int64(f)
		if out.OverflowInt(i) {
			return nil, mismatch(v, target)
		}
		out.SetInt(i)
	case k == reflect.Interface && target.NumMethod() == 0:
		return natural(v), nil
	default:
		return nil, mismatch(v, target)
	}
	return out.Interface(), nil
}

// Decode is DecodeAs with the target taken from T.
func Decode[T any](v elemental.Value) (T, error) {
	var zero T
	out, err := DecodeAs(v, reflect.TypeFor[T]())
	if err != nil || out == nil {
		return zero, err
	}
	return out.(T), nil
}

// EncodeWithoutTypeInfo returns the elemental value for a Go string, boolean,
// number or elemental value. Nil encodes to null.
func EncodeWithoutTypeInfo(v any) (elemental.Value, error) {
	out, err := elemental.Create(v)
	if err != nil {
		return nil, errors.NewConversionError(fmt.Sprintf("cannot encode %T", v), errors.ErrUnsupportedKind)
	}
	return out, nil
}

func primitive(k reflect.Kind) bool {
	switch k {
	case reflect.String, reflect.Bool, reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func mismatch(v elemental.Value, target reflect.Type) error {
	return errors.NewConversionError(
		fmt.Sprintf("cannot decode %s value as %s", v.Type(), target), errors.ErrUnsupportedKind)
}

func asString(v elemental.Value) string {
	switch t := v.(type) {
	case elemental.String:
		return string(t)
	case *elemental.Array:
		parts := make([]string, t.Length())
		for i := range parts {
			e := t.Get(i)
			if e.Type() != elemental.TypeNull {
				parts[i] = asString(e)
			}
		}
		return strings.Join(parts, ",")
	case *elemental.Object:
		return "[object Object]"
	default:
		return v.ToJSON()
	}
}

func asBoolean(v elemental.Value) bool {
	switch t := v.(type) {
	case elemental.Boolean:
		return bool(t)
	case elemental.Number:
		f := t.Float64()
		return f != 0 && !math.IsNaN(f)
	case elemental.String:
		return t != ""
	case elemental.Null:
		return false
	default:
		return true
	}
}

func asNumber(v elemental.Value) float64 {
	switch t := v.(type) {
	case elemental.Number:
		return t.Float64()
	case elemental.Boolean:
		if t {
			return 1
		}
		return 0
	case elemental.String:
		s := strings.TrimSpace(string(t))
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case elemental.Null:
		return 0
	default:
		return math.NaN()
	}
}

// natural returns the plain Go value for v: string, bool, float64, nil, or
// the elemental container itself.
func natural(v elemental.Value) any {
	switch t := v.(type) {
	case elemental.String:
		return string(t)
	case elemental.Boolean:
		return bool(t)
	case elemental.Number:
		return t.Float64()
	case elemental.Null:
		return nil
	default:
		return v
	}
}
