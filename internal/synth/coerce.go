package synth

import (
	"fmt"
	"math"
	"reflect"
)

// Coerce adapts a pass-through argument to the declared parameter type.
// Numbers of another kind are converted to the declared width; a value that
// does not fit is an error rather than a silent wrap.
func Coerce(arg any, want reflect.Type) (reflect.Value, error) {
	if arg == nil {
		if nilable(want.Kind()) {
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not a valid %s", want)
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if numeric(v.Kind()) && numeric(want.Kind()) {
		return coerceNumber(v, want)
	}
	if v.Kind() == want.Kind() && v.Type().ConvertibleTo(want) {
		// Named types over the same kind, e.g. a string enum.
		return v.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", v.Type(), want)
}

func nilable(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

func signed(k reflect.Kind) bool   { return k >= reflect.Int && k <= reflect.Int64 }
func unsigned(k reflect.Kind) bool { return k >= reflect.Uint && k <= reflect.Uintptr }
func float(k reflect.Kind) bool    { return k == reflect.Float32 || k == reflect.Float64 }
func numeric(k reflect.Kind) bool  { return signed(k) || unsigned(k) || float(k) }

func coerceNumber(v reflect.Value, want reflect.Type) (reflect.Value, error) {
	out := reflect.New(want).Elem()
	switch k := want.Kind(); {
	case signed(k):
		i, ok := asInt64(v)
		if !ok || out.OverflowInt(i) {
			return reflect.Value{}, overflow(v, want)
		}
		out.SetInt(i)
	case unsigned(k):
		u, ok := asUint64(v)
		if !ok || out.OverflowUint(u) {
			return reflect.Value{}, overflow(v, want)
		}
		out.SetUint(u)
	default:
		f := asFloat64(v)
		if !math.IsInf(f, 0) && out.OverflowFloat(f) {
			return reflect.Value{}, overflow(v, want)
		}
		out.SetFloat(f)
	}
	return out, nil
}

func overflow(v reflect.Value, want reflect.Type) error {
	return fmt.Errorf("%v (%s) does not fit %s", v.Interface(), v.Type(), want)
}

func asInt64(v reflect.Value) (int64, bool) {
	switch {
	case signed(v.Kind()):
		return v.Int(), true
	case unsigned(v.Kind()):
		u := v.Uint()
		return int64(u), u <= math.MaxInt64
	default:
		f := v.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	}
}

func asUint64(v reflect.Value) (uint64, bool) {
	switch {
	case unsigned(v.Kind()):
		return v.Uint(), true
	case signed(v.Kind()):
		i := v.Int()
		return uint64(i), i >= 0
	default:
		f := v.Float()
		if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
			return 0, false
		}
		return uint64(f), true
	}
}

func asFloat64(v reflect.Value) float64 {
	switch {
	case signed(v.Kind()):
		return float64(v.Int())
	case unsigned(v.Kind()):
		return float64(v.Uint())
	default:
		return v.Float()
	}
}
