// Package synth builds converting overrides for callable methods.
//
// An override has the same name as the original method. JSON-shaped
// parameters of legacy-marked methods take jsonnode values and are converted
// to elemental before the original runs; a JSON-shaped result is converted
// back to jsonnode. Everything else passes through. Overrides always carry
// the plain marker, so they are the entry point the host discovers.
package synth

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/mcncl/jsonmigration/callable"
	"github.com/mcncl/jsonmigration/elemental"
	"github.com/mcncl/jsonmigration/internal/accessor"
	"github.com/mcncl/jsonmigration/internal/convert"
	"github.com/mcncl/jsonmigration/internal/discover"
	"github.com/mcncl/jsonmigration/internal/errors"
	"github.com/mcncl/jsonmigration/jsonnode"
)

var (
	anySliceType = reflect.TypeFor[[]any]()
	nodeType     = reflect.TypeFor[jsonnode.Node]()
)

// Override is the converting replacement of one callable method.
type Override struct {
	method discover.Method
	// in holds the declared parameter types of the original, without the
	// receiver. The variadic parameter is a slice type.
	in            []reflect.Type
	convertArgs   bool
	convertResult bool

	once   sync.Once
	handle *accessor.Handle
	err    error
}

// Build creates the override of m for mode.
func Build(m discover.Method, mode discover.Mode) (*Override, error) {
	if m.Owner == nil || !m.Func.IsValid() {
		return nil, errors.NewGenerationError(
			fmt.Sprintf("method %s in %s has no registered implementation", m.Name, m.DeclaringType), nil)
	}
	if m.Static {
		return nil, errors.NewGenerationError(
			fmt.Sprintf("static method %s in %s cannot be overridden", m.Name, m.DeclaringType), nil)
	}
	ft := m.Func.Type()
	in := make([]reflect.Type, ft.NumIn()-1)
	for i := range in {
		in[i] = ft.In(i + 1)
	}
	o := &Override{method: m, in: in}
	if mode == discover.Modern {
		o.convertArgs = m.Marker == callable.Legacy
		o.convertResult = m.HasJSONResult()
	}
	return o, nil
}

// Method returns the discovered method the override replaces.
func (o *Override) Method() discover.Method { return o.method }

// Name returns the method name.
func (o *Override) Name() string { return o.method.Name }

// Marker is always callable.Plain.
func (o *Override) Marker() callable.Marker { return callable.Plain }

// Exported reports the visibility of the original.
func (o *Override) Exported() bool { return o.method.Exported }

// ReturnsError reports whether the original declares a trailing error.
func (o *Override) ReturnsError() bool { return o.method.ReturnsError }

// Converting reports whether the override converts anything.
func (o *Override) Converting() bool {
	return o.convertResult || (o.convertArgs && o.method.HasJSONParam())
}

// Params returns the parameter types the override accepts.
func (o *Override) Params() []reflect.Type {
	out := make([]reflect.Type, len(o.in))
	for i, t := range o.in {
		out[i] = t
		if !o.convertArgs || !o.method.Params[i].JSONShaped() {
			continue
		}
		node := o.method.Params[i].NodeType()
		if o.method.Variadic && i == len(o.in)-1 {
			node = reflect.SliceOf(node)
		}
		out[i] = node
	}
	return out
}

// Result returns the result type of the override, or nil.
func (o *Override) Result() reflect.Type {
	if o.method.Result == nil {
		return nil
	}
	if o.convertResult {
		return o.method.Result.NodeType()
	}
	return o.method.Result.Type
}

// Invoke runs the override on target, a pointer to the component.
func (o *Override) Invoke(target reflect.Value, args ...any) (any, error) {
	recv, err := Receiver(target, o.method.Path)
	if err != nil {
		return nil, err
	}
	in, err := o.arguments(args)
	if err != nil {
		return nil, err
	}
	out, err := o.call(recv, in)
	if err != nil {
		return nil, err
	}
	return o.result(out)
}

// Receiver walks the embedded field path from target to the struct declaring
// a method and returns a pointer to it.
func Receiver(target reflect.Value, path []int) (reflect.Value, error) {
	if !target.IsValid() || target.Kind() != reflect.Pointer || target.IsNil() {
		return reflect.Value{}, errors.NewGenerationError("target must be a non-nil pointer to a component", nil)
	}
	ptr := target
	for _, i := range path {
		f := ptr.Elem().Field(i)
		if f.Kind() == reflect.Pointer {
			if f.IsNil() {
				return reflect.Value{}, errors.NewGenerationError(
					fmt.Sprintf("embedded %s of %s is nil", f.Type(), ptr.Elem().Type()), nil)
			}
			ptr = reflect.NewAt(f.Type().Elem(), f.UnsafePointer())
			continue
		}
		// Embedded structs with unexported names come back read-only;
		// re-derive the pointer so their methods can be called.
		ptr = reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr()))
	}
	return ptr, nil
}

func (o *Override) arguments(args []any) ([]reflect.Value, error) {
	fixed := len(o.in)
	if o.method.Variadic {
		fixed--
		if len(args) < fixed {
			return nil, o.countError(len(args))
		}
	} else if len(args) != fixed {
		return nil, o.countError(len(args))
	}

	in := make([]reflect.Value, 0, len(o.in))
	for i := range fixed {
		v, err := o.argument(i, args[i], o.in[i])
		if err != nil {
			return nil, err
		}
		in = append(in, v)
	}
	if !o.method.Variadic {
		return in, nil
	}

	sliceType := o.in[fixed]
	rest := spread(args[fixed:], sliceType)
	s := reflect.MakeSlice(sliceType, len(rest), len(rest))
	for j, a := range rest {
		v, err := o.argument(fixed, a, sliceType.Elem())
		if err != nil {
			return nil, err
		}
		s.Index(j).Set(v)
	}
	return append(in, s), nil
}

// spread expands a single slice argument standing for the whole variadic
// array, so callers can pass either the elements or the array itself. Only
// slices that could be the variadic array are expanded; a []byte passed to
// ...any stays one element.
func spread(rest []any, sliceType reflect.Type) []any {
	if len(rest) != 1 || rest[0] == nil {
		return rest
	}
	v := reflect.ValueOf(rest[0])
	if v.Kind() != reflect.Slice || !arrayFor(v.Type(), sliceType) {
		return rest
	}
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out
}

// arrayFor reports whether a slice of type t can stand for the variadic
// array sliceType: it is assignable to it, or it is a []any or a slice of
// jsonnode values feeding converted elements.
func arrayFor(t, sliceType reflect.Type) bool {
	if t.AssignableTo(sliceType) {
		return true
	}
	if sliceType.Elem().Kind() == reflect.Slice {
		return false
	}
	return t == anySliceType || t.Elem().Implements(nodeType)
}

func (o *Override) argument(i int, arg any, want reflect.Type) (reflect.Value, error) {
	if !o.convertArgs || !o.method.Params[i].JSONShaped() {
		v, err := Coerce(arg, want)
		if err != nil {
			return reflect.Value{}, errors.NewConversionError(
				fmt.Sprintf("argument %d of %s: %v", i, o.method.Name, err), nil)
		}
		return v, nil
	}

	var node jsonnode.Node = jsonnode.NullNode{}
	if arg != nil {
		n, ok := arg.(jsonnode.Node)
		if !ok {
			return reflect.Value{}, errors.NewConversionError(
				fmt.Sprintf("argument %d of %s must be a jsonnode value, got %T", i, o.method.Name, arg), nil)
		}
		node = n
	}
	ev, err := convert.ToElemental(node)
	if err != nil {
		return reflect.Value{}, err
	}
	v := reflect.ValueOf(ev)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if ev.Type() == elemental.TypeNull && nilable(want.Kind()) {
		return reflect.Zero(want), nil
	}
	return reflect.Value{}, errors.NewConversionError(
		fmt.Sprintf("argument %d of %s: %s value does not fit %s", i, o.method.Name, ev.Type(), want), nil)
}

func (o *Override) call(recv reflect.Value, in []reflect.Value) ([]reflect.Value, error) {
	// The registered method expression is the implementation even for
	// exported methods, since the name it is registered under is a label.
	o.once.Do(func() {
		o.handle, o.err = accessor.Resolve(o.method.Owner, o.method.Name)
	})
	if o.err != nil {
		return nil, o.err
	}
	return o.handle.Invoke(recv, in)
}

func (o *Override) result(out []reflect.Value) (any, error) {
	if o.method.ReturnsError {
		last := out[len(out)-1]
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil, nil
	}
	if !o.convertResult {
		return out[0].Interface(), nil
	}
	ev, _ := out[0].Interface().(elemental.Value)
	return convert.ToNode(ev)
}

func (o *Override) countError(got int) error {
	want := fmt.Sprintf("%d", len(o.in))
	if o.method.Variadic {
		want = fmt.Sprintf("at least %d", len(o.in)-1)
	}
	return errors.NewConversionError(
		fmt.Sprintf("%s takes %s arguments, got %d", o.method.Name, want, got), errors.ErrArgumentCount)
}
