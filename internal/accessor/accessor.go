// Package accessor calls callable methods through the method expression the
// declaring package registered for them. This reaches unexported methods,
// which reflection cannot call, and keeps an exported method registered
// under another name bound to its expression.
//
// Handles neither convert arguments nor results.
package accessor

import (
	"fmt"
	"reflect"

	"github.com/mcncl/jsonmigration/callable"
	"github.com/mcncl/jsonmigration/internal/errors"
)

// Handle invokes one registered method expression.
type Handle struct {
	declaring reflect.Type
	name      string
	fn        reflect.Value
	ptrRecv   bool
}

// Resolve returns the handle for the method registered on declaring under
// name.
func Resolve(declaring reflect.Type, name string) (*Handle, error) {
	if declaring == nil {
		return nil, errors.NewGenerationError("cannot resolve "+name+" on a nil type", errors.ErrNilType)
	}
	m, ok := callable.Lookup(declaring, name)
	if !ok {
		return nil, errors.NewGenerationError(
			fmt.Sprintf("no method expression registered for %s.%s", declaring.Name(), name), errors.ErrUnknownMethod)
	}
	ft := m.Func.Type()
	if ft.NumIn() == 0 {
		return nil, errors.NewGenerationError(
			fmt.Sprintf("method expression for %s.%s takes no receiver", declaring.Name(), name), nil)
	}
	recv := ft.In(0)
	if recv != declaring && recv != reflect.PointerTo(declaring) {
		return nil, errors.NewGenerationError(
			fmt.Sprintf("method expression for %s.%s takes %s as receiver", declaring.Name(), name, recv), nil)
	}
	return &Handle{declaring: declaring, name: name, fn: m.Func, ptrRecv: recv.Kind() == reflect.Pointer}, nil
}

// Name returns the method name.
func (h *Handle) Name() string { return h.name }

// Type returns the method expression type, receiver first.
func (h *Handle) Type() reflect.Type { return h.fn.Type() }

// Invoke calls the method on receiver, which must be a pointer to the
// declaring struct. For variadic methods the last argument is the slice of
// variadic values.
func (h *Handle) Invoke(receiver reflect.Value, args []reflect.Value) ([]reflect.Value, error) {
	if !receiver.IsValid() || receiver.Kind() != reflect.Pointer || receiver.Type().Elem() != h.declaring {
		return nil, errors.NewGenerationError(
			fmt.Sprintf("receiver for %s.%s must be *%s", h.declaring.Name(), h.name, h.declaring.Name()), nil)
	}
	if receiver.IsNil() {
		return nil, errors.NewGenerationError(
			fmt.Sprintf("nil receiver for %s.%s", h.declaring.Name(), h.name), nil)
	}
	ft := h.fn.Type()
	if len(args) != ft.NumIn()-1 {
		return nil, errors.NewGenerationError(
			fmt.Sprintf("%s.%s takes %d arguments, got %d", h.declaring.Name(), h.name, ft.NumIn()-1, len(args)),
			errors.ErrArgumentCount)
	}
	for i, a := range args {
		want := ft.In(i + 1)
		if !a.IsValid() || !a.Type().AssignableTo(want) {
			return nil, errors.NewGenerationError(
				fmt.Sprintf("argument %d of %s.%s has type %s, want %s", i, h.declaring.Name(), h.name, typeName(a), want), nil)
		}
	}

	recv := receiver
	if !h.ptrRecv {
		recv = receiver.Elem()
	}
	in := append([]reflect.Value{recv}, args...)
	if ft.IsVariadic() {
		return h.fn.CallSlice(in), nil
	}
	return h.fn.Call(in), nil
}

func typeName(v reflect.Value) string {
	if !v.IsValid() {
		return "<invalid>"
	}
	return v.Type().String()
}
