package dispatch

import (
	"fmt"
	"reflect"

	"github.com/mcncl/jsonmigration/elemental"
	"github.com/mcncl/jsonmigration/internal/convert"
	"github.com/mcncl/jsonmigration/internal/errors"
	"github.com/mcncl/jsonmigration/internal/synth"
	"github.com/mcncl/jsonmigration/jsonnode"
)

var nodeType = reflect.TypeFor[jsonnode.Node]()

// Invoke calls fn with args, using the parameter types of fn to decide
// which arguments cross into the host family. On modern hosts an elemental
// argument becomes a jsonnode value where the parameter is a node type;
// elements of a variadic parameter convert whenever a node would be accepted.
// A trailing error result is returned as the error.
func Invoke(s Strategy, fn any, args ...any) (any, error) {
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, errors.NewInputError(fmt.Sprintf("cannot invoke %T", fn), nil)
	}
	ft := fv.Type()
	n := ft.NumIn()
	fixed := n
	if ft.IsVariadic() {
		fixed--
	}
	if len(args) < fixed || (!ft.IsVariadic() && len(args) != n) {
		return nil, errors.NewInputError(
			fmt.Sprintf("%s takes %d arguments, got %d", ft, n, len(args)), errors.ErrArgumentCount)
	}
	modern := s != nil && s.Host() == convert.Node

	in := make([]reflect.Value, 0, n)
	for i := range fixed {
		v, err := argument(args[i], ft.In(i), modern && ft.In(i) != reflect.TypeFor[any]())
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in = append(in, v)
	}

	if ft.IsVariadic() {
		sliceType := ft.In(n - 1)
		rest := args[fixed:]
		if len(rest) == 1 {
			if rv := reflect.ValueOf(rest[0]); rv.IsValid() && rv.Kind() == reflect.Slice && sliceType.Elem().Kind() != reflect.Slice {
				rest = make([]any, rv.Len())
				for j := range rest {
					rest[j] = rv.Index(j).Interface()
				}
			}
		}
		va := reflect.MakeSlice(sliceType, len(rest), len(rest))
		for j, a := range rest {
			v, err := argument(a, sliceType.Elem(), modern)
			if err != nil {
				return nil, fmt.Errorf("variadic argument %d: %w", j, err)
			}
			va.Index(j).Set(v)
		}
		in = append(in, va)
		return results(fv.CallSlice(in))
	}
	return results(fv.Call(in))
}

// argument prepares one argument. With toNode set, elemental values bound
// for a parameter that accepts nodes are converted first.
func argument(a any, want reflect.Type, toNode bool) (reflect.Value, error) {
	if ev, ok := a.(elemental.Value); ok && toNode && acceptsNode(want) {
		node, err := convert.ToNode(ev)
		if err != nil {
			return reflect.Value{}, err
		}
		a = node
	}
	v, err := synth.Coerce(a, want)
	if err != nil {
		return reflect.Value{}, errors.NewConversionError(err.Error(), nil)
	}
	return v, nil
}

func acceptsNode(t reflect.Type) bool {
	if t.Kind() == reflect.Interface {
		return nodeType.Implements(t)
	}
	return t.Implements(nodeType)
}

func results(out []reflect.Value) (any, error) {
	if len(out) > 0 && out[len(out)-1].Type() == reflect.TypeFor[error]() {
		if e := out[len(out)-1]; !e.IsNil() {
			return nil, e.Interface().(error)
		}
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}
