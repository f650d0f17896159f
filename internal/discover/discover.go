// Package discover finds the callable methods of a component and decides
// which of them need converting overrides. The same rules serve the runtime
// decorator and the build-time generator.
package discover

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/samber/lo"

	"github.com/mcncl/jsonmigration/callable"
	"github.com/mcncl/jsonmigration/internal/errors"
)

// Mode is the instrumentation behavior of the active host.
type Mode int

const (
	// Legacy hosts share the default JSON family. Only legacy-marked
	// methods get overrides, and those convert nothing.
	Legacy Mode = iota
	// Modern hosts expect jsonnode values at the boundary.
	Modern
)

func (m Mode) String() string {
	if m == Modern {
		return "modern"
	}
	return "legacy"
}

// Method is a callable method as seen by discovery.
type Method struct {
	Name string
	// DeclaringType is the name of the struct declaring the method.
	DeclaringType string
	// Owner is the declaring struct type. Nil for methods built from a
	// descriptor.
	Owner reflect.Type
	// Path is the embedded field index path from the component to Owner.
	Path []int
	// Params excludes the receiver. For variadic methods the last entry
	// describes the element type.
	Params       []TypeRef
	Variadic     bool
	Result       *TypeRef
	ReturnsError bool
	Exported     bool
	Marker       callable.Marker
	Static       bool
	// Func is the registered method expression.
	Func reflect.Value
}

// Signature renders the parameter list, used to tell overrides from
// collisions.
func (m Method) Signature() string {
	names := lo.Map(m.Params, func(p TypeRef, _ int) string { return p.Name })
	if m.Variadic && len(names) > 0 {
		names[len(names)-1] = "..." + names[len(names)-1]
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// HasJSONParam reports whether any parameter is JSON-shaped.
func (m Method) HasJSONParam() bool {
	return lo.SomeBy(m.Params, func(p TypeRef) bool { return p.JSONShaped() })
}

// HasJSONResult reports whether the result is JSON-shaped.
func (m Method) HasJSONResult() bool {
	return m.Result != nil && m.Result.JSONShaped()
}

// Link is one struct in the embedding chain of a component.
type Link struct {
	Type reflect.Type
	Path []int
}

// Chain returns t followed by its embedded structs, depth first, stopping at
// (and excluding) stop.
func Chain(t reflect.Type, stop reflect.Type) []Link {
	var out []Link
	seen := map[reflect.Type]bool{}
	var walk func(t reflect.Type, path []int)
	walk = func(t reflect.Type, path []int) {
		if seen[t] {
			return
		}
		seen[t] = true
		out = append(out, Link{Type: t, Path: path})
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.Anonymous {
				continue
			}
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() != reflect.Struct || ft == stop {
				continue
			}
			next := make([]int, len(path)+1)
			copy(next, path)
			next[len(path)] = i
			walk(ft, next)
		}
	}
	walk(t, nil)
	return out
}

var errorType = reflect.TypeFor[error]()

// FromType collects the registered callable methods of the struct type t and
// its embedded chain, outermost declarations first.
func FromType(t reflect.Type, stop reflect.Type) ([]Method, error) {
	var methods []Method
	for _, link := range Chain(t, stop) {
		for _, cm := range callable.Methods(link.Type) {
			m, err := describe(cm, link.Path)
			if err != nil {
				return nil, err
			}
			methods = append(methods, m)
		}
	}
	return methods, nil
}

func describe(cm callable.Method, path []int) (Method, error) {
	ft := cm.Func.Type()
	m := Method{
		Name:          cm.Name,
		DeclaringType: cm.Owner.Name(),
		Owner:         cm.Owner,
		Path:          path,
		Variadic:      ft.IsVariadic(),
		Exported:      cm.Exported(),
		Marker:        cm.Marker,
		Static:        cm.Static,
		Func:          cm.Func,
	}

	first := 1
	if cm.Static {
		first = 0
	}
	for i := first; i < ft.NumIn(); i++ {
		in := ft.In(i)
		if m.Variadic && i == ft.NumIn()-1 {
			in = in.Elem()
		}
		m.Params = append(m.Params, RefOf(in))
	}

	outs := ft.NumOut()
	if outs > 0 && ft.Out(outs-1) == errorType {
		m.ReturnsError = true
		outs--
	}
	switch outs {
	case 0:
	case 1:
		r := RefOf(ft.Out(0))
		m.Result = &r
	default:
		return Method{}, errors.NewConfigurationError(
			fmt.Sprintf("callable method %s in %s returns %d values; at most one value and an error are supported", cm.Name, m.DeclaringType, ft.NumOut()), nil)
	}
	return m, nil
}

// Select applies the instrumentation rules for mode and returns the methods
// that need a converting override, outermost declaration first. Methods must
// be ordered outermost first, as FromType returns them.
func Select(methods []Method, mode Mode) ([]Method, error) {
	instance := lo.Filter(methods, func(m Method, _ int) bool { return !m.Static })

	resolved, err := resolveOverrides(instance)
	if err != nil {
		return nil, err
	}

	var selected []Method
	for _, m := range resolved {
		ok, err := instrumentable(m, mode)
		if err != nil {
			return nil, err
		}
		if ok {
			selected = append(selected, m)
		}
	}
	return selected, nil
}

// resolveOverrides keeps the outermost declaration of each name. The same
// name declared with another parameter list is a collision.
func resolveOverrides(methods []Method) ([]Method, error) {
	groups := lo.GroupBy(methods, func(m Method) string { return m.Name })
	names := lo.Uniq(lo.Map(methods, func(m Method, _ int) string { return m.Name }))

	out := make([]Method, 0, len(names))
	for _, name := range names {
		group := groups[name]
		distinct := lo.UniqBy(group, func(m Method) string { return m.Signature() })
		if len(distinct) > 1 {
			return nil, errors.NewConfigurationError(
				fmt.Sprintf("callable method %s is declared as %s%s in %s and as %s%s in %s",
					name, name, distinct[0].Signature(), distinct[0].DeclaringType,
					name, distinct[1].Signature(), distinct[1].DeclaringType),
				errors.ErrNameCollision)
		}
		out = append(out, group[0])
	}
	return out, nil
}

func instrumentable(m Method, mode Mode) (bool, error) {
	if mode == Legacy {
		return m.Marker == callable.Legacy, nil
	}
	switch m.Marker {
	case callable.Legacy:
		return true, nil
	default:
		if m.HasJSONParam() {
			return false, errors.NewConfigurationError(
				fmt.Sprintf("method %s in %s is marked %s but declares a JSON-shaped parameter; mark it %s instead",
					m.Name, m.DeclaringType, callable.Plain, callable.Legacy),
				errors.ErrMarkerMismatch)
		}
		return m.HasJSONResult(), nil
	}
}
