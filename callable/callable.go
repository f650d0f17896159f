// Package callable is the marker capability: it records which methods of a
// component the host may invoke and how they are marked.
//
// Go has no method annotations, so components register their callable methods
// explicitly, usually from an init function in the declaring package:
//
//	func init() {
//		callable.Register[ProfileView](callable.Legacy, "loadProfile", (*ProfileView).loadProfile)
//		callable.Constructor(NewProfileView)
//	}
//
// Registering a method expression is also what lets the adapter reach
// unexported methods: the expression is the delegate it calls.
package callable

import (
	"fmt"
	"go/token"
	"reflect"
	"sync"
)

// Marker tells the host how a callable method is marked.
type Marker int

const (
	// Plain is the current marker. Methods carrying it may not declare
	// JSON-shaped parameters on newer hosts.
	Plain Marker = iota
	// Legacy marks methods whose JSON-shaped parameters and results are
	// both converted.
	Legacy
)

func (m Marker) String() string {
	switch m {
	case Plain:
		return "callable"
	case Legacy:
		return "legacy-callable"
	default:
		return fmt.Sprintf("marker(%d)", int(m))
	}
}

// ParseMarker parses the names produced by Marker.String, plus the short
// forms "plain" and "legacy".
func ParseMarker(s string) (Marker, error) {
	switch s {
	case "callable", "plain", "":
		return Plain, nil
	case "legacy-callable", "legacy":
		return Legacy, nil
	default:
		return Plain, fmt.Errorf("unknown callable marker %q", s)
	}
}

// Final is implemented by component types that must not be instrumented.
type Final interface {
	FinalComponent()
}

// ConstructorRequired is implemented by component types whose zero value is
// not usable. When it reports true the type must register a constructor.
type ConstructorRequired interface {
	ConstructorRequired() bool
}

// Method is a registered callable method.
type Method struct {
	// Owner is the declaring struct type, never a pointer.
	Owner  reflect.Type
	Name   string
	Marker Marker
	// Static methods take no receiver and are never instrumented.
	Static bool
	// Func is the registered method expression. Unless Static, its first
	// parameter is the receiver.
	Func reflect.Value
}

// Exported reports whether the method name is exported.
func (m Method) Exported() bool {
	return token.IsExported(m.Name)
}

// PointerReceiver reports whether the method expression takes *Owner.
func (m Method) PointerReceiver() bool {
	if m.Static {
		return false
	}
	return m.Func.Type().In(0).Kind() == reflect.Pointer
}

var registry = struct {
	sync.RWMutex
	methods map[reflect.Type][]Method
	ctors   map[reflect.Type]reflect.Value
}{
	methods: make(map[reflect.Type][]Method),
	ctors:   make(map[reflect.Type]reflect.Value),
}

// Register marks the method expression fn, declared on T, as callable under
// name. It panics if fn is not a func taking T or *T first; registration runs
// at init time and a bad registration is a programming error.
func Register[T any](marker Marker, name string, fn any) {
	owner := reflect.TypeFor[T]()
	if err := add(owner, marker, name, fn, false); err != nil {
		panic(err)
	}
}

// RegisterStatic records a marked function of T that takes no receiver.
// Static methods are listed but never instrumented.
func RegisterStatic[T any](marker Marker, name string, fn any) {
	owner := reflect.TypeFor[T]()
	if err := add(owner, marker, name, fn, true); err != nil {
		panic(err)
	}
}

// Constructor registers the zero-argument constructor of T.
func Constructor[T any](fn func() *T) {
	if fn == nil {
		panic("callable: nil constructor")
	}
	owner := reflect.TypeFor[T]()
	registry.Lock()
	defer registry.Unlock()
	registry.ctors[owner] = reflect.ValueOf(fn)
}

func add(owner reflect.Type, marker Marker, name string, fn any, static bool) error {
	if owner.Kind() != reflect.Struct {
		return fmt.Errorf("callable: %s is not a struct type", owner)
	}
	if name == "" {
		return fmt.Errorf("callable: empty method name on %s", owner)
	}
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func || fv.IsNil() {
		return fmt.Errorf("callable: %s.%s is not a function", owner.Name(), name)
	}
	if !static {
		ft := fv.Type()
		if ft.NumIn() == 0 {
			return fmt.Errorf("callable: %s.%s has no receiver parameter", owner.Name(), name)
		}
		recv := ft.In(0)
		if recv != owner && recv != reflect.PointerTo(owner) {
			return fmt.Errorf("callable: %s.%s receiver is %s, want %s or *%s", owner.Name(), name, recv, owner, owner)
		}
	}

	m := Method{Owner: owner, Name: name, Marker: marker, Static: static, Func: fv}

	registry.Lock()
	defer registry.Unlock()
	list := registry.methods[owner]
	for i := range list {
		if list[i].Name == name && list[i].Static == static {
			list[i] = m
			return nil
		}
	}
	registry.methods[owner] = append(list, m)
	return nil
}

// Methods returns the methods registered on the struct type t in
// registration order.
func Methods(t reflect.Type) []Method {
	registry.RLock()
	defer registry.RUnlock()
	list := registry.methods[t]
	out := make([]Method, len(list))
	copy(out, list)
	return out
}

// Lookup returns the non-static method registered on t under name.
func Lookup(t reflect.Type, name string) (Method, bool) {
	registry.RLock()
	defer registry.RUnlock()
	for _, m := range registry.methods[t] {
		if m.Name == name && !m.Static {
			return m, true
		}
	}
	return Method{}, false
}

// LookupConstructor returns the constructor registered for t. The returned
// function yields a *t.
func LookupConstructor(t reflect.Type) (func() reflect.Value, bool) {
	registry.RLock()
	ctor, ok := registry.ctors[t]
	registry.RUnlock()
	if !ok {
		return nil, false
	}
	return func() reflect.Value {
		return ctor.Call(nil)[0]
	}, true
}
