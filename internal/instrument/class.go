package instrument

import (
	"fmt"
	"reflect"

	"github.com/samber/lo"

	"github.com/mcncl/jsonmigration/callable"
	"github.com/mcncl/jsonmigration/internal/discover"
	"github.com/mcncl/jsonmigration/internal/errors"
	"github.com/mcncl/jsonmigration/internal/synth"
)

// MethodInfo describes a callable method of a class as the host sees it.
type MethodInfo struct {
	Name          string
	DeclaringType string
	Marker        callable.Marker
	Params        []reflect.Type
	Result        reflect.Type
	ReturnsError  bool
	Exported      bool
	// Converting is set on overrides that convert arguments or results.
	Converting bool
}

// Class is a component type as exposed to the host: either the parent itself
// or its instrumented form.
type Class struct {
	parent       reflect.Type
	instrumented bool
	methods      []MethodInfo
	calls        map[string]*synth.Override
	newFn        func() reflect.Value
}

func newPlainClass(t reflect.Type, methods []discover.Method) (*Class, error) {
	c := &Class{
		parent: t,
		calls:  make(map[string]*synth.Override),
		newFn:  func() reflect.Value { return reflect.New(t) },
	}
	if ctor, ok := callable.LookupConstructor(t); ok {
		c.newFn = ctor
	}
	if err := c.addOriginals(methods, nil); err != nil {
		return nil, err
	}
	return c, nil
}

func newInstrumentedClass(t reflect.Type, methods, selected []discover.Method, mode discover.Mode, ctor func() reflect.Value) (*Class, error) {
	c := &Class{
		parent:       t,
		instrumented: true,
		calls:        make(map[string]*synth.Override),
		newFn:        ctor,
	}
	for _, m := range selected {
		o, err := synth.Build(m, mode)
		if err != nil {
			return nil, err
		}
		c.calls[m.Name] = o
		c.methods = append(c.methods, MethodInfo{
			Name:          m.Name,
			DeclaringType: m.DeclaringType,
			Marker:        o.Marker(),
			Params:        o.Params(),
			Result:        o.Result(),
			ReturnsError:  o.ReturnsError(),
			Exported:      o.Exported(),
			Converting:    o.Converting(),
		})
	}
	overridden := lo.SliceToMap(selected, func(m discover.Method) (string, bool) { return m.Name, true })
	if err := c.addOriginals(methods, overridden); err != nil {
		return nil, err
	}
	return c, nil
}

// addOriginals registers the outermost declaration of every instance method
// not in skip, unconverted and with its own marker.
func (c *Class) addOriginals(methods []discover.Method, skip map[string]bool) error {
	instance := lo.Filter(methods, func(m discover.Method, _ int) bool { return !m.Static && !skip[m.Name] })
	for _, m := range lo.UniqBy(instance, func(m discover.Method) string { return m.Name }) {
		o, err := synth.Build(m, discover.Legacy)
		if err != nil {
			return err
		}
		c.calls[m.Name] = o
		c.methods = append(c.methods, MethodInfo{
			Name:          m.Name,
			DeclaringType: m.DeclaringType,
			Marker:        m.Marker,
			Params:        o.Params(),
			Result:        o.Result(),
			ReturnsError:  m.ReturnsError,
			Exported:      m.Exported,
		})
	}
	return nil
}

// Name returns the class name. Instrumented classes carry an $Instrumented
// suffix.
func (c *Class) Name() string {
	if c.instrumented {
		return c.parent.String() + "$Instrumented"
	}
	return c.parent.String()
}

// Parent returns the component type.
func (c *Class) Parent() reflect.Type { return c.parent }

// Instrumented reports whether the class has converting overrides.
func (c *Class) Instrumented() bool { return c.instrumented }

// Methods lists the callable methods, overrides first.
func (c *Class) Methods() []MethodInfo {
	out := make([]MethodInfo, len(c.methods))
	copy(out, c.methods)
	return out
}

// Method returns the callable method called name.
func (c *Class) Method(name string) (MethodInfo, bool) {
	return lo.Find(c.methods, func(m MethodInfo) bool { return m.Name == name })
}

// New creates an instance with the registered constructor, or the zero value.
func (c *Class) New() (*Instance, error) {
	v := c.newFn()
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		return nil, errors.NewGenerationError("constructor of "+c.parent.String()+" returned nil", errors.ErrNoConstructor)
	}
	return &Instance{class: c, target: v}, nil
}

// Wrap binds an existing component to the class.
func (c *Class) Wrap(target any) (*Instance, error) {
	v := reflect.ValueOf(target)
	if !v.IsValid() || v.Type() != reflect.PointerTo(c.parent) || v.IsNil() {
		return nil, errors.NewInputError(fmt.Sprintf("%T is not a non-nil *%s", target, c.parent), nil)
	}
	return &Instance{class: c, target: v}, nil
}

// Instance is a component bound to its class.
type Instance struct {
	class  *Class
	target reflect.Value
}

// Class returns the class of the instance.
func (i *Instance) Class() *Class { return i.class }

// Target returns the underlying component pointer.
func (i *Instance) Target() any { return i.target.Interface() }

// Call invokes the callable method called name the way the host would.
func (i *Instance) Call(name string, args ...any) (any, error) {
	o, ok := i.class.calls[name]
	if !ok {
		return nil, errors.NewInputError(
			fmt.Sprintf("%s has no callable method %s", i.class.Name(), name), errors.ErrUnknownMethod)
	}
	return o.Invoke(i.target, args...)
}
