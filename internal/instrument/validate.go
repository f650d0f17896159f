package instrument

import (
	"fmt"
	"reflect"

	"github.com/mcncl/jsonmigration/callable"
	"github.com/mcncl/jsonmigration/host"
	"github.com/mcncl/jsonmigration/internal/errors"
)

var (
	componentType           = reflect.TypeFor[host.Component]()
	finalType               = reflect.TypeFor[callable.Final]()
	constructorRequiredType = reflect.TypeFor[callable.ConstructorRequired]()
)

// validate checks the shape of parent and returns the struct type behind it.
func validate(parent reflect.Type) (reflect.Type, error) {
	if parent == nil {
		return nil, errors.NewConfigurationError("parent type must not be nil", errors.ErrNilType)
	}
	t := parent
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch k := t.Kind(); {
	case k == reflect.Interface:
		return nil, errors.NewConfigurationError("cannot instrument an interface: "+t.String(), errors.ErrNotComponent)
	case k == reflect.Array || k == reflect.Slice:
		return nil, errors.NewConfigurationError("cannot instrument an array type: "+t.String(), errors.ErrNotComponent)
	case k == reflect.String || k == reflect.Bool || (k >= reflect.Int && k <= reflect.Complex128) || k == reflect.UnsafePointer:
		return nil, errors.NewConfigurationError("cannot instrument a primitive type: "+t.String(), errors.ErrNotComponent)
	case k != reflect.Struct:
		return nil, errors.NewConfigurationError("cannot instrument "+t.String()+": not a component type", errors.ErrNotComponent)
	}
	if t.Implements(finalType) || reflect.PointerTo(t).Implements(finalType) {
		return nil, errors.NewConfigurationError("cannot instrument a final type: "+t.String(), errors.ErrNotComponent)
	}
	return t, nil
}

// constructor returns how to create a *t. A registered constructor is used
// as is. Otherwise the zero value is used, unless t requires a constructor.
func constructor(t reflect.Type) (func() reflect.Value, error) {
	if ctor, ok := callable.LookupConstructor(t); ok {
		return ctor, nil
	}
	if reflect.PointerTo(t).Implements(constructorRequiredType) {
		zero := reflect.New(t).Interface().(callable.ConstructorRequired)
		if zero.ConstructorRequired() {
			return nil, errors.NewConfigurationError(
				fmt.Sprintf("parent type must have an accessible zero-argument constructor: %s", t), errors.ErrNoConstructor)
		}
	}
	return func() reflect.Value { return reflect.New(t) }, nil
}
