package jsonmigration

import (
	"fmt"
	"reflect"

	"github.com/mcncl/jsonmigration/elemental"
	"github.com/mcncl/jsonmigration/internal/convert"
	"github.com/mcncl/jsonmigration/internal/errors"
	"github.com/mcncl/jsonmigration/jsonnode"
)

// The conversions below are called by wrappers produced by jsonmigrate
// generate. They do not depend on the resolved strategy.

// ToElemental converts a jsonnode value to elemental.
func ToElemental(n jsonnode.Node) (elemental.Value, error) {
	return convert.ToElemental(n)
}

// ToNode converts an elemental value to jsonnode.
func ToNode(v elemental.Value) (jsonnode.Node, error) {
	return convert.ToNode(v)
}

// ToElementalAs converts n and asserts the result to T. Null converts to the
// zero T.
func ToElementalAs[T elemental.Value](n jsonnode.Node) (T, error) {
	var zero T
	v, err := convert.ToElemental(n)
	if err != nil {
		return zero, err
	}
	if out, ok := v.(T); ok {
		return out, nil
	}
	if _, null := v.(elemental.Null); null {
		return zero, nil
	}
	return zero, kindMismatch(v.Type().String(), reflect.TypeFor[T]())
}

// ToNodeAs converts v and asserts the result to T. Null converts to the zero
// T.
func ToNodeAs[T jsonnode.Node](v elemental.Value) (T, error) {
	var zero T
	n, err := convert.ToNode(v)
	if err != nil {
		return zero, err
	}
	if out, ok := n.(T); ok {
		return out, nil
	}
	if _, null := n.(jsonnode.NullNode); null {
		return zero, nil
	}
	return zero, kindMismatch(n.NodeType().String(), reflect.TypeFor[T]())
}

// MustToElementalAs is ToElementalAs for wrappers of methods without an
// error result. It panics on failure.
func MustToElementalAs[T elemental.Value](n jsonnode.Node) T {
	out, err := ToElementalAs[T](n)
	if err != nil {
		panic(err)
	}
	return out
}

// MustToNodeAs is ToNodeAs for wrappers of methods without an error result.
// It panics on failure.
func MustToNodeAs[T jsonnode.Node](v elemental.Value) T {
	out, err := ToNodeAs[T](v)
	if err != nil {
		panic(err)
	}
	return out
}

func kindMismatch(kind string, target reflect.Type) error {
	return errors.NewConversionError(fmt.Sprintf("cannot use %s value as %s", kind, target), errors.ErrUnsupportedKind)
}
