// Package convert maps values between the canonical JSON tree and the two
// concrete representations: elemental (A) and jsonnode (B).
package convert

import (
	"fmt"
	"math"

	"github.com/mcncl/jsonmigration/elemental"
	"github.com/mcncl/jsonmigration/internal/errors"
	"github.com/mcncl/jsonmigration/jsonnode"
	"github.com/mcncl/jsonmigration/jsontree"
)

// Representation names a concrete JSON family.
type Representation int

const (
	Elemental Representation = iota
	Node
)

func (r Representation) String() string {
	switch r {
	case Elemental:
		return "elemental"
	case Node:
		return "jsonnode"
	default:
		return fmt.Sprintf("representation(%d)", int(r))
	}
}

// Side tells which end of a conversion could not handle a kind.
type Side string

const (
	Source Side = "source"
	Target Side = "target"
)

// ConversionError reports a node kind that one side of a conversion does not
// support.
type ConversionError struct {
	Side Side
	// Representation is the family that owns the unsupported kind.
	Representation string
	Kind           string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("unsupported %s kind %s in %s", e.Side, e.Kind, e.Representation)
}

func (e *ConversionError) Unwrap() error {
	return errors.ErrUnsupportedKind
}

func unsupported(side Side, rep, kind string) error {
	cerr := &ConversionError{Side: side, Representation: rep, Kind: kind}
	return errors.NewConversionError(cerr.Error(), cerr)
}

// ToCanonical converts an elemental value, a node or a canonical value into
// the canonical tree. A nil input is canonical null.
func ToCanonical(v any) (jsontree.Value, error) {
	switch t := v.(type) {
	case nil:
		return jsontree.Null{}, nil
	case jsontree.Value:
		return t, nil
	case elemental.Value:
		return FromElemental(t)
	case jsonnode.Node:
		return FromNode(t)
	default:
		return nil, unsupported(Source, "go", fmt.Sprintf("%T", v))
	}
}

// FromCanonical converts a canonical value into the target representation.
func FromCanonical(t jsontree.Value, target Representation) (any, error) {
	switch target {
	case Elemental:
		return ToElementalValue(t)
	case Node:
		return ToNodeValue(t)
	default:
		return nil, unsupported(Target, target.String(), "representation")
	}
}

// FromElemental converts an elemental value to the canonical tree.
func FromElemental(v elemental.Value) (jsontree.Value, error) {
	if v == nil {
		return jsontree.Null{}, nil
	}
	switch t := v.(type) {
	case *elemental.Object:
		if t == nil {
			return jsontree.Null{}, nil
		}
		obj := jsontree.NewObject()
		for _, key := range t.Keys() {
			child, err := FromElemental(t.Get(key))
			if err != nil {
				return nil, err
			}
			obj.Set(key, child)
		}
		return obj, nil
	case *elemental.Array:
		if t == nil {
			return jsontree.Null{}, nil
		}
		arr := make(jsontree.Array, t.Length())
		for i := range arr {
			child, err := FromElemental(t.Get(i))
			if err != nil {
				return nil, err
			}
			arr[i] = child
		}
		return arr, nil
	case elemental.String:
		return jsontree.String(t), nil
	case elemental.Number:
		return jsontree.Number(t.Float64()), nil
	case elemental.Boolean:
		return jsontree.Bool(t), nil
	case elemental.Null:
		return jsontree.Null{}, nil
	default:
		return nil, unsupported(Source, Elemental.String(), v.Type().String())
	}
}

// ToElementalValue converts a canonical value to elemental. Integral numbers
// become integer-typed so they render without a fractional part.
func ToElementalValue(t jsontree.Value) (elemental.Value, error) {
	switch v := t.(type) {
	case nil, jsontree.Null:
		return elemental.Null{}, nil
	case *jsontree.Object:
		obj := elemental.NewObject()
		for _, m := range v.Members() {
			child, err := ToElementalValue(m.Value)
			if err != nil {
				return nil, err
			}
			obj.Put(m.Key, child)
		}
		return obj, nil
	case jsontree.Array:
		arr := elemental.NewArray()
		for i, e := range v {
			child, err := ToElementalValue(e)
			if err != nil {
				return nil, err
			}
			arr.Set(i, child)
		}
		return arr, nil
	case jsontree.String:
		return elemental.String(v), nil
	case jsontree.Number:
		return numberToElemental(float64(v)), nil
	case jsontree.Bool:
		return elemental.Boolean(v), nil
	default:
		return nil, unsupported(Target, Elemental.String(), t.Kind().String())
	}
}

func numberToElemental(f float64) elemental.Number {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return elemental.Int(int64(f))
	}
	return elemental.Float(f)
}

// FromNode converts a node to the canonical tree.
func FromNode(n jsonnode.Node) (jsontree.Value, error) {
	if n == nil {
		return jsontree.Null{}, nil
	}
	switch t := n.(type) {
	case *jsonnode.ObjectNode:
		if t == nil {
			return jsontree.Null{}, nil
		}
		obj := jsontree.NewObject()
		for _, name := range t.PropertyNames() {
			child, _ := t.Get(name)
			cv, err := FromNode(child)
			if err != nil {
				return nil, err
			}
			obj.Set(name, cv)
		}
		return obj, nil
	case *jsonnode.ArrayNode:
		if t == nil {
			return jsontree.Null{}, nil
		}
		elems := t.Elements()
		arr := make(jsontree.Array, len(elems))
		for i, e := range elems {
			cv, err := FromNode(e)
			if err != nil {
				return nil, err
			}
			arr[i] = cv
		}
		return arr, nil
	case jsonnode.StringNode:
		return jsontree.String(t), nil
	case jsonnode.NumberNode:
		return jsontree.Number(t), nil
	case jsonnode.BooleanNode:
		return jsontree.Bool(t), nil
	case jsonnode.NullNode:
		return jsontree.Null{}, nil
	default:
		return nil, unsupported(Source, Node.String(), n.NodeType().String())
	}
}

// ToNodeValue converts a canonical value to a node.
func ToNodeValue(t jsontree.Value) (jsonnode.Node, error) {
	switch v := t.(type) {
	case nil, jsontree.Null:
		return jsonnode.NullNode{}, nil
	case *jsontree.Object:
		b := jsonnode.NewObjectBuilder()
		for _, m := range v.Members() {
			child, err := ToNodeValue(m.Value)
			if err != nil {
				return nil, err
			}
			b.Set(m.Key, child)
		}
		return b.Build(), nil
	case jsontree.Array:
		elems := make([]jsonnode.Node, len(v))
		for i, e := range v {
			child, err := ToNodeValue(e)
			if err != nil {
				return nil, err
			}
			elems[i] = child
		}
		return jsonnode.ArrayOf(elems...), nil
	case jsontree.String:
		return jsonnode.StringNode(v), nil
	case jsontree.Number:
		return jsonnode.NumberNode(v), nil
	case jsontree.Bool:
		return jsonnode.BooleanNode(v), nil
	default:
		return nil, unsupported(Target, Node.String(), t.Kind().String())
	}
}

// ToNode converts an elemental value directly to a node.
func ToNode(v elemental.Value) (jsonnode.Node, error) {
	t, err := FromElemental(v)
	if err != nil {
		return nil, err
	}
	return ToNodeValue(t)
}

// ToElemental converts a node directly to an elemental value.
func ToElemental(n jsonnode.Node) (elemental.Value, error) {
	t, err := FromNode(n)
	if err != nil {
		return nil, err
	}
	return ToElementalValue(t)
}
