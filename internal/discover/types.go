package discover

import (
	"reflect"
	"strings"

	"github.com/mcncl/jsonmigration/elemental"
	"github.com/mcncl/jsonmigration/jsonnode"
)

// JSONKind classifies a JSON-shaped type. JSONNone means the type is not
// JSON-shaped.
type JSONKind int

const (
	JSONNone JSONKind = iota
	JSONValue
	JSONObject
	JSONArray
	JSONString
	JSONNumber
	JSONBoolean
	JSONNull
)

type jsonShape struct {
	kind     JSONKind
	elemType reflect.Type
	nodeType reflect.Type
	elemName string
	nodeName string
}

var shapes = []jsonShape{
	{JSONValue, reflect.TypeFor[elemental.Value](), reflect.TypeFor[jsonnode.Node](), "elemental.Value", "jsonnode.Node"},
	{JSONObject, reflect.TypeFor[*elemental.Object](), reflect.TypeFor[*jsonnode.ObjectNode](), "*elemental.Object", "*jsonnode.ObjectNode"},
	{JSONArray, reflect.TypeFor[*elemental.Array](), reflect.TypeFor[*jsonnode.ArrayNode](), "*elemental.Array", "*jsonnode.ArrayNode"},
	{JSONString, reflect.TypeFor[elemental.String](), reflect.TypeFor[jsonnode.StringNode](), "elemental.String", "jsonnode.StringNode"},
	{JSONNumber, reflect.TypeFor[elemental.Number](), reflect.TypeFor[jsonnode.NumberNode](), "elemental.Number", "jsonnode.NumberNode"},
	{JSONBoolean, reflect.TypeFor[elemental.Boolean](), reflect.TypeFor[jsonnode.BooleanNode](), "elemental.Boolean", "jsonnode.BooleanNode"},
	{JSONNull, reflect.TypeFor[elemental.Null](), reflect.TypeFor[jsonnode.NullNode](), "elemental.Null", "jsonnode.NullNode"},
}

func shapeOf(kind JSONKind) (jsonShape, bool) {
	for _, s := range shapes {
		if s.kind == kind {
			return s, true
		}
	}
	return jsonShape{}, false
}

// JSONKindOf classifies a Go type.
func JSONKindOf(t reflect.Type) JSONKind {
	for _, s := range shapes {
		if s.elemType == t {
			return s.kind
		}
	}
	return JSONNone
}

// JSONKindOfName classifies a type written as Go source, e.g.
// "*elemental.Object".
func JSONKindOfName(name string) JSONKind {
	name = strings.TrimSpace(name)
	for _, s := range shapes {
		if s.elemName == name {
			return s.kind
		}
	}
	return JSONNone
}

// TypeRef describes a parameter or result type.
type TypeRef struct {
	// Name is the Go source spelling of the type.
	Name string
	JSON JSONKind
	// Type is set when the reference was built from a live type.
	Type reflect.Type
}

// RefOf builds a TypeRef from a live type.
func RefOf(t reflect.Type) TypeRef {
	return TypeRef{Name: t.String(), JSON: JSONKindOf(t), Type: t}
}

// RefOfName builds a TypeRef from a source spelling.
func RefOfName(name string) TypeRef {
	name = strings.TrimSpace(name)
	return TypeRef{Name: name, JSON: JSONKindOfName(name)}
}

// JSONShaped reports whether the type is one of the elemental value types.
func (r TypeRef) JSONShaped() bool {
	return r.JSON != JSONNone
}

// NodeType returns the jsonnode type standing in for a JSON-shaped type.
// Other types are returned unchanged.
func (r TypeRef) NodeType() reflect.Type {
	if s, ok := shapeOf(r.JSON); ok {
		return s.nodeType
	}
	return r.Type
}

// NodeName is NodeType for source spellings.
func (r TypeRef) NodeName() string {
	if s, ok := shapeOf(r.JSON); ok {
		return s.nodeName
	}
	return r.Name
}
