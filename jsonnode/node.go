// Package jsonnode is the alternate JSON family used by newer hosts: a
// persistent node tree. Nodes are immutable once built; "modifying" an object
// or array returns a new node that shares unchanged children with the old one.
//
// Numbers are stored as doubles only.
package jsonnode

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/mcncl/jsonmigration/jsontree"
)

// NodeType identifies the kind of a node.
type NodeType int

const (
	NodeNull NodeType = iota
	NodeBoolean
	NodeNumber
	NodeString
	NodeArray
	NodeObject
	// NodeBinary and NodeMissing have no JSON tree counterpart.
	NodeBinary
	NodeMissing
)

func (t NodeType) String() string {
	switch t {
	case NodeNull:
		return "NULL"
	case NodeBoolean:
		return "BOOLEAN"
	case NodeNumber:
		return "NUMBER"
	case NodeString:
		return "STRING"
	case NodeArray:
		return "ARRAY"
	case NodeObject:
		return "OBJECT"
	case NodeBinary:
		return "BINARY"
	case NodeMissing:
		return "MISSING"
	default:
		return fmt.Sprintf("NODETYPE(%d)", int(t))
	}
}

// Node is an immutable JSON node.
type Node interface {
	NodeType() NodeType
	// String renders the node as JSON text.
	String() string
	// Size is the number of children of a container, zero otherwise.
	Size() int
	node()
}

// NullNode is the JSON null literal.
type NullNode struct{}

// BooleanNode is a JSON boolean.
type BooleanNode bool

// NumberNode is a JSON number held as a double.
type NumberNode float64

// StringNode is a JSON string.
type StringNode string

// BinaryNode holds raw bytes, rendered as a base64 string.
type BinaryNode []byte

// MissingNode stands for a value that is not present at all.
type MissingNode struct{}

func (NullNode) NodeType() NodeType    { return NodeNull }
func (BooleanNode) NodeType() NodeType { return NodeBoolean }
func (NumberNode) NodeType() NodeType  { return NodeNumber }
func (StringNode) NodeType() NodeType  { return NodeString }
func (BinaryNode) NodeType() NodeType  { return NodeBinary }
func (MissingNode) NodeType() NodeType { return NodeMissing }

func (NullNode) Size() int    { return 0 }
func (BooleanNode) Size() int { return 0 }
func (NumberNode) Size() int  { return 0 }
func (StringNode) Size() int  { return 0 }
func (BinaryNode) Size() int  { return 0 }
func (MissingNode) Size() int { return 0 }

func (NullNode) node()    {}
func (BooleanNode) node() {}
func (NumberNode) node()  {}
func (StringNode) node()  {}
func (BinaryNode) node()  {}
func (MissingNode) node() {}

func (NullNode) String() string      { return "null" }
func (b BooleanNode) String() string { return strconv.FormatBool(bool(b)) }
func (s StringNode) String() string  { return quote(string(s)) }
func (b BinaryNode) String() string  { return quote(base64.StdEncoding.EncodeToString(b)) }
func (MissingNode) String() string   { return "" }

// String renders integral values with a ".0" suffix, as a double-only
// representation does.
func (n NumberNode) String() string {
	f := float64(n)
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64) + ".0"
	}
	return jsontree.FormatNumber(f)
}

// Float64 returns the numeric value.
func (n NumberNode) Float64() float64 { return float64(n) }

func quote(s string) string {
	// Marshalling a string cannot fail.
	b, _ := json.Marshal(s)
	return string(b)
}
