// Package jsontree defines the canonical JSON tree shared by every
// representation the adapter converts between.
//
// A Value is one of *Object, Array, String, Number, Bool or Null. Object
// members keep insertion order, and an empty object is distinct from Null.
// Absence is reported by lookups returning ok == false, never by Null.
package jsontree

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the structural kind of a canonical value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a node of the canonical tree.
type Value interface {
	Kind() Kind
	canonical()
}

// Null is the JSON null literal.
type Null struct{}

// Bool is a JSON boolean.
type Bool bool

// Number is a JSON number. The canonical tree only carries double precision.
type Number float64

// String is a JSON string.
type String string

// Array is an ordered sequence of values.
type Array []Value

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Number) Kind() Kind { return KindNumber }
func (String) Kind() Kind { return KindString }
func (Array) Kind() Kind  { return KindArray }

func (Null) canonical()   {}
func (Bool) canonical()   {}
func (Number) canonical() {}
func (String) canonical() {}
func (Array) canonical()  {}

// Member is a single key/value pair of an Object.
type Member struct {
	Key   string
	Value Value
}

// Object is an insertion-ordered map of string keys to values.
type Object struct {
	members []Member
	index   map[string]int
}

// NewObject returns an object holding the given members in order. A repeated
// key replaces the earlier value but keeps its original position.
func NewObject(members ...Member) *Object {
	o := &Object{index: make(map[string]int, len(members))}
	for _, m := range members {
		o.Set(m.Key, m.Value)
	}
	return o
}

func (*Object) Kind() Kind { return KindObject }
func (*Object) canonical() {}

// Set stores v under key. New keys are appended; existing keys are updated in place.
func (o *Object) Set(key string, v Value) {
	if o.index == nil {
		o.index = make(map[string]int)
	}
	if v == nil {
		v = Null{}
	}
	if i, ok := o.index[key]; ok {
		o.members[i].Value = v
		return
	}
	o.index[key] = len(o.members)
	o.members = append(o.members, Member{Key: key, Value: v})
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.members[i].Value, true
}

// Len returns the number of members.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.members)
}

// Keys returns the member keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, len(o.members))
	for i, m := range o.members {
		keys[i] = m.Key
	}
	return keys
}

// Members returns a copy of the members in insertion order.
func (o *Object) Members() []Member {
	if o == nil {
		return nil
	}
	out := make([]Member, len(o.members))
	copy(out, o.members)
	return out
}

// Equal reports whether both objects hold equal members in the same order.
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	for i := range o.Len() {
		a, b := o.members[i], other.members[i]
		if a.Key != b.Key || !Equal(a.Value, b.Value) {
			return false
		}
	}
	return true
}

// Equal reports structural equality of two canonical values. Object member
// order is significant.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case *Object:
		return av.Equal(b.(*Object))
	case Array:
		bv := b.(Array)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// FormatNumber renders a double the way JavaScript does: integral values have
// no fractional suffix, everything else uses the shortest exact decimal form.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		if f == 0 {
			return "0"
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		// JavaScript writes exponents without zero padding.
		s := strconv.FormatFloat(f, 'g', -1, 64)
		s = strings.Replace(s, "e-0", "e-", 1)
		return strings.Replace(s, "e+0", "e+", 1)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
