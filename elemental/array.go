package elemental

import (
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// Array is a mutable JSON array.
type Array struct {
	lazy  *gjson.Result
	once  sync.Once
	elems []Value
}

// NewArray returns an empty array.
func NewArray() *Array {
	return &Array{}
}

// ArrayOf returns an array holding vs.
func ArrayOf(vs ...Value) *Array {
	a := NewArray()
	for _, v := range vs {
		a.Set(a.Length(), v)
	}
	return a
}

func lazyArray(raw gjson.Result) *Array {
	return &Array{lazy: &raw}
}

func (a *Array) load() {
	a.once.Do(func() {
		if a.lazy == nil {
			return
		}
		for _, r := range a.lazy.Array() {
			a.elems = append(a.elems, fromResult(r))
		}
		a.lazy = nil
	})
}

func (*Array) Type() Type { return TypeArray }

// Length returns the number of elements.
func (a *Array) Length() int {
	a.load()
	return len(a.elems)
}

// Get returns the element at index i, or nil when i is out of range.
func (a *Array) Get(i int) Value {
	a.load()
	if i < 0 || i >= len(a.elems) {
		return nil
	}
	return a.elems[i]
}

// Set stores v at index i. Setting past the end grows the array, filling the
// gap with nulls.
func (a *Array) Set(i int, v Value) {
	a.load()
	if i < 0 {
		return
	}
	if v == nil {
		v = Null{}
	}
	for len(a.elems) <= i {
		a.elems = append(a.elems, Null{})
	}
	a.elems[i] = v
}

// Remove deletes the element at index i, shifting later elements down.
func (a *Array) Remove(i int) {
	a.load()
	if i < 0 || i >= len(a.elems) {
		return
	}
	a.elems = append(a.elems[:i], a.elems[i+1:]...)
}

func (a *Array) ToJSON() string {
	a.load()
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range a.elems {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(e.ToJSON())
	}
	b.WriteByte(']')
	return b.String()
}

func (a *Array) JSEquals(other Value) bool {
	p, ok := other.(*Array)
	return ok && p == a
}

// Copy returns a deep copy of a.
func (a *Array) Copy() *Array {
	a.load()
	out := &Array{elems: make([]Value, len(a.elems))}
	for i, e := range a.elems {
		out.elems[i] = copyValue(e)
	}
	return out
}
