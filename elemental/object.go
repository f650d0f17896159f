package elemental

import (
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// Object is a mutable, insertion-ordered JSON object.
type Object struct {
	lazy    *gjson.Result
	once    sync.Once
	keys    []string
	entries map[string]Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{entries: make(map[string]Value)}
}

func lazyObject(raw gjson.Result) *Object {
	return &Object{lazy: &raw}
}

func (o *Object) load() {
	o.once.Do(func() {
		if o.entries == nil {
			o.entries = make(map[string]Value)
		}
		if o.lazy == nil {
			return
		}
		o.lazy.ForEach(func(key, value gjson.Result) bool {
			o.put(key.String(), fromResult(value))
			return true
		})
		o.lazy = nil
	})
}

func (*Object) Type() Type { return TypeObject }

// Put stores v under key. New keys are appended; existing keys keep their position.
func (o *Object) Put(key string, v Value) {
	o.load()
	o.put(key, v)
}

func (o *Object) put(key string, v Value) {
	if v == nil {
		v = Null{}
	}
	if _, ok := o.entries[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.entries[key] = v
}

// Get returns the value under key, or nil when the key is absent.
func (o *Object) Get(key string) Value {
	o.load()
	return o.entries[key]
}

// HasKey reports whether key is present.
func (o *Object) HasKey(key string) bool {
	o.load()
	_, ok := o.entries[key]
	return ok
}

// Remove deletes key if present.
func (o *Object) Remove(key string) {
	o.load()
	if _, ok := o.entries[key]; !ok {
		return
	}
	delete(o.entries, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	o.load()
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of entries.
func (o *Object) Len() int {
	o.load()
	return len(o.keys)
}

// GetString returns the string under key, or "" if absent or not a string.
func (o *Object) GetString(key string) string {
	s, _ := o.Get(key).(String)
	return string(s)
}

// GetNumber returns the number under key as a double, or 0.
func (o *Object) GetNumber(key string) float64 {
	n, _ := o.Get(key).(Number)
	return n.Float64()
}

// GetBoolean returns the boolean under key, or false.
func (o *Object) GetBoolean(key string) bool {
	b, _ := o.Get(key).(Boolean)
	return bool(b)
}

// GetObject returns the object under key, or nil.
func (o *Object) GetObject(key string) *Object {
	v, _ := o.Get(key).(*Object)
	return v
}

// GetArray returns the array under key, or nil.
func (o *Object) GetArray(key string) *Array {
	v, _ := o.Get(key).(*Array)
	return v
}

func (o *Object) ToJSON() string {
	o.load()
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quote(k))
		b.WriteByte(':')
		b.WriteString(o.entries[k].ToJSON())
	}
	b.WriteByte('}')
	return b.String()
}

func (o *Object) JSEquals(other Value) bool {
	p, ok := other.(*Object)
	return ok && p == o
}

// Copy returns a deep copy of o.
func (o *Object) Copy() *Object {
	o.load()
	out := NewObject()
	for _, k := range o.keys {
		out.put(k, copyValue(o.entries[k]))
	}
	return out
}

func copyValue(v Value) Value {
	switch t := v.(type) {
	case *Object:
		return t.Copy()
	case *Array:
		return t.Copy()
	default:
		return v
	}
}
