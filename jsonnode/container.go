package jsonnode

import "strings"

type field struct {
	name  string
	value Node
}

// ObjectNode is an immutable, insertion-ordered object.
type ObjectNode struct {
	fields []field
	index  map[string]int
}

// EmptyObject returns an object with no properties.
func EmptyObject() *ObjectNode {
	return &ObjectNode{index: map[string]int{}}
}

func (*ObjectNode) NodeType() NodeType { return NodeObject }
func (*ObjectNode) node()              {}

// Size returns the number of properties.
func (o *ObjectNode) Size() int {
	if o == nil {
		return 0
	}
	return len(o.fields)
}

// Get returns the property named name.
func (o *ObjectNode) Get(name string) (Node, bool) {
	if o == nil {
		return nil, false
	}
	i, ok := o.index[name]
	if !ok {
		return nil, false
	}
	return o.fields[i].value, true
}

// PropertyNames returns the property names in insertion order.
func (o *ObjectNode) PropertyNames() []string {
	names := make([]string, o.Size())
	for i := range names {
		names[i] = o.fields[i].name
	}
	return names
}

// With returns a copy of o with name set to value. An existing property keeps
// its position.
func (o *ObjectNode) With(name string, value Node) *ObjectNode {
	if value == nil {
		value = NullNode{}
	}
	out := &ObjectNode{
		fields: make([]field, o.Size(), o.Size()+1),
		index:  make(map[string]int, o.Size()+1),
	}
	if o != nil {
		copy(out.fields, o.fields)
		for k, v := range o.index {
			out.index[k] = v
		}
	}
	if i, ok := out.index[name]; ok {
		out.fields[i].value = value
		return out
	}
	out.index[name] = len(out.fields)
	out.fields = append(out.fields, field{name: name, value: value})
	return out
}

// Without returns a copy of o with name removed.
func (o *ObjectNode) Without(name string) *ObjectNode {
	if _, ok := o.Get(name); !ok {
		return o
	}
	b := NewObjectBuilder()
	for _, f := range o.fields {
		if f.name != name {
			b.Set(f.name, f.value)
		}
	}
	return b.Build()
}

func (o *ObjectNode) String() string {
	if o == nil {
		return "null"
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range o.fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quote(f.name))
		b.WriteByte(':')
		b.WriteString(f.value.String())
	}
	b.WriteByte('}')
	return b.String()
}

// ObjectBuilder accumulates properties for a new ObjectNode without copying
// on every insertion. A builder must not be used after Build.
type ObjectBuilder struct {
	obj *ObjectNode
}

// NewObjectBuilder returns an empty builder.
func NewObjectBuilder() *ObjectBuilder {
	return &ObjectBuilder{obj: EmptyObject()}
}

// Set adds or replaces a property.
func (b *ObjectBuilder) Set(name string, value Node) *ObjectBuilder {
	if value == nil {
		value = NullNode{}
	}
	if i, ok := b.obj.index[name]; ok {
		b.obj.fields[i].value = value
		return b
	}
	b.obj.index[name] = len(b.obj.fields)
	b.obj.fields = append(b.obj.fields, field{name: name, value: value})
	return b
}

// Build returns the finished object.
func (b *ObjectBuilder) Build() *ObjectNode {
	out := b.obj
	b.obj = nil
	return out
}

// ArrayNode is an immutable sequence of nodes.
type ArrayNode struct {
	elems []Node
}

// ArrayOf returns an array of the given nodes.
func ArrayOf(nodes ...Node) *ArrayNode {
	elems := make([]Node, len(nodes))
	for i, n := range nodes {
		if n == nil {
			n = NullNode{}
		}
		elems[i] = n
	}
	return &ArrayNode{elems: elems}
}

func (*ArrayNode) NodeType() NodeType { return NodeArray }
func (*ArrayNode) node()              {}

// Size returns the number of elements.
func (a *ArrayNode) Size() int {
	if a == nil {
		return 0
	}
	return len(a.elems)
}

// Get returns the element at index i.
func (a *ArrayNode) Get(i int) (Node, bool) {
	if i < 0 || i >= a.Size() {
		return nil, false
	}
	return a.elems[i], true
}

// Elements returns a copy of the elements.
func (a *ArrayNode) Elements() []Node {
	out := make([]Node, a.Size())
	if a != nil {
		copy(out, a.elems)
	}
	return out
}

// Append returns a copy of a with n added at the end.
func (a *ArrayNode) Append(n Node) *ArrayNode {
	if n == nil {
		n = NullNode{}
	}
	elems := make([]Node, a.Size(), a.Size()+1)
	if a != nil {
		copy(elems, a.elems)
	}
	return &ArrayNode{elems: append(elems, n)}
}

func (a *ArrayNode) String() string {
	if a == nil {
		return "null"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range a.elems {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(e.String())
	}
	b.WriteByte(']')
	return b.String()
}
