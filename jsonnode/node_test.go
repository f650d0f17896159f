package jsonnode

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestNumberNode_String(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{42, "42.0"},
		{0, "0.0"},
		{-1, "-1.0"},
		{0.1, "0.1"},
		{2.5, "2.5"},
		{1e21, "1e+21"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NumberNode(tt.in).String(), "NumberNode(%v)", tt.in)
	}
}

func TestLeafNodes(t *testing.T) {
	assert.Equal(t, "null", NullNode{}.String())
	assert.Equal(t, "true", BooleanNode(true).String())
	assert.Equal(t, `"a\"b"`, StringNode(`a"b`).String())
	assert.Equal(t, `"AQID"`, BinaryNode{1, 2, 3}.String())
	assert.Equal(t, "", MissingNode{}.String())
	assert.Equal(t, NodeBinary, BinaryNode(nil).NodeType())
	assert.Equal(t, "MISSING", MissingNode{}.NodeType().String())
}

func TestObjectNode_IsPersistent(t *testing.T) {
	base := EmptyObject().With("a", NumberNode(1)).With("b", StringNode("x"))
	changed := base.With("a", BooleanNode(false)).With("c", nil)
	removed := changed.Without("b")

	assert.Equal(t, `{"a":1.0,"b":"x"}`, base.String())
	assert.Equal(t, `{"a":false,"b":"x","c":null}`, changed.String())
	assert.Equal(t, `{"a":false,"c":null}`, removed.String())
	assert.Same(t, removed, removed.Without("missing"))

	if diff := cmp.Diff([]string{"a", "b", "c"}, changed.PropertyNames()); diff != "" {
		t.Errorf("PropertyNames() mismatch (-want +got):\n%s", diff)
	}

	v, ok := changed.Get("c")
	assert.True(t, ok)
	assert.Equal(t, NullNode{}, v)
	_, ok = base.Get("c")
	assert.False(t, ok)
}

func TestObjectBuilder(t *testing.T) {
	obj := NewObjectBuilder().
		Set("x", NumberNode(1)).
		Set("y", ArrayOf()).
		Set("x", NumberNode(2)).
		Build()

	assert.Equal(t, `{"x":2.0,"y":[]}`, obj.String())
	assert.Equal(t, 2, obj.Size())
}

func TestArrayNode_IsPersistent(t *testing.T) {
	base := ArrayOf(NumberNode(1), nil)
	longer := base.Append(EmptyObject())

	assert.Equal(t, "[1.0,null]", base.String())
	assert.Equal(t, "[1.0,null,{}]", longer.String())

	elems := longer.Elements()
	elems[0] = StringNode("mutated")
	first, ok := longer.Get(0)
	assert.True(t, ok)
	assert.Equal(t, NumberNode(1), first)

	_, ok = longer.Get(3)
	assert.False(t, ok)
}

func TestNilContainers(t *testing.T) {
	var obj *ObjectNode
	var arr *ArrayNode

	assert.Equal(t, 0, obj.Size())
	assert.Equal(t, "null", obj.String())
	assert.Empty(t, obj.PropertyNames())
	assert.Equal(t, `{"k":true}`, obj.With("k", BooleanNode(true)).String())

	assert.Equal(t, "null", arr.String())
	assert.Equal(t, "[1.0]", arr.Append(NumberNode(1)).String())
}
