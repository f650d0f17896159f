package synth

import (
	stderrors "errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsonmigration/callable"
	"github.com/mcncl/jsonmigration/elemental"
	"github.com/mcncl/jsonmigration/internal/convert"
	"github.com/mcncl/jsonmigration/internal/discover"
	"github.com/mcncl/jsonmigration/internal/errors"
	"github.com/mcncl/jsonmigration/jsonnode"
	"github.com/mcncl/jsonmigration/jsontree"
)

var errBoom = stderrors.New("boom")

type panel struct {
	received []string
}

func (p *panel) Summary() *elemental.Object {
	obj := elemental.NewObject()
	obj.Put("count", elemental.Int(42))
	obj.Put("ratio", elemental.Float(0.25))
	obj.Put("tags", elemental.ArrayOf(elemental.String("a"), elemental.Boolean(true), elemental.Null{}))
	return obj
}

func (p *panel) merge(prefix string, parts ...*elemental.Object) *elemental.Array {
	out := elemental.NewArray()
	for i, part := range parts {
		p.received = append(p.received, reflect.TypeOf(part).String())
		part.Put("tag", elemental.String(prefix))
		out.Set(i, part)
	}
	return out
}

func (p *panel) Scale(factor int8) int8 { return factor * 2 }

func (p *panel) Fail() (*elemental.Object, error) { return nil, errBoom }

func (p *panel) echo(v elemental.Value) elemental.Value { return v }

type outer struct {
	panel
}

// shelf registers Fetch under the name of an unrelated method.
type shelf struct{}

func (s *shelf) Load(n int) string { return strings.Repeat("x", n) }

func (s *shelf) Fetch() *elemental.Object {
	obj := elemental.NewObject()
	obj.Put("source", elemental.String("fetch"))
	return obj
}

func (s *shelf) Log(parts ...any) int { return len(parts) }

func init() {
	callable.Register[panel](callable.Plain, "Summary", (*panel).Summary)
	callable.Register[panel](callable.Legacy, "merge", (*panel).merge)
	callable.Register[panel](callable.Legacy, "Scale", (*panel).Scale)
	callable.Register[panel](callable.Plain, "Fail", (*panel).Fail)
	callable.Register[panel](callable.Legacy, "echo", (*panel).echo)

	callable.Register[shelf](callable.Legacy, "Load", (*shelf).Fetch)
	callable.Register[shelf](callable.Plain, "Log", (*shelf).Log)
}

func method(t *testing.T, typ reflect.Type, name string) discover.Method {
	t.Helper()
	methods, err := discover.FromType(typ, nil)
	require.NoError(t, err)
	for _, m := range methods {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("method %s not found", name)
	return discover.Method{}
}

func build(t *testing.T, name string, mode discover.Mode) *Override {
	t.Helper()
	o, err := Build(method(t, reflect.TypeFor[panel](), name), mode)
	require.NoError(t, err)
	return o
}

func TestOverride_ResultConvertedToNode(t *testing.T) {
	o := build(t, "Summary", discover.Modern)
	assert.Equal(t, callable.Plain, o.Marker())
	assert.True(t, o.Converting())
	assert.Equal(t, reflect.TypeFor[*jsonnode.ObjectNode](), o.Result())

	p := &panel{}
	got, err := o.Invoke(reflect.ValueOf(p))
	require.NoError(t, err)

	node, ok := got.(*jsonnode.ObjectNode)
	require.True(t, ok, "got %T", got)

	want, err := convert.FromElemental(p.Summary())
	require.NoError(t, err)
	have, err := convert.FromNode(node)
	require.NoError(t, err)
	assert.True(t, jsontree.Equal(want, have))
	assert.Equal(t, `{"count":42.0,"ratio":0.25,"tags":["a",true,null]}`, node.String())
}

func TestOverride_VariadicConvertsEveryElement(t *testing.T) {
	o := build(t, "merge", discover.Modern)
	assert.Equal(t, []reflect.Type{
		reflect.TypeFor[string](),
		reflect.TypeFor[[]*jsonnode.ObjectNode](),
	}, o.Params())
	assert.False(t, o.Exported())

	p := &panel{}
	a := jsonnode.EmptyObject().With("id", jsonnode.NumberNode(1))
	b := jsonnode.EmptyObject().With("id", jsonnode.NumberNode(2))

	got, err := o.Invoke(reflect.ValueOf(p), "x", a, b)
	require.NoError(t, err)
	arr, ok := got.(*jsonnode.ArrayNode)
	require.True(t, ok)
	assert.Equal(t, `[{"id":1.0,"tag":"x"},{"id":2.0,"tag":"x"}]`, arr.String())
	assert.Equal(t, []string{"*elemental.Object", "*elemental.Object"}, p.received)

	// The inputs are persistent and remain untouched.
	assert.Equal(t, `{"id":1.0}`, a.String())
}

func TestOverride_VariadicAcceptsArrayArgument(t *testing.T) {
	o := build(t, "merge", discover.Modern)
	p := &panel{}

	got, err := o.Invoke(reflect.ValueOf(p), "x", []*jsonnode.ObjectNode{jsonnode.EmptyObject()})
	require.NoError(t, err)
	assert.Equal(t, `[{"tag":"x"}]`, got.(jsonnode.Node).String())
}

func TestOverride_VariadicZeroLength(t *testing.T) {
	o := build(t, "merge", discover.Modern)

	tests := []struct {
		name string
		args []any
	}{
		{"no elements", []any{"x"}},
		{"empty array", []any{"x", []*jsonnode.ObjectNode{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &panel{}
			got, err := o.Invoke(reflect.ValueOf(p), tt.args...)
			require.NoError(t, err)
			assert.Equal(t, 0, got.(jsonnode.Node).Size())
			assert.Empty(t, p.received)
		})
	}
}

func TestOverride_VariadicAnyKeepsSliceArgument(t *testing.T) {
	o, err := Build(method(t, reflect.TypeFor[shelf](), "Log"), discover.Modern)
	require.NoError(t, err)

	tests := []struct {
		name string
		args []any
		want int
	}{
		{"bytes", []any{[]byte("abc")}, 1},
		{"strings", []any{[]string{"a", "b"}}, 1},
		{"any slice", []any{[]any{"a", "b", "c"}}, 3},
		{"elements", []any{"a", "b"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := o.Invoke(reflect.ValueOf(&shelf{}), tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOverride_CallsRegisteredExpressionNotNamesake(t *testing.T) {
	o, err := Build(method(t, reflect.TypeFor[shelf](), "Load"), discover.Modern)
	require.NoError(t, err)
	assert.Empty(t, o.Params())
	assert.Equal(t, reflect.TypeFor[*jsonnode.ObjectNode](), o.Result())

	got, err := o.Invoke(reflect.ValueOf(&shelf{}))
	require.NoError(t, err)
	assert.Equal(t, `{"source":"fetch"}`, got.(jsonnode.Node).String())
}

func TestOverride_EmbeddedUnexportedDeclaringStruct(t *testing.T) {
	m := method(t, reflect.TypeFor[outer](), "merge")
	assert.Equal(t, []int{0}, m.Path)

	o, err := Build(m, discover.Modern)
	require.NoError(t, err)

	target := &outer{}
	_, err = o.Invoke(reflect.ValueOf(target), "y", jsonnode.EmptyObject())
	require.NoError(t, err)
	assert.Len(t, target.received, 1)
}

func TestOverride_PassThroughCoercion(t *testing.T) {
	o := build(t, "Scale", discover.Modern)
	assert.False(t, o.Converting())

	got, err := o.Invoke(reflect.ValueOf(&panel{}), 3)
	require.NoError(t, err)
	assert.Equal(t, int8(6), got)

	_, err = o.Invoke(reflect.ValueOf(&panel{}), 300)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConversion))
}

func TestOverride_ErrorResultUnchanged(t *testing.T) {
	o := build(t, "Fail", discover.Modern)
	assert.True(t, o.ReturnsError())

	got, err := o.Invoke(reflect.ValueOf(&panel{}))
	assert.Nil(t, got)
	assert.Same(t, errBoom, err)
}

func TestOverride_NullArgument(t *testing.T) {
	o := build(t, "echo", discover.Modern)

	got, err := o.Invoke(reflect.ValueOf(&panel{}), nil)
	require.NoError(t, err)
	assert.Equal(t, jsonnode.NullNode{}, got)

	got, err = o.Invoke(reflect.ValueOf(&panel{}), jsonnode.NumberNode(2.5))
	require.NoError(t, err)
	assert.Equal(t, jsonnode.NumberNode(2.5), got)
}

func TestOverride_LegacyModeConvertsNothing(t *testing.T) {
	o := build(t, "merge", discover.Legacy)
	assert.False(t, o.Converting())
	assert.Equal(t, callable.Plain, o.Marker())
	assert.Equal(t, reflect.TypeFor[[]*elemental.Object](), o.Params()[1])

	got, err := o.Invoke(reflect.ValueOf(&panel{}), "z", elemental.NewObject())
	require.NoError(t, err)
	arr, ok := got.(*elemental.Array)
	require.True(t, ok)
	assert.Equal(t, `[{"tag":"z"}]`, arr.ToJSON())
}

func TestOverride_ArgumentErrors(t *testing.T) {
	merge := build(t, "merge", discover.Modern)
	scale := build(t, "Scale", discover.Modern)

	_, err := merge.Invoke(reflect.ValueOf(&panel{}))
	assert.ErrorIs(t, err, errors.ErrArgumentCount)

	_, err = scale.Invoke(reflect.ValueOf(&panel{}), 1, 2)
	assert.ErrorIs(t, err, errors.ErrArgumentCount)

	_, err = merge.Invoke(reflect.ValueOf(&panel{}), "x", elemental.NewObject())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a jsonnode value")

	_, err = merge.Invoke(reflect.ValueOf(&panel{}), "x", jsonnode.StringNode("nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not fit")

	_, err = merge.Invoke(reflect.ValueOf(panel{}), "x")
	assert.True(t, errors.IsType(err, errors.ErrorTypeGeneration))
}

func TestBuild_RejectsStaticAndUnregistered(t *testing.T) {
	_, err := Build(discover.Method{Name: "ghost", DeclaringType: "panel"}, discover.Modern)
	assert.True(t, errors.IsType(err, errors.ErrorTypeGeneration))

	m := method(t, reflect.TypeFor[panel](), "Summary")
	m.Static = true
	_, err = Build(m, discover.Modern)
	assert.True(t, errors.IsType(err, errors.ErrorTypeGeneration))
}
