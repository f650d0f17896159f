package discover

import (
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsonmigration/callable"
	"github.com/mcncl/jsonmigration/elemental"
	"github.com/mcncl/jsonmigration/host"
	"github.com/mcncl/jsonmigration/internal/errors"
)

type baseView struct {
	host.Component
}

func (b *baseView) Title() string { return "base" }

func (b *baseView) snapshot() *elemental.Object { return elemental.NewObject() }

func (b *baseView) Describe(prefix string) (*elemental.Object, error) {
	return elemental.NewObject(), nil
}

type profileView struct {
	baseView
}

func (p *profileView) snapshot() *elemental.Object { return elemental.NewObject() }
func (p *profileView) merge(parts ...*elemental.Object) *elemental.Array {
	return elemental.NewArray()
}
func (p *profileView) pair() (int, string, error) { return 0, "", nil }

type hostOnly struct{}

func (hostOnly) Reset() {}

func init() {
	callable.Register[baseView](callable.Plain, "Title", (*baseView).Title)
	callable.Register[baseView](callable.Plain, "snapshot", (*baseView).snapshot)
	callable.Register[baseView](callable.Plain, "Describe", (*baseView).Describe)
	callable.Register[profileView](callable.Plain, "snapshot", (*profileView).snapshot)
	callable.Register[profileView](callable.Legacy, "merge", (*profileView).merge)
	callable.RegisterStatic[profileView](callable.Plain, "Version", func() *elemental.Object { return nil })
}

var componentType = reflect.TypeFor[host.Component]()

func TestChain(t *testing.T) {
	chain := Chain(reflect.TypeFor[profileView](), componentType)

	require.Len(t, chain, 2)
	assert.Equal(t, reflect.TypeFor[profileView](), chain[0].Type)
	assert.Empty(t, chain[0].Path)
	assert.Equal(t, reflect.TypeFor[baseView](), chain[1].Type)
	assert.Equal(t, []int{0}, chain[1].Path)
}

func TestFromType(t *testing.T) {
	methods, err := FromType(reflect.TypeFor[profileView](), componentType)
	require.NoError(t, err)

	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = m.DeclaringType + "." + m.Name
	}
	assert.Equal(t, []string{
		"profileView.snapshot", "profileView.merge", "profileView.Version",
		"baseView.Title", "baseView.snapshot", "baseView.Describe",
	}, names)

	merge := methods[1]
	assert.True(t, merge.Variadic)
	require.Len(t, merge.Params, 1)
	assert.Equal(t, JSONObject, merge.Params[0].JSON)
	assert.Equal(t, "(...*elemental.Object)", merge.Signature())
	assert.Equal(t, JSONArray, merge.Result.JSON)
	assert.False(t, merge.Exported)

	describe := methods[5]
	assert.True(t, describe.ReturnsError)
	assert.True(t, describe.Exported)
	assert.Equal(t, []int{0}, describe.Path)

	assert.True(t, methods[2].Static)
}

func TestFromType_TooManyResults(t *testing.T) {
	type multi struct{ profileView }
	callable.Register[multi](callable.Plain, "pair", func(m *multi) (int, string, error) { return m.pair() })

	_, err := FromType(reflect.TypeFor[multi](), componentType)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestSelect_Modern(t *testing.T) {
	methods, err := FromType(reflect.TypeFor[profileView](), componentType)
	require.NoError(t, err)

	selected, err := Select(methods, Modern)
	require.NoError(t, err)

	var names []string
	for _, m := range selected {
		names = append(names, m.DeclaringType+"."+m.Name)
	}
	// Title returns a string, Version is static, the inner snapshot is overridden.
	assert.Equal(t, []string{"profileView.snapshot", "profileView.merge", "baseView.Describe"}, names)
}

func TestSelect_Legacy(t *testing.T) {
	methods, err := FromType(reflect.TypeFor[profileView](), componentType)
	require.NoError(t, err)

	selected, err := Select(methods, Legacy)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "merge", selected[0].Name)
}

func TestSelect_NoCallables(t *testing.T) {
	methods, err := FromType(reflect.TypeFor[hostOnly](), componentType)
	require.NoError(t, err)
	assert.Empty(t, methods)

	selected, err := Select(methods, Modern)
	require.NoError(t, err)
	assert.Empty(t, selected)
}

func TestSelect_PlainMarkerWithJSONParameter(t *testing.T) {
	methods := []Method{{
		Name:          "update",
		DeclaringType: "editor",
		Params:        []TypeRef{RefOfName("*elemental.Object")},
		Marker:        callable.Plain,
	}}

	_, err := Select(methods, Modern)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
	assert.True(t, stderrors.Is(err, errors.ErrMarkerMismatch))
	assert.Contains(t, err.Error(), "update in editor")
	assert.Contains(t, err.Error(), "legacy-callable")

	// Legacy hosts never convert, so the same method is simply not instrumented.
	selected, err := Select(methods, Legacy)
	require.NoError(t, err)
	assert.Empty(t, selected)
}

func TestSelect_NameCollision(t *testing.T) {
	methods := []Method{
		{Name: "load", DeclaringType: "child", Params: []TypeRef{RefOfName("string")}, Marker: callable.Legacy},
		{Name: "load", DeclaringType: "parent", Params: []TypeRef{RefOfName("int")}, Marker: callable.Legacy},
	}

	_, err := Select(methods, Modern)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrNameCollision))
	assert.Contains(t, err.Error(), "load(string) in child")
	assert.Contains(t, err.Error(), "load(int) in parent")
}

func TestJSONKindOfName(t *testing.T) {
	tests := []struct {
		name string
		kind JSONKind
		node string
	}{
		{"elemental.Value", JSONValue, "jsonnode.Node"},
		{"*elemental.Object", JSONObject, "*jsonnode.ObjectNode"},
		{" *elemental.Array ", JSONArray, "*jsonnode.ArrayNode"},
		{"elemental.String", JSONString, "jsonnode.StringNode"},
		{"elemental.Number", JSONNumber, "jsonnode.NumberNode"},
		{"elemental.Boolean", JSONBoolean, "jsonnode.BooleanNode"},
		{"elemental.Null", JSONNull, "jsonnode.NullNode"},
		{"string", JSONNone, "string"},
		{"elemental.Object", JSONNone, "elemental.Object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := RefOfName(tt.name)
			assert.Equal(t, tt.kind, ref.JSON)
			assert.Equal(t, tt.node, ref.NodeName())
		})
	}
}
