package dispatch

import (
	"context"
	stderrors "errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/mcncl/jsonmigration/elemental"
	"github.com/mcncl/jsonmigration/host"
	"github.com/mcncl/jsonmigration/host/hosttest"
	"github.com/mcncl/jsonmigration/internal/convert"
	"github.com/mcncl/jsonmigration/internal/discover"
	"github.com/mcncl/jsonmigration/internal/errors"
	"github.com/mcncl/jsonmigration/jsonnode"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingSource struct {
	mu    sync.Mutex
	calls int
	major int
}

func (c *countingSource) MajorVersion() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.major, nil
}

func TestForVersion(t *testing.T) {
	tests := []struct {
		major int
		name  string
		mode  discover.Mode
		rep   convert.Representation
	}{
		{14, "legacy", discover.Legacy, convert.Elemental},
		{24, "legacy", discover.Legacy, convert.Elemental},
		{25, "modern", discover.Modern, convert.Node},
		{26, "modern", discover.Modern, convert.Node},
	}
	for _, tt := range tests {
		s := ForVersion(tt.major)
		assert.Equal(t, tt.name, s.Name(), "version %d", tt.major)
		assert.Equal(t, tt.mode, s.Mode())
		assert.Equal(t, tt.rep, s.Host())
	}
}

func TestResolver_ResolvesOnce(t *testing.T) {
	src := &countingSource{major: 25}
	r := NewResolver(WithVersionSource(src), WithLogger(zaptest.NewLogger(t)))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := r.Strategy()
			assert.NoError(t, err)
			assert.Equal(t, "modern", s.Name())
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, src.calls)
}

func TestResolver_FixedVersionWins(t *testing.T) {
	src := &countingSource{major: 25}
	r := NewResolver(WithVersion(24), WithVersionSource(src))

	s, err := r.Strategy()
	require.NoError(t, err)
	assert.Equal(t, "legacy", s.Name())
	assert.Equal(t, 0, src.calls)
}

func TestResolver_StickyErrors(t *testing.T) {
	tests := []struct {
		name string
		r    *Resolver
	}{
		{"no version", NewResolver()},
		{"failing source", NewResolver(WithVersionSource(hosttest.FailingVersion{Err: stderrors.New("no manifest")}))},
		{"bad version", NewResolver(WithVersionSource(host.StaticVersion(0)))},
		{"malformed setting", NewResolver(WithVersion(25), WithFailure(stderrors.New("invalid JSONMIGRATION_HOST_VERSION")))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.r.Strategy()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))

			_, again := tt.r.Strategy()
			assert.Same(t, err, again)
		})
	}
}

func TestResolver_ModernWithoutBackend(t *testing.T) {
	saved := codegenBackend
	codegenBackend = false
	defer func() { codegenBackend = saved }()

	r := NewResolver(WithVersion(25))
	_, err := r.Strategy()
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrCodegenUnavailable))
	assert.Contains(t, err.Error(), "host version 25")

	codegenBackend = true
	_, again := r.Strategy()
	assert.Same(t, err, again, "no fallback once resolution failed")

	legacy := NewResolver(WithVersion(24))
	codegenBackend = false
	s, err := legacy.Strategy()
	require.NoError(t, err)
	assert.Equal(t, "legacy", s.Name())
}

func TestStrategy_FromHost(t *testing.T) {
	node := jsonnode.EmptyObject().With("n", jsonnode.NumberNode(42))

	v, err := ForVersion(25).FromHost(node)
	require.NoError(t, err)
	assert.Equal(t, `{"n":42}`, v.ToJSON())

	_, err = ForVersion(24).FromHost(node)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConversion))

	_, err = ForVersion(25).FromHost(42)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConversion))

	v, err = ForVersion(25).FromHost(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	obj := elemental.NewObject()
	v, err = ForVersion(24).FromHost(obj)
	require.NoError(t, err)
	assert.Same(t, obj, v)
}

func TestInvoke(t *testing.T) {
	modern := ForVersion(25)
	obj := elemental.NewObject()
	obj.Put("a", elemental.Int(1))

	var got []any
	fn := func(name string, node *jsonnode.ObjectNode, rest ...any) int {
		got = append(got, name, node)
		got = append(got, rest...)
		return len(rest)
	}

	out, err := Invoke(modern, fn, "x", obj, obj, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, out)
	require.Len(t, got, 4)
	assert.Equal(t, `{"a":1.0}`, got[1].(*jsonnode.ObjectNode).String())
	assert.IsType(t, &jsonnode.ObjectNode{}, got[2], "variadic elements convert when a node fits")
	assert.Equal(t, 7, got[3])

	got = nil
	out, err = Invoke(modern, fn, "x", obj, []any{})
	require.NoError(t, err)
	assert.Equal(t, 0, out)

	_, err = Invoke(ForVersion(24), fn, "x", obj)
	require.Error(t, err, "legacy hosts do not convert")
}

func TestInvoke_ErrorsAndResults(t *testing.T) {
	boom := stderrors.New("boom")

	_, err := Invoke(ForVersion(25), func() (int, error) { return 0, boom })
	assert.Same(t, boom, err)

	out, err := Invoke(ForVersion(25), func() {})
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = Invoke(ForVersion(25), func(int) {})
	assert.True(t, stderrors.Is(err, errors.ErrArgumentCount))

	_, err = Invoke(ForVersion(25), "not a func")
	assert.True(t, errors.IsType(err, errors.ErrorTypeInput))

	out, err = Invoke(ForVersion(25), func(v int8) int8 { return v }, 12)
	require.NoError(t, err)
	assert.Equal(t, int8(12), out)
}

func TestPendingResult_Then(t *testing.T) {
	for _, major := range []int{24, 25} {
		s := ForVersion(major)
		el := hosttest.NewElement()
		pending := NewPendingResult(s, el.ExecuteJS("return $0"))

		var result elemental.Value
		pending.Then(func(v elemental.Value) { result = v }, func(string) { t.Fatal("unexpected error") })

		var hostValue any = elemental.Float(42)
		if major >= ModernSince {
			hostValue = jsonnode.NumberNode(42)
		}
		require.NoError(t, el.LastScript().Pending.Complete(hostValue))
		require.NotNil(t, result)
		assert.Equal(t, "42", result.ToJSON())
	}
}

func TestPendingResult_ThenAsAndErrors(t *testing.T) {
	s := ForVersion(25)
	el := hosttest.NewElement()

	pending := NewPendingResult(s, el.ExecuteJS("return 1"))
	var n int
	ThenTyped(pending, func(v int) { n = v }, nil)
	require.NoError(t, el.LastScript().Pending.Complete(jsonnode.NumberNode(3.9)))
	assert.Equal(t, 3, n)

	pending = NewPendingResult(s, el.ExecuteJS("return 2"))
	ThenTyped[int](pending, nil, nil)
	assert.NotPanics(t, func() {
		require.NoError(t, el.LastScript().Pending.Complete(jsonnode.NumberNode(2)))
	})

	pending = NewPendingResult(s, el.ExecuteJS("throw 1"))
	var msg string
	pending.ThenAs(reflect.TypeFor[string](), func(any) { t.Fatal("unexpected result") }, func(m string) { msg = m })
	require.NoError(t, el.LastScript().Pending.Fail("ReferenceError"))
	assert.Equal(t, "ReferenceError", msg)

	pending = NewPendingResult(s, el.ExecuteJS("return {}"))
	pending.ThenAs(reflect.TypeFor[*elemental.Array](), func(any) { t.Fatal("unexpected result") }, func(m string) { msg = m })
	require.NoError(t, el.LastScript().Pending.Complete(jsonnode.EmptyObject()))
	assert.Contains(t, msg, "cannot decode OBJECT")
}

func TestCompletion(t *testing.T) {
	s := ForVersion(25)
	el := hosttest.NewElement()

	future := NewPendingResult(s, el.ExecuteJS("return 'x'")).Future(reflect.TypeFor[string]())
	select {
	case <-future.Done():
		t.Fatal("completed before the host answered")
	default:
	}
	require.NoError(t, el.LastScript().Pending.Complete(jsonnode.StringNode("x")))
	v, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	failed := NewPendingResult(s, el.ExecuteJS("boom")).Future(reflect.TypeFor[string]())
	require.NoError(t, el.LastScript().Pending.Fail("boom"))
	_, err = failed.Wait(context.Background())
	assert.EqualError(t, err, "script evaluation failed: boom")

	never := NewPendingResult(s, el.ExecuteJS("never")).Future(reflect.TypeFor[string]())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = never.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
