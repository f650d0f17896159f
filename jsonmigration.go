// Package jsonmigration lets components written against the elemental JSON
// family run on hosts that exchange jsonnode values.
//
// A Helper resolves, once, which family the host speaks. Under a legacy host
// values pass through unchanged; under a modern host (major version 25 and
// later) every value crossing the boundary is converted through the canonical
// tree in jsontree, and callable methods of components are wrapped by an
// instrumented class that converts their arguments and results.
package jsonmigration

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/mcncl/jsonmigration/elemental"
	"github.com/mcncl/jsonmigration/host"
	"github.com/mcncl/jsonmigration/internal/convert"
	"github.com/mcncl/jsonmigration/internal/dispatch"
	"github.com/mcncl/jsonmigration/internal/errors"
	"github.com/mcncl/jsonmigration/internal/instrument"
	"github.com/mcncl/jsonmigration/jsontree"
)

// DefaultScope names the instrumentation scope used when none is configured.
const DefaultScope = "default"

type (
	// Class is a component type as the host sees it.
	Class = instrument.Class
	// Instance is a component bound to its Class.
	Instance = instrument.Instance
	// MethodInfo describes one callable method of a Class.
	MethodInfo = instrument.MethodInfo
	// PendingResult adapts a host script result to elemental values.
	PendingResult = dispatch.PendingResult
	// Completion is the recorded outcome of a PendingResult.
	Completion = dispatch.Completion
	// Strategy is the resolved boundary behavior.
	Strategy = dispatch.Strategy
	// Representation names a JSON family.
	Representation = convert.Representation
	// ConversionError identifies an unsupported kind and the side it was met on.
	ConversionError = convert.ConversionError
)

const (
	Elemental = convert.Elemental
	Node      = convert.Node
)

// Option configures a Helper.
type Option func(*options)

type options struct {
	version int
	source  host.VersionSource
	scope   string
	logger  *zap.Logger
	failure error
}

// WithHostVersion fixes the host major version.
func WithHostVersion(major int) Option {
	return func(o *options) { o.version = major }
}

// WithVersionSource asks source for the host version on first use, unless a
// version is fixed.
func WithVersionSource(source host.VersionSource) Option {
	return func(o *options) { o.source = source }
}

// WithScope selects the instrumentation scope. Classes are cached per scope.
func WithScope(name string) Option {
	return func(o *options) {
		if name != "" {
			o.scope = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Helper is the adapter API. It is safe for concurrent use.
type Helper struct {
	resolver *dispatch.Resolver
	logger   *zap.Logger
	scope    string

	mu       sync.Mutex
	registry *instrument.Registry
}

// New returns a Helper. Nothing is resolved until the first adapter call.
func New(opts ...Option) *Helper {
	o := options{scope: DefaultScope, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	resolverOpts := []dispatch.ResolverOption{dispatch.WithLogger(o.logger)}
	if o.version > 0 {
		resolverOpts = append(resolverOpts, dispatch.WithVersion(o.version))
	}
	if o.source != nil {
		resolverOpts = append(resolverOpts, dispatch.WithVersionSource(o.source))
	}
	if o.failure != nil {
		resolverOpts = append(resolverOpts, dispatch.WithFailure(o.failure))
	}

	return &Helper{
		resolver: dispatch.NewResolver(resolverOpts...),
		logger:   o.logger,
		scope:    o.scope,
	}
}

// Strategy resolves the strategy if needed and returns it. A resolution
// failure is returned by this and every later call.
func (h *Helper) Strategy() (Strategy, error) {
	return h.resolver.Strategy()
}

// Registry returns the instrumentation registry, created for the resolved
// mode on first use.
func (h *Helper) Registry() (*instrument.Registry, error) {
	s, err := h.Strategy()
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.registry == nil {
		h.registry = instrument.NewRegistry(s.Mode(), instrument.WithLogger(h.logger))
	}
	return h.registry, nil
}

// Instrument returns the class the host should use for the component type
// t. Types with nothing to convert come back as their plain class, the same
// value on every call.
func (h *Helper) Instrument(t reflect.Type) (*Class, error) {
	r, err := h.Registry()
	if err != nil {
		return nil, err
	}
	return r.Scope(h.scope).Instrument(t)
}

// Close drops the classes cached in the helper's scope.
func (h *Helper) Close() {
	h.mu.Lock()
	r := h.registry
	h.mu.Unlock()
	if r != nil {
		r.Close(h.scope)
	}
}

// ToCanonical converts an elemental value, a jsonnode value or a canonical
// value into the canonical tree.
func (h *Helper) ToCanonical(v any) (jsontree.Value, error) {
	if _, err := h.Strategy(); err != nil {
		return nil, err
	}
	return convert.ToCanonical(v)
}

// ConvertBack converts a canonical value into the target family.
func (h *Helper) ConvertBack(t jsontree.Value, target Representation) (any, error) {
	if _, err := h.Strategy(); err != nil {
		return nil, err
	}
	return convert.FromCanonical(t, target)
}

// ConvertToJSONValue converts a value received from the host into an
// elemental value. A nil value stays nil.
func (h *Helper) ConvertToJSONValue(v any) (elemental.Value, error) {
	s, err := h.Strategy()
	if err != nil {
		return nil, err
	}
	return s.FromHost(v)
}

// ConvertToJSONValues converts src element-wise into dst, which must have the
// same length.
func (h *Helper) ConvertToJSONValues(src []any, dst []elemental.Value) error {
	if len(src) != len(dst) {
		return errors.NewInputError(
			fmt.Sprintf("cannot convert %d values into %d slots", len(src), len(dst)), errors.ErrLengthMismatch)
	}
	for i, v := range src {
		out, err := h.ConvertToJSONValue(v)
		if err != nil {
			return fmt.Errorf("value %d: %w", i, err)
		}
		dst[i] = out
	}
	return nil
}

// ConvertReturn converts the result of a callable method into the family the
// host expects. A nil value stays nil.
func (h *Helper) ConvertReturn(v elemental.Value) (any, error) {
	s, err := h.Strategy()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return s.ToHost(v)
}

// Invoke calls fn, converting elemental arguments for parameters that take
// jsonnode values on modern hosts.
func (h *Helper) Invoke(fn any, args ...any) (any, error) {
	s, err := h.Strategy()
	if err != nil {
		return nil, err
	}
	return dispatch.Invoke(s, fn, args...)
}

// InvokeMethod calls the exported method name of instance like Invoke.
func (h *Helper) InvokeMethod(instance any, name string, args ...any) (any, error) {
	v := reflect.ValueOf(instance)
	if !v.IsValid() {
		return nil, errors.NewInputError("cannot invoke a method on nil", nil)
	}
	m := v.MethodByName(name)
	if !m.IsValid() {
		return nil, errors.NewInputError(fmt.Sprintf("%T has no exported method %s", instance, name), errors.ErrUnknownMethod)
	}
	return h.Invoke(m.Interface(), args...)
}

// SetProperty assigns v to the property name of el.
func (h *Helper) SetProperty(el host.Element, name string, v elemental.Value) error {
	if el == nil {
		return errors.NewInputError("element is nil", nil)
	}
	out, err := h.ConvertReturn(v)
	if err != nil {
		return err
	}
	el.SetPropertyJSON(name, out)
	return nil
}

// EvaluateScript runs expr on el. Elemental arguments are converted for the
// host; other arguments are passed as they are.
func (h *Helper) EvaluateScript(el host.Element, expr string, args ...any) (*PendingResult, error) {
	if el == nil {
		return nil, errors.NewInputError("element is nil", nil)
	}
	s, err := h.Strategy()
	if err != nil {
		return nil, err
	}
	converted := make([]any, len(args))
	for i, a := range args {
		ev, ok := a.(elemental.Value)
		if !ok {
			converted[i] = a
			continue
		}
		if converted[i], err = s.ToHost(ev); err != nil {
			return nil, fmt.Errorf("script argument %d: %w", i, err)
		}
	}
	return dispatch.NewPendingResult(s, el.ExecuteJS(expr, converted...)), nil
}

// EventData returns the data of ev as an elemental object. Events without
// data yield nil.
func (h *Helper) EventData(ev host.DomEvent) (*elemental.Object, error) {
	if ev == nil {
		return nil, errors.NewInputError("event is nil", nil)
	}
	v, err := h.ConvertToJSONValue(ev.EventData())
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case nil, elemental.Null:
		return nil, nil
	case *elemental.Object:
		return t, nil
	default:
		return nil, errors.NewConversionError(
			fmt.Sprintf("event data is %s, not OBJECT", v.Type()), errors.ErrUnsupportedKind)
	}
}

// ThenTyped registers handlers receiving the result of p decoded as T.
func ThenTyped[T any](p *PendingResult, onResult func(T), onError func(string)) {
	dispatch.ThenTyped(p, onResult, onError)
}
