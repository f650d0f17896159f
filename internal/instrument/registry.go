// Package instrument turns component types into classes whose callable
// methods convert JSON values for the active host.
//
// Classes are cached per scope. A scope belongs to the hosting module that
// created it and is dropped with Registry.Close.
package instrument

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mcncl/jsonmigration/internal/discover"
	"github.com/mcncl/jsonmigration/internal/errors"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used by the registry and its scopes.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry maps scope names to their instrumentation state.
type Registry struct {
	mu     sync.Mutex
	scopes map[string]*Scope
	mode   discover.Mode
	logger *zap.Logger
}

// NewRegistry returns an empty registry instrumenting for mode.
func NewRegistry(mode discover.Mode, opts ...Option) *Registry {
	r := &Registry{
		scopes: make(map[string]*Scope),
		mode:   mode,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mode returns the instrumentation mode shared by all scopes.
func (r *Registry) Mode() discover.Mode { return r.mode }

// Scope returns the scope called name, creating it on first use.
func (r *Registry) Scope(name string) *Scope {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.scopes[name]; ok {
		return s
	}
	s := newScope(name, r.mode, r.logger)
	r.scopes[name] = s
	return s
}

// NewScope creates a scope with a generated name.
func (r *Registry) NewScope() *Scope {
	return r.Scope(uuid.NewString())
}

// Close tears down the scope called name. Classes it cached are dropped and
// later Instrument calls on it fail. Close reports whether the scope existed.
func (r *Registry) Close(name string) bool {
	r.mu.Lock()
	s, ok := r.scopes[name]
	delete(r.scopes, name)
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.close()
	r.logger.Debug("closed instrumentation scope", zap.String("scope", name))
	return true
}

// Scopes returns the names of the open scopes, sorted.
func (r *Registry) Scopes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.scopes))
	for name := range r.scopes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scope caches the classes instrumented for one hosting module.
type Scope struct {
	name   string
	mode   discover.Mode
	logger *zap.Logger

	classes     sync.Map // reflect.Type -> *Class
	group       singleflight.Group
	generations atomic.Int64
	closed      atomic.Bool

	// afterBuild, when set, runs between generating a class and caching it.
	afterBuild func(reflect.Type)
}

func newScope(name string, mode discover.Mode, logger *zap.Logger) *Scope {
	return &Scope{name: name, mode: mode, logger: logger.With(zap.String("scope", name))}
}

// Name returns the scope name.
func (s *Scope) Name() string { return s.name }

// Generations counts the instrumented classes this scope has built.
func (s *Scope) Generations() int64 { return s.generations.Load() }

// Len returns the number of cached classes, plain ones included.
func (s *Scope) Len() int {
	n := 0
	s.classes.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Instrument returns the class for parent. Parents without methods needing
// conversion yield their plain class. Concurrent calls for the same parent
// share one generation and observe the same *Class.
func (s *Scope) Instrument(parent reflect.Type) (*Class, error) {
	t, err := validate(parent)
	if err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, s.closedError()
	}
	if c, ok := s.classes.Load(t); ok {
		return c.(*Class), nil
	}

	// Type descriptors are unique, so their address identifies the type.
	key := fmt.Sprintf("%p", t)
	v, err, _ := s.group.Do(key, func() (any, error) {
		if c, ok := s.classes.Load(t); ok {
			return c, nil
		}
		c, err := s.build(t)
		if err != nil {
			return nil, err
		}
		if s.afterBuild != nil {
			s.afterBuild(t)
		}
		if s.closed.Load() {
			return nil, s.closedError()
		}
		s.classes.Store(t, c)
		// close may have ranged over the map between the check and Store.
		if s.closed.Load() {
			s.classes.Delete(t)
			return nil, s.closedError()
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Class), nil
}

func (s *Scope) build(t reflect.Type) (*Class, error) {
	s.logger.Debug("discovering callable methods", zap.Stringer("parent", t), zap.Stringer("mode", s.mode))

	methods, err := discover.FromType(t, componentType)
	if err != nil {
		return nil, err
	}
	selected, err := discover.Select(methods, s.mode)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		s.logger.Debug("nothing to instrument", zap.Stringer("parent", t))
		return newPlainClass(t, methods)
	}

	ctor, err := constructor(t)
	if err != nil {
		return nil, err
	}
	c, err := newInstrumentedClass(t, methods, selected, s.mode, ctor)
	if err != nil {
		return nil, errors.NewGenerationError("failed to instrument "+t.String(), err)
	}
	s.generations.Add(1)
	s.logger.Debug("instrumented class generated",
		zap.String("class", c.Name()),
		zap.Int("overrides", len(selected)))
	return c, nil
}

func (s *Scope) closedError() error {
	return errors.NewGenerationError(fmt.Sprintf("instrumentation scope %s is closed", s.name), errors.ErrScopeClosed)
}

func (s *Scope) close() {
	s.closed.Store(true)
	s.classes.Range(func(k, _ any) bool {
		s.classes.Delete(k)
		return true
	})
}
