package dispatch

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mcncl/jsonmigration/host"
	"github.com/mcncl/jsonmigration/internal/discover"
	"github.com/mcncl/jsonmigration/internal/errors"
)

// Resolver picks the strategy on first use and keeps the outcome, error
// included, for the rest of the process.
type Resolver struct {
	version int
	source  host.VersionSource
	logger  *zap.Logger
	// failure is an error found before resolution, such as a malformed
	// host version setting. Resolution reports it instead of resolving.
	failure error

	once     sync.Once
	strategy Strategy
	err      error
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithVersion fixes the host major version. It takes precedence over any
// version source.
func WithVersion(major int) ResolverOption {
	return func(r *Resolver) { r.version = major }
}

// WithVersionSource asks source for the host version when none is fixed.
func WithVersionSource(source host.VersionSource) ResolverOption {
	return func(r *Resolver) { r.source = source }
}

// WithFailure makes resolution fail with err, wrapped as a configuration
// error. A nil err is ignored.
func WithFailure(err error) ResolverOption {
	return func(r *Resolver) { r.failure = err }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver returns an unresolved Resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Strategy resolves the strategy on the first call and returns the same
// result on every later call.
func (r *Resolver) Strategy() (Strategy, error) {
	r.once.Do(func() {
		r.strategy, r.err = r.resolve()
		if r.err != nil {
			r.logger.Error("cannot select JSON migration strategy", zap.Error(r.err))
			return
		}
		r.logger.Info("selected JSON migration strategy",
			zap.String("strategy", r.strategy.Name()),
			zap.Int("host_version", r.version))
	})
	return r.strategy, r.err
}

func (r *Resolver) resolve() (Strategy, error) {
	if r.failure != nil {
		return nil, errors.NewConfigurationError("cannot determine host version", r.failure)
	}
	if r.version <= 0 {
		if r.source == nil {
			return nil, errors.NewConfigurationError(
				"host version is unknown: set host_version or provide a version source", nil)
		}
		major, err := r.source.MajorVersion()
		if err != nil {
			return nil, errors.NewConfigurationError("cannot determine host version", err)
		}
		if major <= 0 {
			return nil, errors.NewConfigurationError(fmt.Sprintf("invalid host version %d", major), nil)
		}
		r.version = major
	}

	s := ForVersion(r.version)
	if s.Mode() == discover.Modern && !codegenBackend {
		return nil, errors.NewGenerationError(
			fmt.Sprintf("host version %d requires the instrumentation backend, which this build excludes (built with the jsonmigration_nocodegen tag)", r.version),
			errors.ErrCodegenUnavailable)
	}
	return s, nil
}
