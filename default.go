package jsonmigration

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/mcncl/jsonmigration/elemental"
	"github.com/mcncl/jsonmigration/host"
	"github.com/mcncl/jsonmigration/internal/config"
	"github.com/mcncl/jsonmigration/jsontree"
)

var (
	defaultHelper atomic.Pointer[Helper]
	defaultOnce   sync.Once
)

// Default returns the process-wide Helper. Unless SetDefault was called
// first, it takes the host version from JSONMIGRATION_HOST_VERSION.
func Default() *Helper {
	defaultOnce.Do(func() {
		if defaultHelper.Load() != nil {
			return
		}
		defaultHelper.CompareAndSwap(nil, fromEnv())
	})
	return defaultHelper.Load()
}

// fromEnv builds a Helper from JSONMIGRATION_HOST_VERSION. A malformed
// value is kept and reported by the first adapter call.
func fromEnv() *Helper {
	cfg := config.NewConfig()
	err := cfg.ApplyEnv()
	return New(WithHostVersion(cfg.HostVersion), WithScope(cfg.Scope), func(o *options) { o.failure = err })
}

// SetDefault replaces the process-wide Helper.
func SetDefault(h *Helper) {
	if h != nil {
		defaultHelper.Store(h)
	}
}

// Instrument calls Default().Instrument.
func Instrument(t reflect.Type) (*Class, error) { return Default().Instrument(t) }

// ToCanonical calls Default().ToCanonical.
func ToCanonical(v any) (jsontree.Value, error) { return Default().ToCanonical(v) }

// ConvertBack calls Default().ConvertBack.
func ConvertBack(t jsontree.Value, target Representation) (any, error) {
	return Default().ConvertBack(t, target)
}

// ConvertToJSONValue calls Default().ConvertToJSONValue.
func ConvertToJSONValue(v any) (elemental.Value, error) { return Default().ConvertToJSONValue(v) }

// ConvertToJSONValues calls Default().ConvertToJSONValues.
func ConvertToJSONValues(src []any, dst []elemental.Value) error {
	return Default().ConvertToJSONValues(src, dst)
}

// ConvertReturn calls Default().ConvertReturn.
func ConvertReturn(v elemental.Value) (any, error) { return Default().ConvertReturn(v) }

// Invoke calls Default().Invoke.
func Invoke(fn any, args ...any) (any, error) { return Default().Invoke(fn, args...) }

// SetProperty calls Default().SetProperty.
func SetProperty(el host.Element, name string, v elemental.Value) error {
	return Default().SetProperty(el, name, v)
}

// EvaluateScript calls Default().EvaluateScript.
func EvaluateScript(el host.Element, expr string, args ...any) (*PendingResult, error) {
	return Default().EvaluateScript(el, expr, args...)
}

// EventData calls Default().EventData.
func EventData(ev host.DomEvent) (*elemental.Object, error) { return Default().EventData(ev) }
