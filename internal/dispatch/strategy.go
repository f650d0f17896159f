// Package dispatch selects, once per process, how values cross the boundary
// to the host and how components are instrumented.
package dispatch

import (
	"fmt"

	"github.com/mcncl/jsonmigration/elemental"
	"github.com/mcncl/jsonmigration/internal/convert"
	"github.com/mcncl/jsonmigration/internal/discover"
	"github.com/mcncl/jsonmigration/internal/errors"
	"github.com/mcncl/jsonmigration/jsonnode"
)

// ModernSince is the first host major version expecting jsonnode values.
const ModernSince = 25

// Strategy adapts elemental values to the family the host expects.
type Strategy interface {
	Name() string
	Mode() discover.Mode
	// Host is the representation the host exchanges.
	Host() convert.Representation
	// ToHost converts an elemental value into the host family.
	ToHost(v elemental.Value) (any, error)
	// FromHost converts a value of the host family into elemental. A nil
	// value yields nil.
	FromHost(v any) (elemental.Value, error)
}

// ForVersion returns the strategy for a host major version.
func ForVersion(major int) Strategy {
	if major >= ModernSince {
		return modern{}
	}
	return legacy{}
}

type legacy struct{}

func (legacy) Name() string                          { return "legacy" }
func (legacy) Mode() discover.Mode                   { return discover.Legacy }
func (legacy) Host() convert.Representation          { return convert.Elemental }
func (legacy) ToHost(v elemental.Value) (any, error) { return v, nil }

func (legacy) FromHost(v any) (elemental.Value, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case elemental.Value:
		return t, nil
	default:
		return nil, castError(v)
	}
}

type modern struct{}

func (modern) Name() string                 { return "modern" }
func (modern) Mode() discover.Mode          { return discover.Modern }
func (modern) Host() convert.Representation { return convert.Node }

func (modern) ToHost(v elemental.Value) (any, error) {
	return convert.ToNode(v)
}

func (modern) FromHost(v any) (elemental.Value, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case elemental.Value:
		return t, nil
	case jsonnode.Node:
		return convert.ToElemental(t)
	default:
		return nil, castError(v)
	}
}

func castError(v any) error {
	return errors.NewConversionError(fmt.Sprintf("%T cannot be converted to an elemental value", v), errors.ErrUnsupportedKind)
}
