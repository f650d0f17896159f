package jsonmigration

import "github.com/mcncl/jsonmigration/internal/errors"

var (
	ErrNilType            = errors.ErrNilType
	ErrNotComponent       = errors.ErrNotComponent
	ErrNoConstructor      = errors.ErrNoConstructor
	ErrMarkerMismatch     = errors.ErrMarkerMismatch
	ErrNameCollision      = errors.ErrNameCollision
	ErrUnsupportedKind    = errors.ErrUnsupportedKind
	ErrCodegenUnavailable = errors.ErrCodegenUnavailable
	ErrLengthMismatch     = errors.ErrLengthMismatch
)

// IsConfigurationError reports whether err comes from a component type, a
// marker or a setting that has to be fixed by the caller.
func IsConfigurationError(err error) bool {
	return errors.IsType(err, errors.ErrorTypeConfiguration)
}

// IsGenerationError reports whether err comes from building or invoking an
// instrumented class.
func IsGenerationError(err error) bool {
	return errors.IsType(err, errors.ErrorTypeGeneration)
}

// IsConversionError reports whether err comes from converting between JSON
// families.
func IsConversionError(err error) bool {
	return errors.IsType(err, errors.ErrorTypeConversion)
}
