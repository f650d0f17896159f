package errors

import (
	"errors"
	"fmt"
)

// Standard application errors
var (
	ErrNilType            = errors.New("type is nil")
	ErrNotComponent       = errors.New("type is not a component type")
	ErrNoConstructor      = errors.New("no accessible zero-argument constructor")
	ErrMarkerMismatch     = errors.New("callable marker does not allow JSON-shaped parameters")
	ErrNameCollision      = errors.New("callable method name collision")
	ErrUnsupportedKind    = errors.New("unsupported JSON node kind")
	ErrCodegenUnavailable = errors.New("code generation backend is not linked into this binary")
	ErrLengthMismatch     = errors.New("array length mismatch")
	ErrArgumentCount      = errors.New("wrong number of arguments")
	ErrUnknownMethod      = errors.New("unknown callable method")
	ErrScopeClosed        = errors.New("instrumentation scope is closed")
	ErrEmptyInput         = errors.New("input is empty or contains only whitespace")
	ErrInvalidJSON        = errors.New("invalid JSON format")
	ErrMultipleJSON       = errors.New("multiple JSON values found at the root, only one is allowed")
	ErrFileNotFound       = errors.New("file not found")
	ErrFileEmpty          = errors.New("file is empty")
	ErrNoInput            = errors.New("no input provided: please specify a file with -i or pipe JSON data to stdin")
	ErrInvalidFilePath    = errors.New("invalid file path")
)

// ErrorType categorizes errors
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeGeneration    ErrorType = "generation"
	ErrorTypeConversion    ErrorType = "conversion"
	ErrorTypeInput         ErrorType = "input"
	ErrorTypeParsing       ErrorType = "parsing"
	ErrorTypeOutput        ErrorType = "output"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// AppError is an application-specific error with context
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewConfigurationError reports a component type that cannot be instrumented
// as declared. These are never retried; the caller must fix the type.
func NewConfigurationError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeConfiguration,
		Message: message,
		Err:     err,
	}
}

// NewGenerationError wraps a failure while building or invoking an
// instrumented class.
func NewGenerationError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeGeneration,
		Message: message,
		Err:     err,
	}
}

// NewConversionError creates a new error related to tree conversion
func NewConversionError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeConversion,
		Message: message,
		Err:     err,
	}
}

// NewInputError creates a new error related to input processing
func NewInputError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInput,
		Message: message,
		Err:     err,
	}
}

// NewParsingError creates a new error related to JSON parsing
func NewParsingError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeParsing,
		Message: message,
		Err:     err,
	}
}

// NewOutputError creates a new error related to output processing
func NewOutputError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeOutput,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether err is an *AppError of the given type anywhere in
// its chain.
func IsType(err error, typ ErrorType) bool {
	return errors.Is(err, &AppError{Type: typ})
}

// UserFriendlyError returns a user-friendly error message
func UserFriendlyError(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrorTypeConfiguration:
			return fmt.Sprintf("Configuration error: %s", appErr.Message)
		case ErrorTypeGeneration:
			return fmt.Sprintf("Instrumentation error: %s", appErr.Message)
		case ErrorTypeConversion:
			return fmt.Sprintf("Conversion error: %s", appErr.Message)
		case ErrorTypeInput:
			return fmt.Sprintf("Input error: %s", appErr.Message)
		case ErrorTypeParsing:
			return fmt.Sprintf("JSON parsing error: %s", appErr.Message)
		case ErrorTypeOutput:
			return fmt.Sprintf("Output error: %s", appErr.Message)
		default:
			return fmt.Sprintf("Error: %s", appErr.Message)
		}
	}

	if errors.Is(err, ErrEmptyInput) {
		return "Error: The input is empty. Please provide valid JSON data."
	}
	if errors.Is(err, ErrInvalidJSON) {
		return "Error: The input contains invalid JSON. Please check your JSON syntax."
	}
	if errors.Is(err, ErrMultipleJSON) {
		return "Error: Multiple JSON values found. Please provide a single JSON value."
	}
	if errors.Is(err, ErrFileNotFound) {
		return "Error: The specified file could not be found. Please check the file path."
	}
	if errors.Is(err, ErrFileEmpty) {
		return "Error: The specified file is empty. Please provide a file with valid JSON content."
	}
	if errors.Is(err, ErrNoInput) {
		return "Error: No input provided. Please specify a file with -i or pipe JSON data to stdin."
	}
	if errors.Is(err, ErrCodegenUnavailable) {
		return "Error: This binary was built without the instrumentation backend required by the host version."
	}

	return fmt.Sprintf("Error: %v", err)
}
