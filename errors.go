package miniapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for request binding and transport handling.
var (
	ErrBindPath      = errors.New("bind path")
	ErrBindQuery     = errors.New("bind query")
	ErrBindDefault   = errors.New("bind default")
	ErrBindBody      = errors.New("bind body")
	ErrRouteNotFound = errors.New("route not found")
	ErrBodyTooLarge  = errors.New("request body too large")
	ErrDisconnected  = errors.New("client disconnected")
	ErrUnknownScope  = errors.New("unknown scope type")
	ErrConnClosed    = errors.New("websocket connection closed")
)

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// HTTPError is an error with an HTTP status code.
type HTTPError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Error returns the error message.
func (e *HTTPError) Error() string { return e.Message }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// Error returns an error with the given HTTP status code and message.
func Error(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus extracts the HTTP status code from an error. Validation
// failures map to 400; errors that do not implement StatusCoder map to 500.
func ErrorStatus(err error) int {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// FieldError describes a single field validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationError is the structured failure raised when request data cannot be
// bound or validated. It always maps to 400.
type ValidationError struct {
	Message string
	Fields  []FieldError
	Err     error
}

// NewValidationError builds a ValidationError from field failures.
func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// Error returns the explicit message, or the joined field failures.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) > 0 {
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.Message
		}
		return strings.Join(parts, "; ")
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "validation failed"
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StatusCode returns http.StatusBadRequest.
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// ParameterError reports a value that could not be coerced to the declared
// parameter type.
type ParameterError struct {
	Name  string
	Value string
	Err   error
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid value %q for parameter %s: %v", e.Value, e.Name, e.Err)
}

func (e *ParameterError) Unwrap() error { return e.Err }

// MissingParameterError reports a declared parameter that no source could satisfy.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return "missing required parameter: " + e.Name
}
