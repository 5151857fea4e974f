package hostfuncs

import (
	"encoding/json"
	"errors"
	"fmt"
)

// OperationError is the structured failure of a host operation.
// The bridge rethrows it into the script as an Error, so a script can catch
// it while the host still sees a typed value.
type OperationError struct {
	// Type is a machine-readable error type identifier (e.g., "VALIDATION_ERROR", "INTERNAL_ERROR").
	Type string `json:"error"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Code is a numeric error code (e.g., 400, 500).
	Code int `json:"code"`
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	return e.Type + ": " + e.Message
}

// ToJSON serializes the OperationError to JSON bytes.
// Returns nil if serialization fails (which should never happen for this simple type).
func (e *OperationError) ToJSON() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}

// AsOperationError reports whether err is, or wraps, an OperationError.
func AsOperationError(err error) (*OperationError, bool) {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr, true
	}
	return nil, false
}

// NewValidationError creates an error for bad input (e.g., a non-numeric coordinate).
func NewValidationError(message string) *OperationError {
	return &OperationError{
		Type:    "VALIDATION_ERROR",
		Message: message,
		Code:    400,
	}
}

// NewNotFoundError creates an error for unknown operation names.
func NewNotFoundError(name string) *OperationError {
	return &OperationError{
		Type:    "NOT_FOUND",
		Message: "unknown host operation: " + name,
		Code:    404,
	}
}

// NewInternalError creates an error for unexpected failures.
func NewInternalError(message string) *OperationError {
	return &OperationError{
		Type:    "INTERNAL_ERROR",
		Message: message,
		Code:    500,
	}
}

// NewPanicError creates an error for recovered panics.
func NewPanicError(panicValue any) *OperationError {
	var msg string
	switch v := panicValue.(type) {
	case error:
		msg = v.Error()
	case string:
		msg = v
	case fmt.Stringer:
		msg = v.String()
	default:
		msg = "panic recovered"
	}
	return &OperationError{
		Type:    "INTERNAL_ERROR",
		Message: "panic: " + msg,
		Code:    500,
	}
}
