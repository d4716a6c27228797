package domain

import (
	"fmt"
	"time"
)

// EngineError is a coded failure surfaced at the CLI and store boundaries.
// Calculation paths never return one; they degrade to values instead.
type EngineError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
}

// Error implements the error interface
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error, if any
func (e *EngineError) Unwrap() error {
	return e.cause
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput  = "INVALID_INPUT"
	ErrRegistry      = "REGISTRY_ERROR"
	ErrStore         = "STORE_ERROR"
	ErrConfig        = "CONFIG_ERROR"
	ErrInternal      = "INTERNAL_ERROR"
	ErrValidation    = "VALIDATION_ERROR"
	ErrDoseTextParse = "DOSE_TEXT_PARSE_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewEngineError creates a new EngineError with timestamp
func NewEngineError(code, message, details string) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// WrapEngineError attaches a code to an infrastructure error. The cause text
// becomes Details and stays reachable through errors.Is/As.
func WrapEngineError(code, message string, err error) *EngineError {
	e := NewEngineError(code, message, "")
	if err != nil {
		e.Details = err.Error()
		e.cause = err
	}
	return e
}
