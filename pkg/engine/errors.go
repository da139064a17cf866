package engine

import (
	"errors"
	"fmt"
)

// EngineError is a run-fatal error. Recoverable provider conditions never
// surface as errors: rate limiting is retried under the shared cooldown and
// failing routes are abandoned after their retry budget, so every error
// that reaches the caller aborts the run.
type EngineError struct {
	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCode adds an error code to an error.
func (e *EngineError) WithCode(code string) *EngineError {
	e.Code = code
	return e
}

// NewPermanentError creates a new run-fatal error.
func NewPermanentError(message string, err error) *EngineError {
	return &EngineError{Message: message, Err: err}
}

// IsPermanent reports whether err is a run-fatal EngineError.
func IsPermanent(err error) bool {
	var e *EngineError
	return errors.As(err, &e)
}

// Common error codes.
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeMalformedPayload = "MALFORMED_PAYLOAD"
)
