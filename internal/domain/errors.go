package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a triage failure. Client kinds carry a message meant
// for the caller; the internal kind carries only a generic wrapped message.
type ErrorKind string

// Error codes for the four failure kinds of a triage request
const (
	ErrCodeEmptySymptoms      ErrorKind = "EMPTY_SYMPTOMS"
	ErrCodeInvalidContentType ErrorKind = "INVALID_CONTENT_TYPE"
	ErrCodeInvalidImage       ErrorKind = "INVALID_IMAGE"
	ErrCodeInternal           ErrorKind = "INTERNAL_SERVER_ERROR"
)

// Sentinel errors for errors.Is checks. Returned TriageErrors match the
// sentinel of the same kind.
var (
	ErrEmptySymptoms      = &TriageError{Kind: ErrCodeEmptySymptoms, Message: "Symptoms cannot be empty"}
	ErrInvalidContentType = &TriageError{Kind: ErrCodeInvalidContentType, Message: "File must be an image"}
	ErrInvalidImage       = &TriageError{Kind: ErrCodeInvalidImage, Message: "Invalid image file"}
	ErrInternal           = &TriageError{Kind: ErrCodeInternal, Message: "Internal server error"}
)

// TriageError is the single error type surfaced by the triage core.
type TriageError struct {
	Kind    ErrorKind `json:"code"`
	Message string    `json:"detail"`
	Err     error     `json:"-"`
}

// Error implements the error interface
func (e *TriageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for logging.
func (e *TriageError) Unwrap() error {
	return e.Err
}

// Is matches any TriageError of the same kind.
func (e *TriageError) Is(target error) bool {
	t, ok := target.(*TriageError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// IsClientError reports whether the failure was caused by the request input.
func (e *TriageError) IsClientError() bool {
	return e.Kind != ErrCodeInternal
}

// HTTPStatus maps the error kind to a response status code.
func (e *TriageError) HTTPStatus() int {
	if e.IsClientError() {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// NewClientError returns a copy of a client sentinel that records the cause.
func NewClientError(sentinel *TriageError, cause error) *TriageError {
	return &TriageError{
		Kind:    sentinel.Kind,
		Message: sentinel.Message,
		Err:     cause,
	}
}

// WrapInternal converts an unexpected failure into an internal error. The
// original error's type is dropped; only its text survives in the message.
// A TriageError passes through unchanged.
func WrapInternal(err error) *TriageError {
	if err == nil {
		return nil
	}
	var te *TriageError
	if errors.As(err, &te) {
		return te
	}
	return &TriageError{
		Kind:    ErrCodeInternal,
		Message: fmt.Sprintf("Internal server error: %s", err.Error()),
	}
}

