package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an APIError for callers
type ErrorKind string

const (
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindForbidden    ErrorKind = "FORBIDDEN"
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	KindBadRequest   ErrorKind = "BAD_REQUEST"
	// KindInternal covers wrapped infrastructure failures (store, network, database)
	KindInternal ErrorKind = "INTERNAL"
)

// APIError is the error envelope returned from every public operation.
// Reason is curated per call site and safe to show to callers; Err is the
// original cause and is never exposed verbatim.
type APIError struct {
	Kind    ErrorKind
	Reason  string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := e.Reason
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches any APIError of the same kind
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail adds a detail to the error
func (e *APIError) WithDetail(key string, value interface{}) *APIError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewAPIError creates a new API error
func NewAPIError(kind ErrorKind, reason string, err error) *APIError {
	return &APIError{
		Kind:   kind,
		Reason: reason,
		Err:    err,
	}
}

// Sentinels for errors.Is comparisons
var (
	ErrNotFound     = NewAPIError(KindNotFound, "", nil)
	ErrForbidden    = NewAPIError(KindForbidden, "", nil)
	ErrUnauthorized = NewAPIError(KindUnauthorized, "", nil)
	ErrBadRequest   = NewAPIError(KindBadRequest, "", nil)
	ErrInternal     = NewAPIError(KindInternal, "", nil)
)

// NotFound creates a NOT_FOUND error with the given reason
func NotFound(reason string) *APIError {
	return NewAPIError(KindNotFound, reason, nil)
}

// Forbidden creates a FORBIDDEN error with the given reason
func Forbidden(reason string) *APIError {
	return NewAPIError(KindForbidden, reason, nil)
}

// Unauthorized creates an UNAUTHORIZED error with the given reason
func Unauthorized(reason string) *APIError {
	return NewAPIError(KindUnauthorized, reason, nil)
}

// BadRequest creates a BAD_REQUEST error with the given reason
func BadRequest(reason string, err error) *APIError {
	return NewAPIError(KindBadRequest, reason, err)
}

// Wrap returns err unchanged when it already carries an APIError, otherwise
// it wraps err as an INTERNAL error preserving the cause. Wrap(nil) is nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return NewAPIError(KindInternal, "", err)
}

// WrapWithReason behaves like Wrap but attaches reason to newly wrapped errors
func WrapWithReason(err error, reason string) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return NewAPIError(KindInternal, reason, err)
}

// KindOf returns the kind of an API error, or empty string if err is not one
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// ReasonOf returns the curated reason of an API error
func ReasonOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Reason
	}
	return ""
}

// DetailsOf returns the details map of an API error, or nil
func DetailsOf(err error) map[string]interface{} {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Details
	}
	return nil
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return KindOf(err) == KindForbidden
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// IsBadRequestError checks if an error is a validation error
func IsBadRequestError(err error) bool {
	return KindOf(err) == KindBadRequest
}

// IsInternalError checks if an error is an unclassified infrastructure error
func IsInternalError(err error) bool {
	return KindOf(err) == KindInternal
}
