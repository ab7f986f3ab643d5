package errx

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// CatalogUnavailableMessage is returned when the listing catalog cannot be queried.
	CatalogUnavailableMessage = "listing catalog is currently unavailable"
	// ValidationErrorMessage prefixes field-level validation failures.
	ValidationErrorMessage = "invalid request payload"
)

// Kind classifies an AppError for callers that branch on the failure category.
type Kind string

const (
	KindInternal           Kind = "internal_error"
	KindInput              Kind = "input_error"
	KindValidation         Kind = "validation_error"
	KindCatalogUnavailable Kind = "catalog_unavailable"
	KindUpstreamDegraded   Kind = "upstream_degraded"
	KindNotFound           Kind = "not_found"
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
	Kind    Kind
	// Fields carries per-field detail for validation failures.
	Fields map[string]string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	msg := e.Message
	if len(e.Fields) > 0 {
		msg = fmt.Sprintf("%s (%s)", msg, e.fieldSummary())
	}
	if e.Err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *AppError) fieldSummary() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches the underlying error.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
		Kind:    KindInternal,
	}
}

// Input rejects a request before any state is touched.
func Input(message string) *AppError {
	return &AppError{
		Status:  http.StatusBadRequest,
		Message: message,
		Kind:    KindInput,
	}
}

// Validation rejects a malformed payload with field-level detail.
func Validation(fields map[string]string) *AppError {
	return &AppError{
		Status:  http.StatusBadRequest,
		Message: ValidationErrorMessage,
		Kind:    KindValidation,
		Fields:  fields,
	}
}

// CatalogUnavailable marks a failed catalog query.
func CatalogUnavailable(err error) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Err:     err,
		Status:  http.StatusServiceUnavailable,
		Message: CatalogUnavailableMessage,
		Kind:    KindCatalogUnavailable,
	}
}

// UpstreamDegraded marks an NLU or sentiment failure that was replaced by defaults.
// It is logged, never returned to HTTP clients.
func UpstreamDegraded(component string, err error) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Err:     err,
		Status:  http.StatusOK,
		Message: component + " degraded",
		Kind:    KindUpstreamDegraded,
	}
}

// KindOf returns the Kind of the first AppError in the chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// From converts any error into an AppError, hiding unknown errors behind SystemErrorMessage.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(err, http.StatusInternalServerError, SystemErrorMessage)
}
