package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the machine-readable category of an error.
type Kind string

const (
	// KindNotFound is returned when an id does not resolve.
	KindNotFound Kind = "not_found"
	// KindValidation covers empty, out-of-vocabulary or malformed input.
	KindValidation Kind = "validation_error"
	// KindReferentialIntegrity is returned when a foreign id is unresolved at write time.
	KindReferentialIntegrity Kind = "referential_integrity_error"
	// KindConcurrentModification is returned when an optimistic version check fails.
	KindConcurrentModification Kind = "concurrent_modification_error"
	// KindStorage covers persistence, timeout and connection failures.
	KindStorage Kind = "storage_error"
)

// Error carries a kind, a human readable message and structured details so
// callers can render a response without re-deriving context.
type Error struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, &Error{Kind: KindNotFound}) matches any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// WithDetail attaches a structured detail and returns the same error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// JSON renders the error for transport layers. Marshal failures fall back to
// a minimal object with the kind and message.
func (e *Error) JSON() string {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"kind":%q,"message":%q}`, e.Kind, e.Message)
	}
	return string(b)
}

// New creates an error of the given kind.
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NotFound is returned when a resource id does not resolve.
func NotFound(resource string, id int64) *Error {
	return New(KindNotFound, fmt.Sprintf("%s %d not found", resource, id), nil).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// Validation is returned when a field fails a constraint.
func Validation(field, constraint, message string) *Error {
	return New(KindValidation, message, nil).
		WithDetail("field", field).
		WithDetail("constraint", constraint)
}

// ReferentialIntegrity is returned when a foreign id cannot be resolved
// while writing, typically reported by the storage engine.
func ReferentialIntegrity(message string, err error) *Error {
	return New(KindReferentialIntegrity, message, err)
}

// ConcurrentModification is returned when the stored version differs from
// the version the caller based its update on.
func ConcurrentModification(resource string, id, expected, current int64) *Error {
	return New(KindConcurrentModification, fmt.Sprintf("%s %d was modified concurrently", resource, id), nil).
		WithDetail("resource", resource).
		WithDetail("id", id).
		WithDetail("expected_version", expected).
		WithDetail("current_version", current)
}

// Storage wraps a persistence failure for the named operation.
func Storage(op string, err error) *Error {
	return New(KindStorage, op+" failed", err).WithDetail("operation", op)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// From returns err as an *Error, wrapping unknown errors as storage errors.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Storage("operation", err)
}
