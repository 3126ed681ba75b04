// Package ferr provides the structured error kinds shared by every core
// component. Errors are tagged results, never control-flow jumps: callers
// inspect Kind via errors.As, they do not recover from panics.
package ferr

import (
	"errors"
	"fmt"
)

// Kind enumerates the closed set of error categories the core can produce.
type Kind string

const (
	// OutOfMemory means a value/type/function allocation failed.
	OutOfMemory Kind = "out-of-memory"
	// NotFound means no path or symbol matched.
	NotFound Kind = "not-found"
	// NameCollision means a scope Define was rejected because the name is
	// already bound.
	NameCollision Kind = "name-collision"
	// SignatureMismatch means Invoke was called with the wrong arity or
	// incompatible argument types.
	SignatureMismatch Kind = "signature-mismatch"
	// Ambiguous means resolution found multiple incompatible candidates.
	Ambiguous Kind = "ambiguous"
	// NotSupported means the backend does not implement the requested
	// operation.
	NotSupported Kind = "not-supported"
	// BackendError means the backend reported an internal failure.
	BackendError Kind = "backend-error"
	// Cancelled means a waiting operation was cancelled; the loader
	// instance returns it when an execution-path rate-limit wait is
	// cancelled. Clearing a handle does not reject in-flight awaits.
	Cancelled Kind = "cancelled"
)

// Error is a structured failure that preserves its Kind and an optional
// causal chain while still implementing the standard error interface.
// Modeled on the teacher's toolerrors.ToolError: nested via Cause so
// errors.Is/As keep working across wrapping.
type Error struct {
	// Kind categorizes the failure.
	Kind Kind
	// Message is the human-readable summary.
	Message string
	// Cause links to the underlying error, if any.
	Cause error
	// Diagnostic carries an opaque backend diagnostic string, populated only
	// for Kind == BackendError.
	Diagnostic string
}

// New constructs an *Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an *Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error of the given kind that wraps cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Backend constructs a BackendError carrying the backend's opaque
// diagnostic string alongside the wrapped cause.
func Backend(diagnostic string, cause error) *Error {
	return &Error{Kind: BackendError, Message: "backend error", Cause: cause, Diagnostic: diagnostic}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause so errors.Is/As traverse the chain.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, ferr.New(ferr.NotFound, "")) or, more commonly,
// Is(err) directly via the IsKind helper below.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
