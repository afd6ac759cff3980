package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates that the target of a valid URI does not exist or could not be parsed.
	ErrNotFound = errors.New("repository not found")

	// ErrTransient indicates a network, authentication or remote service failure.
	ErrTransient = errors.New("transient provider failure")

	// ErrUnknownKind indicates that no provider is registered for a kind.
	ErrUnknownKind = errors.New("unknown provider kind")

	// ErrInvalidURL indicates that no enabled provider accepts a URI.
	ErrInvalidURL = errors.New("invalid repository url")

	// ErrDuplicateOwnership indicates that a repository URL already belongs to another owner.
	ErrDuplicateOwnership = errors.New("repository owned by another user")
)

// TransientError wraps a failure that may succeed when the pass is retried.
type TransientError struct {
	Kind string
	URI  string
	Err  error
}

// Error implements the error interface
func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: fetch %s: %v", e.Kind, e.URI, e.Err)
}

// Unwrap returns the underlying cause
func (e *TransientError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TransientError) Is(target error) bool {
	return target == ErrTransient
}

// NewTransientError creates a new TransientError
func NewTransientError(kind, uri string, err error) *TransientError {
	return &TransientError{Kind: kind, URI: uri, Err: err}
}

// UnknownKindError reports a provider kind with no registered factory.
type UnknownKindError struct {
	Kind string
}

// Error implements the error interface
func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown provider kind: %q", e.Kind)
}

// Is implements errors.Is support
func (e *UnknownKindError) Is(target error) bool {
	return target == ErrUnknownKind
}

// NotFoundf returns an error wrapping ErrNotFound with context.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// IsNotFound reports whether err is a not-found outcome.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransient reports whether err is a transient failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
