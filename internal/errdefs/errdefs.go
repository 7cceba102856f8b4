// Package errdefs defines the error categories shared by all deskpilot stores:
// validation failures, missing resources, and corrupted persisted state.
// Callers match categories with errors.Is against the exported sentinels.
package errdefs

import (
	"errors"
	"fmt"
)

// Category sentinels. Concrete error types below report themselves as one of
// these via Is, so errors.Is(err, ErrNotFound) works across wrapping.
var (
	ErrValidation = errors.New("invalid argument")
	ErrNotFound   = errors.New("not found")
	ErrCorrupted  = errors.New("corrupted state")
)

// ValidationError reports a malformed or out-of-range input, attributable to
// a single offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validationf builds a ValidationError for the given field.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a resource that does not exist (or raced to
// nonexistence between two polls).
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found", e.Resource) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError for the named resource.
func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// CorruptedError reports unreadable or version-mismatched persisted state.
// Loads that produce it must have applied nothing.
type CorruptedError struct {
	Path   string
	Reason string
}

func (e *CorruptedError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("corrupted state: %s", e.Reason)
	}
	return fmt.Sprintf("corrupted state in %s: %s", e.Path, e.Reason)
}

func (e *CorruptedError) Is(target error) bool { return target == ErrCorrupted }

// Corruptedf builds a CorruptedError for the given path.
func Corruptedf(path, format string, args ...any) error {
	return &CorruptedError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is in the validation category.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err is in the not-found category.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsCorrupted reports whether err is in the corrupted-state category.
func IsCorrupted(err error) bool { return errors.Is(err, ErrCorrupted) }
