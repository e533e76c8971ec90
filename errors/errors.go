// Package errors provides standardized error handling for the zukunft core.
// It defines the error taxonomy shared by all core packages (invalid argument,
// not found, conflict, persistence, store unavailable), a classified error
// wrapper carrying component and operation context, and predicates for
// classifying arbitrary errors.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes.
type ErrorClass int

const (
	// ErrorInvalid represents errors due to malformed input: a bad id, a wrong
	// entity kind, an empty required name. Never retried.
	ErrorInvalid ErrorClass = iota
	// ErrorNotFound represents a lookup that found no standard row. This is a
	// normal result the caller must check, not a failure of the core.
	ErrorNotFound
	// ErrorConflict represents a concurrent modification detected at save
	// time. Surfaced for manual resolution, never auto-retried.
	ErrorConflict
	// ErrorPersistence represents a failed write at the store boundary.
	// Fatal for the current operation.
	ErrorPersistence
	// ErrorUnavailable represents the store boundary being unreachable,
	// including propagated timeouts.
	ErrorUnavailable
)

// String returns the string representation of ErrorClass.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorInvalid:
		return "invalid"
	case ErrorNotFound:
		return "not_found"
	case ErrorConflict:
		return "conflict"
	case ErrorPersistence:
		return "persistence"
	case ErrorUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions.
var (
	// Identity and input errors
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidKind     = errors.New("invalid entity kind")
	ErrEmptyName       = errors.New("name must not be empty")

	// Resolution errors
	ErrNotFound = errors.New("not found")

	// Save-path errors
	ErrConflict     = errors.New("concurrent modification conflict")
	ErrNotPermitted = errors.New("change not permitted for this user")

	// Store boundary errors
	ErrPersistence      = errors.New("persistence failed")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrUnknownTable     = errors.New("unknown table")
	ErrLogWriteFailed   = errors.New("change log write failed")
)

// ClassifiedError wraps an error with its classification and the component
// and operation that produced it.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface.
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error.
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// Classify returns the error class for an error. Unclassified errors default
// to ErrorPersistence so unexpected store failures are never mistaken for
// user mistakes.
func Classify(err error) ErrorClass {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	switch {
	case IsInvalid(err):
		return ErrorInvalid
	case IsNotFound(err):
		return ErrorNotFound
	case IsConflict(err):
		return ErrorConflict
	case IsUnavailable(err):
		return ErrorUnavailable
	default:
		return ErrorPersistence
	}
}

// IsInvalid checks if an error stems from malformed input.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrEmptyName)
}

// IsNotFound checks if an error represents a missing standard row.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorNotFound
	}
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error represents a concurrent-edit conflict.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorConflict
	}
	return errors.Is(err, ErrConflict)
}

// IsPersistence checks if an error represents a failed store write.
func IsPersistence(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorPersistence
	}
	return errors.Is(err, ErrPersistence) || errors.Is(err, ErrLogWriteFailed)
}

// IsUnavailable checks if an error represents an unreachable store.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorUnavailable
	}
	return errors.Is(err, ErrStoreUnavailable)
}

// newClassified creates a new classified error.
// This is an internal helper - use the Wrap* functions instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapInvalid wraps an error as an invalid-input error with context.
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorInvalid, err, component, method,
		fmt.Sprintf("%s.%s: %s failed: %v", component, method, action, err))
}

// WrapConflict wraps an error as a conflict with context.
func WrapConflict(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorConflict, err, component, method,
		fmt.Sprintf("%s.%s: %s failed: %v", component, method, action, err))
}

// WrapPersistence wraps an error as a persistence failure with context.
func WrapPersistence(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorPersistence, err, component, method,
		fmt.Sprintf("%s.%s: %s failed: %v", component, method, action, err))
}

// WrapUnavailable wraps an error as a store-unavailable failure with context.
func WrapUnavailable(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorUnavailable, err, component, method,
		fmt.Sprintf("%s.%s: %s failed: %v", component, method, action, err))
}

// Invalidf creates a new invalid-input error from a format string.
func Invalidf(component, method, format string, args ...any) error {
	return newClassified(ErrorInvalid, ErrInvalidArgument, component, method,
		fmt.Sprintf("%s.%s: ", component, method)+fmt.Sprintf(format, args...))
}

// NotFoundf creates a new not-found error from a format string.
func NotFoundf(component, method, format string, args ...any) error {
	return newClassified(ErrorNotFound, ErrNotFound, component, method,
		fmt.Sprintf("%s.%s: ", component, method)+fmt.Sprintf(format, args...))
}

// Conflictf creates a new conflict error from a format string.
func Conflictf(component, method, format string, args ...any) error {
	return newClassified(ErrorConflict, ErrConflict, component, method,
		fmt.Sprintf("%s.%s: ", component, method)+fmt.Sprintf(format, args...))
}

// Unavailablef creates a new unavailability error from a format string.
func Unavailablef(component, method, format string, args ...any) error {
	return newClassified(ErrorUnavailable, ErrStoreUnavailable, component, method,
		fmt.Sprintf("%s.%s: ", component, method)+fmt.Sprintf(format, args...))
}

// Is reports whether any error in err's chain matches target.
// Re-exported so core packages only import one errors package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
