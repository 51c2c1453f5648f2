// Package types defines the error hierarchy shared across the staging engine.
package types

import "fmt"

// StagingError is the base error type for all staging-engine operations.
// All error kinds embed this struct so callers can type-switch on the
// concrete kind or fall back to inspecting Code.
type StagingError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Err     error  // Underlying error (optional)
}

func (e *StagingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StagingError) Unwrap() error {
	return e.Err
}

// UniqueConstraintViolationError is raised when a shadow or base unique index
// rejects an insert because of a duplicate key.
type UniqueConstraintViolationError struct {
	StagingError
}

// NotSupportedError is raised by operations that are not implemented for the
// current state (e.g. deleting or updating a committed row through a base
// table that does not accept forwarded mutations).
type NotSupportedError struct {
	StagingError
}

// InvalidInputError is raised for malformed or out-of-range caller input.
type InvalidInputError struct {
	StagingError
}

// InvalidActionError is raised when an operation is invoked from an invalid
// state (e.g. deleting or updating a staged row that is already deleted).
type InvalidActionError struct {
	StagingError
}

// InternalInvariantError signals a violation of a data-model invariant. It is
// always fatal to the enclosing transaction.
type InternalInvariantError struct {
	StagingError
}

// NewUniqueConstraintViolationError constructs a UniqueConstraintViolationError.
func NewUniqueConstraintViolationError(message string, err error) *UniqueConstraintViolationError {
	return &UniqueConstraintViolationError{StagingError{Code: "unique_violation", Message: message, Err: err}}
}

// NewNotSupportedError constructs a NotSupportedError.
func NewNotSupportedError(message string, err error) *NotSupportedError {
	return &NotSupportedError{StagingError{Code: "not_supported", Message: message, Err: err}}
}

// NewInvalidInputError constructs an InvalidInputError.
func NewInvalidInputError(message string, err error) *InvalidInputError {
	return &InvalidInputError{StagingError{Code: "invalid_input", Message: message, Err: err}}
}

// NewInvalidActionError constructs an InvalidActionError.
func NewInvalidActionError(message string, err error) *InvalidActionError {
	return &InvalidActionError{StagingError{Code: "invalid_action", Message: message, Err: err}}
}

// NewInternalInvariantError constructs an InternalInvariantError.
func NewInternalInvariantError(message string, err error) *InternalInvariantError {
	return &InternalInvariantError{StagingError{Code: "internal_invariant", Message: message, Err: err}}
}
