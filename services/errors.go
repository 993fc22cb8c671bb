package services

import "errors"

// ErrValidation represents a validation error in the domain layer
// This is a domain-specific error that abstracts away database implementation details
var ErrValidation = errors.New("validation error")

// ErrConflict represents an operation blocked by existing dependent records,
// such as deleting a client that still owns contracts
var ErrConflict = errors.New("conflict")

// ErrNotFound represents a target record that does not exist
var ErrNotFound = errors.New("not found")

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflictError checks if an error is a dependent-records conflict
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}
