package utils

import "fmt"

// Error taxonomy for the progress/certificate pipeline. Handlers map these
// to HTTP statuses in middleware.ErrorResponse; everything else is treated
// as an internal error.

// ValidationError indicates a bad id or payload. Not retryable.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError indicates an unknown course, lesson or certificate.
type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// ConflictError indicates a state conflict, e.g. mutating progress on an
// already completed course.
type ConflictError struct {
	Message string
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func (e *ConflictError) Error() string { return e.Message }

// IncompleteError indicates a certificate was requested before the course
// was fully completed. Actionable by the client.
type IncompleteError struct {
	Message string
}

func NewIncompleteError(message string) *IncompleteError {
	return &IncompleteError{Message: message}
}

func (e *IncompleteError) Error() string { return e.Message }

// StorageError wraps a transient storage failure. Safe to retry.
type StorageError struct {
	Err error
}

func NewStorageError(err error) *StorageError {
	return &StorageError{Err: err}
}

func (e *StorageError) Error() string {
	return "storage error: " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }
