package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a DomainError for malformed caller input
func NewValidationError(message string) *DomainError {
	return NewDomainError(ErrCodeValidation, message)
}

// Common domain error codes
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeAlreadyExists      = "ALREADY_EXISTS"
	ErrCodeInvalidOperation   = "INVALID_OPERATION"
	ErrCodeInvariantViolation = "INVARIANT_VIOLATION"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidSourceType    = NewDomainError(ErrCodeValidation, "invalid source type")
	ErrDuplicateSourceName  = NewDomainError(ErrCodeValidation, "duplicate source name in request")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrGroupNotFound    = NewDomainError(ErrCodeNotFound, "knowledge group not found")
	ErrSnapshotNotFound = NewDomainError(ErrCodeNotFound, "knowledge snapshot not found")
)

// Conflict errors: the caller may retry
var (
	ErrSourceAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "source with this name already exists in group")
	ErrVersionConflict     = NewDomainError(ErrCodeAlreadyExists, "concurrent snapshot creation, retry")
)

// Operation errors
var (
	ErrEmptyGroup       = NewDomainError(ErrCodeInvalidOperation, "knowledge group has no sources")
	ErrNoActiveSnapshot = NewDomainError(ErrCodeInvalidOperation, "knowledge group has no active snapshot")
)

// ErrStatusTransition indicates an attempt to overwrite a terminal ingestion
// status with a different one. This is a bug in the caller, not user error.
var ErrStatusTransition = NewDomainError(ErrCodeInvariantViolation, "illegal ingestion status transition")

// TransientError marks a collaborator failure (network, timeout, throttling)
// that is safe to retry. Only the ingestion pipeline retries; synchronous
// operations surface these like any other error.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is marked retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
