package errors

import (
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeInternal   ErrorType = "INTERNAL"

	// Pipeline failure classes. Extraction, embedding and oracle errors are
	// recovered locally by the ingestion pipeline; invalid-parent and
	// tenant-isolation errors indicate broken internal invariants.
	ErrorTypeExtraction      ErrorType = "EXTRACTION"
	ErrorTypeEmbedding       ErrorType = "EMBEDDING"
	ErrorTypeOracle          ErrorType = "ORACLE"
	ErrorTypeInvalidParent   ErrorType = "INVALID_PARENT"
	ErrorTypeTenantIsolation ErrorType = "TENANT_ISOLATION"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for different error types

// NewValidation creates a validation error
func NewValidation(message string) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExtraction creates an extraction failure error
func NewExtraction(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeExtraction,
		Message: message,
		Err:     err,
	}
}

// NewEmbedding creates an embedding failure error
func NewEmbedding(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeEmbedding,
		Message: message,
		Err:     err,
	}
}

// NewOracle creates a placement oracle failure error
func NewOracle(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeOracle,
		Message: message,
		Err:     err,
	}
}

// NewInvalidParent creates an invalid parent error
func NewInvalidParent(message string) error {
	return &AppError{
		Type:    ErrorTypeInvalidParent,
		Message: message,
	}
}

// NewTenantIsolation creates a tenant isolation violation error
func NewTenantIsolation(message string) error {
	return &AppError{
		Type:    ErrorTypeTenantIsolation,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
		}
	}

	// Otherwise, create an internal error
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Type checking functions

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	return isType(err, ErrorTypeInternal)
}

// IsExtraction checks if an error is an extraction failure
func IsExtraction(err error) bool {
	return isType(err, ErrorTypeExtraction)
}

// IsEmbedding checks if an error is an embedding failure
func IsEmbedding(err error) bool {
	return isType(err, ErrorTypeEmbedding)
}

// IsOracle checks if an error is a placement oracle failure
func IsOracle(err error) bool {
	return isType(err, ErrorTypeOracle)
}

// IsInvalidParent checks if an error is an invalid parent error
func IsInvalidParent(err error) bool {
	return isType(err, ErrorTypeInvalidParent)
}

// IsTenantIsolation checks if an error is a tenant isolation violation
func IsTenantIsolation(err error) bool {
	return isType(err, ErrorTypeTenantIsolation)
}

func isType(err error, t ErrorType) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == t
}
