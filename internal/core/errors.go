package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatIO         ErrorCategory = "io"         // File create/read/write/copy/delete failed
	ErrCatParse      ErrorCategory = "parse"      // Malformed ledger line or startup argument
	ErrCatNotFound   ErrorCategory = "not_found"  // Expected artifact is absent
	ErrCatValidation ErrorCategory = "validation" // Invalid input or configuration
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Cause    error
	Details  map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrIO creates an I/O error.
func ErrIO(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatIO,
		Code:     code,
		Message:  message,
	}
}

// ErrParse creates a parse error.
func ErrParse(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatParse,
		Code:     code,
		Message:  message,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category: ErrCatNotFound,
		Code:     "NOT_FOUND",
		Message:  fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatValidation,
		Code:     code,
		Message:  message,
	}
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	CodeMarkerWrite     = "MARKER_WRITE_FAILED"
	CodeLedgerAppend    = "LEDGER_APPEND_FAILED"
	CodeLedgerRead      = "LEDGER_READ_FAILED"
	CodeLedgerTrim      = "LEDGER_TRIM_FAILED"
	CodeArchiveCopy     = "ARCHIVE_COPY_FAILED"
	CodeArchivePrune    = "ARCHIVE_PRUNE_FAILED"
	CodeAlertPublish    = "ALERT_PUBLISH_FAILED"
	CodeExportWrite     = "EXPORT_WRITE_FAILED"
	CodeBadTimestamp    = "BAD_TIMESTAMP"
	CodeBadLedgerLine   = "BAD_LEDGER_LINE"
	CodeBadRecoveryArg  = "BAD_RECOVERY_ARG"
	CodeInvalidConfig   = "INVALID_CONFIG"
	CodeUnknownBackend  = "UNKNOWN_BACKEND"
	CodeAlertNotPresent = "ALERT_NOT_FOUND"
)
