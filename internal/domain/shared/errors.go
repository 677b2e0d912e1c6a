// Package shared contains common domain errors used across all domain and
// application packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// Capability errors
	ErrNotConfigured = errors.New("not configured")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrUnreadable         = errors.New("unreadable")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "transcript", "document", "report"
	Op      string // Operation that failed, e.g., "Extract", "Render"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		return e.Domain == t.Domain && e.Op == t.Op && e.Kind == t.Kind
	}
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Transcript domain errors
var (
	ErrNoDocuments       = NewDomainError("transcript", "Generate", ErrValidation, "at least one document is required")
	ErrTooManyDocuments  = NewDomainError("transcript", "Generate", ErrValueOutOfRange, "too many documents")
	ErrSummaryNotFound   = NewDomainError("transcript", "FindSummary", ErrNotFound, "summary not found")
	ErrInvalidSummaryID  = NewDomainError("transcript", "FindSummary", ErrInvalidID, "invalid summary ID")
	ErrArchiveDisabled   = NewDomainError("transcript", "Archive", ErrNotConfigured, "summary archive is disabled")
	ErrUnsupportedFormat = NewDomainError("report", "Render", ErrInvalidFormat, "unsupported report format")
)

// Document errors
var (
	ErrDocumentUnreadable  = NewDomainError("document", "Extract", ErrUnreadable, "document unreadable")
	ErrUnsupportedDocument = NewDomainError("document", "Detect", ErrInvalidFormat, "unsupported document type")
)

// DocumentUnreadable reports that the document at the 1-based position could
// not be turned into text.
func DocumentUnreadable(position int, name string, err error) *DomainError {
	msg := fmt.Sprintf("could not read document %d", position)
	if name != "" {
		msg = fmt.Sprintf("could not read document %d (%s)", position, name)
	}
	return WrapError("document", "Extract", ErrUnreadable, msg, err)
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsUnreadable checks if a document could not be turned into text.
func IsUnreadable(err error) bool {
	return errors.Is(err, ErrUnreadable)
}

// IsNotConfigured checks if an optional capability is switched off.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
