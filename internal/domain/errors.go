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

// Is reports whether target carries the same code and message, so wrapped
// sentinels still match with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
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

// Wrap returns a copy of the sentinel carrying err as its cause.
func (e *DomainError) Wrap(err error) *DomainError {
	return NewDomainErrorWithCause(e.Code, e.Message, err)
}

// CodeOf returns the code of the first DomainError in err's chain.
func CodeOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeAccessDenied      = "ACCESS_DENIED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeUnreachableSource = "UNREACHABLE_SOURCE"
	ErrCodeSourceTimeout     = "SOURCE_TIMEOUT"
	ErrCodeUpstream          = "UPSTREAM_ERROR"
	ErrCodeCorruptInput      = "CORRUPT_INPUT"
	ErrCodeEmptyContent      = "EMPTY_CONTENT"
	ErrCodeModelUnavailable  = "MODEL_UNAVAILABLE"
)

// Validation errors
var (
	ErrInvalidURL           = NewDomainError(ErrCodeInvalidInput, "document url must use http or https")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrNoQuestions          = NewDomainError(ErrCodeValidation, "at least one question is required")
	ErrInvalidInput         = NewDomainError(ErrCodeInvalidInput, "invalid input")
)

// Fetch errors
var (
	ErrUnreachableSource = NewDomainError(ErrCodeUnreachableSource, "document source unreachable")
	ErrSourceTimeout     = NewDomainError(ErrCodeSourceTimeout, "document source timed out")
	ErrResourceNotFound  = NewDomainError(ErrCodeNotFound, "document not found at source")
	ErrAccessDenied      = NewDomainError(ErrCodeAccessDenied, "access denied by document source")
	ErrUpstream          = NewDomainError(ErrCodeUpstream, "document source returned an error")
)

// Extraction errors
var (
	ErrCorruptInput = NewDomainError(ErrCodeCorruptInput, "document is not a readable pdf")
	ErrEmptyContent = NewDomainError(ErrCodeEmptyContent, "no text could be extracted from the document")
)

// Model errors
var (
	ErrModelUnavailable = NewDomainError(ErrCodeModelUnavailable, "embedding model unavailable")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrChunkNotFound    = NewDomainError(ErrCodeNotFound, "document chunk not found")
)

// Authorization errors
var (
	ErrInvalidBearerToken = NewDomainError(ErrCodeUnauthorized, "invalid bearer token")
)
