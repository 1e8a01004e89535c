package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "SF-FOLD-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Folder Errors (FOLD)
// ============================================================================

var (
	// ErrFolderNotFound indicates the requested folder was not found.
	ErrFolderNotFound = NewDomainError("SF-FOLD-4040", "folder not found")

	// ErrFolderExpired indicates the folder has passed its age.
	ErrFolderExpired = NewDomainError("SF-FOLD-4041", "folder expired")

	// ErrFolderConflict indicates a folder already exists for the identity.
	// Two distinct passcodes hashing to the same identity surface here too.
	ErrFolderConflict = NewDomainError("SF-FOLD-4090", "identity conflict")

	// ErrQuotaExceeded indicates a write would exceed the storage limit.
	ErrQuotaExceeded = NewDomainError("SF-FOLD-4002", "storage limit exceeded")
)

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrUnauthorized indicates the identity is absent, unknown, or expired.
	ErrUnauthorized = NewDomainError("SF-AUTH-4010", "not authorized")

	// ErrRateLimited indicates too many signup/login attempts.
	ErrRateLimited = NewDomainError("SF-AUTH-4290", "too many requests")
)

// ============================================================================
// File Errors (FILE)
// ============================================================================

var (
	// ErrFileNotFound indicates the requested file id is unknown.
	ErrFileNotFound = NewDomainError("SF-FILE-4040", "file not found")

	// ErrUploadInterrupted indicates an upload failed mid-transfer.
	// The partial artifact has been discarded.
	ErrUploadInterrupted = NewDomainError("SF-FILE-5001", "upload interrupted")
)

// ============================================================================
// System and Argument Errors (SYS, ARG)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("SF-SYS-5000", "internal server error")

	// ErrStorageError indicates a durable store failure. The operation was
	// not applied; the caller may retry the whole logical operation.
	ErrStorageError = NewDomainError("SF-SYS-5001", "storage error")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("SF-SYS-4000", "bad request")

	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("SF-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("SF-ARG-1002", "missing required argument")
)
