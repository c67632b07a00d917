package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Auth errors (AUTH-001 to AUTH-099)
	ErrCodeUnauthorized ErrorCode = "AUTH-001"

	// Site registry errors (SITE-001 to SITE-099)
	ErrCodeSiteNotFound        ErrorCode = "SITE-001"
	ErrCodeContentUnavailable  ErrorCode = "SITE-002"
	ErrCodeRegistryInvalid     ErrorCode = "SITE-003"
	ErrCodeRegistryDuplicateID ErrorCode = "SITE-004"

	// Run errors (RUN-001 to RUN-099)
	ErrCodeRunConflict ErrorCode = "RUN-001"
	ErrCodeRunAborted  ErrorCode = "RUN-002"
	ErrCodeStreamOpen  ErrorCode = "RUN-003"

	// Execution errors (EXEC-001 to EXEC-099)
	ErrCodeExecLaunchFailed ErrorCode = "EXEC-001"
	ErrCodeExecTaskFailed   ErrorCode = "EXEC-002"

	// Configuration errors (CFG-001 to CFG-099)
	ErrCodeConfigInvalid ErrorCode = "CFG-001"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound   ErrorCode = "IO-001"
	ErrCodeFileReadFailed ErrorCode = "IO-002"
	ErrCodeFileUnmarshal  ErrorCode = "IO-005"
)

// AuditError represents an error with a code, suggestions and an optional cause
type AuditError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *AuditError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *AuditError) Unwrap() error {
	return e.Cause
}

// New creates a new AuditError
func New(code ErrorCode, message string) *AuditError {
	return &AuditError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AuditError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *AuditError {
	return &AuditError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *AuditError) WithSuggestion(suggestion string) *AuditError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// CodeOf returns the code of the first AuditError in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var auditErr *AuditError
	if stderrors.As(err, &auditErr) {
		return auditErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps an error code to the status an HTTP handler answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeSiteNotFound:
		return http.StatusNotFound
	case ErrCodeContentUnavailable:
		return http.StatusPreconditionFailed
	case ErrCodeRunConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors

// NewSiteNotFoundError creates an unknown slug error
func NewSiteNotFoundError(slug string) *AuditError {
	return New(ErrCodeSiteNotFound, fmt.Sprintf("site not found: %s", slug)).
		WithSuggestion("Run 'auditd sites' to list registered slugs")
}

// NewContentUnavailableError creates a missing content directory error
func NewContentUnavailableError(slug, dir string) *AuditError {
	msg := fmt.Sprintf("content directory not available for %s", slug)
	if dir != "" {
		msg = fmt.Sprintf("%s: %s", msg, dir)
	}
	return New(ErrCodeContentUnavailable, msg).
		WithSuggestion("Set contentDir in the sites file to an existing directory")
}

// NewRunConflictError creates an already-running error
func NewRunConflictError(slug string) *AuditError {
	return New(ErrCodeRunConflict, fmt.Sprintf("audit already running for %s", slug)).
		WithSuggestion("Wait for the running audit to finish")
}

// NewLaunchError creates a process launch failure
func NewLaunchError(command string, cause error) *AuditError {
	return Wrap(ErrCodeExecLaunchFailed, fmt.Sprintf("failed to start %s", command), cause).
		WithSuggestion("Check that the audit command is installed and on PATH").
		WithSuggestion("Check that the workspace directory exists")
}

// NewTaskFailedError creates an error for a task that exited non-zero
func NewTaskFailedError(slug string, exitCode int) *AuditError {
	return New(ErrCodeExecTaskFailed, fmt.Sprintf("audit for %s exited with code %d", slug, exitCode))
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string) *AuditError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Verify the file exists and you have read permissions")
}

// NewFileUnmarshalError creates an unmarshal error
func NewFileUnmarshalError(path string, format string, cause error) *AuditError {
	return Wrap(ErrCodeFileUnmarshal, fmt.Sprintf("failed to parse %s file: %s", format, path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion(fmt.Sprintf("Ensure the file is valid %s", format))
}
