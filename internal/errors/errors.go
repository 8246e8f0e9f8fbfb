// Package errors provides centralized error definitions and error handling utilities
// for tf2director. It defines the lifecycle sentinel errors, the domain error type
// carrying server context, semantic error types, and classification helpers.
//
// # Error Types
//
// Domain-specific errors:
//   - ServerError: errors raised by a server instance operation (start, stop, update, ...)
//
// Semantic errors:
//   - NotFoundError: a configured resource (server, executable) could not be found
//   - ValidationError: invalid input or configuration
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewServerError("cannot start", errors.ErrAlreadyRunning).
//		WithServer("alpha").WithTmuxSession("tf2server_alpha_console")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrAlreadyRunning) { ... }
//
//	var serverErr *errors.ServerError
//	if errors.As(err, &serverErr) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Server lifecycle sentinel errors
var (
	// ErrCorruptedInstall indicates the install path has no tf/ directory.
	ErrCorruptedInstall = New("not a valid TF2 server installation")
	// ErrAlreadyRunning indicates a session for the server already exists.
	ErrAlreadyRunning = New("server is already running")
	// ErrNotRunning indicates an operation needs a running server.
	ErrNotRunning = New("server is not running")
	// ErrRunning indicates an operation needs a stopped server.
	ErrRunning = New("server is running")
	// ErrNoAddress indicates the server has no public IP configured.
	ErrNoAddress = New("no address configured")
	// ErrUpdaterNotFound indicates the steamcmd executable could not be located.
	ErrUpdaterNotFound = New("steamcmd not found")
	// ErrLocked indicates another tf2director process holds the server's lock.
	ErrLocked = New("server is locked by another tf2director process")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrServerNotConfigured indicates a server name is absent from the configuration.
	ErrServerNotConfigured = New("server not configured")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// DirectorError is the base interface for all tf2director errors.
type DirectorError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsUserFacing returns true if the error message is safe to display
	// to the operator as-is.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

type baseError struct {
	message    string
	cause      error
	severity   Severity
	userFacing bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error {
	return e.cause
}

func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

func (e *baseError) Severity() Severity {
	return e.severity
}

func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ServerError represents a failed server instance operation.
//
// Example:
//
//	err := errors.NewServerError("cannot stop", errors.ErrNotRunning).WithServer("beta")
//	fmt.Println(err) // "server error [server=beta]: cannot stop: server is not running"
type ServerError struct {
	baseError
	Server      string
	TmuxSession string
}

// NewServerError creates a new ServerError.
func NewServerError(message string, cause error) *ServerError {
	return &ServerError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithServer adds the server name to the error context.
func (e *ServerError) WithServer(name string) *ServerError {
	e.Server = name
	return e
}

// WithTmuxSession adds a tmux session name to the error context.
func (e *ServerError) WithTmuxSession(session string) *ServerError {
	e.TmuxSession = session
	return e
}

// WithSeverity sets the error severity.
func (e *ServerError) WithSeverity(s Severity) *ServerError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *ServerError) Error() string {
	var parts []string
	if e.Server != "" {
		parts = append(parts, fmt.Sprintf("server=%s", e.Server))
	}
	if e.TmuxSession != "" {
		parts = append(parts, fmt.Sprintf("tmux=%s", e.TmuxSession))
	}

	prefix := "server error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("server error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ServerError) Is(target error) bool {
	if _, ok := target.(*ServerError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("server", "gamma")
//	fmt.Println(err) // "server 'gamma' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or configuration.
//
// Example:
//
//	err := errors.NewValidationError("port out of range").WithField("servers[0].port").WithValue(70000)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return errors.Is(target, ErrInvalidInput)
}

// -----------------------------------------------------------------------------
// Error Classification
// -----------------------------------------------------------------------------

// IsUserFacing returns true if the error message is safe to display to the
// operator without the verbose cause chain.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var directorErr DirectorError
	if As(err, &directorErr) {
		return directorErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement DirectorError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var directorErr DirectorError
	if As(err, &directorErr) {
		return directorErr.Severity()
	}
	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
