// Package errors provides centralized error definitions and error handling
// utilities for glimpse. It defines the capture, I/O, codec and erase error
// types, semantic error types, and classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures of a specific subsystem:
//   - CaptureError: the OS screen-grab primitive failed (permission, display)
//   - IOError: read, write or stat failure on an artifact or derivative source
//   - CodecError: image decode or encode failure
//   - EraseError: overwrite or delete failure during secure erasure
//
// Semantic errors represent common conditions:
//   - NotFoundError: an artifact or resource does not exist
//   - ValidationError: invalid input (unknown view, unknown derivative kind)
//
// # Usage
//
//	err := errors.NewCaptureError("screen grab failed", cause).
//		WithRemediation("grant Screen Recording permission in System Settings")
//
//	if errors.Is(err, errors.ErrPermissionDenied) { ... }
//
//	var ce *errors.CaptureError
//	if errors.As(err, &ce) {
//		fmt.Println(ce.Remediation)
//	}
//
// # Propagation
//
// CaptureError is surfaced verbatim to callers. IOError and CodecError are
// recovered locally wherever a fallback exists. EraseError is logged and
// never propagated past the queue operation that triggered it.
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

// Capture-related sentinel errors
var (
	// ErrCaptureFailed indicates the screen-grab primitive returned an error.
	ErrCaptureFailed = New("screen capture failed")
	// ErrPermissionDenied indicates the OS refused screen access.
	ErrPermissionDenied = New("screen recording permission denied")
	// ErrNoDisplay indicates no display was available to capture.
	ErrNoDisplay = New("no display available")
	// ErrCaptureToolMissing indicates no screenshot tool was found on PATH.
	ErrCaptureToolMissing = New("screen capture tool not found")
)

// Artifact-related sentinel errors
var (
	// ErrArtifactNotFound indicates the artifact file does not exist.
	ErrArtifactNotFound = New("artifact not found")
	// ErrUnreadable indicates the artifact exists but could not be read.
	ErrUnreadable = New("artifact unreadable")
)

// Codec-related sentinel errors
var (
	// ErrDecode indicates the payload is not a decodable image.
	ErrDecode = New("image decode failed")
	// ErrEncode indicates the derivative could not be encoded.
	ErrEncode = New("image encode failed")
)

// Erase-related sentinel errors
var (
	// ErrOverwriteFailed indicates the random overwrite pass failed.
	ErrOverwriteFailed = New("overwrite failed")
	// ErrDeleteFailed indicates the file could not be unlinked.
	ErrDeleteFailed = New("delete failed")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrUnknownView indicates a view name other than primary or secondary.
	ErrUnknownView = New("unknown view")
	// ErrUnknownKind indicates a derivative kind other than full or thumbnail.
	ErrUnknownKind = New("unknown derivative kind")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// GlimpseError is the base interface for all glimpse errors.
type GlimpseError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the operation may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// formatPrefix renders "name [k=v, ...]" for the domain error types.
func formatPrefix(name string, parts []string) string {
	if len(parts) == 0 {
		return name
	}
	return fmt.Sprintf("%s [%s]", name, strings.Join(parts, ", "))
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// CaptureError represents a failure of the OS screen-grab primitive.
// It is surfaced to the caller untouched so the UI can explain Remediation.
//
// Example:
//
//	err := errors.NewCaptureError("screencapture exited 1", errors.ErrPermissionDenied).
//		WithTool("screencapture").
//		WithRemediation("grant Screen Recording permission")
type CaptureError struct {
	baseError
	Tool        string
	Remediation string
}

// NewCaptureError creates a new CaptureError.
func NewCaptureError(message string, cause error) *CaptureError {
	return &CaptureError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithTool records the capture tool that failed.
func (e *CaptureError) WithTool(tool string) *CaptureError {
	e.Tool = tool
	return e
}

// WithRemediation attaches a human-readable fix for the failure.
func (e *CaptureError) WithRemediation(r string) *CaptureError {
	e.Remediation = r
	return e
}

// Error returns the formatted error message.
func (e *CaptureError) Error() string {
	var parts []string
	if e.Tool != "" {
		parts = append(parts, fmt.Sprintf("tool=%s", e.Tool))
	}
	prefix := formatPrefix("capture error", parts)

	msg := fmt.Sprintf("%s: %s", prefix, e.message)
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.Remediation != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Remediation)
	}
	return msg
}

// Is checks if this error matches the target.
func (e *CaptureError) Is(target error) bool {
	if _, ok := target.(*CaptureError); ok {
		return true
	}
	if target == ErrCaptureFailed {
		return true
	}
	return e.baseError.Is(target)
}

// IOError represents a read, write or stat failure on an artifact.
//
// Example:
//
//	err := errors.NewIOError("read", "/path/.cache_x", cause)
type IOError struct {
	baseError
	Op   string
	Path string
}

// NewIOError creates a new IOError for the given operation and path.
func NewIOError(op, path string, cause error) *IOError {
	return &IOError{
		baseError: baseError{
			message:    op,
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: false,
		},
		Op:   op,
		Path: path,
	}
}

// Error returns the formatted error message.
func (e *IOError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	prefix := formatPrefix("io error", parts)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Op, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Op)
}

// Is checks if this error matches the target.
func (e *IOError) Is(target error) bool {
	if _, ok := target.(*IOError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// CodecError represents an image decode or encode failure.
// The derivative cache always falls back to raw passthrough on CodecError.
type CodecError struct {
	baseError
	Kind string
}

// NewCodecError creates a new CodecError. cause is usually ErrDecode or
// ErrEncode joined with the codec's own error.
func NewCodecError(message string, cause error) *CodecError {
	return &CodecError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: false,
		},
	}
}

// WithKind records the derivative kind being produced.
func (e *CodecError) WithKind(kind string) *CodecError {
	e.Kind = kind
	return e
}

// Error returns the formatted error message.
func (e *CodecError) Error() string {
	var parts []string
	if e.Kind != "" {
		parts = append(parts, fmt.Sprintf("kind=%s", e.Kind))
	}
	prefix := formatPrefix("codec error", parts)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *CodecError) Is(target error) bool {
	if _, ok := target.(*CodecError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// EraseStage identifies which step of a secure erase failed.
type EraseStage string

const (
	// StageStat is the size lookup before overwriting.
	StageStat EraseStage = "stat"
	// StageOverwrite is the random-bytes overwrite pass.
	StageOverwrite EraseStage = "overwrite"
	// StageDelete is the final unlink.
	StageDelete EraseStage = "delete"
)

// EraseError represents a failed secure erase. Only StageDelete failures
// are returned by the eraser; earlier stages are folded into the fallback
// delete.
type EraseError struct {
	baseError
	Path  string
	Stage EraseStage
}

// NewEraseError creates a new EraseError.
func NewEraseError(path string, stage EraseStage, cause error) *EraseError {
	return &EraseError{
		baseError: baseError{
			message:    fmt.Sprintf("%s failed", stage),
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: false,
		},
		Path:  path,
		Stage: stage,
	}
}

// Error returns the formatted error message.
func (e *EraseError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	prefix := formatPrefix("erase error", parts)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *EraseError) Is(target error) bool {
	if _, ok := target.(*EraseError); ok {
		return true
	}
	switch e.Stage {
	case StageOverwrite:
		if target == ErrOverwriteFailed {
			return true
		}
	case StageDelete:
		if target == ErrDeleteFailed {
			return true
		}
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
//	err := errors.NewNotFoundError("artifact", "/path/.log_x")
//	fmt.Println(err) // "artifact '/path/.log_x' not found"
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
			retryable:  false,
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
	if target == ErrArtifactNotFound && e.ResourceType == "artifact" {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("unknown view").WithField("view").WithValue("tertiary")
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
			retryable:  false,
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

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
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
	prefix := formatPrefix("validation error", parts)

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var gerr GlimpseError
	if As(err, &gerr) {
		return gerr.IsRetryable()
	}
	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
// Capture failures and not-found conditions are always user-facing.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var gerr GlimpseError
	if As(err, &gerr) {
		return gerr.IsUserFacing()
	}

	var notFound *NotFoundError
	var validation *ValidationError
	if As(err, &notFound) || As(err, &validation) {
		return true
	}

	return false
}

// GetSeverity returns the severity of an error.
// Returns SeverityError for errors that don't implement GlimpseError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityInfo
	}

	var gerr GlimpseError
	if As(err, &gerr) {
		return gerr.Severity()
	}
	return SeverityError
}

// UserMessage returns a message suitable for display. Capture errors include
// their remediation; internal errors collapse to a generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ce *CaptureError
	if As(err, &ce) {
		if ce.Remediation != "" {
			return fmt.Sprintf("%s. %s", ce.message, ce.Remediation)
		}
		return ce.message
	}
	if IsUserFacing(err) {
		return err.Error()
	}
	return "an internal error occurred"
}

// IsDomainError returns true if the error is a domain-specific error
// (CaptureError, IOError, CodecError, or EraseError).
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}

	var captureErr *CaptureError
	var ioErr *IOError
	var codecErr *CodecError
	var eraseErr *EraseError

	return As(err, &captureErr) || As(err, &ioErr) ||
		As(err, &codecErr) || As(err, &eraseErr)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike a bare fmt.Errorf, it returns nil for a nil err.
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
