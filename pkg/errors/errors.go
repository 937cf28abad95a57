package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown    ErrorCode = "UNKNOWN"
	ErrInternal   ErrorCode = "INTERNAL"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrPermission ErrorCode = "PERMISSION"

	// Configuration errors
	ErrConfigLoad     ErrorCode = "CONFIG_LOAD"
	ErrConfigParse    ErrorCode = "CONFIG_PARSE"
	ErrConfigValid    ErrorCode = "CONFIG_INVALID"
	ErrConfigWrite    ErrorCode = "CONFIG_WRITE"
	ErrPatternInvalid ErrorCode = "PATTERN_INVALID"

	// FileSystem errors
	ErrRootCreate    ErrorCode = "ROOT_CREATE"
	ErrSymlinkCreate ErrorCode = "SYMLINK_CREATE"
	ErrDirCreate     ErrorCode = "DIR_CREATE"

	// Watch errors
	ErrWatchInit ErrorCode = "WATCH_INIT"
	ErrWatchAdd  ErrorCode = "WATCH_ADD"
)

// LinkerError represents a structured error with code and details
type LinkerError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *LinkerError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *LinkerError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface; two LinkerErrors match on code
func (e *LinkerError) Is(target error) bool {
	var targetErr *LinkerError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new LinkerError with the given code and message
func New(code ErrorCode, message string) *LinkerError {
	return &LinkerError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new LinkerError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *LinkerError {
	return &LinkerError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a LinkerError
func Wrap(err error, code ErrorCode, message string) *LinkerError {
	if err == nil {
		return nil
	}
	return &LinkerError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *LinkerError {
	if err == nil {
		return nil
	}
	return &LinkerError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *LinkerError) WithDetail(key string, value interface{}) *LinkerError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// GetCode extracts the error code from an error, returning ErrUnknown
// for errors that are not LinkerErrors
func GetCode(err error) ErrorCode {
	var le *LinkerError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrUnknown
}

// IsCode reports whether err carries the given code
func IsCode(err error, code ErrorCode) bool {
	var le *LinkerError
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}
