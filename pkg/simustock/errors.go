package simustock

import (
	"errors"
	"fmt"
)

// ErrorCode defines error classification codes for structured error handling.
type ErrorCode string

// Error codes for different error categories.
const (
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeUpstream      ErrorCode = "UPSTREAM_ERROR"
	ErrCodeNormalization ErrorCode = "NORMALIZATION_FAILURE"
	ErrCodeStale         ErrorCode = "STALE_RESULT"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeDatabase      ErrorCode = "DATABASE_ERROR"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with classification code.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with classification code and additional context.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// IsErrorCode checks if an error (or anything it wraps) carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf returns the classification code of err, or ErrCodeInternal for
// unclassified errors. A nil error has no code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// UserMessage maps err to the single user-visible message for its class.
// Diagnostic detail is never included.
func UserMessage(err error, locale *Locale) string {
	if locale == nil {
		locale = DefaultLocale()
	}
	msgs := locale.Messages
	switch CodeOf(err) {
	case ErrCodeValidation, ErrCodeInvalidInput:
		return msgs.InvalidTicker
	case ErrCodeConfiguration:
		return msgs.Configuration
	case ErrCodeUpstream:
		return msgs.Upstream
	case ErrCodeNormalization:
		return msgs.NoData
	case ErrCodeStale:
		return msgs.Superseded
	case ErrCodeNotFound:
		return msgs.NotFound
	default:
		return msgs.Internal
	}
}
