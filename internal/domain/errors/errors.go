// Package errors provides domain-specific errors for the swiftwire application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the connection and reload error taxonomy.
var (
	ErrNotConnected         = errors.New("not connected to remote host")
	ErrTimeout              = errors.New("request timed out")
	ErrConnectionClosed     = errors.New("connection closed while request was in flight")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrReconnectExhausted   = errors.New("reconnect attempts exhausted")
	ErrUnknownMessageType   = errors.New("unknown message type")
	ErrTunnelSetupFailed    = errors.New("tunnel setup failed")
)

// RemoteError carries an explicit error payload returned by the remote
// executor. It is kept distinguishable from transport-level failures so
// callers can log the remote message verbatim.
type RemoteError struct {
	Message string
}

// Error returns the remote error message.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error: %s", e.Message)
}

// NewRemoteError creates a RemoteError from a message payload.
func NewRemoteError(message string) *RemoteError {
	return &RemoteError{Message: message}
}

// IsRemote reports whether err is (or wraps) a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// ErrorCode categorizes errors for handling and reporting.
type ErrorCode string

const (
	CodeConnection ErrorCode = "CONNECTION"
	CodeProtocol   ErrorCode = "PROTOCOL"
	CodeReload     ErrorCode = "RELOAD"
	CodeConfig     ErrorCode = "CONFIG"
	CodeStorage    ErrorCode = "STORAGE"
	CodeValidation ErrorCode = "VALIDATION"
)

// SwiftwireError wraps errors with additional context for debugging and handling.
type SwiftwireError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error returns a formatted error string including the code, message, and cause if present.
func (e *SwiftwireError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for use with errors.Is and errors.As.
func (e *SwiftwireError) Unwrap() error {
	return e.Cause
}

// NewError creates a new SwiftwireError with the given code, message, and optional cause.
func NewError(code ErrorCode, message string, cause error) *SwiftwireError {
	return &SwiftwireError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds a key-value pair to the error's context and returns the error.
// This allows for method chaining when adding multiple context values.
func WithContext(err *SwiftwireError, key string, value interface{}) *SwiftwireError {
	if err.Context == nil {
		err.Context = make(map[string]interface{})
	}
	err.Context[key] = value
	return err
}

// Is reports whether err matches target using errors.Is semantics.
// This is a convenience wrapper around the standard library's errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target and sets target to that error value.
// This is a convenience wrapper around the standard library's errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
