// Package cogerr provides the typed error taxonomy for the authentication
// core (spec.md §7): sentinel error types plus a wrapping struct that
// carries a message, optional structured details, and an optional cause.
package cogerr

import (
	"errors"
	"fmt"
)

// Sentinel error types. Every AppError wraps exactly one of these as its
// Type, so callers can branch with errors.Is. Failures of the token-store
// backing are passed through as plain wrapped errors and match none of
// them.
var (
	// ErrInvalidArgument covers missing username/pool and empty new
	// passwords.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotAuthenticated means no valid session exists for an
	// operation that requires one.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrTransport wraps an error propagated verbatim from the RPC
	// layer (network failure, timeout, etc).
	ErrTransport = errors.New("transport error")

	// ErrServiceError wraps a structured error returned by the remote
	// identity service (code + message).
	ErrServiceError = errors.New("service error")

	// ErrCryptoFailure covers big-int, RNG, or HKDF anomalies. Fatal to
	// the handshake in progress; the caller must restart it.
	ErrCryptoFailure = errors.New("crypto failure")

	// ErrBusy is returned when an auth operation is attempted while
	// another one is already in flight on the same User.
	ErrBusy = errors.New("authentication operation already in progress")

	// ErrCorruption means persisted tokens could not be parsed.
	ErrCorruption = errors.New("corrupted token store entry")
)

// AppError is a structured error: a sentinel Type, a human message, an
// optional Cause, and optional Details for programmatic inspection.
type AppError struct {
	Type    error
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap lets errors.Is/As see through to the sentinel Type.
func (e *AppError) Unwrap() error {
	return e.Type
}

// Is reports whether this error's Type matches target.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Type, target)
}

// WithDetails attaches structured details and returns the receiver for
// chaining.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// New creates an AppError with no cause.
func New(errType error, message string) *AppError {
	return &AppError{Type: errType, Message: message}
}

// Newf creates an AppError with a formatted message.
func Newf(errType error, format string, args ...any) *AppError {
	return &AppError{Type: errType, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an AppError around an underlying cause.
func Wrap(errType error, message string, cause error) *AppError {
	return &AppError{Type: errType, Message: message, Cause: cause}
}

// InvalidArgument creates an ErrInvalidArgument-typed error.
func InvalidArgument(message string) *AppError {
	return New(ErrInvalidArgument, message)
}

// NotAuthenticated creates an ErrNotAuthenticated-typed error.
func NotAuthenticated(message string) *AppError {
	if message == "" {
		message = "no valid session"
	}
	return New(ErrNotAuthenticated, message)
}

// Transport wraps a transport-layer failure.
func Transport(cause error) *AppError {
	return Wrap(ErrTransport, "rpc transport failure", cause)
}

// Service creates a ErrServiceError-typed error carrying the remote
// service's error code and message.
func Service(code, message string) *AppError {
	return New(ErrServiceError, message).WithDetails(map[string]any{"code": code})
}

// Crypto wraps a cryptographic/arithmetic failure.
func Crypto(message string, cause error) *AppError {
	return Wrap(ErrCryptoFailure, message, cause)
}

// Busy creates the fixed ErrBusy-typed error.
func Busy() *AppError {
	return New(ErrBusy, "authentication operation already in progress")
}

// Corruption wraps a token-parsing failure.
func Corruption(message string, cause error) *AppError {
	return Wrap(ErrCorruption, message, cause)
}

// Is reports whether err ultimately wraps target, looking through
// AppError in the chain the same way errors.Is would.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
