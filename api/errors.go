// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-devmem.

package api

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the library's error taxonomy. Driver failures
// are always mapped onto one of these before they reach a caller;
// foreign error codes never cross the api boundary.
var (
	// ErrOutOfMemory: the request cannot be satisfied by the resource,
	// including after the pool's coalesce-and-retry step. Never retried
	// automatically.
	ErrOutOfMemory = errors.New("out of device memory")

	// ErrInvalidArgument: deallocate with a pointer/size pair not
	// outstanding on the resource, or a malformed stream handle.
	// A programming error; never silently accepted.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrBackendFailure: the driver reported an error unrelated to
	// memory exhaustion (device fault, invalid device state).
	ErrBackendFailure = errors.New("backend failure")

	// ErrClosed: operation on a resource or driver that has been
	// finalized.
	ErrClosed = errors.New("resource is closed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeOutOfMemory
	ErrCodeInvalidArgument
	ErrCodeBackendFailure
	ErrCodeClosed
	ErrCodeInternal
)

// Error is a structured error carrying a code, a message and context.
// It unwraps to the matching sentinel so callers can use errors.Is.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap maps the code back onto the sentinel taxonomy.
func (e *Error) Unwrap() error {
	switch e.Code {
	case ErrCodeOutOfMemory:
		return ErrOutOfMemory
	case ErrCodeInvalidArgument:
		return ErrInvalidArgument
	case ErrCodeBackendFailure:
		return ErrBackendFailure
	case ErrCodeClosed:
		return ErrClosed
	default:
		return nil
	}
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
