package types

import "fmt"

// ErrorCode represents a unified error code across the module.
type ErrorCode string

// Retrieval pipeline error codes
const (
	ErrDimensionMismatch ErrorCode = "DIMENSION_MISMATCH"
	ErrStoreFrozen       ErrorCode = "STORE_FROZEN"
	ErrRouterParse       ErrorCode = "ROUTER_PARSE_FAILURE"
	ErrRetrieverFailure  ErrorCode = "RETRIEVER_FAILURE"
)

// Generation error codes
const (
	ErrGenerationFailure ErrorCode = "GENERATION_FAILURE"
	ErrGenerationTimeout ErrorCode = "GENERATION_TIMEOUT"
	ErrEmbeddingFailure  ErrorCode = "EMBEDDING_FAILURE"
)

// Configuration error codes
const (
	ErrInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Error represents a structured error with code, message, and cause.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
