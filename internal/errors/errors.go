package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// MalformedRequest indicates the request line or a header line could not be parsed
	MalformedRequest ErrorCode = "MALFORMED_REQUEST"
	// HeaderOverflow indicates the request carried more headers than allowed
	HeaderOverflow ErrorCode = "HEADER_OVERFLOW"
	// BodyEncoding indicates the request body was not valid UTF-8
	BodyEncoding ErrorCode = "BODY_ENCODING"
	// IOFailure indicates the connection failed while reading or writing
	IOFailure ErrorCode = "IO_FAILURE"
	// NotFound indicates the request path resolved to nothing
	NotFound ErrorCode = "NOT_FOUND"
	// MethodNotAllowed indicates a known method the server refuses to serve
	MethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	// NotImplemented indicates a method the server does not know
	NotImplemented ErrorCode = "NOT_IMPLEMENTED"
	// RenderFailed indicates Markdown or template rendering failed
	RenderFailed ErrorCode = "RENDER_FAILED"
	// ConfigInvalid indicates the configuration did not validate
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Error is a coded server error. The cause is kept for logging and is never
// sent to clients.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates a new Error
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or InternalError.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// StatusFor maps error codes to HTTP status codes
func StatusFor(code ErrorCode) int {
	switch code {
	case MalformedRequest, HeaderOverflow, BodyEncoding:
		return 400
	case NotFound:
		return 404
	case MethodNotAllowed:
		return 405
	case NotImplemented:
		return 501
	case RenderFailed, ConfigInvalid, IOFailure, InternalError:
		return 500
	default:
		return 500
	}
}
