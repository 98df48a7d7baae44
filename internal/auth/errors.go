package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a business-rule failure. Every error the service returns
// to the HTTP boundary carries exactly one of these.
type Code string

const (
	CodeConflict             Code = "conflict"
	CodeNotFound             Code = "not_found"
	CodeUnauthorized         Code = "unauthorized"
	CodeForbidden            Code = "forbidden"
	CodeSessionLimitExceeded Code = "session_limit_exceeded"
	CodeSessionHijack        Code = "session_hijack_suspected"
	CodeInvalidArgument      Code = "invalid_argument"
	CodeInternal             Code = "internal"
)

// Error is the typed failure the orchestrator raises. The boundary maps it
// to a status code and a message generic enough not to leak which check
// failed where enumeration is a risk.
type Error struct {
	Code    Code
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// StatusCode returns the HTTP status for the error's code.
func (e *Error) StatusCode() int {
	switch e.Code {
	case CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeSessionHijack:
		return http.StatusForbidden
	case CodeSessionLimitExceeded, CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func wrapError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, err: err}
}

// internalError wraps an unexpected store/crypto failure. The original error
// is retained for logs; the client only sees a generic message.
func internalError(err error) *Error {
	return &Error{Code: CodeInternal, Message: "Something went wrong", err: err}
}

// AsError extracts a typed *Error, falling back to Internal for anything
// unexpected so handlers never leak raw error strings.
func AsError(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return internalError(err)
}

// Sentinel lookups used inside the stores. They are translated into typed
// errors by the orchestrator.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrDuplicateUser   = errors.New("user already exists")
)
