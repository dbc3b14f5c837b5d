package httpx

import (
	"net/http"

	"github.com/pkg/errors"
)

// Code classifies an error for clients and for the failure reporter.
type Code string

const (
	CodeValidation  Code = "validation"
	CodeAuth        Code = "auth"
	CodeMethod      Code = "method"
	CodeRateLimit   Code = "rate_limit"
	CodeCredentials Code = "credentials"
	CodeSinkAuth    Code = "sink_auth"
	CodeSinkLoad    Code = "sink_load"
	CodeSinkWrite   Code = "sink_write"
	CodeUnexpected  Code = "unexpected"
)

// Error is the one error shape the handler pipeline traffics in.
// Status picks the HTTP response code; Details, when present, is
// rendered verbatim in the response body as a diagnostic aid.
type Error struct {
	Code       Code
	Status     int
	Message    string
	Details    any
	RetryAfter int // seconds, only for rate-limit rejections
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// ServerFault reports whether the error should wake somebody up,
// as opposed to being the caller's fault.
func (e *Error) ServerFault() bool {
	return e.Status >= http.StatusInternalServerError
}

func Validation(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: msg, Details: details}
}

func Auth(msg string) *Error {
	return &Error{Code: CodeAuth, Status: http.StatusUnauthorized, Message: msg}
}

func MethodNotAllowed(msg string) *Error {
	return &Error{Code: CodeMethod, Status: http.StatusMethodNotAllowed, Message: msg}
}

func RateLimited(msg string, retryAfter int) *Error {
	return &Error{Code: CodeRateLimit, Status: http.StatusTooManyRequests, Message: msg, RetryAfter: retryAfter}
}

func Credentials(cause error) *Error {
	return &Error{Code: CodeCredentials, Status: http.StatusInternalServerError, Message: "server credentials not configured", cause: cause}
}

func SinkAuth(cause error) *Error {
	return &Error{Code: CodeSinkAuth, Status: http.StatusInternalServerError, Message: "spreadsheet authentication failed", cause: cause}
}

func SinkLoad(cause error) *Error {
	return &Error{Code: CodeSinkLoad, Status: http.StatusInternalServerError, Message: "could not load spreadsheet", cause: cause}
}

func SinkWrite(cause error) *Error {
	return &Error{Code: CodeSinkWrite, Status: http.StatusInternalServerError, Message: "could not write to spreadsheet", cause: cause}
}

func Unexpected(cause error) *Error {
	return &Error{Code: CodeUnexpected, Status: http.StatusInternalServerError, Message: "internal server error", cause: cause}
}

// FromError coerces any error into an *Error, wrapping foreign ones
// as unexpected so the response path never leaks raw error text.
func FromError(err error) *Error {
	var herr *Error
	if errors.As(err, &herr) {
		return herr
	}
	return Unexpected(err)
}
