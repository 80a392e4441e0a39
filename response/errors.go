package response

import (
	"fmt"
	"net/http"
)

// StatusError carries the HTTP status and body that a failed handler wants
// the client to see. FromError recognizes it anywhere in an error chain, so
// a handler can annotate a low-level error on the way out:
//
//	return nil, response.WithStatus(err, http.StatusBadGateway)
type StatusError struct {
	// Code is the HTTP status to answer with. Zero means 500.
	Code int
	// Message is the response body. Empty means the error text.
	Message string
	// Err is the wrapped cause, if any.
	Err error
}

// NewStatusError returns a StatusError with the given code and message.
func NewStatusError(code int, message string) *StatusError {
	return &StatusError{Code: code, Message: message}
}

// WithStatus wraps err with an HTTP status code.
func WithStatus(err error, code int) *StatusError {
	return &StatusError{Code: code, Err: err}
}

// Error returns the message and the wrapped cause, whichever are present.
func (e *StatusError) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Message != "":
		return e.Message
	default:
		return http.StatusText(e.Code)
	}
}

// Unwrap returns the wrapped cause.
func (e *StatusError) Unwrap() error {
	return e.Err
}
