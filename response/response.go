// Package response builds and inspects HTTP responses for dispatched
// handlers.
//
// Handlers in this module return *http.Response values directly instead of
// writing to a ResponseWriter, which keeps them testable without a server.
// New, FromStatus and FromError cover the common constructions and Write
// bridges a finished response onto a net/http ResponseWriter.
package response

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// New returns a response with the given status code and body. The body is
// always non-nil and Content-Length is set, so the response can be written
// or read back without nil checks.
func New(status int, body string) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        make(http.Header),
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

// FromStatus returns an empty response with the given status code.
func FromStatus(status int) *http.Response {
	return New(status, "")
}

// FromError renders a handler error as a response. A *StatusError anywhere
// in the chain of err supplies the status code and body; any other error
// becomes a 500 whose body is the error text.
func FromError(err error) *http.Response {
	if err == nil {
		return FromStatus(http.StatusInternalServerError)
	}
	var se *StatusError
	if errors.As(err, &se) {
		code := se.Code
		if code == 0 {
			code = http.StatusInternalServerError
		}
		msg := se.Message
		if msg == "" {
			msg = se.Error()
		}
		return New(code, msg)
	}
	return New(http.StatusInternalServerError, err.Error())
}

// Write copies a response's status, headers and body onto w. The response
// body, when present, is drained and closed.
func Write(w http.ResponseWriter, resp *http.Response) error {
	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	if resp.ContentLength >= 0 && w.Header().Get("Content-Length") == "" {
		w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	code := resp.StatusCode
	if code == 0 {
		code = http.StatusOK
	}
	w.WriteHeader(code)
	if resp.Body == nil {
		return nil
	}
	defer resp.Body.Close()
	_, err := io.Copy(w, resp.Body)
	return err
}
