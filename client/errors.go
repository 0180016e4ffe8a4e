package client

import (
	"errors"
	"fmt"

	"github.com/valyala/fasthttp"
)

// TransportError is a failure to reach the server at all. It is always safe
// to retry.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Network request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Retryable() bool { return true }

// ServerError is a non-2xx response or a response carrying an error field.
// Error returns the server message verbatim when there is one.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, fasthttp.StatusMessage(e.Status))
}

// DecodeError is a response body that is not the expected JSON
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("Unexpected response from %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status of a ServerError, or 0
func StatusCode(err error) int {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// IsRetryable reports whether the request can be repeated as is
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	status := StatusCode(err)
	return status == fasthttp.StatusServiceUnavailable || status == fasthttp.StatusBadGateway || status == fasthttp.StatusGatewayTimeout
}
