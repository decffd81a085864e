package api

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport covers unreachable backends, cancelled requests and
	// 2xx responses whose body is not the expected JSON.
	ErrTransport = errors.New("transport failure")
	// ErrBackendRejected is returned for non-2xx responses.
	ErrBackendRejected = errors.New("backend rejected request")
	// ErrIncompletePayload is returned for 2xx responses missing required fields.
	ErrIncompletePayload = errors.New("incomplete response payload")
)

// TransportError wraps a network or decoding failure for one endpoint call.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrTransport, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// RejectedError is a non-2xx response. Message holds the backend's
// "error" or "message" field when the body carried one.
type RejectedError struct {
	Op      string
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v (status %d)", e.Op, ErrBackendRejected, e.Status)
	}
	return fmt.Sprintf("%s: %v (status %d): %s", e.Op, ErrBackendRejected, e.Status, e.Message)
}

func (e *RejectedError) Unwrap() error {
	return ErrBackendRejected
}

// IncompleteError is a 2xx response that lacks fields the caller requires.
// It matches both ErrIncompletePayload and ErrBackendRejected so a partial
// credential set is never mistaken for success.
type IncompleteError struct {
	Op      string
	Missing []string
	Message string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s: %v: missing %s", e.Op, ErrIncompletePayload, strings.Join(e.Missing, ", "))
}

func (e *IncompleteError) Unwrap() []error {
	return []error{ErrIncompletePayload, ErrBackendRejected}
}

// UserMessage converts an endpoint error into the string shown next to the
// form that produced it. Backend-supplied text wins over fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var rejected *RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}

	var incomplete *IncompleteError
	if errors.As(err, &incomplete) && incomplete.Message != "" {
		return incomplete.Message
	}

	return fallback
}
