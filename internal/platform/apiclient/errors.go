package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"unicode/utf8"
)

var (
	// Sentinel errors for errors.Is checks at the orchestrator boundary.
	ErrUnauthorized = errors.New("backend: unauthorized")
	ErrNotFound     = errors.New("backend: resource not found")
	ErrRejected     = errors.New("backend: request rejected")
	ErrUpstream     = errors.New("backend: internal error (5xx)")
	ErrUnavailable  = errors.New("backend: host unreachable or transport failure")
	ErrTimeout      = errors.New("backend: request timed out")
	ErrBadResponse  = errors.New("backend: invalid response format or malformed data")
)

const maxErrorBody = 256

// Error describes a failed remote operation.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("backend: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Sentinel, e.Err}
	}
	return []error{e.Sentinel}
}

// StatusCode reports the HTTP status of the failed call, 0 for transport
// failures.
func (e *Error) StatusCode() int { return e.Status }

func wrapError(op string, err error, status int, body []byte) *Error {
	e := &Error{Operation: op, Status: status, Err: err}
	if len(body) > maxErrorBody {
		n := maxErrorBody
		for n > 0 && !utf8.RuneStart(body[n]) {
			n--
		}
		body = body[:n]
	}
	e.Body = string(body)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Sentinel = ErrUnauthorized
	case status == http.StatusNotFound:
		e.Sentinel = ErrNotFound
	case status >= http.StatusInternalServerError:
		e.Sentinel = ErrUpstream
	case status >= http.StatusBadRequest:
		e.Sentinel = ErrRejected
	case err != nil && isTimeout(err):
		e.Sentinel = ErrTimeout
	case err != nil:
		e.Sentinel = ErrUnavailable
	default:
		e.Sentinel = ErrBadResponse
	}
	return e
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
