package resource

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound marks a failure where the queried entity does not exist.
	ErrNotFound = errors.New("resource: not found")
	// ErrUnauthorized marks a rejected credential or forbidden call.
	ErrUnauthorized = errors.New("resource: unauthorized")
)

// StatusCoder is implemented by transport errors that carry an HTTP-like
// status code.
type StatusCoder interface {
	StatusCode() int
}

// Classifier maps a remote failure to a failure Kind.
type Classifier func(error) Kind

// Classify is the default Classifier. Unauthorized and forbidden outcomes
// become InvalidCredentials, missing entities become NotFound, and every
// other failure (transport, timeout, unexpected status, malformed payload)
// becomes Error.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return Error
	case errors.Is(err, ErrUnauthorized):
		return InvalidCredentials
	case errors.Is(err, ErrNotFound):
		return NotFound
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		switch sc.StatusCode() {
		case http.StatusUnauthorized, http.StatusForbidden:
			return InvalidCredentials
		case http.StatusNotFound:
			return NotFound
		}
	}
	return Error
}

// NoticeKind tells a consumer how to surface a terminal state.
type NoticeKind string

const (
	NoticeNone        NoticeKind = "none"
	NoticeDismissible NoticeKind = "dismissible"
	NoticeLogin       NoticeKind = "login_failure"
	NoticeEmptyState  NoticeKind = "empty_state"
)

// Notice returns the user-facing treatment of k: Error is a one-shot
// dismissible notice, InvalidCredentials a targeted login-failure notice,
// NotFound an empty-state render without an alert.
func Notice(k Kind) NoticeKind {
	switch k {
	case Error:
		return NoticeDismissible
	case InvalidCredentials:
		return NoticeLogin
	case NotFound:
		return NoticeEmptyState
	default:
		return NoticeNone
	}
}
