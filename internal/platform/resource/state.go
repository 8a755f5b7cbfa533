// Package resource tracks the lifecycle of remote operations. A Store holds
// the current State of one logical resource, and Fetch/Submit drive a remote
// call through Loading into a terminal state.
package resource

import "fmt"

// Kind tags the variant held by a State.
type Kind int

const (
	Idle Kind = iota
	Loading
	Success
	Error
	NotFound
	InvalidCredentials
	SuccessCreation
)

var kindNames = map[Kind]string{
	Idle:               "idle",
	Loading:            "loading",
	Success:            "success",
	Error:              "error",
	NotFound:           "not_found",
	InvalidCredentials: "invalid_credentials",
	SuccessCreation:    "success_creation",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return Idle, fmt.Errorf("unknown resource kind %q", s)
}

// Terminal reports whether k is a finished outcome.
func (k Kind) Terminal() bool {
	return k != Idle && k != Loading
}

// Failure reports whether k is one of the failure outcomes.
func (k Kind) Failure() bool {
	return k == Error || k == NotFound || k == InvalidCredentials
}

// State is an immutable snapshot of one resource. The zero value is Idle.
type State[T any] struct {
	kind    Kind
	payload T
	err     error
}

func IdleState[T any]() State[T] { return State[T]{kind: Idle} }

func LoadingState[T any]() State[T] { return State[T]{kind: Loading} }

// Succeeded wraps a deserialized payload.
func Succeeded[T any](payload T) State[T] {
	return State[T]{kind: Success, payload: payload}
}

// Created is the acknowledgement state of a creation call.
func Created[T any]() State[T] { return State[T]{kind: SuccessCreation} }

// Failed builds a failure state. Non-failure kinds collapse to Error.
func Failed[T any](kind Kind, err error) State[T] {
	if !kind.Failure() {
		kind = Error
	}
	return State[T]{kind: kind, err: err}
}

func (s State[T]) Kind() Kind { return s.kind }

// Payload returns the payload and true only for Success.
func (s State[T]) Payload() (T, bool) {
	if s.kind != Success {
		var zero T
		return zero, false
	}
	return s.payload, true
}

// Err returns the cause of a failure state, or nil.
func (s State[T]) Err() error { return s.err }

func (s State[T]) IsTerminal() bool { return s.kind.Terminal() }

func (s State[T]) String() string {
	if s.err != nil {
		return fmt.Sprintf("%s: %v", s.kind, s.err)
	}
	return s.kind.String()
}

// Snapshot is a type-erased copy of a State for consumers that do not know
// the payload type.
type Snapshot struct {
	Resource string `json:"resource"`
	Kind     Kind   `json:"-"`
	KindName string `json:"kind"`
	Payload  any    `json:"payload,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Snapshot erases the payload type of s.
func (s State[T]) Snapshot(resource string) Snapshot {
	snap := Snapshot{Resource: resource, Kind: s.kind, KindName: s.kind.String()}
	if s.kind == Success {
		snap.Payload = s.payload
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}
