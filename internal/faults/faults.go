package faults

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so the HTTP layer can map it to a status code
// and callers can tell transport problems apart from malformed model output.
type Kind string

const (
	KindResolution      Kind = "resolution_error"
	KindRetrieval       Kind = "retrieval_error"
	KindModelInvocation Kind = "model_invocation_error"
	KindModelOutput     Kind = "model_output_error"
	KindAggregation     Kind = "aggregation_error"
	KindTimeout         Kind = "timeout_error"
)

// StreamFailure records which analysis stream failed and why. Attached to
// aggregation errors so the response can name every broken stream.
type StreamFailure struct {
	Stream  string `json:"stream"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Error is the typed error used across the service. It carries a Kind, an
// optional stream attribution, and the wrapped cause.
type Error struct {
	Kind    Kind
	Stream  string
	Message string
	Streams []StreamFailure
	cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Stream != "" {
		b.WriteString("[" + e.Stream + "]")
	}
	b.WriteString(": " + e.Message)
	if e.cause != nil {
		b.WriteString(": " + e.cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is match two faults by kind, so sentinel faults like
// ErrNoCompany compare by identity of kind and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Message == "" || t.Message == e.Message)
}

// ErrNoCompany is the sentinel for "the message names no company". It is a
// ResolutionError but distinct from an extraction call that itself failed.
var ErrNoCompany = &Error{Kind: KindResolution, Message: "no company identified in message"}

// New creates a fault with no cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a fault wrapping an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: err}
}

// ForStream attributes the fault to a named analysis stream.
func (e *Error) ForStream(stream string) *Error {
	e.Stream = stream
	return e
}

// KindOf extracts the Kind from an error chain. Returns "" for untyped errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsKind reports whether any error in the chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
