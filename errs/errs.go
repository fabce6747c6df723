// Package errs defines the error taxonomy shared by every layer of the
// activity feed library: config/argument errors raised synchronously to
// callers, and transport/timeout/provider errors captured per user inside
// a batch Response.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error without pinning callers to a Go type. It mirrors
// spec.md §7's taxonomy exactly.
type Kind int

const (
	// Unknown is the zero value; no Error built by this package carries
	// it, and KindOf returns it for errors that are not an *Error.
	Unknown Kind = iota
	// ConfigError marks invalid or missing configuration, or duplicate
	// feed registration.
	ConfigError
	// ArgumentError marks an invalid per_page/page, a nil user_id, or an
	// empty user list.
	ArgumentError
	// TransportError marks a failed connection acquisition or network I/O.
	TransportError
	// Timeout marks a deadline exceeded on a batched call.
	Timeout
	// ProviderError marks an unexpected reply from a backend.
	ProviderError
	// NotFound marks an operation that semantically requires existing
	// state for a user that has none.
	NotFound
)

func (k Kind) String() string {
	switch k {
	case ConfigError:
		return "ConfigError"
	case ArgumentError:
		return "ArgumentError"
	case TransportError:
		return "TransportError"
	case Timeout:
		return "Timeout"
	case ProviderError:
		return "ProviderError"
	case NotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned across the library. It carries
// a Kind, a short Msg, an optional Detail, and an optional wrapped Cause.
type Error struct {
	Kind   Kind
	Msg    string
	Detail string
	Cause  error
}

// New builds a bare Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error of the given kind around an existing cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// WithDetail returns a copy of e with detail appended, following the
// teacher's CodeError.WithDetail comma-join convention.
func (e *Error) WithDetail(detail string) *Error {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &Error{Kind: e.Kind, Msg: e.Msg, Detail: d, Cause: e.Cause}
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	parts = append(parts, e.Kind.String(), e.Msg)
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	s := strings.Join(parts, ": ")
	if e.Cause != nil {
		return fmt.Sprintf("%s (%v)", s, e.Cause)
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind, so callers can
// write errors.Is(err, errs.New(errs.Timeout, "")) style checks, or more
// idiomatically use errs.KindOf(err) == errs.Timeout.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// KindOf extracts the Kind from err, returning Unknown if err is not (or
// does not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Configf builds a ConfigError with a formatted message.
func Configf(format string, args ...any) *Error {
	return New(ConfigError, fmt.Sprintf(format, args...))
}

// Argumentf builds an ArgumentError with a formatted message.
func Argumentf(format string, args ...any) *Error {
	return New(ArgumentError, fmt.Sprintf(format, args...))
}

// Transport wraps a transport-layer cause as a TransportError.
func Transport(cause error) *Error {
	return Wrap(TransportError, "transport failure", cause)
}

// Providerf wraps an unexpected-backend-reply cause as a ProviderError.
func Providerf(cause error, format string, args ...any) *Error {
	return Wrap(ProviderError, fmt.Sprintf(format, args...), cause)
}

// TimeoutErr builds a Timeout error for a deadline-exceeded sub-operation.
func TimeoutErr(msg string) *Error {
	return New(Timeout, msg)
}
