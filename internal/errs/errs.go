// Package errs implements the tagged error taxonomy from spec.md §7. Every
// component returns errors wrapped through New or Wrap so that transport
// handlers can map a Kind to a status code without string-matching
// messages.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the propagation policy it needs at the
// transport boundary.
type Kind int

const (
	// Internal is the catch-all kind: logged with stack context, mapped to
	// a generic server error at the transport boundary.
	Internal Kind = iota
	InvalidInput
	NotFound
	Unauthenticated
	Misconfigured
	ProviderUnavailable
	TimedOut
	RateLimited
	DimensionMismatch
	CorruptPayload
	NotConfirmed
	EmptyInput
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case NotFound:
		return "NotFound"
	case Unauthenticated:
		return "Unauthenticated"
	case Misconfigured:
		return "Misconfigured"
	case ProviderUnavailable:
		return "ProviderUnavailable"
	case TimedOut:
		return "TimedOut"
	case RateLimited:
		return "RateLimited"
	case DimensionMismatch:
		return "DimensionMismatch"
	case CorruptPayload:
		return "CorruptPayload"
	case NotConfirmed:
		return "NotConfirmed"
	case EmptyInput:
		return "EmptyInput"
	default:
		return "Internal"
	}
}

// ClientFacing reports whether a Kind should be surfaced as a client
// error (4xx) rather than a generic server error, per spec.md §7's
// propagation policy.
func (k Kind) ClientFacing() bool {
	switch k {
	case InvalidInput, NotFound, NotConfirmed, EmptyInput:
		return true
	default:
		return false
	}
}

// Retryable reports whether automated clients should treat this kind as
// worth retrying.
func (k Kind) Retryable() bool {
	switch k {
	case ProviderUnavailable, TimedOut, RateLimited:
		return true
	default:
		return false
	}
}

// Error is the concrete error type carrying a Kind alongside the usual
// message and wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates cause with kind and a message, preserving it for
// errors.Is/errors.As/Unwrap.
func Wrap(kind Kind, cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind of err, defaulting to Internal when err does
// not carry one (or is nil, which reports Internal — callers should check
// err != nil first).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
