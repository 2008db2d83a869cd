// Package util provides shared error types and logging helpers used across
// the control-protocol packages.
package util

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Kind classifies a failure along the taxonomy the control-protocol state
// machines and the session registry can produce. Callers should prefer
// errors.Is/errors.As against the sentinels below over switching on Kind
// directly, but Kind is exposed on DialogError/RegistryError for logging
// and metrics.
type Kind int

const (
	// KindTransportRefused indicates the control connection could not be
	// established at all.
	KindTransportRefused Kind = iota
	// KindTransportLost indicates the control connection dropped mid-dialogue.
	KindTransportLost
	// KindProtocolMalformed indicates the reply parser rejected a line.
	KindProtocolMalformed
	// KindRouterError indicates the router replied ERROR (BOB) or a non-OK
	// RESULT (SAM).
	KindRouterError
	// KindUnsupportedStyle indicates a session style other than STREAM was requested.
	KindUnsupportedStyle
	// KindInvalidArgument indicates a caller supplied a missing/invalid argument,
	// e.g. no SAM endpoint for a session that does not yet exist.
	KindInvalidArgument
	// KindConnectionDone indicates an operation was attempted on a closed session.
	KindConnectionDone
	// KindCancelled indicates the caller's context was cancelled while waiting.
	KindCancelled
)

// String renders the Kind for logging.
func (k Kind) String() string {
	switch k {
	case KindTransportRefused:
		return "transport-refused"
	case KindTransportLost:
		return "transport-lost"
	case KindProtocolMalformed:
		return "protocol-malformed"
	case KindRouterError:
		return "router-error"
	case KindUnsupportedStyle:
		return "unsupported-style"
	case KindInvalidArgument:
		return "invalid-argument"
	case KindConnectionDone:
		return "connection-done"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Sentinel errors. Dialogue and registry failures wrap one of these so
// callers can use errors.Is regardless of which phase produced the error.
var (
	ErrTransportRefused   = errors.New("transport refused connection")
	ErrTransportLost      = errors.New("transport connection lost")
	ErrProtocolMalformed  = errors.New("malformed router reply")
	ErrRouterError        = errors.New("router rejected command")
	ErrUnsupportedStyle   = errors.New("unsupported session style")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrConnectionDone     = errors.New("session is closed")
	ErrCancelled          = errors.New("operation cancelled")
	ErrLineTooLong        = fmt.Errorf("%w: line exceeds maximum length", ErrProtocolMalformed)
	ErrNoMatchingSentinel = errors.New("no sentinel for kind")
)

func sentinelFor(k Kind) error {
	switch k {
	case KindTransportRefused:
		return ErrTransportRefused
	case KindTransportLost:
		return ErrTransportLost
	case KindProtocolMalformed:
		return ErrProtocolMalformed
	case KindRouterError:
		return ErrRouterError
	case KindUnsupportedStyle:
		return ErrUnsupportedStyle
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindConnectionDone:
		return ErrConnectionDone
	case KindCancelled:
		return ErrCancelled
	default:
		return ErrNoMatchingSentinel
	}
}

// DialogError wraps a failure that aborted a BOB or SAM dialogue, carrying
// the phase the machine was in and, for router-error failures, the router's
// verbatim free-text message.
type DialogError struct {
	Kind    Kind
	Phase   string // the phase name the machine was in, e.g. "P2-new", "SESSION CREATE"
	Message string // router's free-text message, verbatim, when Kind == KindRouterError
	Err     error  // underlying transport/parse error, if any
}

// NewDialogError builds a DialogError for the given phase and kind.
func NewDialogError(kind Kind, phase, message string, err error) *DialogError {
	return &DialogError{Kind: kind, Phase: phase, Message: message, Err: err}
}

// Error implements the error interface.
func (e *DialogError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: phase %s: %s: %v", e.Kind, e.Phase, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: phase %s: %s", e.Kind, e.Phase, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: phase %s: %v", e.Kind, e.Phase, e.Err)
	default:
		return fmt.Sprintf("%s: phase %s", e.Kind, e.Phase)
	}
}

// Unwrap exposes both the sentinel for the Kind and any underlying cause,
// so errors.Is(err, ErrRouterError) and errors.Is(err, context.Canceled)
// both work as expected.
func (e *DialogError) Unwrap() []error {
	sentinel := sentinelFor(e.Kind)
	if e.Err != nil {
		return []error{sentinel, e.Err}
	}
	return []error{sentinel}
}

// RegistryError wraps a failure from the session registry (acquire/release/close).
type RegistryError struct {
	Kind     Kind
	Nickname string
	Err      error
}

// NewRegistryError builds a RegistryError.
func NewRegistryError(kind Kind, nickname string, err error) *RegistryError {
	return &RegistryError{Kind: kind, Nickname: nickname, Err: err}
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session %q: %s: %v", e.Nickname, e.Kind, e.Err)
	}
	return fmt.Sprintf("session %q: %s", e.Nickname, e.Kind)
}

// Unwrap exposes the sentinel for the Kind plus the underlying cause.
func (e *RegistryError) Unwrap() []error {
	sentinel := sentinelFor(e.Kind)
	if e.Err != nil {
		return []error{sentinel, e.Err}
	}
	return []error{sentinel}
}

// Logger is the narrow logging surface used throughout the control-protocol
// packages. *logrus.Logger and *logrus.Entry both satisfy it, so embedders
// can inject their own configured logger. A nil Logger is accepted by the
// registry and its messages are then dropped; NewNopLogger returns a
// non-nil logger that discards its output.
type Logger interface {
	WithField(key string, value interface{}) *logrus.Entry
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NewNopLogger returns a logger with output discarded, for use when a caller
// does not supply one. Mirrors the teacher's default-to-stdout-logrus
// pattern, except defaulting to silence rather than stdout since this is a
// library, not a daemon.
func NewNopLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(nopWriter{})
	return l
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
