package mail

import (
	"fmt"

	"github.com/pkg/errors"
)

// NotConfiguredMessage is reported when sender credentials are missing.
const NotConfiguredMessage = "Email service not configured. Please set EMAIL and PASSWORD environment variables."

// Kind classifies relay failures.
type Kind int

const (
	KindUnexpected Kind = iota
	KindConfiguration
	KindConnection
	KindTLSNegotiation
	KindAuthentication
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindConnection:
		return "connection"
	case KindTLSNegotiation:
		return "tls_negotiation"
	case KindAuthentication:
		return "authentication"
	case KindProtocol:
		return "protocol"
	default:
		return "unexpected"
	}
}

// Sentinels matched by errors.Is against a *RelayError of the same kind.
var (
	ErrNotConfigured  = errors.New("email service not configured")
	ErrConnection     = errors.New("smtp connection failed")
	ErrTLS            = errors.New("smtp tls negotiation failed")
	ErrAuthentication = errors.New("smtp authentication failed")
	ErrProtocol       = errors.New("smtp protocol error")
	ErrUnexpected     = errors.New("unexpected relay error")
)

var sentinels = map[Kind]error{
	KindConfiguration:  ErrNotConfigured,
	KindConnection:     ErrConnection,
	KindTLSNegotiation: ErrTLS,
	KindAuthentication: ErrAuthentication,
	KindProtocol:       ErrProtocol,
	KindUnexpected:     ErrUnexpected,
}

// RelayError is returned by every Relay implementation on failure.
type RelayError struct {
	Kind Kind
	Op   string // protocol step, e.g. "failed to authenticate"
	Err  error
}

// NewError builds a RelayError for the given step.
func NewError(kind Kind, op string, err error) *RelayError {
	return &RelayError{Kind: kind, Op: op, Err: err}
}

// NotConfigured returns the error for missing sender credentials.
func NotConfigured() *RelayError {
	return &RelayError{Kind: KindConfiguration}
}

func (e *RelayError) Error() string {
	switch e.Kind {
	case KindConfiguration:
		return NotConfiguredMessage
	case KindUnexpected:
		return fmt.Sprintf("Unexpected error: %s", e.cause())
	default:
		return fmt.Sprintf("SMTP Error: %s", e.cause())
	}
}

func (e *RelayError) cause() string {
	switch {
	case e.Err == nil:
		return e.Op
	case e.Op == "":
		return e.Err.Error()
	default:
		return e.Op + ": " + e.Err.Error()
	}
}

func (e *RelayError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of this error's kind.
func (e *RelayError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// KindOf returns the failure kind of err. Errors that are not a *RelayError
// are KindUnexpected.
func KindOf(err error) Kind {
	var re *RelayError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnexpected
}
