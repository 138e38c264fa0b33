// Package errors provides the closed set of failure categories an EV check
// can end in. Every failure that reaches the evaluator boundary is one of
// these types, which is what lets it always turn a failure into a finding.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType provides a coarse category for CheckErrors
type ErrorType int

const (
	// Internal covers programming errors, such as a recovered panic.
	Internal ErrorType = iota
	// InvalidTarget means the scan target could not be turned into a
	// host and port. No connection is attempted.
	InvalidTarget
	// Handshake is a TLS-layer failure: an alert from the peer, a
	// malformed record, or a peer that presented no certificate.
	Handshake
	// Connection is any other network failure: DNS resolution, connect or
	// read timeouts, refused or reset connections.
	Connection
)

var typeNames = map[ErrorType]string{
	Internal:      "internal",
	InvalidTarget: "invalidTarget",
	Handshake:     "handshake",
	Connection:    "connection",
}

func (t ErrorType) String() string {
	name, ok := typeNames[t]
	if !ok {
		return fmt.Sprintf("unknown(%d)", int(t))
	}
	return name
}

// CheckError represents a categorized failure of an EV check. Detail is
// suitable for showing to an operator; the wrapped cause, if any, is
// available through errors.Unwrap.
type CheckError struct {
	Type   ErrorType
	Detail string
	cause  error
}

func (ce *CheckError) Error() string {
	if ce.cause != nil {
		return fmt.Sprintf("%s: %s", ce.Detail, ce.cause)
	}
	return ce.Detail
}

func (ce *CheckError) Unwrap() error {
	return ce.cause
}

// New is a convenience function for creating a new CheckError
func New(errType ErrorType, msg string, args ...any) error {
	return &CheckError{
		Type:   errType,
		Detail: fmt.Sprintf(msg, args...),
	}
}

// Wrap is like New but records cause as the underlying error.
func Wrap(errType ErrorType, cause error, msg string, args ...any) error {
	return &CheckError{
		Type:   errType,
		Detail: fmt.Sprintf(msg, args...),
		cause:  cause,
	}
}

// Is is a convenience function for testing the internal type of a
// CheckError anywhere in err's chain.
func Is(err error, errType ErrorType) bool {
	var ce *CheckError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Type == errType
}

// TypeOf returns the ErrorType of the first CheckError in err's chain. Errors
// that were never categorized are reported as Internal.
func TypeOf(err error) ErrorType {
	var ce *CheckError
	if !errors.As(err, &ce) {
		return Internal
	}
	return ce.Type
}

// DetailOf returns the Detail of the first CheckError in err's chain, or the
// plain error text for uncategorized errors.
func DetailOf(err error) string {
	var ce *CheckError
	if !errors.As(err, &ce) {
		return err.Error()
	}
	return ce.Detail
}

func InternalError(msg string, args ...any) error {
	return New(Internal, msg, args...)
}

func InvalidTargetError(msg string, args ...any) error {
	return New(InvalidTarget, msg, args...)
}

func HandshakeError(cause error, msg string, args ...any) error {
	return Wrap(Handshake, cause, msg, args...)
}

func ConnectionError(cause error, msg string, args ...any) error {
	return Wrap(Connection, cause, msg, args...)
}
