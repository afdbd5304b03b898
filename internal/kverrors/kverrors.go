// Package kverrors defines the typed error taxonomy shared by the engine,
// server and client: KeyNotFound, Corruption, IO, Protocol and Startup.
// Each error carries a Code that callers can branch on without parsing
// messages, plus an optional wrapped cause and key/value detail fields.
package kverrors

import (
	"errors"
	"fmt"
)

// Code categorizes a failure the way spec.md section 7 requires.
type Code string

const (
	// CodeKeyNotFound is returned only from remove on an absent key.
	CodeKeyNotFound Code = "KEY_NOT_FOUND"
	// CodeCorruption marks an index entry pointing at a missing, malformed
	// or mismatched record. It is a hard error: callers must not retry.
	CodeCorruption Code = "CORRUPTION"
	// CodeIO marks a filesystem or socket failure.
	CodeIO Code = "IO"
	// CodeProtocol marks a malformed wire line. It terminates only the
	// connection that produced it.
	CodeProtocol Code = "PROTOCOL"
	// CodeStartup marks a fatal process-bootstrap failure: engine-type
	// mismatch, bind failure, or invalid recovery metadata.
	CodeStartup Code = "STARTUP"
)

// Error is the concrete error type produced by this module's packages.
type Error struct {
	Code    Code
	Message string
	Key     string
	Cause   error
}

func (e *Error) Error() string {
	if e.Code == CodeKeyNotFound {
		return e.Message
	}
	if e.Key != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Key)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error that wraps cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithKey attaches the key involved in the failing operation and returns e
// for chaining at the call site.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// KeyNotFound builds the canonical "Key: <k> not found." error used by
// remove on an absent key (spec.md section 4.6).
func KeyNotFound(key string) *Error {
	return &Error{Code: CodeKeyNotFound, Message: fmt.Sprintf("Key: %s not found.", key), Key: key}
}

// Corruption builds a corruption error for an index entry that no longer
// agrees with the record on disk.
func Corruption(message string, cause error) *Error {
	return Wrap(CodeCorruption, message, cause)
}

// IO builds an I/O error.
func IO(message string, cause error) *Error {
	return Wrap(CodeIO, message, cause)
}

// Protocol builds a malformed-wire-line error.
func Protocol(message string, cause error) *Error {
	return Wrap(CodeProtocol, message, cause)
}

// Startup builds a fatal bootstrap error.
func Startup(message string, cause error) *Error {
	return Wrap(CodeStartup, message, cause)
}

// CodeOf extracts the Code from err's chain, defaulting to CodeIO for an
// error this package didn't produce.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeIO
}

// IsKeyNotFound reports whether err (or something it wraps) is a
// KeyNotFound error.
func IsKeyNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeKeyNotFound
}
