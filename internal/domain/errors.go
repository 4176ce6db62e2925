package domain

import "fmt"

// HandshakeError reports a failed session establishment: transport failure,
// a non-success status, or a handshake response without a session identifier
// header.
type HandshakeError struct {
	Reason string
	Err    error
}

func (e *HandshakeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("handshake failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("handshake failed: %s", e.Reason)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// ValidationKind classifies argument builder failures.
type ValidationKind string

const (
	ValidationMissingRequired          ValidationKind = "MISSING_REQUIRED"
	ValidationMalformedStructuredInput ValidationKind = "MALFORMED_STRUCTURED_INPUT"
	ValidationOutOfBounds              ValidationKind = "OUT_OF_BOUNDS"
)

// ValidationError reports a raw input that cannot be coerced into the tool's
// declared parameter schema. Validation failures are resolved locally and
// never reach the transport.
type ValidationError struct {
	Kind   ValidationKind
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid argument %q: %s: %s", e.Field, e.Kind, e.Detail)
	}
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Kind)
}
