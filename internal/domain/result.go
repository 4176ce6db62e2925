package domain

import (
	"encoding/json"
	"time"
)

// InvocationStatus is the terminal outcome of one invocation.
type InvocationStatus string

const (
	StatusSuccess InvocationStatus = "success"
	StatusError   InvocationStatus = "error"
)

// Stable error codes surfaced to the caller. Transport and protocol failures
// collapse into this closed set so the UI can branch without string matching.
const (
	CodeNotAcceptable     = "NOT_ACCEPTABLE"     // downstream rejected the Accept header (HTTP 406)
	CodeNoSession         = "NO_SESSION"         // missing or expired session
	CodeMalformedEnvelope = "MALFORMED_ENVELOPE" // reply carried neither result nor error
	CodeTimeout           = "TIMEOUT"            // no terminal outcome within the invoke timeout
	CodeDownstreamError   = "DOWNSTREAM_ERROR"   // downstream returned a JSON-RPC error envelope
)

// InvocationResult is the normalized outcome of a single tool call. Exactly
// one is produced per invocation request; it is immutable after creation and
// held only for display.
type InvocationResult struct {
	Status    InvocationStatus `json:"status"`
	Tool      string           `json:"tool"`
	Duration  time.Duration    `json:"duration"`
	Timestamp time.Time        `json:"timestamp"`

	// Payload holds the downstream result value on success.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Code and Message describe the failure on error. DownstreamCode carries
	// the downstream's own numeric code when Code is DOWNSTREAM_ERROR.
	Code           string `json:"code,omitempty"`
	Message        string `json:"message,omitempty"`
	DownstreamCode int    `json:"downstream_code,omitempty"`
}

// SuccessResult builds a terminal success outcome.
func SuccessResult(tool string, payload json.RawMessage, started time.Time) InvocationResult {
	return InvocationResult{
		Status:    StatusSuccess,
		Tool:      tool,
		Payload:   payload,
		Duration:  time.Since(started),
		Timestamp: time.Now(),
	}
}

// ErrorResult builds a terminal error outcome.
func ErrorResult(tool, code, message string, started time.Time) InvocationResult {
	return InvocationResult{
		Status:    StatusError,
		Tool:      tool,
		Code:      code,
		Message:   message,
		Duration:  time.Since(started),
		Timestamp: time.Now(),
	}
}
