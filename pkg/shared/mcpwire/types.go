package mcpwire

import "encoding/json"

// Based on JSON-RPC 2.0 Specification: https://www.jsonrpc.org/specification
// and the MCP Streamable HTTP transport, which frames these envelopes either
// as a plain JSON body or as SSE "data:" lines.

// Version is the JSON-RPC protocol version carried by every envelope.
const Version = "2.0"

// MCP methods used by the bridge.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
)

// Request represents a JSON-RPC request object.
// A nil ID makes the request a one-way notification.
type Request struct {
	Version string      `json:"jsonrpc"`          // MUST be "2.0"
	Method  string      `json:"method"`           // Method to be invoked
	Params  interface{} `json:"params,omitempty"` // Parameters (structured value or array)
	ID      interface{} `json:"id,omitempty"`     // Request identifier (string, number, or null)
}

// NewRequest builds a correlated request envelope.
func NewRequest(id interface{}, method string, params interface{}) *Request {
	return &Request{Version: Version, Method: method, Params: params, ID: id}
}

// NewNotification builds a one-way envelope without a correlation id.
func NewNotification(method string, params interface{}) *Request {
	return &Request{Version: Version, Method: method, Params: params}
}

// Response represents a JSON-RPC response object.
// Result is kept raw so callers can decode it into a method-specific type.
type Response struct {
	Version string          `json:"jsonrpc"`          // MUST be "2.0"
	Result  json.RawMessage `json:"result,omitempty"` // Required on success
	Error   *Error          `json:"error,omitempty"`  // Required on error
	ID      interface{}     `json:"id"`               // Must match request ID (or null if could not be determined)
}

// Matches reports whether the response correlates to the given request id.
// JSON unmarshalling turns numeric ids into float64, so string ids are the
// only form compared byte-for-byte; everything else goes through a
// stringified comparison.
func (r *Response) Matches(id interface{}) bool {
	if r.ID == nil || id == nil {
		return false
	}
	if s, ok := r.ID.(string); ok {
		want, ok := id.(string)
		return ok && s == want
	}
	return stringify(r.ID) == stringify(id)
}

func stringify(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Error represents a JSON-RPC error object.
type Error struct {
	Code    int         `json:"code"`           // Error code
	Message string      `json:"message"`        // Error message
	Data    interface{} `json:"data,omitempty"` // Additional data about the error
}

// Error codes (subset, based on JSON-RPC spec and MCP server behavior).
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	// -32000 to -32099: Server error (implementation-defined)
	CodeServerErrorToolNotFound = -32000
	CodeServerErrorToolFailed   = -32001
)

// CallToolParams is the "params" payload for the tools/call method.
type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}
