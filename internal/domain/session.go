package domain

import "time"

// Session is the negotiated context required by the downstream endpoint to
// correlate a sequence of calls. The identifier is opaque; it is minted by
// the downstream during the initialize handshake and travels back on every
// subsequent call as the Mcp-Session-Id header.
//
// A Session is written exactly once (at establishment) and read by any number
// of concurrent invocations afterwards, so it needs no internal locking.
type Session struct {
	// ID is the opaque session token from the handshake response header.
	ID string `json:"id"`

	// ProtocolVersion is the version the downstream selected during initialize.
	ProtocolVersion string `json:"protocol_version"`

	// EstablishedAt records when the handshake completed.
	EstablishedAt time.Time `json:"established_at"`
}

// Valid reports whether the session can back an invocation.
func (s Session) Valid() bool {
	return s.ID != ""
}
