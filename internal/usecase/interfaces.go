package usecase

import (
	"context"
	"errors"

	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/domain"
	"github.com/rodrigoscoelho/mcp-anywhere-sub002/pkg/shared/mcpwire"
)

// Standard errors returned by the transport adapter. The invoke use case maps
// them onto the stable result codes in domain.
var (
	// ErrNotAcceptable is returned when the downstream rejects the call's
	// content negotiation (HTTP 406). Never retried.
	ErrNotAcceptable = errors.New("downstream rejected accept header")

	// ErrNoSession is returned when the downstream does not recognize the
	// session identifier, or when a call is attempted without one.
	ErrNoSession = errors.New("no or invalid session")

	// ErrMalformedEnvelope is returned when a reply cannot be parsed into a
	// correlated JSON-RPC envelope.
	ErrMalformedEnvelope = errors.New("malformed response envelope")

	// ErrToolNotFound is returned by the descriptor repository.
	ErrToolNotFound = errors.New("tool not found")
)

// SessionTransport is the outbound port to the downstream multiplexed MCP
// endpoint. Implementations handle the Streamable HTTP framing: content
// negotiation headers, the session identifier header, and both direct-JSON
// and SSE-framed reply bodies.
type SessionTransport interface {
	// Establish performs the initialize handshake plus the one-way
	// initialized acknowledgement and returns the negotiated session.
	Establish(ctx context.Context) (domain.Session, error)

	// Terminate ends the session downstream. Best effort; a downstream that
	// does not support explicit termination is not an error.
	Terminate(ctx context.Context, session domain.Session) error

	// ListTools fetches the downstream's current tool listing.
	ListTools(ctx context.Context, session domain.Session) ([]domain.ToolDescriptor, error)

	// CallTool sends one tools/call envelope and returns the correlated
	// reply envelope.
	CallTool(ctx context.Context, session domain.Session, name string, args map[string]interface{}) (*mcpwire.Response, error)
}

// ToolRepository stores the most recent tool listing so the form generator
// and pre-invoke schema lookup don't re-query the downstream per request.
type ToolRepository interface {
	// Replace swaps the stored listing for a fresh one.
	Replace(ctx context.Context, tools []domain.ToolDescriptor) error

	// List returns all currently stored descriptors.
	List(ctx context.Context) ([]domain.ToolDescriptor, error)

	// FindByName retrieves one descriptor by qualified name.
	FindByName(ctx context.Context, name string) (*domain.ToolDescriptor, error)
}
