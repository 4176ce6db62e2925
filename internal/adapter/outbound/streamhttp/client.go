package streamhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/domain"
	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/usecase"
	"github.com/rodrigoscoelho/mcp-anywhere-sub002/pkg/shared/mcpwire"
)

// Streamable HTTP transport headers. The downstream rejects any call whose
// Accept header does not declare BOTH reply formats, so acceptBoth is sent
// verbatim on every request.
const (
	// HeaderSessionID carries the session identifier on every request and on
	// the handshake response.
	HeaderSessionID = "Mcp-Session-Id"

	contentTypeJSON        = "application/json"
	contentTypeEventStream = "text/event-stream"
	acceptBoth             = contentTypeJSON + ", " + contentTypeEventStream
)

// Config carries the static transport settings for one downstream endpoint.
type Config struct {
	// Endpoint is the single URL the multiplexed MCP endpoint listens on.
	Endpoint string

	// Headers are static headers attached to every request (e.g. gateway
	// authentication). The negotiation headers cannot be overridden here.
	Headers map[string]string

	// ClientName and ClientVersion identify this bridge in the initialize
	// handshake.
	ClientName    string
	ClientVersion string

	// ProtocolVersion declared during initialize. Defaults to the latest
	// version the mcp-go types track.
	ProtocolVersion string
}

// Client implements usecase.SessionTransport over MCP Streamable HTTP.
// It is safe for concurrent use; invocations sharing one session share the
// underlying *http.Client.
type Client struct {
	httpClient      *http.Client
	endpoint        string
	headers         map[string]string
	clientInfo      mcp.Implementation
	protocolVersion string
	logger          *slog.Logger
	tracer          trace.Tracer
}

// New creates a new Streamable HTTP client.
func New(httpClient *http.Client, cfg Config, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	protocolVersion := cfg.ProtocolVersion
	if protocolVersion == "" {
		protocolVersion = mcp.LATEST_PROTOCOL_VERSION
	}
	return &Client{
		httpClient: httpClient,
		endpoint:   cfg.Endpoint,
		headers:    cfg.Headers,
		clientInfo: mcp.Implementation{
			Name:    cfg.ClientName,
			Version: cfg.ClientVersion,
		},
		protocolVersion: protocolVersion,
		logger:          logger.With("component", "streamhttp_client"),
		tracer:          otel.Tracer("streamhttp"),
	}
}

// initializeParams is the params payload of the initialize request.
type initializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    mcp.ClientCapabilities `json:"capabilities"`
	ClientInfo      mcp.Implementation     `json:"clientInfo"`
}

// Establish performs the initialize handshake and the mandatory one-way
// initialized acknowledgement. The session identifier is taken from the
// Mcp-Session-Id header of the initialize response; without it the session
// is unusable and establishment fails.
func (c *Client) Establish(ctx context.Context) (domain.Session, error) {
	ctx, span := c.tracer.Start(ctx, "mcp.initialize", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	correlationID := uuid.NewString()
	request := mcpwire.NewRequest(correlationID, mcpwire.MethodInitialize, initializeParams{
		ProtocolVersion: c.protocolVersion,
		Capabilities:    mcp.ClientCapabilities{},
		ClientInfo:      c.clientInfo,
	})

	resp, err := c.post(ctx, "", request)
	if err != nil {
		return domain.Session{}, c.failSpan(span, &domain.HandshakeError{Reason: "initialize request failed", Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Session{}, c.failSpan(span, &domain.HandshakeError{
			Reason: fmt.Sprintf("initialize returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		})
	}

	sessionID := resp.Header.Get(HeaderSessionID)
	if sessionID == "" {
		return domain.Session{}, c.failSpan(span, &domain.HandshakeError{
			Reason: fmt.Sprintf("initialize response carried no %s header", HeaderSessionID),
		})
	}

	envelope, err := c.decodeEnvelope(resp, correlationID)
	if err != nil {
		return domain.Session{}, c.failSpan(span, &domain.HandshakeError{Reason: "unparseable initialize response", Err: err})
	}
	if envelope.Error != nil {
		return domain.Session{}, c.failSpan(span, &domain.HandshakeError{
			Reason: fmt.Sprintf("downstream rejected initialize (%d): %s", envelope.Error.Code, envelope.Error.Message),
		})
	}

	var initResult mcp.InitializeResult
	if err := json.Unmarshal(envelope.Result, &initResult); err != nil {
		return domain.Session{}, c.failSpan(span, &domain.HandshakeError{Reason: "unparseable initialize result", Err: err})
	}

	// The downstream rejects every later call with a "no/invalid session"
	// error unless the client acknowledges readiness first.
	if err := c.acknowledge(ctx, sessionID); err != nil {
		return domain.Session{}, c.failSpan(span, &domain.HandshakeError{Reason: "initialized acknowledgement failed", Err: err})
	}

	session := domain.Session{
		ID:              sessionID,
		ProtocolVersion: initResult.ProtocolVersion,
		EstablishedAt:   time.Now(),
	}
	span.SetAttributes(attribute.String("mcp.protocol_version", session.ProtocolVersion))
	c.logger.Info("Handshake complete",
		slog.String("session_id", session.ID),
		slog.String("protocol_version", session.ProtocolVersion))
	return session, nil
}

// acknowledge sends the one-way notifications/initialized envelope over the
// freshly minted session. Notifications carry no id and expect no envelope
// back, only a success status.
func (c *Client) acknowledge(ctx context.Context, sessionID string) error {
	resp, err := c.post(ctx, sessionID, mcpwire.NewNotification(mcpwire.MethodInitialized, nil))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("initialized notification returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Terminate asks the downstream to drop the session. Downstreams that do not
// implement explicit termination answer 405; that still counts as terminated.
func (c *Client) Terminate(ctx context.Context, session domain.Session) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create terminate request: %w", err)
	}
	c.setHeaders(req, session.ID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("terminate request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusMethodNotAllowed {
		return fmt.Errorf("terminate returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// ListTools fetches the downstream's tool listing over the session.
func (c *Client) ListTools(ctx context.Context, session domain.Session) ([]domain.ToolDescriptor, error) {
	envelope, err := c.call(ctx, session.ID, mcpwire.MethodToolsList, nil)
	if err != nil {
		return nil, err
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("tools/list failed (%d): %s", envelope.Error.Code, envelope.Error.Message)
	}

	var listResult mcp.ListToolsResult
	if err := json.Unmarshal(envelope.Result, &listResult); err != nil {
		return nil, fmt.Errorf("unparseable tools/list result: %w", err)
	}

	tools := make([]domain.ToolDescriptor, 0, len(listResult.Tools))
	for _, tool := range listResult.Tools {
		descriptor, err := toDescriptor(tool)
		if err != nil {
			c.logger.Warn("Skipping tool with unusable schema",
				slog.String("tool_name", tool.Name), slog.Any("error", err))
			continue
		}
		tools = append(tools, descriptor)
	}
	c.logger.Debug("Fetched tool listing", slog.Int("count", len(tools)))
	return tools, nil
}

// toDescriptor converts the mcp-go tool type into the bridge's descriptor.
// The input schema round-trips through JSON because mcp.ToolInputSchema keeps
// property schemas as untyped maps.
func toDescriptor(tool mcp.Tool) (domain.ToolDescriptor, error) {
	raw, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return domain.ToolDescriptor{}, fmt.Errorf("marshal input schema: %w", err)
	}
	var schema domain.JSONSchemaProps
	if err := json.Unmarshal(raw, &schema); err != nil {
		return domain.ToolDescriptor{}, fmt.Errorf("decode input schema: %w", err)
	}
	return domain.ToolDescriptor{
		QualifiedName: tool.Name,
		Description:   tool.Description,
		InputSchema:   schema,
	}, nil
}

// CallTool forwards one tools/call envelope and returns the correlated reply.
func (c *Client) CallTool(ctx context.Context, session domain.Session, name string, args map[string]interface{}) (*mcpwire.Response, error) {
	if !session.Valid() {
		return nil, usecase.ErrNoSession
	}

	ctx, span := c.tracer.Start(ctx, "mcp.tools/call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("mcp.tool", name)))
	defer span.End()

	envelope, err := c.call(ctx, session.ID, mcpwire.MethodToolsCall, mcpwire.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, c.failSpan(span, err)
	}
	return envelope, nil
}

// call sends one correlated request envelope and decodes the reply.
func (c *Client) call(ctx context.Context, sessionID, method string, params interface{}) (*mcpwire.Response, error) {
	correlationID := uuid.NewString()

	resp, err := c.post(ctx, sessionID, mcpwire.NewRequest(correlationID, method, params))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, sessionID); err != nil {
		return nil, err
	}
	return c.decodeEnvelope(resp, correlationID)
}

// post marshals the envelope and executes the HTTP request with the required
// negotiation headers. Callers own the response body.
func (c *Client) post(ctx context.Context, sessionID string, envelope *mcpwire.Request) (*http.Response, error) {
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, sessionID)

	c.logger.Debug("Dispatching envelope",
		slog.String("method", envelope.Method),
		slog.String("session_id", sessionID))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request execution failed: %w", err)
	}
	return resp, nil
}

func (c *Client) setHeaders(req *http.Request, sessionID string) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	// Both negotiation headers are mandatory; the downstream answers 406 when
	// either is missing or too narrow.
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", acceptBoth)
	if sessionID != "" {
		req.Header.Set(HeaderSessionID, sessionID)
	}
}

// checkStatus maps non-success HTTP statuses onto the transport's sentinel
// errors. 406 means the downstream rejected the content negotiation; 400/404
// on a session-bearing call means the downstream no longer knows the session.
func (c *Client) checkStatus(resp *http.Response, sessionID string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(body))
	c.logger.Warn("Downstream returned non-success status",
		slog.Int("status_code", resp.StatusCode),
		slog.String("body", detail))

	switch {
	case resp.StatusCode == http.StatusNotAcceptable:
		return fmt.Errorf("%w: HTTP 406: %s", usecase.ErrNotAcceptable, detail)
	case sessionID != "" && (resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound):
		return fmt.Errorf("%w: HTTP %d: %s", usecase.ErrNoSession, resp.StatusCode, detail)
	default:
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, detail)
	}
}

// decodeEnvelope normalizes both reply formats into a single envelope. A
// streamed body may interleave unrelated frames; the first envelope
// correlated to the request wins and duplicates are ignored.
func (c *Client) decodeEnvelope(resp *http.Response, correlationID string) (*mcpwire.Response, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, contentTypeEventStream):
		envelopes := DecodeEventStream(body)
		envelope, ok := firstMatching(envelopes, correlationID)
		if !ok {
			return nil, fmt.Errorf("%w: no envelope matched correlation id %s", usecase.ErrMalformedEnvelope, correlationID)
		}
		return envelope, nil
	case strings.Contains(contentType, contentTypeJSON):
		var envelope mcpwire.Response
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", usecase.ErrMalformedEnvelope, err)
		}
		return &envelope, nil
	default:
		return nil, fmt.Errorf("%w: unexpected content type %q", usecase.ErrMalformedEnvelope, contentType)
	}
}

func (c *Client) failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
	return err
}
