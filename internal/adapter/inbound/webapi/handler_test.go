package webapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/adapter/inbound/webapi"
	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/adapter/outbound/toolcache"
	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/domain"
	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/usecase"
	"github.com/rodrigoscoelho/mcp-anywhere-sub002/pkg/shared/mcpwire"
)

// stubTransport is a function-backed SessionTransport for handler tests.
type stubTransport struct {
	establish func(ctx context.Context) (domain.Session, error)
	terminate func(ctx context.Context, session domain.Session) error
	listTools func(ctx context.Context, session domain.Session) ([]domain.ToolDescriptor, error)
	callTool  func(ctx context.Context, session domain.Session, name string, args map[string]interface{}) (*mcpwire.Response, error)
}

func (s *stubTransport) Establish(ctx context.Context) (domain.Session, error) {
	return s.establish(ctx)
}

func (s *stubTransport) Terminate(ctx context.Context, session domain.Session) error {
	if s.terminate == nil {
		return nil
	}
	return s.terminate(ctx, session)
}

func (s *stubTransport) ListTools(ctx context.Context, session domain.Session) ([]domain.ToolDescriptor, error) {
	return s.listTools(ctx, session)
}

func (s *stubTransport) CallTool(ctx context.Context, session domain.Session, name string, args map[string]interface{}) (*mcpwire.Response, error) {
	return s.callTool(ctx, session, name, args)
}

func float64Ptr(v float64) *float64 { return &v }

var forecastTool = domain.ToolDescriptor{
	QualifiedName: "weather__get_forecast",
	Description:   "Forecast for a city",
	InputSchema: domain.JSONSchemaProps{
		Type: "object",
		Properties: map[string]domain.JSONSchemaProps{
			"city": {Type: "string", Description: "City name"},
			"days": {Type: "integer", Minimum: float64Ptr(1), Maximum: float64Ptr(14)},
		},
		Required: []string{"city"},
	},
}

func newTestHandlers(t *testing.T, transport usecase.SessionTransport) http.Handler {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	repo := toolcache.NewInMemoryToolRepository(logger)

	handlers := webapi.NewHandlers(
		usecase.NewEstablishSessionUseCase(transport, logger),
		usecase.NewListToolsUseCase(transport, repo, logger),
		usecase.NewInvokeToolUseCase(transport, 5*time.Second, logger),
		5*time.Second,
		logger,
	)
	return handlers.Router()
}

func doJSON(t *testing.T, router http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_SessionLifecycle(t *testing.T) {
	session := domain.Session{ID: "sess-1", ProtocolVersion: "2025-03-26", EstablishedAt: time.Now()}
	transport := &stubTransport{
		establish: func(ctx context.Context) (domain.Session, error) { return session, nil },
	}
	router := newTestHandlers(t, transport)

	rec := doJSON(t, router, http.MethodPost, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "sess-1", got.ID)

	rec = doJSON(t, router, http.MethodDelete, "/api/session", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandlers_EstablishFailure(t *testing.T) {
	transport := &stubTransport{
		establish: func(ctx context.Context) (domain.Session, error) {
			return domain.Session{}, &domain.HandshakeError{Reason: "initialize returned HTTP 503"}
		},
	}
	router := newTestHandlers(t, transport)

	rec := doJSON(t, router, http.MethodPost, "/api/session", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "503")
}

func TestHandlers_ListToolsRequiresSession(t *testing.T) {
	transport := &stubTransport{
		establish: func(ctx context.Context) (domain.Session, error) { return domain.Session{}, nil },
	}
	router := newTestHandlers(t, transport)

	rec := doJSON(t, router, http.MethodGet, "/api/tools", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlers_ToolFlow(t *testing.T) {
	session := domain.Session{ID: "sess-1", EstablishedAt: time.Now()}
	transport := &stubTransport{
		establish: func(ctx context.Context) (domain.Session, error) { return session, nil },
		listTools: func(ctx context.Context, s domain.Session) ([]domain.ToolDescriptor, error) {
			return []domain.ToolDescriptor{forecastTool}, nil
		},
		callTool: func(ctx context.Context, s domain.Session, name string, args map[string]interface{}) (*mcpwire.Response, error) {
			assert.Equal(t, "sess-1", s.ID)
			assert.Equal(t, "weather__get_forecast", name)
			assert.Equal(t, map[string]interface{}{"city": "Lisbon", "days": int64(3)}, args)
			return &mcpwire.Response{
				Version: mcpwire.Version,
				Result:  json.RawMessage(`{"content":[{"type":"text","text":"sunny"}]}`),
				ID:      "1",
			}, nil
		},
	}
	router := newTestHandlers(t, transport)

	// Establish, then refresh the listing so the cache is populated.
	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, "/api/session", nil).Code)
	rec := doJSON(t, router, http.MethodGet, "/api/tools", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "weather__get_forecast")

	// Form generation from the cached schema.
	rec = doJSON(t, router, http.MethodGet, "/api/tools/weather__get_forecast/form", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var form struct {
		Tool         string             `json:"tool"`
		ServerPrefix string             `json:"server_prefix"`
		Fields       []domain.FormField `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &form))
	assert.Equal(t, "weather__get_forecast", form.Tool)
	assert.Equal(t, "weather", form.ServerPrefix)
	require.Len(t, form.Fields, 2)
	assert.Equal(t, "city", form.Fields[0].Name) // required fields come first
	assert.True(t, form.Fields[0].Required)
	assert.Equal(t, domain.ParamKindInteger, form.Fields[1].Kind)

	// Execute with valid raw inputs.
	rec = doJSON(t, router, http.MethodPost, "/api/tools/weather__get_forecast/call",
		webapi.CallRequest{Inputs: map[string]string{"city": "Lisbon", "days": "3"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.InvocationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, domain.StatusSuccess, result.Status)
	assert.Contains(t, string(result.Payload), "sunny")

	// Missing required input never reaches the transport.
	rec = doJSON(t, router, http.MethodPost, "/api/tools/weather__get_forecast/call",
		webapi.CallRequest{Inputs: map[string]string{}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), string(domain.ValidationMissingRequired))
	assert.Contains(t, rec.Body.String(), "city")

	// Unknown tools are a 404 on both form and call.
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, http.MethodGet, "/api/tools/nope/form", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, http.MethodPost, "/api/tools/nope/call",
		webapi.CallRequest{Inputs: map[string]string{}}).Code)
}

func TestHandlers_CallWithErrorResultIsStill200(t *testing.T) {
	session := domain.Session{ID: "sess-1", EstablishedAt: time.Now()}
	transport := &stubTransport{
		establish: func(ctx context.Context) (domain.Session, error) { return session, nil },
		listTools: func(ctx context.Context, s domain.Session) ([]domain.ToolDescriptor, error) {
			return []domain.ToolDescriptor{forecastTool}, nil
		},
		callTool: func(ctx context.Context, s domain.Session, name string, args map[string]interface{}) (*mcpwire.Response, error) {
			return nil, usecase.ErrNotAcceptable
		},
	}
	router := newTestHandlers(t, transport)

	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, "/api/session", nil).Code)
	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodGet, "/api/tools", nil).Code)

	rec := doJSON(t, router, http.MethodPost, "/api/tools/weather__get_forecast/call",
		webapi.CallRequest{Inputs: map[string]string{"city": "Lisbon"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.InvocationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, domain.StatusError, result.Status)
	assert.Equal(t, domain.CodeNotAcceptable, result.Code)
}

func TestHandlers_Health(t *testing.T) {
	transport := &stubTransport{
		establish: func(ctx context.Context) (domain.Session, error) { return domain.Session{}, nil },
	}
	router := newTestHandlers(t, transport)

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
