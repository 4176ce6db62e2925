package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/domain"
	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/usecase"
)

// Handlers exposes the bridge's operations as a JSON API for the testing
// page: establish/terminate the session, list tools, derive form fields from
// a tool's schema, and execute a call.
//
// The current session is the one piece of shared state. It is written only
// on establish/terminate and read by every other handler, so a plain RWMutex
// realizes the single-writer/multiple-reader discipline.
type Handlers struct {
	establishUC      *usecase.EstablishSessionUseCase
	listUC           *usecase.ListToolsUseCase
	invokeUC         *usecase.InvokeToolUseCase
	handshakeTimeout time.Duration
	logger           *slog.Logger

	mu      sync.RWMutex
	session domain.Session
}

// NewHandlers creates a new Handlers struct.
func NewHandlers(
	establishUC *usecase.EstablishSessionUseCase,
	listUC *usecase.ListToolsUseCase,
	invokeUC *usecase.InvokeToolUseCase,
	handshakeTimeout time.Duration,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		establishUC:      establishUC,
		listUC:           listUC,
		invokeUC:         invokeUC,
		handshakeTimeout: handshakeTimeout,
		logger:           logger.With("component", "webapi_handler"),
	}
}

// Router assembles the chi router with the standard middleware stack.
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// The request budget must outlive the invoke timeout or long tool calls
	// would be cut off by the router instead of reported as TIMEOUT results.
	r.Use(middleware.Timeout(h.invokeUC.Timeout() + 30*time.Second))

	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", h.handleEstablishSession)
		r.Delete("/session", h.handleTerminateSession)
		r.Get("/tools", h.handleListTools)
		r.Get("/tools/{name}/form", h.handleToolForm)
		r.Post("/tools/{name}/call", h.handleCallTool)
	})

	return r
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEstablishSession implements POST /api/session. A new handshake
// replaces whatever session was active before; the old one is terminated
// best-effort.
func (h *Handlers) handleEstablishSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.handshakeTimeout)
	defer cancel()

	session, err := h.establishUC.Execute(ctx)
	if err != nil {
		h.logger.Warn("Handshake failed", slog.Any("error", err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	h.mu.Lock()
	previous := h.session
	h.session = session
	h.mu.Unlock()

	if previous.Valid() {
		h.establishUC.Terminate(r.Context(), previous)
	}

	writeJSON(w, http.StatusOK, session)
}

// handleTerminateSession implements DELETE /api/session.
func (h *Handlers) handleTerminateSession(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	session := h.session
	h.session = domain.Session{}
	h.mu.Unlock()

	if session.Valid() {
		h.establishUC.Terminate(r.Context(), session)
	}
	w.WriteHeader(http.StatusNoContent)
}

// currentSession snapshots the shared session for one request.
func (h *Handlers) currentSession() domain.Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.session
}

// handleListTools implements GET /api/tools. It refreshes the descriptor
// cache from the downstream on every call.
func (h *Handlers) handleListTools(w http.ResponseWriter, r *http.Request) {
	session := h.currentSession()
	if !session.Valid() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no session established"})
		return
	}

	tools, err := h.listUC.Execute(r.Context(), session)
	if err != nil {
		h.logger.Error("Tool listing failed", slog.Any("error", err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": tools})
}

// handleToolForm implements GET /api/tools/{name}/form. Fields come from the
// cached descriptor so tool selection does not re-query the downstream.
func (h *Handlers) handleToolForm(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	descriptor, err := h.listUC.Find(r.Context(), name)
	if err != nil {
		if errors.Is(err, usecase.ErrToolNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown tool: " + name})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tool":          descriptor.QualifiedName,
		"server_prefix": descriptor.ServerPrefix(),
		"description":   descriptor.Description,
		"fields":        descriptor.FormFields(),
	})
}

// CallRequest defines the expected JSON body for POST /api/tools/{name}/call.
// Every input arrives as a raw string; the argument builder coerces it per
// the tool's schema.
type CallRequest struct {
	Inputs map[string]string `json:"inputs"`
}

// handleCallTool implements POST /api/tools/{name}/call. Validation failures
// answer 422 and never reach the transport. Transport and downstream
// failures are still HTTP 200: the InvocationResult is the payload the
// testing page renders, whatever its status.
func (h *Handlers) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}
	defer r.Body.Close()

	descriptor, err := h.listUC.Find(r.Context(), name)
	if err != nil {
		if errors.Is(err, usecase.ErrToolNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown tool: " + name})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	args, err := usecase.BuildArguments(descriptor.InputSchema, req.Inputs)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": vErr.Error(),
				"kind":  string(vErr.Kind),
				"field": vErr.Field,
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result := h.invokeUC.Execute(r.Context(), h.currentSession(), descriptor.QualifiedName, args)
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
