package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/domain"
)

// DefaultInvokeTimeout bounds a tool call when the configuration does not
// say otherwise.
const DefaultInvokeTimeout = 30 * time.Second

// InvokeToolUseCase forwards one named tool call over an established session
// and normalizes whatever comes back (or doesn't) into a terminal
// domain.InvocationResult. It never returns a Go error: every failure class
// is data for the caller to display, and no failure is retried here.
type InvokeToolUseCase struct {
	transport SessionTransport
	timeout   time.Duration
	logger    *slog.Logger
}

// NewInvokeToolUseCase creates a new InvokeToolUseCase. A non-positive
// timeout falls back to DefaultInvokeTimeout.
func NewInvokeToolUseCase(transport SessionTransport, timeout time.Duration, logger *slog.Logger) *InvokeToolUseCase {
	if timeout <= 0 {
		timeout = DefaultInvokeTimeout
	}
	return &InvokeToolUseCase{
		transport: transport,
		timeout:   timeout,
		logger:    logger.With("usecase", "InvokeTool"),
	}
}

// Timeout returns the configured per-call bound.
func (uc *InvokeToolUseCase) Timeout() time.Duration { return uc.timeout }

// Execute dispatches the call and waits up to the configured timeout for a
// terminal outcome. Duration is measured wall-clock from dispatch to that
// outcome and is always reported.
func (uc *InvokeToolUseCase) Execute(ctx context.Context, session domain.Session, toolName string, args map[string]interface{}) domain.InvocationResult {
	log := uc.logger.With(slog.String("tool_name", toolName))
	started := time.Now()

	if !session.Valid() {
		log.Warn("Invocation attempted without a session")
		return domain.ErrorResult(toolName, domain.CodeNoSession, "no session established", started)
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	log.Info("Dispatching tool call", slog.String("session_id", session.ID))
	envelope, err := uc.transport.CallTool(callCtx, session, toolName, args)
	if err != nil {
		result := uc.resultForTransportError(toolName, err, started)
		log.Warn("Tool call failed",
			slog.String("code", result.Code),
			slog.Duration("duration", result.Duration),
			slog.Any("error", err))
		return result
	}

	switch {
	case envelope.Error != nil:
		result := domain.ErrorResult(toolName, domain.CodeDownstreamError, envelope.Error.Message, started)
		result.DownstreamCode = envelope.Error.Code
		log.Info("Tool call returned downstream error",
			slog.Int("downstream_code", envelope.Error.Code),
			slog.Duration("duration", result.Duration))
		return result
	case len(envelope.Result) > 0:
		result := domain.SuccessResult(toolName, envelope.Result, started)
		log.Info("Tool call succeeded", slog.Duration("duration", result.Duration))
		return result
	default:
		// A reply carrying neither result nor error is a protocol violation.
		log.Warn("Envelope carried neither result nor error")
		return domain.ErrorResult(toolName, domain.CodeMalformedEnvelope, "envelope carried neither result nor error", started)
	}
}

func (uc *InvokeToolUseCase) resultForTransportError(toolName string, err error, started time.Time) domain.InvocationResult {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrorResult(toolName, domain.CodeTimeout, "no response within "+uc.timeout.String(), started)
	case errors.Is(err, ErrNotAcceptable):
		return domain.ErrorResult(toolName, domain.CodeNotAcceptable, err.Error(), started)
	case errors.Is(err, ErrNoSession):
		return domain.ErrorResult(toolName, domain.CodeNoSession, err.Error(), started)
	case errors.Is(err, ErrMalformedEnvelope):
		return domain.ErrorResult(toolName, domain.CodeMalformedEnvelope, err.Error(), started)
	default:
		return domain.ErrorResult(toolName, domain.CodeDownstreamError, err.Error(), started)
	}
}
