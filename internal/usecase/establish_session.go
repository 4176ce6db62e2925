package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/domain"
)

// EstablishSessionUseCase negotiates a fresh session with the downstream
// endpoint. It runs once per logical client; everything else reuses the
// returned session.
type EstablishSessionUseCase struct {
	transport SessionTransport
	logger    *slog.Logger
}

// NewEstablishSessionUseCase creates a new EstablishSessionUseCase.
func NewEstablishSessionUseCase(transport SessionTransport, logger *slog.Logger) *EstablishSessionUseCase {
	return &EstablishSessionUseCase{
		transport: transport,
		logger:    logger.With("usecase", "EstablishSession"),
	}
}

// Execute performs the handshake. All failure modes surface as a
// *domain.HandshakeError.
func (uc *EstablishSessionUseCase) Execute(ctx context.Context) (domain.Session, error) {
	uc.logger.Info("Establishing downstream session")

	session, err := uc.transport.Establish(ctx)
	if err != nil {
		var hsErr *domain.HandshakeError
		if !errors.As(err, &hsErr) {
			err = &domain.HandshakeError{Reason: "transport failure", Err: err}
		}
		uc.logger.Error("Session establishment failed", slog.Any("error", err))
		return domain.Session{}, err
	}

	uc.logger.Info("Session established",
		slog.String("session_id", session.ID),
		slog.String("protocol_version", session.ProtocolVersion))
	return session, nil
}

// Terminate ends the session downstream. Errors are logged and swallowed;
// a session the downstream already forgot is as terminated as it gets.
func (uc *EstablishSessionUseCase) Terminate(ctx context.Context, session domain.Session) {
	if !session.Valid() {
		return
	}
	if err := uc.transport.Terminate(ctx, session); err != nil {
		uc.logger.Warn("Session termination failed", slog.String("session_id", session.ID), slog.Any("error", err))
		return
	}
	uc.logger.Info("Session terminated", slog.String("session_id", session.ID))
}
