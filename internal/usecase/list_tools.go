package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/domain"
)

// ListToolsUseCase fetches the downstream tool listing and refreshes the
// local descriptor repository. Descriptors are immutable; a fresh listing
// replaces the previous one wholesale.
type ListToolsUseCase struct {
	transport  SessionTransport
	repository ToolRepository
	logger     *slog.Logger
}

// NewListToolsUseCase creates a new ListToolsUseCase.
func NewListToolsUseCase(transport SessionTransport, repo ToolRepository, logger *slog.Logger) *ListToolsUseCase {
	return &ListToolsUseCase{
		transport:  transport,
		repository: repo,
		logger:     logger.With("usecase", "ListTools"),
	}
}

// Execute queries the downstream over the given session and stores the result.
func (uc *ListToolsUseCase) Execute(ctx context.Context, session domain.Session) ([]domain.ToolDescriptor, error) {
	if !session.Valid() {
		return nil, ErrNoSession
	}

	tools, err := uc.transport.ListTools(ctx, session)
	if err != nil {
		uc.logger.Error("Failed to list downstream tools", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	if err := uc.repository.Replace(ctx, tools); err != nil {
		uc.logger.Error("Failed to store tool listing", slog.Any("error", err))
		return nil, fmt.Errorf("failed to store tool listing: %w", err)
	}

	uc.logger.Info("Tool listing refreshed", slog.Int("tool_count", len(tools)))
	return tools, nil
}

// Find returns a cached descriptor by qualified name.
func (uc *ListToolsUseCase) Find(ctx context.Context, name string) (*domain.ToolDescriptor, error) {
	return uc.repository.FindByName(ctx, name)
}
