package toolcache

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/domain"
	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/usecase"
)

// InMemoryToolRepository holds the downstream's most recent tool listing.
// Descriptors are immutable once fetched, so the cache is replaced wholesale
// on every refresh rather than mutated in place.
// NOTE: This implementation is not persistent and data will be lost on restart.
type InMemoryToolRepository struct {
	mu     sync.RWMutex
	tools  map[string]domain.ToolDescriptor // keyed by qualified name
	logger *slog.Logger
}

// NewInMemoryToolRepository creates a new in-memory repository.
func NewInMemoryToolRepository(logger *slog.Logger) *InMemoryToolRepository {
	return &InMemoryToolRepository{
		tools:  make(map[string]domain.ToolDescriptor),
		logger: logger.With("component", "tool_cache"),
	}
}

// Replace swaps the stored listing for a fresh one. Descriptors with an empty
// qualified name are skipped.
func (r *InMemoryToolRepository) Replace(ctx context.Context, tools []domain.ToolDescriptor) error {
	fresh := make(map[string]domain.ToolDescriptor, len(tools))
	for i, tool := range tools {
		if tool.QualifiedName == "" {
			r.logger.Warn("Skipping descriptor with empty qualified name", slog.Int("index", i))
			continue
		}
		fresh[tool.QualifiedName] = tool
	}

	r.mu.Lock()
	r.tools = fresh
	r.mu.Unlock()

	r.logger.Info("Replaced tool listing", slog.Int("count", len(fresh)))
	return nil
}

// List returns all cached descriptors sorted by qualified name.
func (r *InMemoryToolRepository) List(ctx context.Context) ([]domain.ToolDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]domain.ToolDescriptor, 0, len(r.tools))
	for _, tool := range r.tools {
		list = append(list, tool)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].QualifiedName < list[j].QualifiedName })
	r.logger.Debug("Listed cached tools", slog.Int("count", len(list)))
	return list, nil
}

// FindByName retrieves a descriptor by its qualified name.
func (r *InMemoryToolRepository) FindByName(ctx context.Context, name string) (*domain.ToolDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		r.logger.Warn("Tool descriptor not found", slog.String("tool_name", name))
		return nil, usecase.ErrToolNotFound
	}
	return &tool, nil
}
