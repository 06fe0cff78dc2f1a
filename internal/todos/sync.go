package todos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sha1n/mcp-todo-server/internal/domain"
	"github.com/sha1n/mcp-todo-server/internal/searchindex"
)

// Synchronizer projects committed store writes into the search index.
// Index writes are best-effort: failures are logged and returned, never rolled back.
type Synchronizer struct {
	gateway searchindex.Gateway
	logger  *slog.Logger
}

// NewSynchronizer creates a synchronizer writing through the given gateway.
func NewSynchronizer(gateway searchindex.Gateway, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		gateway: gateway,
		logger:  logger.With("component", "synchronizer"),
	}
}

// TodoCreated upserts the search document of a newly created todo.
func (s *Synchronizer) TodoCreated(ctx context.Context, todo *domain.Todo) error {
	if err := s.gateway.UpsertTodoDocument(ctx, todo.ID, todo.Content); err != nil {
		return s.failed(ctx, "todo", todo.ID, err)
	}
	return nil
}

// CommentCreated appends a newly created comment to the document of its todo.
func (s *Synchronizer) CommentCreated(ctx context.Context, comment *domain.Comment) error {
	if err := s.gateway.AppendComment(ctx, comment.TodoID, domain.NewCommentEntry(comment)); err != nil {
		return s.failed(ctx, "comment", comment.TodoID, err)
	}
	return nil
}

func (s *Synchronizer) failed(ctx context.Context, kind string, todoID int64, err error) error {
	if errors.Is(err, searchindex.ErrDocumentNotFound) {
		s.logger.WarnContext(ctx, "Search document missing, index is out of sync", "kind", kind, "todo_id", todoID, "error", err)
		return fmt.Errorf("sync %s: %w", kind, err)
	}

	s.logger.ErrorContext(ctx, "Failed to sync search index", "kind", kind, "todo_id", todoID, "error", err)
	if !errors.Is(err, searchindex.ErrWriteFailed) {
		err = fmt.Errorf("%w: %w", searchindex.ErrWriteFailed, err)
	}
	return fmt.Errorf("sync %s: %w", kind, err)
}
