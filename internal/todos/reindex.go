package todos

import (
	"context"
	"errors"
	"fmt"

	"github.com/sha1n/mcp-todo-server/internal/domain"
)

// reindexPageSize is the number of todos loaded per store round trip during a reindex.
const reindexPageSize = 200

// ReindexStats summarizes a reindex run.
type ReindexStats struct {
	Todos    int
	Comments int
	Failed   int
}

// Reindex rebuilds the search document of every todo from the store.
// A todo that fails to sync is counted and skipped; the run continues.
func (s *Service) Reindex(ctx context.Context) (ReindexStats, error) {
	var (
		stats  ReindexStats
		errs   []error
		lastID int64
	)

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		page, err := s.store.TodosWithComments(ctx, lastID, reindexPageSize)
		if err != nil {
			return stats, fmt.Errorf("failed to load todos after %d: %w", lastID, err)
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			todo := &page[i]
			lastID = todo.ID

			if err := s.reindexTodo(ctx, todo); err != nil {
				stats.Failed++
				errs = append(errs, err)
				continue
			}
			stats.Todos++
			stats.Comments += len(todo.Comments)
		}
	}

	s.logger.InfoContext(ctx, "Reindex completed",
		"todos", stats.Todos,
		"comments", stats.Comments,
		"failed", stats.Failed,
	)
	return stats, errors.Join(errs...)
}

// reindexTodo replaces the document of a todo and replays its comments in creation order.
func (s *Service) reindexTodo(ctx context.Context, todo *domain.Todo) error {
	if err := s.sync.TodoCreated(ctx, todo); err != nil {
		return err
	}
	for i := range todo.Comments {
		if err := s.sync.CommentCreated(ctx, &todo.Comments[i]); err != nil {
			return err
		}
	}
	return nil
}
