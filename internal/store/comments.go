package store

import (
	"context"

	"github.com/sha1n/mcp-todo-server/internal/domain"
	"gorm.io/gorm"
)

// CreateComment inserts a comment on an existing todo.
func (s *Store) CreateComment(ctx context.Context, content string, todoID int64) (*domain.Comment, error) {
	comment := &domain.Comment{Content: content, TodoID: todoID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireExists(tx, &domain.Todo{}, "Todo", todoID); err != nil {
			return err
		}
		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, writeFailed("create comment", err)
	}
	return comment, nil
}

// TodoComments lists the comments of a todo in creation order.
func (s *Store) TodoComments(ctx context.Context, todoID int64) ([]domain.Comment, error) {
	var comments []domain.Comment
	err := s.db.WithContext(ctx).
		Where("todo_id = ?", todoID).
		Order("id asc").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}
