package store

import (
	"context"

	"github.com/sha1n/mcp-todo-server/internal/domain"
)

// CreateUser inserts a user.
func (s *Store) CreateUser(ctx context.Context, name *string, email string) (*domain.User, error) {
	user := &domain.User{Name: name, Email: email}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, writeFailed("create user", err)
	}
	return user, nil
}

// AllUsers lists users ordered by ID.
func (s *Store) AllUsers(ctx context.Context, skip, limit int) ([]domain.User, error) {
	var users []domain.User
	err := s.db.WithContext(ctx).
		Order("id asc").
		Offset(skip).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UserTodos lists the todos of a user, most recently updated first.
func (s *Store) UserTodos(ctx context.Context, userID int64, skip, limit int) ([]domain.Todo, error) {
	var todos []domain.Todo
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Offset(skip).
		Limit(limit).
		Find(&todos).Error
	if err != nil {
		return nil, err
	}
	return todos, nil
}
