package store

import (
	"context"
	"errors"
	"time"

	"github.com/sha1n/mcp-todo-server/internal/domain"
	"gorm.io/gorm"
)

// NewTodo holds the fields required to create a todo.
type NewTodo struct {
	Content   string
	DueDate   time.Time
	Completed bool
	UserID    int64
}

// CreateTodo inserts a todo owned by an existing user.
func (s *Store) CreateTodo(ctx context.Context, in NewTodo) (*domain.Todo, error) {
	todo := &domain.Todo{
		Content:   in.Content,
		DueDate:   in.DueDate.UTC(),
		Completed: in.Completed,
		UserID:    in.UserID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireExists(tx, &domain.User{}, "User", in.UserID); err != nil {
			return err
		}
		return tx.Create(todo).Error
	})
	if err != nil {
		return nil, writeFailed("create todo", err)
	}
	return todo, nil
}

// ToggleTodoCompleted flips the completed flag of a todo.
func (s *Store) ToggleTodoCompleted(ctx context.Context, id int64) (*domain.Todo, error) {
	var todo domain.Todo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&todo, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Todo", id)
			}
			return err
		}
		todo.Completed = !todo.Completed
		return tx.Model(&todo).Update("completed", todo.Completed).Error
	})
	if err != nil {
		return nil, writeFailed("toggle todo", err)
	}
	return &todo, nil
}

// DeleteTodo removes a todo and its comments, returning the deleted todo.
func (s *Store) DeleteTodo(ctx context.Context, id int64) (*domain.Todo, error) {
	var todo domain.Todo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&todo, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Todo", id)
			}
			return err
		}
		if err := tx.Where("todo_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&todo).Error
	})
	if err != nil {
		return nil, writeFailed("delete todo", err)
	}
	return &todo, nil
}

// DeleteAllTodos removes every todo and comment and returns the number of deleted todos.
func (s *Store) DeleteAllTodos(ctx context.Context) (domain.Count, error) {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("1 = 1").Delete(&domain.Todo{})
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return domain.Count{}, writeFailed("delete all todos", err)
	}
	return domain.Count{Count: deleted}, nil
}

// AllTodos lists todos, newest first.
func (s *Store) AllTodos(ctx context.Context, skip, limit int) ([]domain.Todo, error) {
	var todos []domain.Todo
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Offset(skip).
		Limit(limit).
		Find(&todos).Error
	if err != nil {
		return nil, err
	}
	return todos, nil
}

// TodoByID returns the todo with the given ID as a list of zero or one element.
func (s *Store) TodoByID(ctx context.Context, id int64) ([]domain.Todo, error) {
	var todos []domain.Todo
	if err := s.db.WithContext(ctx).Where("id = ?", id).Find(&todos).Error; err != nil {
		return nil, err
	}
	return todos, nil
}

// CountTodos counts all todos.
func (s *Store) CountTodos(ctx context.Context) (domain.Count, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&domain.Todo{}).Count(&n).Error; err != nil {
		return domain.Count{}, err
	}
	return domain.Count{Count: n}, nil
}

// CountTodosByDueDate counts todos due on the UTC day containing dueDate.
func (s *Store) CountTodosByDueDate(ctx context.Context, dueDate time.Time) (domain.Count, error) {
	start, end := dayBounds(dueDate)
	var n int64
	err := s.db.WithContext(ctx).
		Model(&domain.Todo{}).
		Where("due_date >= ? AND due_date <= ?", start, end).
		Count(&n).Error
	if err != nil {
		return domain.Count{}, err
	}
	return domain.Count{Count: n}, nil
}

// TodosByDueDate lists todos due on the UTC day containing dueDate, newest first.
func (s *Store) TodosByDueDate(ctx context.Context, dueDate time.Time, skip, limit int) ([]domain.Todo, error) {
	start, end := dayBounds(dueDate)
	var todos []domain.Todo
	err := s.db.WithContext(ctx).
		Where("due_date >= ? AND due_date <= ?", start, end).
		Order("created_at desc").
		Offset(skip).
		Limit(limit).
		Find(&todos).Error
	if err != nil {
		return nil, err
	}
	return todos, nil
}

// TodosWithComments returns a page of todos with IDs greater than afterID,
// ordered by ID, each with its comments preloaded in creation order.
func (s *Store) TodosWithComments(ctx context.Context, afterID int64, limit int) ([]domain.Todo, error) {
	var todos []domain.Todo
	err := s.db.WithContext(ctx).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("id > ?", afterID).
		Order("id asc").
		Limit(limit).
		Find(&todos).Error
	if err != nil {
		return nil, err
	}
	return todos, nil
}

func requireExists(tx *gorm.DB, model any, kind string, id int64) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}
