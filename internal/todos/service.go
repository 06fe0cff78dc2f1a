package todos

import (
	"context"
	"log/slog"
	"time"

	"github.com/sha1n/mcp-todo-server/internal/domain"
	"github.com/sha1n/mcp-todo-server/internal/searchindex"
	"github.com/sha1n/mcp-todo-server/internal/store"
)

// Created is the outcome of a mutation that is mirrored into the search index.
// The record is committed even when SyncErr is set.
type Created[T any] struct {
	Record  *T
	SyncErr error
}

// Service exposes the todo operations. Mutations write the store first and
// then project content changes into the search index.
type Service struct {
	store  *store.Store
	sync   *Synchronizer
	finder *Finder
	logger *slog.Logger
}

// NewService wires a service over an open store and search gateway.
func NewService(st *store.Store, gateway searchindex.Gateway, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		sync:   NewSynchronizer(gateway, logger),
		finder: NewFinder(gateway, logger),
		logger: logger,
	}
}

// CreateUser creates a user. Users are not indexed.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	return s.store.CreateUser(ctx, in.Name, in.Email)
}

// CreateTodo creates a todo and upserts its search document.
func (s *Service) CreateTodo(ctx context.Context, in CreateTodoInput) (Created[domain.Todo], error) {
	if err := validateStruct(in); err != nil {
		return Created[domain.Todo]{}, err
	}

	todo, err := s.store.CreateTodo(ctx, store.NewTodo{
		Content:   in.Content,
		DueDate:   in.DueDate,
		Completed: in.Completed,
		UserID:    in.UserID,
	})
	if err != nil {
		return Created[domain.Todo]{}, err
	}

	return Created[domain.Todo]{Record: todo, SyncErr: s.sync.TodoCreated(ctx, todo)}, nil
}

// CreateComment creates a comment and appends it to the search document of its todo.
func (s *Service) CreateComment(ctx context.Context, in CreateCommentInput) (Created[domain.Comment], error) {
	if err := validateStruct(in); err != nil {
		return Created[domain.Comment]{}, err
	}

	comment, err := s.store.CreateComment(ctx, in.Content, in.TodoID)
	if err != nil {
		return Created[domain.Comment]{}, err
	}

	return Created[domain.Comment]{Record: comment, SyncErr: s.sync.CommentCreated(ctx, comment)}, nil
}

// ToggleTodoCompleted flips the completed flag. The search document is not affected.
func (s *Service) ToggleTodoCompleted(ctx context.Context, id int64) (*domain.Todo, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.store.ToggleTodoCompleted(ctx, id)
}

// DeleteTodo deletes a todo and its comments from the store.
// Its search document is left in place until the next reindex.
func (s *Service) DeleteTodo(ctx context.Context, id int64) (*domain.Todo, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.store.DeleteTodo(ctx, id)
}

// DeleteAllTodos deletes every todo and comment from the store.
func (s *Service) DeleteAllTodos(ctx context.Context) (domain.Count, error) {
	return s.store.DeleteAllTodos(ctx)
}

// AllUsers lists users by ID.
func (s *Service) AllUsers(ctx context.Context, page Page) ([]domain.User, error) {
	if err := validateStruct(page); err != nil {
		return nil, err
	}
	return s.store.AllUsers(ctx, page.Skip, page.limit())
}

// UserTodos lists the todos of a user, most recently updated first.
func (s *Service) UserTodos(ctx context.Context, userID int64, page Page) ([]domain.Todo, error) {
	if err := validateID(userID); err != nil {
		return nil, err
	}
	if err := validateStruct(page); err != nil {
		return nil, err
	}
	return s.store.UserTodos(ctx, userID, page.Skip, page.limit())
}

// AllTodos lists todos, newest first.
func (s *Service) AllTodos(ctx context.Context, page Page) ([]domain.Todo, error) {
	if err := validateStruct(page); err != nil {
		return nil, err
	}
	return s.store.AllTodos(ctx, page.Skip, page.limit())
}

// Todo returns the todo with the given ID as a list of zero or one element.
func (s *Service) Todo(ctx context.Context, id int64) ([]domain.Todo, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.store.TodoByID(ctx, id)
}

// TodoComments lists the comments of a todo in creation order.
func (s *Service) TodoComments(ctx context.Context, todoID int64) ([]domain.Comment, error) {
	if err := validateID(todoID); err != nil {
		return nil, err
	}
	return s.store.TodoComments(ctx, todoID)
}

// CountTodos counts all todos.
func (s *Service) CountTodos(ctx context.Context) (domain.Count, error) {
	return s.store.CountTodos(ctx)
}

// CountTodosByDueDate counts the todos due on the UTC day of day.
func (s *Service) CountTodosByDueDate(ctx context.Context, day time.Time) (domain.Count, error) {
	return s.store.CountTodosByDueDate(ctx, day)
}

// TodosByDueDate lists the todos due on the UTC day of day, newest first.
func (s *Service) TodosByDueDate(ctx context.Context, day time.Time, page Page) ([]domain.Todo, error) {
	if err := validateStruct(page); err != nil {
		return nil, err
	}
	return s.store.TodosByDueDate(ctx, day, page.Skip, page.limit())
}

// Search matches term against todo text and comments. It reads the index only.
func (s *Service) Search(ctx context.Context, term string) ([]domain.SearchResult, error) {
	return s.finder.FindByTerm(ctx, term)
}
