package todos

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CreateUserArgument defines create_user parameters.
type CreateUserArgument struct {
	Name  string `json:"name,omitempty" jsonschema_description:"Display name"`
	Email string `json:"email" jsonschema_description:"Unique email address"`
}

// CreateTodoArgument defines create_todo parameters.
type CreateTodoArgument struct {
	Content   string `json:"content" jsonschema_description:"Todo text"`
	DueDate   string `json:"dueDate" jsonschema_description:"Due date, RFC 3339 or YYYY-MM-DD"`
	Completed bool   `json:"completed,omitempty" jsonschema_description:"Initial completed flag"`
	UserID    int64  `json:"userId" jsonschema_description:"ID of the owning user"`
}

// CreateCommentArgument defines create_comment parameters.
type CreateCommentArgument struct {
	Content string `json:"content" jsonschema_description:"Comment text"`
	TodoID  int64  `json:"todoId" jsonschema_description:"ID of the commented todo"`
}

// TodoIDArgument identifies a single todo.
type TodoIDArgument struct {
	ID int64 `json:"id" jsonschema_description:"Todo ID"`
}

// TodoCommentsArgument defines todo_comments parameters.
type TodoCommentsArgument struct {
	TodoID int64 `json:"todoId" jsonschema_description:"Todo ID"`
}

// PageArgument defines listing parameters.
type PageArgument struct {
	Skip  int `json:"skip,omitempty" jsonschema_description:"Number of records to skip"`
	Limit int `json:"limit,omitempty" jsonschema_description:"Maximum number of records (default 100)"`
}

// UserTodosArgument defines user_todos parameters.
type UserTodosArgument struct {
	UserID int64 `json:"userId" jsonschema_description:"User ID"`
	Skip   int   `json:"skip,omitempty" jsonschema_description:"Number of records to skip"`
	Limit  int   `json:"limit,omitempty" jsonschema_description:"Maximum number of records (default 100)"`
}

// DueDateArgument defines all_todos_count_by_due_date parameters.
type DueDateArgument struct {
	DueDate string `json:"dueDate" jsonschema_description:"Day to match (UTC), RFC 3339 or YYYY-MM-DD"`
}

// TodosByDueDateArgument defines todos_by_due_date parameters.
type TodosByDueDateArgument struct {
	DueDate string `json:"dueDate" jsonschema_description:"Day to match (UTC), RFC 3339 or YYYY-MM-DD"`
	Skip    int    `json:"skip,omitempty" jsonschema_description:"Number of records to skip"`
	Limit   int    `json:"limit,omitempty" jsonschema_description:"Maximum number of records (default 100)"`
}

// NoArgument is the input of tools without parameters.
type NoArgument struct{}

// TodoHandler handles the todo, comment and user MCP tools.
type TodoHandler struct {
	service *Service
}

// NewTodoHandler creates a new todo handler.
func NewTodoHandler(service *Service) *TodoHandler {
	return &TodoHandler{
		service: service,
	}
}

// CreateUser handles create_user.
func (h *TodoHandler) CreateUser(ctx context.Context, req *mcp.CallToolRequest, args CreateUserArgument) (*mcp.CallToolResult, any, error) {
	in := CreateUserInput{Email: args.Email}
	if args.Name != "" {
		in.Name = &args.Name
	}

	user, err := h.service.CreateUser(ctx, in)
	if err != nil {
		return errorResult("Failed to create user: %s", err), nil, nil
	}
	return jsonResult(user), nil, nil
}

// CreateTodo handles create_todo.
func (h *TodoHandler) CreateTodo(ctx context.Context, req *mcp.CallToolRequest, args CreateTodoArgument) (*mcp.CallToolResult, any, error) {
	dueDate, err := parseDueDate(args.DueDate)
	if err != nil {
		return errorResult("Failed to create todo: %s", err), nil, nil
	}

	created, err := h.service.CreateTodo(ctx, CreateTodoInput{
		Content:   args.Content,
		DueDate:   dueDate,
		Completed: args.Completed,
		UserID:    args.UserID,
	})
	if err != nil {
		return errorResult("Failed to create todo: %s", err), nil, nil
	}
	return createdResult(created), nil, nil
}

// CreateComment handles create_comment.
func (h *TodoHandler) CreateComment(ctx context.Context, req *mcp.CallToolRequest, args CreateCommentArgument) (*mcp.CallToolResult, any, error) {
	created, err := h.service.CreateComment(ctx, CreateCommentInput{
		Content: args.Content,
		TodoID:  args.TodoID,
	})
	if err != nil {
		return errorResult("Failed to create comment: %s", err), nil, nil
	}
	return createdResult(created), nil, nil
}

// ToggleTodoCompleted handles toggle_todo_completed.
func (h *TodoHandler) ToggleTodoCompleted(ctx context.Context, req *mcp.CallToolRequest, args TodoIDArgument) (*mcp.CallToolResult, any, error) {
	todo, err := h.service.ToggleTodoCompleted(ctx, args.ID)
	if err != nil {
		return errorResult("Failed to toggle todo: %s", err), nil, nil
	}
	return jsonResult(todo), nil, nil
}

// DeleteTodo handles delete_todo.
func (h *TodoHandler) DeleteTodo(ctx context.Context, req *mcp.CallToolRequest, args TodoIDArgument) (*mcp.CallToolResult, any, error) {
	todo, err := h.service.DeleteTodo(ctx, args.ID)
	if err != nil {
		return errorResult("Failed to delete todo: %s", err), nil, nil
	}
	return jsonResult(todo), nil, nil
}

// DeleteAllTodos handles delete_all_todos.
func (h *TodoHandler) DeleteAllTodos(ctx context.Context, req *mcp.CallToolRequest, args NoArgument) (*mcp.CallToolResult, any, error) {
	count, err := h.service.DeleteAllTodos(ctx)
	if err != nil {
		return errorResult("Failed to delete todos: %s", err), nil, nil
	}
	return jsonResult(count), nil, nil
}

// AllUsers handles all_users.
func (h *TodoHandler) AllUsers(ctx context.Context, req *mcp.CallToolRequest, args PageArgument) (*mcp.CallToolResult, any, error) {
	users, err := h.service.AllUsers(ctx, Page{Skip: args.Skip, Limit: args.Limit})
	if err != nil {
		return errorResult("Failed to list users: %s", err), nil, nil
	}
	return jsonResult(users), nil, nil
}

// UserTodos handles user_todos.
func (h *TodoHandler) UserTodos(ctx context.Context, req *mcp.CallToolRequest, args UserTodosArgument) (*mcp.CallToolResult, any, error) {
	todos, err := h.service.UserTodos(ctx, args.UserID, Page{Skip: args.Skip, Limit: args.Limit})
	if err != nil {
		return errorResult("Failed to list user todos: %s", err), nil, nil
	}
	return jsonResult(todos), nil, nil
}

// AllTodos handles all_todos.
func (h *TodoHandler) AllTodos(ctx context.Context, req *mcp.CallToolRequest, args PageArgument) (*mcp.CallToolResult, any, error) {
	todos, err := h.service.AllTodos(ctx, Page{Skip: args.Skip, Limit: args.Limit})
	if err != nil {
		return errorResult("Failed to list todos: %s", err), nil, nil
	}
	return jsonResult(todos), nil, nil
}

// GetTodo handles get_todo. The result is a list of zero or one todo.
func (h *TodoHandler) GetTodo(ctx context.Context, req *mcp.CallToolRequest, args TodoIDArgument) (*mcp.CallToolResult, any, error) {
	todos, err := h.service.Todo(ctx, args.ID)
	if err != nil {
		return errorResult("Failed to get todo: %s", err), nil, nil
	}
	return jsonResult(todos), nil, nil
}

// TodoComments handles todo_comments.
func (h *TodoHandler) TodoComments(ctx context.Context, req *mcp.CallToolRequest, args TodoCommentsArgument) (*mcp.CallToolResult, any, error) {
	comments, err := h.service.TodoComments(ctx, args.TodoID)
	if err != nil {
		return errorResult("Failed to list comments: %s", err), nil, nil
	}
	return jsonResult(comments), nil, nil
}

// CountTodos handles all_todos_count.
func (h *TodoHandler) CountTodos(ctx context.Context, req *mcp.CallToolRequest, args NoArgument) (*mcp.CallToolResult, any, error) {
	count, err := h.service.CountTodos(ctx)
	if err != nil {
		return errorResult("Failed to count todos: %s", err), nil, nil
	}
	return jsonResult(count), nil, nil
}

// CountTodosByDueDate handles all_todos_count_by_due_date.
func (h *TodoHandler) CountTodosByDueDate(ctx context.Context, req *mcp.CallToolRequest, args DueDateArgument) (*mcp.CallToolResult, any, error) {
	day, err := parseDueDate(args.DueDate)
	if err != nil {
		return errorResult("Failed to count todos: %s", err), nil, nil
	}
	count, err := h.service.CountTodosByDueDate(ctx, day)
	if err != nil {
		return errorResult("Failed to count todos: %s", err), nil, nil
	}
	return jsonResult(count), nil, nil
}

// TodosByDueDate handles todos_by_due_date.
func (h *TodoHandler) TodosByDueDate(ctx context.Context, req *mcp.CallToolRequest, args TodosByDueDateArgument) (*mcp.CallToolResult, any, error) {
	day, err := parseDueDate(args.DueDate)
	if err != nil {
		return errorResult("Failed to list todos: %s", err), nil, nil
	}
	todos, err := h.service.TodosByDueDate(ctx, day, Page{Skip: args.Skip, Limit: args.Limit})
	if err != nil {
		return errorResult("Failed to list todos: %s", err), nil, nil
	}
	return jsonResult(todos), nil, nil
}

// RegisterTodoTools registers the todo, comment and user tools with an MCP server.
func RegisterTodoTools(server *mcp.Server, service *Service) {
	h := NewTodoHandler(service)

	mcp.AddTool(server, &mcp.Tool{Name: "create_user", Description: "Create a user"}, h.CreateUser)
	mcp.AddTool(server, &mcp.Tool{Name: "create_todo", Description: "Create a todo for a user and index it for search"}, h.CreateTodo)
	mcp.AddTool(server, &mcp.Tool{Name: "create_comment", Description: "Comment on a todo and add the comment to its search document"}, h.CreateComment)
	mcp.AddTool(server, &mcp.Tool{Name: "toggle_todo_completed", Description: "Flip the completed flag of a todo"}, h.ToggleTodoCompleted)
	mcp.AddTool(server, &mcp.Tool{Name: "delete_todo", Description: "Delete a todo and its comments"}, h.DeleteTodo)
	mcp.AddTool(server, &mcp.Tool{Name: "delete_all_todos", Description: "Delete every todo and comment, returning the deleted count"}, h.DeleteAllTodos)
	mcp.AddTool(server, &mcp.Tool{Name: "all_users", Description: "List users by ID"}, h.AllUsers)
	mcp.AddTool(server, &mcp.Tool{Name: "user_todos", Description: "List the todos of a user, most recently updated first"}, h.UserTodos)
	mcp.AddTool(server, &mcp.Tool{Name: "all_todos", Description: "List todos, newest first"}, h.AllTodos)
	mcp.AddTool(server, &mcp.Tool{Name: "get_todo", Description: "Get a todo by ID as a list of zero or one todo"}, h.GetTodo)
	mcp.AddTool(server, &mcp.Tool{Name: "todo_comments", Description: "List the comments of a todo in creation order"}, h.TodoComments)
	mcp.AddTool(server, &mcp.Tool{Name: "all_todos_count", Description: "Count all todos"}, h.CountTodos)
	mcp.AddTool(server, &mcp.Tool{Name: "all_todos_count_by_due_date", Description: "Count the todos due on a UTC day"}, h.CountTodosByDueDate)
	mcp.AddTool(server, &mcp.Tool{Name: "todos_by_due_date", Description: "List the todos due on a UTC day, newest first"}, h.TodosByDueDate)
}
