package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-todo-server/internal/todos"
)

const instructions = `Manages users, todos and comments.
Use todo_search to find todos whose text or any comment matches a term.
Creating a todo or a comment also updates the search index; if that fails the record is still saved and the result carries a warning.`

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string

	// TodoSvc backs the todo tools. No tools are registered when nil.
	TodoSvc *todos.Service
}

// CreateServer creates the MCP server and registers the todo tools
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &mcp.ServerOptions{
		Instructions: instructions,
	})

	if cfg.TodoSvc != nil {
		todos.RegisterTools(s, cfg.TodoSvc)
	}

	return s
}
