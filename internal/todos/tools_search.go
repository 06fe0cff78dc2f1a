package todos

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchArgument defines search parameters.
type SearchArgument struct {
	Key string `json:"key" jsonschema_description:"Term matched against todo text and each comment"`
}

// SearchHandler handles the todo_search MCP tool.
type SearchHandler struct {
	service *Service
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service *Service) *SearchHandler {
	return &SearchHandler{
		service: service,
	}
}

// Handle runs the search and returns the results as a JSON list.
// Empty keys are passed through; the index decides what they match.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	results, err := h.service.Search(ctx, args.Key)
	if err != nil {
		return errorResult("Search failed: %s", err), nil, nil
	}
	return jsonResult(results), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "todo_search",
		Description: "Search todos by a term matched against the todo text or any single comment. Each result carries the todo's full comment list.",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, service *Service) {
	handler := NewSearchHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
