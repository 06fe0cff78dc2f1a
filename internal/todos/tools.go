package todos

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// dueDateLayouts are the accepted due date formats, tried in order.
var dueDateLayouts = []string{time.RFC3339, time.DateOnly}

// RegisterTools registers every todo tool with an MCP server.
func RegisterTools(server *mcp.Server, service *Service) {
	RegisterSearchTool(server, service)
	RegisterTodoTools(server, service)
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
		IsError: true,
	}
}

// jsonResult renders v as indented JSON text content.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Failed to encode result: %s", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}
}

// createdResult renders the committed record and, when the index could not be
// updated, a second warning block. The call still succeeds.
func createdResult[T any](c Created[T]) *mcp.CallToolResult {
	res := jsonResult(c.Record)
	if c.SyncErr != nil && !res.IsError {
		res.Content = append(res.Content, &mcp.TextContent{
			Text: fmt.Sprintf("Warning: saved, but the search index was not updated: %s", c.SyncErr),
		})
	}
	return res
}

func parseDueDate(s string) (time.Time, error) {
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: dueDate must be RFC 3339 or YYYY-MM-DD, got %q", ErrInvalidInput, s)
}
