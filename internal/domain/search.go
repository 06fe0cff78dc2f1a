package domain

import "time"

// IndexName is the default name of the search index holding one SearchDocument per todo.
const IndexName = "todo-comments"

// Search field name constants for consistent field references in queries and mappings.
const (
	SearchFieldTodo           = "todo"
	SearchFieldTodoID         = "todoId"
	SearchFieldComments       = "comments"
	SearchFieldCommentContent = "comments.content"
)

// SearchDocument is the denormalized projection of a todo stored in the search index.
// The document ID is the decimal todo ID.
type SearchDocument struct {
	// Todo is the todo content, analyzed for full-text search.
	Todo string `json:"todo"`

	// TodoID duplicates the document ID so hits can be projected without parsing IDs.
	TodoID int64 `json:"todoId"`

	// Comments holds every comment created against the todo, in append order.
	// It is indexed as a nested field: each entry matches independently.
	Comments []CommentEntry `json:"comments"`
}

// CommentEntry is one element of SearchDocument.Comments.
type CommentEntry struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	TodoID    int64     `json:"todoId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewCommentEntry projects a stored comment into its search representation.
func NewCommentEntry(c *Comment) CommentEntry {
	return CommentEntry{
		ID:        c.ID,
		Content:   c.Content,
		TodoID:    c.TodoID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// SearchResult is the API-facing shape of one search match.
type SearchResult struct {
	ID       int64          `json:"id"`
	TodoID   int64          `json:"todoId"`
	Content  string         `json:"content"`
	Type     string         `json:"type,omitempty"`
	Comments []CommentEntry `json:"comments"`
}
