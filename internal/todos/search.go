package todos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sha1n/mcp-todo-server/internal/domain"
	"github.com/sha1n/mcp-todo-server/internal/searchindex"
)

var errMissingField = errors.New("missing required field")

// Finder runs term searches and projects raw hits into SearchResults.
type Finder struct {
	gateway searchindex.Gateway
	logger  *slog.Logger
}

// NewFinder creates a finder reading from the given gateway.
func NewFinder(gateway searchindex.Gateway, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{
		gateway: gateway,
		logger:  logger.With("component", "finder"),
	}
}

// FindByTerm returns the todos whose text or any single comment matches term, in relevance order.
// Unreadable hits are logged and skipped. The result is never nil.
func (f *Finder) FindByTerm(ctx context.Context, term string) ([]domain.SearchResult, error) {
	hits, err := f.gateway.Search(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		result, err := project(hit)
		if err != nil {
			f.logger.WarnContext(ctx, "Skipping search hit", "hit_id", hit.ID, "term", term, "error", err)
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// hitSource is the strict view of a hit source; pointers tell absent from zero.
type hitSource struct {
	Todo     *string               `json:"todo"`
	TodoID   *int64                `json:"todoId"`
	Comments []domain.CommentEntry `json:"comments"`
}

func project(hit searchindex.Hit) (domain.SearchResult, error) {
	if hit.Err != nil {
		return domain.SearchResult{}, hit.Err
	}
	if len(hit.Source) == 0 {
		return domain.SearchResult{}, fmt.Errorf("%w: _source", errMissingField)
	}

	var src hitSource
	if err := json.Unmarshal(hit.Source, &src); err != nil {
		return domain.SearchResult{}, fmt.Errorf("failed to decode hit: %w", err)
	}
	if src.TodoID == nil {
		return domain.SearchResult{}, fmt.Errorf("%w: %s", errMissingField, domain.SearchFieldTodoID)
	}
	if src.Todo == nil {
		return domain.SearchResult{}, fmt.Errorf("%w: %s", errMissingField, domain.SearchFieldTodo)
	}

	comments := src.Comments
	if comments == nil {
		comments = []domain.CommentEntry{}
	}

	return domain.SearchResult{
		ID:       *src.TodoID,
		TodoID:   *src.TodoID,
		Content:  *src.Todo,
		Comments: comments,
	}, nil
}
