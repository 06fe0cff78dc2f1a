package searchindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sha1n/mcp-todo-server/internal/config"
	"github.com/sha1n/mcp-todo-server/internal/domain"
)

var (
	// ErrDocumentNotFound indicates a partial update addressed a todo with no search document.
	ErrDocumentNotFound = errors.New("search document not found")

	// ErrWriteFailed indicates an index write (upsert or append) did not complete.
	ErrWriteFailed = errors.New("search index write failed")

	// ErrHitFailed flags a single search hit or response that could not be read.
	ErrHitFailed = errors.New("search hit failed")
)

// Hit is one raw match returned by a Gateway.
type Hit struct {
	// ID is the document ID (the decimal todo ID).
	ID string

	// Score is the relevance score assigned by the index.
	Score float64

	// Source is the stored SearchDocument as JSON.
	Source json.RawMessage

	// Err is set when this hit could not be read; Source is then unusable.
	Err error
}

// Gateway maintains one SearchDocument per todo and searches across todo text and nested comments.
type Gateway interface {
	// EnsureMapping applies the index schema. It is idempotent.
	EnsureMapping(ctx context.Context) error

	// UpsertTodoDocument creates or fully replaces the document of a todo with an empty comment list.
	// The write is visible to searches once the call returns.
	UpsertTodoDocument(ctx context.Context, id int64, content string) error

	// AppendComment atomically appends an entry to the nested comments of an existing document.
	// It returns ErrDocumentNotFound when the todo has no document.
	AppendComment(ctx context.Context, todoID int64, entry domain.CommentEntry) error

	// Document returns the stored document of a todo, or ErrDocumentNotFound.
	Document(ctx context.Context, todoID int64) (*domain.SearchDocument, error)

	// Search matches term against the todo text OR any single nested comment,
	// returning hits in relevance order.
	Search(ctx context.Context, term string) ([]Hit, error)

	// Close releases the gateway resources.
	Close() error
}

// New creates the gateway configured by settings and applies its mapping.
func New(ctx context.Context, settings *config.SearchSettings, logger *slog.Logger) (Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		gw  Gateway
		err error
	)
	switch settings.Backend {
	case config.SearchBackendBleve:
		gw, err = NewBleveGateway(settings.Path, settings.MaxResults, logger)
	case config.SearchBackendElasticsearch:
		gw, err = NewElasticGateway(ElasticOptions{
			Addresses:       settings.Addresses,
			Username:        settings.Username,
			Password:        settings.Password,
			Index:           settings.Index,
			MaxResults:      settings.MaxResults,
			RetryOnConflict: settings.RetryOnConflict,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported search backend: %s", settings.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := gw.EnsureMapping(ctx); err != nil {
		_ = gw.Close()
		return nil, fmt.Errorf("failed to apply search mapping: %w", err)
	}
	return gw, nil
}

// DocumentID returns the search document ID of a todo.
func DocumentID(todoID int64) string {
	return strconv.FormatInt(todoID, 10)
}

func newTodoDocument(id int64, content string) domain.SearchDocument {
	return domain.SearchDocument{
		Todo:     content,
		TodoID:   id,
		Comments: []domain.CommentEntry{},
	}
}

func writeFailed(op string, todoID int64, err error) error {
	return fmt.Errorf("%w: %s todo %d: %w", ErrWriteFailed, op, todoID, err)
}
