package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/sha1n/mcp-todo-server/internal/domain"
)

// appendCommentsScript appends params.comments to the nested comments of the stored source.
const appendCommentsScript = "ctx._source.comments.addAll(params.comments)"

const (
	errTypeDocumentMissing = "document_missing_exception"
	errTypeIndexNotFound   = "index_not_found_exception"
)

// ElasticOptions configures an ElasticGateway.
type ElasticOptions struct {
	Addresses       []string
	Username        string
	Password        string
	Index           string
	MaxResults      int
	RetryOnConflict int

	// Transport overrides the HTTP transport, used by tests.
	Transport http.RoundTripper
}

// ElasticGateway is a Gateway backed by an Elasticsearch cluster.
type ElasticGateway struct {
	es     *elasticsearch.Client
	opts   ElasticOptions
	logger *slog.Logger
}

// NewElasticGateway creates a client for the configured cluster. No request is sent until first use.
func NewElasticGateway(opts ElasticOptions, logger *slog.Logger) (*ElasticGateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Index == "" {
		opts.Index = domain.IndexName
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: opts.Addresses,
		Username:  opts.Username,
		Password:  opts.Password,
		Transport: opts.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticGateway{
		es:     es,
		opts:   opts,
		logger: logger.With("component", "elastic-gateway", "index", opts.Index),
	}, nil
}

// Mapping returns the index mapping: todo text, numeric todoId and nested comments.
func Mapping() map[string]any {
	return map[string]any{
		"properties": map[string]any{
			domain.SearchFieldTodo:   map[string]any{"type": "text"},
			domain.SearchFieldTodoID: map[string]any{"type": "integer"},
			domain.SearchFieldComments: map[string]any{
				"type": "nested",
				"properties": map[string]any{
					"content": map[string]any{"type": "text"},
					"id":      map[string]any{"type": "integer"},
				},
			},
		},
	}
}

// EnsureMapping creates the index with its mapping, or puts the mapping on an existing index.
func (g *ElasticGateway) EnsureMapping(ctx context.Context) error {
	res, err := g.es.Indices.Exists([]string{g.opts.Index}, g.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	_ = drain(res)

	switch res.StatusCode {
	case http.StatusOK:
		res, err = g.es.Indices.PutMapping(
			[]string{g.opts.Index},
			esutil.NewJSONReader(Mapping()),
			g.es.Indices.PutMapping.WithContext(ctx),
		)
		if err != nil {
			return fmt.Errorf("failed to put mapping: %w", err)
		}
	case http.StatusNotFound:
		res, err = g.es.Indices.Create(
			g.opts.Index,
			g.es.Indices.Create.WithBody(esutil.NewJSONReader(map[string]any{"mappings": Mapping()})),
			g.es.Indices.Create.WithContext(ctx),
		)
		if err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	default:
		return fmt.Errorf("failed to check index: unexpected status %d", res.StatusCode)
	}

	if err := responseError(res); err != nil {
		return fmt.Errorf("failed to apply mapping: %w", err)
	}
	g.logger.Debug("Index mapping applied")
	return nil
}

// UpsertTodoDocument indexes the todo document with refresh so it is searchable on return.
func (g *ElasticGateway) UpsertTodoDocument(ctx context.Context, id int64, content string) error {
	res, err := g.es.Index(
		g.opts.Index,
		esutil.NewJSONReader(newTodoDocument(id, content)),
		g.es.Index.WithDocumentID(DocumentID(id)),
		g.es.Index.WithRefresh("true"),
		g.es.Index.WithContext(ctx),
	)
	if err != nil {
		return writeFailed("upsert", id, err)
	}
	if err := responseError(res); err != nil {
		return writeFailed("upsert", id, err)
	}
	return nil
}

// AppendComment runs the append script server-side, retrying on version conflicts.
func (g *ElasticGateway) AppendComment(ctx context.Context, todoID int64, entry domain.CommentEntry) error {
	body := map[string]any{
		"script": map[string]any{
			"source": appendCommentsScript,
			"lang":   "painless",
			"params": map[string]any{
				domain.SearchFieldComments: []domain.CommentEntry{entry},
			},
		},
	}

	res, err := g.es.Update(
		g.opts.Index,
		DocumentID(todoID),
		esutil.NewJSONReader(body),
		g.es.Update.WithRefresh("true"),
		g.es.Update.WithRetryOnConflict(g.opts.RetryOnConflict),
		g.es.Update.WithContext(ctx),
	)
	if err != nil {
		return writeFailed("append comment to", todoID, err)
	}
	if res.StatusCode == http.StatusNotFound {
		// A missing index also answers 404 and is a write failure, not a missing document
		errType := errorType(res)
		if errType == errTypeDocumentMissing {
			return fmt.Errorf("%w: todo %d", ErrDocumentNotFound, todoID)
		}
		return writeFailed("append comment to", todoID, fmt.Errorf("elasticsearch returned 404 (%s)", errType))
	}
	if err := responseError(res); err != nil {
		return writeFailed("append comment to", todoID, err)
	}
	return nil
}

// Document fetches the stored source of a todo document.
func (g *ElasticGateway) Document(ctx context.Context, todoID int64) (*domain.SearchDocument, error) {
	res, err := g.es.Get(g.opts.Index, DocumentID(todoID), g.es.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get todo %d: %w", todoID, err)
	}
	if res.StatusCode == http.StatusNotFound {
		if errType := errorType(res); errType == errTypeIndexNotFound {
			return nil, fmt.Errorf("failed to get todo %d: %s", todoID, errType)
		}
		return nil, fmt.Errorf("%w: todo %d", ErrDocumentNotFound, todoID)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("failed to get todo %d: %s", todoID, res.String())
	}

	var out struct {
		Source domain.SearchDocument `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode todo %d: %w", todoID, err)
	}
	return &out.Source, nil
}

// SearchQuery builds the query matching term in the todo text or in any single nested comment.
func SearchQuery(term string, size int) map[string]any {
	return map[string]any{
		"size": size,
		"query": map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{
						"match": map[string]any{domain.SearchFieldTodo: term},
					},
					map[string]any{
						"nested": map[string]any{
							"path": domain.SearchFieldComments,
							"query": map[string]any{
								"match": map[string]any{domain.SearchFieldCommentContent: term},
							},
						},
					},
				},
			},
		},
	}
}

type msearchResponse struct {
	Responses []struct {
		Status int             `json:"status"`
		Error  json.RawMessage `json:"error"`
		Hits   struct {
			Hits []struct {
				ID     string          `json:"_id"`
				Score  float64         `json:"_score"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	} `json:"responses"`
}

// Search sends a single-search msearch. A failed search response becomes one errored Hit.
func (g *ElasticGateway) Search(ctx context.Context, term string) ([]Hit, error) {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	if err := enc.Encode(map[string]any{"index": g.opts.Index}); err != nil {
		return nil, err
	}
	if err := enc.Encode(SearchQuery(term, g.opts.MaxResults)); err != nil {
		return nil, err
	}

	res, err := g.es.Msearch(&body, g.es.Msearch.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("msearch failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("msearch failed: %s", res.String())
	}

	var parsed msearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode msearch response: %w", err)
	}

	hits := []Hit{}
	for i, r := range parsed.Responses {
		if len(r.Error) > 0 && string(r.Error) != "null" {
			err := fmt.Errorf("%w: response %d (status %d): %s", ErrHitFailed, i, r.Status, r.Error)
			g.logger.WarnContext(ctx, "Search response failed", "error", err)
			hits = append(hits, Hit{Err: err})
			continue
		}
		for _, h := range r.Hits.Hits {
			hits = append(hits, Hit{ID: h.ID, Score: h.Score, Source: h.Source})
		}
	}
	return hits, nil
}

// Close is a no-op: the client holds no resources beyond idle HTTP connections.
func (g *ElasticGateway) Close() error {
	return nil
}

// responseError closes the response and converts an error status into an error.
func responseError(res *esapi.Response) error {
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("elasticsearch returned %s", res.String())
	}
	return nil
}

// errorType reads and closes the response, returning the error.type of its body if any.
func errorType(res *esapi.Response) string {
	defer func() { _ = drain(res) }()

	var body struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if res.Body == nil || json.NewDecoder(res.Body).Decode(&body) != nil {
		return ""
	}
	return body.Error.Type
}

func drain(res *esapi.Response) error {
	if res.Body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return res.Body.Close()
}
