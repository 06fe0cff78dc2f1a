package searchindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/gofrs/flock"
	"github.com/sha1n/mcp-todo-server/internal/domain"
)

const (
	bleveTypeTodo    = "todo"
	bleveTypeComment = "comment"

	// bleveFieldSource holds the whole SearchDocument as JSON, stored but not indexed
	bleveFieldSource = "source"

	// bleveFieldContent is the comment text of a nested comment sub-document
	bleveFieldContent = "content"

	// nestedHitsPerResult sizes each page of comment sub-documents per requested result
	nestedHitsPerResult = 10
)

// bleveTodoEntry is the parent document of a todo.
type bleveTodoEntry struct {
	Todo   string `json:"todo"`
	TodoID int64  `json:"todoId"`
	Source string `json:"source"`
}

func (bleveTodoEntry) BleveType() string { return bleveTypeTodo }

// bleveCommentEntry is a hidden sub-document holding one nested comment.
// Each comment is indexed on its own so a match never combines text from two comments.
type bleveCommentEntry struct {
	TodoID  int64  `json:"todoId"`
	Content string `json:"content"`
}

func (bleveCommentEntry) BleveType() string { return bleveTypeComment }

// BleveGateway is an embedded Gateway backed by a Bleve index.
type BleveGateway struct {
	index      bleve.Index
	lock       *flock.Flock // nil for in-memory indexes
	maxResults int
	logger     *slog.Logger

	// mu serializes writes so every append applies against the current document
	mu sync.Mutex
}

// CreateIndexMapping creates the Bleve index mapping for todo documents and their nested comments.
func CreateIndexMapping() mapping.IndexMapping {
	// Parent todo document
	todoMapping := bleve.NewDocumentMapping()

	todoField := bleve.NewTextFieldMapping()
	todoField.Analyzer = standard.Name
	todoMapping.AddFieldMappingsAt(domain.SearchFieldTodo, todoField)

	todoIDField := bleve.NewNumericFieldMapping()
	todoIDField.Store = true
	todoMapping.AddFieldMappingsAt(domain.SearchFieldTodoID, todoIDField)

	// Source - stored but not indexed, returned with hits
	sourceField := bleve.NewTextFieldMapping()
	sourceField.Index = false
	sourceField.Store = true
	todoMapping.AddFieldMappingsAt(bleveFieldSource, sourceField)

	// Nested comment sub-document
	commentMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	commentMapping.AddFieldMappingsAt(bleveFieldContent, contentField)

	parentField := bleve.NewNumericFieldMapping()
	parentField.Store = true
	commentMapping.AddFieldMappingsAt(domain.SearchFieldTodoID, parentField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping(bleveTypeTodo, todoMapping)
	indexMapping.AddDocumentMapping(bleveTypeComment, commentMapping)
	indexMapping.DefaultMapping = bleve.NewDocumentDisabledMapping()
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// NewBleveGateway opens or creates the index at path. An empty path keeps the index in memory.
// A persistent index is locked for the lifetime of the gateway.
func NewBleveGateway(path string, maxResults int, logger *slog.Logger) (*BleveGateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var lock *flock.Flock
	if path != "" {
		l, err := lockIndex(path)
		if err != nil {
			return nil, err
		}
		lock = l
	}

	index, err := openBleveIndex(path)
	if err != nil {
		if lock != nil {
			_ = lock.Unlock()
		}
		return nil, err
	}

	return &BleveGateway{
		index:      index,
		lock:       lock,
		maxResults: maxResults,
		logger:     logger.With("component", "bleve-gateway"),
	}, nil
}

func openBleveIndex(path string) (bleve.Index, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(CreateIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory index: %w", err)
		}
		return index, nil
	}

	// Try to open existing index
	index, err := bleve.Open(path)
	if err == nil {
		return index, nil
	}
	if !errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	index, err = bleve.New(path, CreateIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return index, nil
}

// EnsureMapping is a no-op: the mapping is fixed when the index is created.
func (g *BleveGateway) EnsureMapping(context.Context) error {
	return nil
}

// UpsertTodoDocument replaces the todo document and drops its previous comment sub-documents.
func (g *BleveGateway) UpsertTodoDocument(ctx context.Context, id int64, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	docID := DocumentID(id)
	batch := g.index.NewBatch()

	existing, err := g.load(ctx, docID)
	switch {
	case err == nil:
		for i := range existing.Comments {
			batch.Delete(commentDocID(id, i))
		}
	case !errors.Is(err, ErrDocumentNotFound):
		return writeFailed("upsert", id, err)
	}

	entry, err := newBleveTodoEntry(newTodoDocument(id, content))
	if err != nil {
		return writeFailed("upsert", id, err)
	}
	if err := batch.Index(docID, entry); err != nil {
		return writeFailed("upsert", id, err)
	}
	if err := g.index.Batch(batch); err != nil {
		return writeFailed("upsert", id, err)
	}
	return nil
}

// AppendComment adds a comment to the parent source and indexes it as a sub-document in one batch.
func (g *BleveGateway) AppendComment(ctx context.Context, todoID int64, entry domain.CommentEntry) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	docID := DocumentID(todoID)
	doc, err := g.load(ctx, docID)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return fmt.Errorf("%w: todo %d", ErrDocumentNotFound, todoID)
		}
		return writeFailed("append comment to", todoID, err)
	}

	position := len(doc.Comments)
	doc.Comments = append(doc.Comments, entry)

	parent, err := newBleveTodoEntry(*doc)
	if err != nil {
		return writeFailed("append comment to", todoID, err)
	}

	batch := g.index.NewBatch()
	if err := batch.Index(docID, parent); err != nil {
		return writeFailed("append comment to", todoID, err)
	}
	if err := batch.Index(commentDocID(todoID, position), bleveCommentEntry{TodoID: todoID, Content: entry.Content}); err != nil {
		return writeFailed("append comment to", todoID, err)
	}
	if err := g.index.Batch(batch); err != nil {
		return writeFailed("append comment to", todoID, err)
	}
	return nil
}

// Document returns the stored document of a todo.
func (g *BleveGateway) Document(ctx context.Context, todoID int64) (*domain.SearchDocument, error) {
	doc, err := g.load(ctx, DocumentID(todoID))
	if errors.Is(err, ErrDocumentNotFound) {
		return nil, fmt.Errorf("%w: todo %d", ErrDocumentNotFound, todoID)
	}
	return doc, err
}

// Search runs the todo clause and the nested comment clause, sums their scores per todo
// and returns the matching documents ordered by score.
func (g *BleveGateway) Search(ctx context.Context, term string) ([]Hit, error) {
	todoQuery := bleve.NewMatchQuery(term)
	todoQuery.SetField(domain.SearchFieldTodo)

	commentQuery := bleve.NewMatchQuery(term)
	commentQuery.SetField(bleveFieldContent)

	scores := make(map[int64]float64)

	todoMatches, err := g.run(ctx, todoQuery, g.maxResults, domain.SearchFieldTodoID)
	if err != nil {
		return nil, fmt.Errorf("todo clause failed: %w", err)
	}
	for _, m := range todoMatches.Hits {
		if id, ok := parentID(m.Fields); ok {
			scores[id] += m.Score
		}
	}

	nested, err := g.nestedScores(ctx, commentQuery)
	if err != nil {
		return nil, fmt.Errorf("nested comments clause failed: %w", err)
	}
	for id, score := range nested {
		scores[id] += score
	}

	ranked := make([]int64, 0, len(scores))
	for id := range scores {
		ranked = append(ranked, id)
	}
	sort.Slice(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i]], scores[ranked[j]]
		if si != sj {
			return si > sj
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > g.maxResults {
		ranked = ranked[:g.maxResults]
	}

	hits := make([]Hit, 0, len(ranked))
	if len(ranked) == 0 {
		return hits, nil
	}

	sources, err := g.sources(ctx, ranked)
	if err != nil {
		return nil, err
	}

	for _, id := range ranked {
		docID := DocumentID(id)
		src, ok := sources[docID]
		if !ok {
			err := fmt.Errorf("%w: %s: no stored source", ErrHitFailed, docID)
			g.logger.WarnContext(ctx, "Skipping search hit", "todo_id", id, "error", err)
			hits = append(hits, Hit{ID: docID, Score: scores[id], Err: err})
			continue
		}
		hits = append(hits, Hit{ID: docID, Score: scores[id], Source: json.RawMessage(src)})
	}
	return hits, nil
}

// Close releases the index and its lock.
func (g *BleveGateway) Close() error {
	err := g.index.Close()
	if g.lock != nil {
		if unlockErr := g.lock.Unlock(); unlockErr != nil && err == nil {
			err = fmt.Errorf("failed to unlock index: %w", unlockErr)
		}
	}
	return err
}

// nestedScores pages through matching comment sub-documents and averages their scores per parent.
// Paging stops once maxResults parents are collected or the matches run out, so a todo with
// many matching comments cannot hide other todos matched through a single comment.
func (g *BleveGateway) nestedScores(ctx context.Context, q query.Query) (map[int64]float64, error) {
	pageSize := g.maxResults * nestedHitsPerResult
	if pageSize <= 0 {
		pageSize = nestedHitsPerResult
	}

	sum := make(map[int64]float64)
	count := make(map[int64]int)
	for from := 0; ; from += pageSize {
		page, err := g.runPage(ctx, q, pageSize, from, domain.SearchFieldTodoID)
		if err != nil {
			return nil, err
		}
		for _, m := range page.Hits {
			if id, ok := parentID(m.Fields); ok {
				sum[id] += m.Score
				count[id]++
			}
		}
		if len(page.Hits) < pageSize || uint64(from+len(page.Hits)) >= page.Total || len(sum) >= g.maxResults {
			break
		}
	}

	avg := make(map[int64]float64, len(sum))
	for id, total := range sum {
		avg[id] = total / float64(count[id])
	}
	return avg, nil
}

func (g *BleveGateway) run(ctx context.Context, q query.Query, size int, fields ...string) (*bleve.SearchResult, error) {
	return g.runPage(ctx, q, size, 0, fields...)
}

func (g *BleveGateway) runPage(ctx context.Context, q query.Query, size, from int, fields ...string) (*bleve.SearchResult, error) {
	req := bleve.NewSearchRequestOptions(q, size, from, false)
	req.Fields = fields
	return g.index.SearchInContext(ctx, req)
}

// sources loads the stored source of the given todo documents.
func (g *BleveGateway) sources(ctx context.Context, ids []int64) (map[string]string, error) {
	docIDs := make([]string, len(ids))
	for i, id := range ids {
		docIDs[i] = DocumentID(id)
	}

	res, err := g.run(ctx, bleve.NewDocIDQuery(docIDs), len(docIDs), bleveFieldSource)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	out := make(map[string]string, len(res.Hits))
	for _, m := range res.Hits {
		if src, ok := m.Fields[bleveFieldSource].(string); ok {
			out[m.ID] = src
		}
	}
	return out, nil
}

func (g *BleveGateway) load(ctx context.Context, docID string) (*domain.SearchDocument, error) {
	sources, err := g.run(ctx, bleve.NewDocIDQuery([]string{docID}), 1, bleveFieldSource)
	if err != nil {
		return nil, err
	}
	if len(sources.Hits) == 0 {
		return nil, ErrDocumentNotFound
	}

	src, ok := sources.Hits[0].Fields[bleveFieldSource].(string)
	if !ok {
		return nil, fmt.Errorf("document %s has no stored source", docID)
	}

	var doc domain.SearchDocument
	if err := json.Unmarshal([]byte(src), &doc); err != nil {
		return nil, fmt.Errorf("document %s has a corrupt source: %w", docID, err)
	}
	return &doc, nil
}

func newBleveTodoEntry(doc domain.SearchDocument) (bleveTodoEntry, error) {
	if doc.Comments == nil {
		doc.Comments = []domain.CommentEntry{}
	}
	src, err := json.Marshal(doc)
	if err != nil {
		return bleveTodoEntry{}, err
	}
	return bleveTodoEntry{Todo: doc.Todo, TodoID: doc.TodoID, Source: string(src)}, nil
}

func commentDocID(todoID int64, position int) string {
	return DocumentID(todoID) + "#" + domain.SearchFieldComments + "." + strconv.Itoa(position)
}

// parentID reads the stored todo ID shared by parent documents and comment sub-documents.
func parentID(fields map[string]interface{}) (int64, bool) {
	v, ok := fields[domain.SearchFieldTodoID].(float64)
	if !ok {
		return 0, false
	}
	return int64(v), true
}
