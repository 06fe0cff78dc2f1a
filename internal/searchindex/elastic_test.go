package searchindex

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeElastic is a minimal Elasticsearch stand-in that records requests and answers from a handler.
type fakeElastic struct {
	mu       sync.Mutex
	requests []recordedRequest
	respond  func(r recordedRequest) (int, string)
}

func (f *fakeElastic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	req := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	status, payload := http.StatusOK, `{}`
	if f.respond != nil {
		status, payload = f.respond(req)
	}
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, payload)
}

func (f *fakeElastic) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("Expected at least one request")
	}
	return f.requests[len(f.requests)-1]
}

func newTestElastic(t *testing.T, fake *fakeElastic) *ElasticGateway {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	gw, err := NewElasticGateway(ElasticOptions{
		Addresses:       []string{srv.URL},
		Index:           "todo-comments",
		MaxResults:      100,
		RetryOnConflict: 5,
	}, nil)
	if err != nil {
		t.Fatalf("NewElasticGateway failed: %v", err)
	}
	return gw
}

func TestElastic_EnsureMapping_CreatesMissingIndex(t *testing.T) {
	fake := &fakeElastic{respond: func(r recordedRequest) (int, string) {
		if r.Method == http.MethodHead {
			return http.StatusNotFound, ``
		}
		return http.StatusOK, `{"acknowledged":true}`
	}}
	gw := newTestElastic(t, fake)

	if err := gw.EnsureMapping(context.Background()); err != nil {
		t.Fatalf("EnsureMapping failed: %v", err)
	}

	req := fake.last(t)
	if req.Method != http.MethodPut || req.Path != "/todo-comments" {
		t.Errorf("Expected PUT /todo-comments, got %s %s", req.Method, req.Path)
	}

	var body struct {
		Mappings struct {
			Properties map[string]struct {
				Type string `json:"type"`
			} `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		t.Fatalf("Invalid create body: %v", err)
	}
	if body.Mappings.Properties["comments"].Type != "nested" {
		t.Errorf("Expected nested comments mapping, got %+v", body.Mappings.Properties)
	}
	if body.Mappings.Properties["todo"].Type != "text" {
		t.Errorf("Expected text todo mapping, got %+v", body.Mappings.Properties)
	}
}

func TestElastic_EnsureMapping_ExistingIndex(t *testing.T) {
	fake := &fakeElastic{respond: func(r recordedRequest) (int, string) {
		return http.StatusOK, `{"acknowledged":true}`
	}}
	gw := newTestElastic(t, fake)

	if err := gw.EnsureMapping(context.Background()); err != nil {
		t.Fatalf("EnsureMapping failed: %v", err)
	}

	req := fake.last(t)
	if req.Method != http.MethodPut || req.Path != "/todo-comments/_mapping" {
		t.Errorf("Expected PUT /todo-comments/_mapping, got %s %s", req.Method, req.Path)
	}
	if !strings.Contains(req.Body, `"nested"`) {
		t.Errorf("Expected nested mapping in body, got %s", req.Body)
	}
}

func TestElastic_EnsureMapping_Rejected(t *testing.T) {
	fake := &fakeElastic{respond: func(r recordedRequest) (int, string) {
		if r.Method == http.MethodHead {
			return http.StatusOK, ``
		}
		return http.StatusBadRequest, `{"error":{"type":"illegal_argument_exception"}}`
	}}
	gw := newTestElastic(t, fake)

	if err := gw.EnsureMapping(context.Background()); err == nil {
		t.Fatal("Expected error for rejected mapping")
	}
}

func TestElastic_UpsertTodoDocument(t *testing.T) {
	fake := &fakeElastic{respond: func(r recordedRequest) (int, string) {
		return http.StatusCreated, `{"result":"created"}`
	}}
	gw := newTestElastic(t, fake)

	if err := gw.UpsertTodoDocument(context.Background(), 5, "buy milk"); err != nil {
		t.Fatalf("UpsertTodoDocument failed: %v", err)
	}

	req := fake.last(t)
	if req.Method != http.MethodPut || req.Path != "/todo-comments/_doc/5" {
		t.Errorf("Expected PUT /todo-comments/_doc/5, got %s %s", req.Method, req.Path)
	}
	if !strings.Contains(req.Query, "refresh=true") {
		t.Errorf("Expected refresh=true, got query %q", req.Query)
	}
	want := `{"todo":"buy milk","todoId":5,"comments":[]}`
	if strings.TrimSpace(req.Body) != want {
		t.Errorf("Body = %s, want %s", req.Body, want)
	}
}

func TestElastic_UpsertTodoDocument_Failure(t *testing.T) {
	fake := &fakeElastic{respond: func(r recordedRequest) (int, string) {
		return http.StatusInternalServerError, `{"error":"boom"}`
	}}
	gw := newTestElastic(t, fake)

	err := gw.UpsertTodoDocument(context.Background(), 5, "buy milk")
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("Expected ErrWriteFailed, got %v", err)
	}
}

func TestElastic_AppendComment(t *testing.T) {
	fake := &fakeElastic{respond: func(r recordedRequest) (int, string) {
		return http.StatusOK, `{"result":"updated"}`
	}}
	gw := newTestElastic(t, fake)

	if err := gw.AppendComment(context.Background(), 5, entry(11, 5, "oat milk only")); err != nil {
		t.Fatalf("AppendComment failed: %v", err)
	}

	req := fake.last(t)
	if req.Method != http.MethodPost || req.Path != "/todo-comments/_update/5" {
		t.Errorf("Expected POST /todo-comments/_update/5, got %s %s", req.Method, req.Path)
	}
	if !strings.Contains(req.Query, "retry_on_conflict=5") {
		t.Errorf("Expected retry_on_conflict=5, got query %q", req.Query)
	}
	if !strings.Contains(req.Query, "refresh=true") {
		t.Errorf("Expected refresh=true, got query %q", req.Query)
	}

	var body struct {
		Script struct {
			Source string `json:"source"`
			Params struct {
				Comments []map[string]any `json:"comments"`
			} `json:"params"`
		} `json:"script"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		t.Fatalf("Invalid update body: %v", err)
	}
	if body.Script.Source != appendCommentsScript {
		t.Errorf("Unexpected script %q", body.Script.Source)
	}
	if len(body.Script.Params.Comments) != 1 || body.Script.Params.Comments[0]["content"] != "oat milk only" {
		t.Errorf("Unexpected params %+v", body.Script.Params.Comments)
	}
}

func TestElastic_AppendComment_DocumentMissing(t *testing.T) {
	fake := &fakeElastic{respond: func(r recordedRequest) (int, string) {
		return http.StatusNotFound, `{"error":{"type":"document_missing_exception"},"status":404}`
	}}
	gw := newTestElastic(t, fake)

	err := gw.AppendComment(context.Background(), 9999, entry(1, 9999, "orphan"))
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("Expected ErrDocumentNotFound, got %v", err)
	}
}

func TestElastic_AppendComment_IndexMissing(t *testing.T) {
	fake := &fakeElastic{respond: func(r recordedRequest) (int, string) {
		return http.StatusNotFound, `{"error":{"type":"index_not_found_exception","reason":"no such index [todo-comments]"},"status":404}`
	}}
	gw := newTestElastic(t, fake)

	err := gw.AppendComment(context.Background(), 5, entry(1, 5, "oat milk only"))
	if errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("Expected a missing index not to be reported as a missing document, got %v", err)
	}
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("Expected ErrWriteFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "index_not_found_exception") {
		t.Errorf("Expected error to name the cause, got %v", err)
	}
}

func TestElastic_Document_IndexMissing(t *testing.T) {
	fake := &fakeElastic{respond: func(r recordedRequest) (int, string) {
		return http.StatusNotFound, `{"error":{"type":"index_not_found_exception"},"status":404}`
	}}
	gw := newTestElastic(t, fake)

	_, err := gw.Document(context.Background(), 5)
	if err == nil || errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("Expected a non-not-found error, got %v", err)
	}
}

func TestElastic_Document(t *testing.T) {
	fake := &fakeElastic{respond: func(r recordedRequest) (int, string) {
		if strings.HasSuffix(r.Path, "/5") {
			return http.StatusOK, `{"_id":"5","found":true,"_source":{"todo":"buy milk","todoId":5,"comments":[]}}`
		}
		return http.StatusNotFound, `{"found":false}`
	}}
	gw := newTestElastic(t, fake)

	doc, err := gw.Document(context.Background(), 5)
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if doc.Todo != "buy milk" || doc.TodoID != 5 {
		t.Errorf("Unexpected document %+v", doc)
	}

	if _, err := gw.Document(context.Background(), 6); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("Expected ErrDocumentNotFound, got %v", err)
	}
}

func TestElastic_Search(t *testing.T) {
	fake := &fakeElastic{respond: func(r recordedRequest) (int, string) {
		return http.StatusOK, `{"responses":[{"status":200,"hits":{"hits":[
			{"_id":"5","_score":1.5,"_source":{"todo":"buy milk","todoId":5,"comments":[]}},
			{"_id":"2","_score":0.7,"_source":{"todo":"fix bike","todoId":2,"comments":[{"id":1,"content":"milk crate","todoId":2}]}}
		]}}]}`
	}}
	gw := newTestElastic(t, fake)

	hits, err := gw.Search(context.Background(), "milk")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "5" || hits[1].ID != "2" {
		t.Errorf("Expected gateway order [5 2], got [%s %s]", hits[0].ID, hits[1].ID)
	}
	if hits[0].Score != 1.5 {
		t.Errorf("Expected score 1.5, got %v", hits[0].Score)
	}

	req := fake.last(t)
	if req.Path != "/_msearch" {
		t.Errorf("Expected /_msearch, got %s", req.Path)
	}
	lines := strings.Split(strings.TrimSpace(req.Body), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header and body lines, got %d: %s", len(lines), req.Body)
	}
	if !strings.Contains(lines[0], `"index":"todo-comments"`) {
		t.Errorf("Expected index header, got %s", lines[0])
	}
	for _, want := range []string{`"should"`, `"nested"`, `"path":"comments"`, `"comments.content":"milk"`, `"todo":"milk"`} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("Expected %s in query, got %s", want, lines[1])
		}
	}
}

func TestElastic_Search_ResponseError(t *testing.T) {
	fake := &fakeElastic{respond: func(r recordedRequest) (int, string) {
		return http.StatusOK, `{"responses":[{"status":400,"error":{"type":"search_phase_execution_exception"}}]}`
	}}
	gw := newTestElastic(t, fake)

	hits, err := gw.Search(context.Background(), "milk")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("Expected 1 errored hit, got %d", len(hits))
	}
	if !errors.Is(hits[0].Err, ErrHitFailed) {
		t.Errorf("Expected ErrHitFailed, got %v", hits[0].Err)
	}
}

func TestElastic_Search_TransportError(t *testing.T) {
	fake := &fakeElastic{respond: func(r recordedRequest) (int, string) {
		return http.StatusInternalServerError, `{"error":"down"}`
	}}
	gw := newTestElastic(t, fake)

	if _, err := gw.Search(context.Background(), "milk"); err == nil {
		t.Fatal("Expected error for failed msearch")
	}
}

func TestSearchQuery(t *testing.T) {
	q := SearchQuery("milk", 10)
	if q["size"] != 10 {
		t.Errorf("Expected size 10, got %v", q["size"])
	}
	should := q["query"].(map[string]any)["bool"].(map[string]any)["should"].([]any)
	if len(should) != 2 {
		t.Errorf("Expected 2 should clauses, got %d", len(should))
	}
}
