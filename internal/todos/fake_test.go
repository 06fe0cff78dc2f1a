package todos

import (
	"context"
	"sync"

	"github.com/sha1n/mcp-todo-server/internal/domain"
	"github.com/sha1n/mcp-todo-server/internal/searchindex"
)

// fakeGateway records calls and returns canned results.
type fakeGateway struct {
	mu      sync.Mutex
	upserts []int64
	appends []domain.CommentEntry

	upsertErr error
	appendErr error
	searchErr error
	hits      []searchindex.Hit
}

func (f *fakeGateway) EnsureMapping(context.Context) error { return nil }

func (f *fakeGateway) UpsertTodoDocument(_ context.Context, id int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, id)
	return f.upsertErr
}

func (f *fakeGateway) AppendComment(_ context.Context, _ int64, entry domain.CommentEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends = append(f.appends, entry)
	return f.appendErr
}

func (f *fakeGateway) Document(context.Context, int64) (*domain.SearchDocument, error) {
	return nil, searchindex.ErrDocumentNotFound
}

func (f *fakeGateway) Search(context.Context, string) ([]searchindex.Hit, error) {
	return f.hits, f.searchErr
}

func (f *fakeGateway) Close() error { return nil }

func (f *fakeGateway) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts), len(f.appends)
}
