package todos

import (
	"context"
	"errors"
	"testing"

	"github.com/sha1n/mcp-todo-server/internal/store"
)

func TestReindex_RebuildsDocuments(t *testing.T) {
	ctx := context.Background()
	svc, gw := NewTestService(t)
	userID := mustUser(t, svc, "a@example.com")

	// Written to the store only, as if the index had been lost
	todo, err := svc.store.CreateTodo(ctx, store.NewTodo{Content: "renew passport", DueDate: testDue, UserID: userID})
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []string{"book appointment", "bring photos"} {
		if _, err := svc.store.CreateComment(ctx, c, todo.ID); err != nil {
			t.Fatal(err)
		}
	}

	if results, _ := svc.Search(ctx, "photos"); len(results) != 0 {
		t.Fatalf("Expected no results before reindex, got %d", len(results))
	}

	stats, err := svc.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex failed: %v", err)
	}
	if stats.Todos != 1 || stats.Comments != 2 || stats.Failed != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}

	doc, err := gw.Document(ctx, todo.ID)
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if len(doc.Comments) != 2 || doc.Comments[0].Content != "book appointment" {
		t.Errorf("Unexpected rebuilt document %+v", doc)
	}

	// Running twice must not duplicate comments
	if _, err := svc.Reindex(ctx); err != nil {
		t.Fatalf("Second reindex failed: %v", err)
	}
	doc, err = gw.Document(ctx, todo.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Comments) != 2 {
		t.Errorf("Expected 2 comments after second reindex, got %d", len(doc.Comments))
	}

	results, err := svc.Search(ctx, "photos")
	if err != nil || len(results) != 1 {
		t.Errorf("Search after reindex = %+v, %v", results, err)
	}
}

func TestReindex_CountsFailures(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	svc := NewService(store.OpenTestStore(t), gw, nil)
	userID := mustUser(t, svc, "a@example.com")
	mustTodo(t, svc, userID, "one")
	mustTodo(t, svc, userID, "two")

	gw.upsertErr = errors.New("index down")

	stats, err := svc.Reindex(ctx)
	if err == nil {
		t.Fatal("Expected joined error")
	}
	if stats.Failed != 2 || stats.Todos != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestReindex_EmptyStore(t *testing.T) {
	svc := NewService(store.OpenTestStore(t), &fakeGateway{}, nil)

	stats, err := svc.Reindex(context.Background())
	if err != nil {
		t.Fatalf("Reindex failed: %v", err)
	}
	if stats != (ReindexStats{}) {
		t.Errorf("Expected zero stats, got %+v", stats)
	}
}

func TestReindex_Canceled(t *testing.T) {
	svc := NewService(store.OpenTestStore(t), &fakeGateway{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Reindex(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
