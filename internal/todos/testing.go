package todos

import (
	"log/slog"
	"testing"

	"github.com/sha1n/mcp-todo-server/internal/searchindex"
	"github.com/sha1n/mcp-todo-server/internal/store"
)

// NewTestService creates a service over an in-memory sqlite store and an in-memory bleve index.
// Both are closed when the test ends. This is exported for use in other packages' tests.
func NewTestService(tb testing.TB) (*Service, *searchindex.BleveGateway) {
	tb.Helper()

	gw, err := searchindex.NewBleveGateway("", 100, slog.Default())
	if err != nil {
		tb.Fatalf("Failed to create test index: %v", err)
	}
	tb.Cleanup(func() {
		if err := gw.Close(); err != nil {
			tb.Errorf("Failed to close test index: %v", err)
		}
	})

	return NewService(store.OpenTestStore(tb), gw, slog.Default()), gw
}
