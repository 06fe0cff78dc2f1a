package store

import (
	"testing"

	"github.com/sha1n/mcp-todo-server/internal/config"
)

// OpenTestStore opens a private in-memory sqlite store that is closed when the test ends.
// This is exported for use in other packages' tests.
func OpenTestStore(tb testing.TB) *Store {
	tb.Helper()
	db, err := Open(config.StoreSettings{Driver: config.StoreDriverSQLite, DSN: "file::memory:"})
	if err != nil {
		tb.Fatalf("Failed to open test store: %v", err)
	}
	s := New(db)
	tb.Cleanup(func() {
		if err := s.Close(); err != nil {
			tb.Errorf("Failed to close test store: %v", err)
		}
	})
	return s
}
