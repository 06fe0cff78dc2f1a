package searchindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrIndexLocked indicates the index directory is held by another process.
var ErrIndexLocked = errors.New("search index is locked by another process")

var (
	// indexLockTimeout bounds how long opening a persistent index waits for its lock
	indexLockTimeout = 5 * time.Second

	indexLockRetry = 50 * time.Millisecond
)

// lockIndex takes the exclusive lock guarding the index at path.
// The lock file sits next to the index directory.
func lockIndex(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	lock := flock.New(path + ".lock")

	ctx, cancel := context.WithTimeout(context.Background(), indexLockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, indexLockRetry)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("failed to lock index: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrIndexLocked, lock.Path())
	}
	return lock, nil
}
