package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sha1n/mcp-todo-server/internal/config"
	"github.com/sha1n/mcp-todo-server/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var (
	// ErrWriteFailed indicates a relational write did not commit.
	ErrWriteFailed = errors.New("store write failed")

	// ErrNotFound indicates the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
)

// Open connects to the configured relational database and migrates the schema.
func Open(settings config.StoreSettings) (*gorm.DB, error) {
	dialector, err := dialectorFor(settings)
	if err != nil {
		return nil, err
	}

	gormLog := gormLogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", settings.Driver, err)
	}

	if settings.Driver == config.StoreDriverSQLite {
		// sqlite allows a single writer; funnel everything through one connection
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sqlite pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func dialectorFor(settings config.StoreSettings) (gorm.Dialector, error) {
	switch settings.Driver {
	case config.StoreDriverPostgres:
		return postgres.Open(settings.DSN), nil
	case config.StoreDriverSQLite:
		if err := ensureSQLiteDir(settings.DSN); err != nil {
			return nil, err
		}
		return sqlite.Open(settings.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", settings.Driver)
	}
}

// ensureSQLiteDir creates the parent directory of a file-backed sqlite DSN.
func ensureSQLiteDir(dsn string) error {
	if strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, ":memory:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

// Migrate creates or updates the relational schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.User{}, &domain.Todo{}, &domain.Comment{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Store is the relational source of truth for users, todos and comments.
type Store struct {
	db *gorm.DB
}

// New creates a store over an open database.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func writeFailed(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrWriteFailed, op, err)
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%w: %s with ID %d does not exist in the database", ErrNotFound, kind, id)
}

// dayBounds returns the UTC start and end of the day containing t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Millisecond)
}
