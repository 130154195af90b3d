package sqlite

import (
	"context"
	"database/sql"
	"sync"

	"github.com/mwantia/ustore/data"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteBackend stores objects in a single SQLite table, content inline.
//
// The key column is the primary key, so prefix listings ride the
// implicit index and pagination is a plain ordered range scan.
// WAL mode keeps concurrent readers off the writer's back.
type SQLiteBackend struct {
	mu sync.RWMutex
	db *sql.DB

	path string
}

// NewSQLiteBackend creates a new SQLite-backed adapter.
// The path can be ":memory:" for an in-memory database or a file path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, data.NewError(data.KindConfigInvalid, "", "").WithCause(err)
	}

	// A pooled ":memory:" database would give every connection its own
	// empty database, and SQLite allows one writer anyway
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, data.NewError(data.KindUnexpected, "", "").WithCause(err)
	}

	return &SQLiteBackend{
		db:   db,
		path: path,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*SQLiteBackend) Name() string {
	return "sqlite"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (sb *SQLiteBackend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.initSchema(ctx)
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (sb *SQLiteBackend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if err := sb.db.Close(); err != nil {
		return data.NewError(data.KindUnexpected, "", "").WithCause(err)
	}

	return nil
}

// Capabilities returns the static descriptor of supported operations.
func (sb *SQLiteBackend) Capabilities() data.Capability {
	return data.Capability{
		Stat:             true,
		Read:             true,
		Write:            true,
		Delete:           true,
		List:             true,
		ListContinuation: true,
		Copy:             true,
		// Rename runs inside a transaction, so it is atomic
		Rename: true,
	}
}

// initSchema creates the database schema.
func (sb *SQLiteBackend) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ustore_entries (
		key TEXT PRIMARY KEY,
		size INTEGER NOT NULL DEFAULT 0,
		modify_time INTEGER NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		etag TEXT NOT NULL DEFAULT '',
		is_dir INTEGER NOT NULL DEFAULT 0,
		content BLOB
	);
	`

	if _, err := sb.db.ExecContext(ctx, schema); err != nil {
		return data.NewError(data.KindUnexpected, "", "").WithCause(err)
	}

	return nil
}
