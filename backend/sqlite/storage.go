package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mwantia/ustore/backend"
	"github.com/mwantia/ustore/data"
)

const defaultPageLimit = 1000

// Stat returns the entry for a key.
func (sb *SQLiteBackend) Stat(ctx context.Context, key string) (*data.Entry, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if key == "" {
		return &data.Entry{Key: "", IsDir: true}, nil
	}

	row := sb.db.QueryRowContext(ctx,
		`SELECT size, modify_time, content_type, etag, is_dir FROM ustore_entries WHERE key = ?`, key)

	entry := &data.Entry{Key: key}
	var modTime int64
	if err := row.Scan(&entry.Size, &modTime, &entry.ContentType, &entry.ETag, &entry.IsDir); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.NewError(data.KindNotFound, data.OpStat, key)
		}
		return nil, data.NewError(data.KindUnexpected, data.OpStat, key).WithCause(err)
	}
	entry.ModifyTime = time.Unix(0, modTime)

	return entry, nil
}

// Read opens a byte stream over the selected range.
func (sb *SQLiteBackend) Read(ctx context.Context, key string, rng data.ByteRange) (io.ReadCloser, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	row := sb.db.QueryRowContext(ctx,
		`SELECT content FROM ustore_entries WHERE key = ?`, key)

	var content []byte
	if err := row.Scan(&content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.NewError(data.KindNotFound, data.OpRead, key)
		}
		return nil, data.NewError(data.KindUnexpected, data.OpRead, key).WithCause(err)
	}

	size := int64(len(content))
	start, end := rng.Start, rng.End
	if rng.Unbounded() {
		end = size
	}
	if start > size || end > size {
		return nil, data.NewError(data.KindRangeNotSatisfiable, data.OpRead, key)
	}

	return io.NopCloser(bytes.NewReader(content[start:end])), nil
}

// Write consumes the reader into the object at key.
func (sb *SQLiteBackend) Write(ctx context.Context, key string, reader io.Reader, opts backend.WriteOptions) error {
	content, err := io.ReadAll(reader)
	if err != nil {
		return data.NewError(data.KindUnexpected, data.OpWrite, key).WithCause(err)
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return data.NewError(data.KindUnexpected, data.OpWrite, key).WithCause(err)
	}
	defer tx.Rollback()

	if !opts.Overwrite {
		var exists int
		row := tx.QueryRowContext(ctx, `SELECT 1 FROM ustore_entries WHERE key = ?`, key)
		if err := row.Scan(&exists); err == nil {
			return data.NewError(data.KindAlreadyExists, data.OpWrite, key)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return data.NewError(data.KindUnexpected, data.OpWrite, key).WithCause(err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO ustore_entries (key, size, modify_time, content_type, etag, is_dir, content)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		key, int64(len(content)), time.Now().UnixNano(), opts.ContentType,
		newETag(), data.IsDirPath(key), content)
	if err != nil {
		return data.NewError(data.KindUnexpected, data.OpWrite, key).WithCause(err)
	}

	if err := tx.Commit(); err != nil {
		return data.NewError(data.KindUnexpected, data.OpWrite, key).WithCause(err)
	}

	return nil
}

// Delete removes the object at key. Absent keys succeed.
func (sb *SQLiteBackend) Delete(ctx context.Context, key string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if _, err := sb.db.ExecContext(ctx,
		`DELETE FROM ustore_entries WHERE key = ?`, key); err != nil {
		return data.NewError(data.KindUnexpected, data.OpDelete, key).WithCause(err)
	}

	return nil
}

// List returns one page of entries under the prefix in key order.
func (sb *SQLiteBackend) List(ctx context.Context, prefix string, opts backend.ListOptions) (*backend.Page, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}

	rows, err := sb.db.QueryContext(ctx,
		`SELECT key, size, modify_time, content_type, etag, is_dir FROM ustore_entries
		 WHERE key LIKE ? ESCAPE '\' AND key > ? ORDER BY key LIMIT ?`,
		likePattern(prefix), opts.Token, limit+1)
	if err != nil {
		return nil, data.NewError(data.KindUnexpected, data.OpList, prefix).WithCause(err)
	}
	defer rows.Close()

	page := &backend.Page{}
	for rows.Next() {
		entry := &data.Entry{}
		var modTime int64
		if err := rows.Scan(&entry.Key, &entry.Size, &modTime,
			&entry.ContentType, &entry.ETag, &entry.IsDir); err != nil {
			return nil, data.NewError(data.KindUnexpected, data.OpList, prefix).WithCause(err)
		}
		entry.ModifyTime = time.Unix(0, modTime)

		if len(page.Entries) == limit {
			// One row past the limit means another page exists
			page.Token = page.Entries[limit-1].Key
			break
		}
		page.Entries = append(page.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, data.NewError(data.KindUnexpected, data.OpList, prefix).WithCause(err)
	}

	return page, nil
}

// Presign is not supported by the sqlite backend.
func (sb *SQLiteBackend) Presign(ctx context.Context, key string, op data.Operation, expiry time.Duration) (*data.PresignedRequest, error) {
	return nil, backend.Unsupported(data.OpPresign, key)
}

// Copy duplicates the object at src into dst, replacing dst.
func (sb *SQLiteBackend) Copy(ctx context.Context, src, dst string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	result, err := sb.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO ustore_entries (key, size, modify_time, content_type, etag, is_dir, content)
		 SELECT ?, size, ?, content_type, etag, is_dir, content FROM ustore_entries WHERE key = ?`,
		dst, time.Now().UnixNano(), src)
	if err != nil {
		return data.NewError(data.KindUnexpected, data.OpCopy, src).WithCause(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return data.NewError(data.KindUnexpected, data.OpCopy, src).WithCause(err)
	}
	if affected == 0 {
		return data.NewError(data.KindNotFound, data.OpCopy, src)
	}

	return nil
}

// Rename moves the object at src to dst inside a transaction.
func (sb *SQLiteBackend) Rename(ctx context.Context, src, dst string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return data.NewError(data.KindUnexpected, data.OpRename, src).WithCause(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ustore_entries WHERE key = ?`, dst); err != nil {
		return data.NewError(data.KindUnexpected, data.OpRename, dst).WithCause(err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE ustore_entries SET key = ? WHERE key = ?`, dst, src)
	if err != nil {
		return data.NewError(data.KindUnexpected, data.OpRename, src).WithCause(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return data.NewError(data.KindUnexpected, data.OpRename, src).WithCause(err)
	}
	if affected == 0 {
		return data.NewError(data.KindNotFound, data.OpRename, src)
	}

	if err := tx.Commit(); err != nil {
		return data.NewError(data.KindUnexpected, data.OpRename, src).WithCause(err)
	}

	return nil
}

// likePattern escapes the prefix for a LIKE prefix scan.
func likePattern(prefix string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(prefix) + "%"
}

func newETag() string {
	return uuid.Must(uuid.NewV7()).String()
}
