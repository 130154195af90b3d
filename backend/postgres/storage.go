package postgres

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mwantia/ustore/backend"
	"github.com/mwantia/ustore/data"
)

const defaultPageLimit = 1000

// Stat returns the entry for a key.
func (pb *PostgresBackend) Stat(ctx context.Context, key string) (*data.Entry, error) {
	if key == "" {
		return &data.Entry{Key: "", IsDir: true}, nil
	}

	entry := &data.Entry{Key: key}
	var modTime int64
	err := pb.pool.QueryRow(ctx,
		`SELECT size, modify_time, content_type, etag, is_dir FROM ustore_entries WHERE key = $1`, key).
		Scan(&entry.Size, &modTime, &entry.ContentType, &entry.ETag, &entry.IsDir)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, data.NewError(data.KindNotFound, data.OpStat, key)
		}
		return nil, data.NewError(data.KindUnexpected, data.OpStat, key).WithCause(err).Retryable()
	}
	entry.ModifyTime = time.Unix(0, modTime)

	return entry, nil
}

// Read opens a byte stream over the selected range.
func (pb *PostgresBackend) Read(ctx context.Context, key string, rng data.ByteRange) (io.ReadCloser, error) {
	var content []byte
	err := pb.pool.QueryRow(ctx,
		`SELECT content FROM ustore_entries WHERE key = $1`, key).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, data.NewError(data.KindNotFound, data.OpRead, key)
		}
		return nil, data.NewError(data.KindUnexpected, data.OpRead, key).WithCause(err).Retryable()
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
func (pb *PostgresBackend) Write(ctx context.Context, key string, reader io.Reader, opts backend.WriteOptions) error {
	content, err := io.ReadAll(reader)
	if err != nil {
		return data.NewError(data.KindUnexpected, data.OpWrite, key).WithCause(err)
	}

	tx, err := pb.pool.Begin(ctx)
	if err != nil {
		return data.NewError(data.KindUnexpected, data.OpWrite, key).WithCause(err).Retryable()
	}
	defer tx.Rollback(ctx)

	if !opts.Overwrite {
		var exists int
		err := tx.QueryRow(ctx, `SELECT 1 FROM ustore_entries WHERE key = $1`, key).Scan(&exists)
		if err == nil {
			return data.NewError(data.KindAlreadyExists, data.OpWrite, key)
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return data.NewError(data.KindUnexpected, data.OpWrite, key).WithCause(err).Retryable()
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO ustore_entries (key, size, modify_time, content_type, etag, is_dir, content)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (key) DO UPDATE SET
		   size = EXCLUDED.size,
		   modify_time = EXCLUDED.modify_time,
		   content_type = EXCLUDED.content_type,
		   etag = EXCLUDED.etag,
		   is_dir = EXCLUDED.is_dir,
		   content = EXCLUDED.content`,
		key, int64(len(content)), time.Now().UnixNano(), opts.ContentType,
		newETag(), data.IsDirPath(key), content)
	if err != nil {
		return data.NewError(data.KindUnexpected, data.OpWrite, key).WithCause(err).Retryable()
	}

	if err := tx.Commit(ctx); err != nil {
		return data.NewError(data.KindUnexpected, data.OpWrite, key).WithCause(err).Retryable()
	}

	return nil
}

// Delete removes the object at key. Absent keys succeed.
func (pb *PostgresBackend) Delete(ctx context.Context, key string) error {
	if _, err := pb.pool.Exec(ctx,
		`DELETE FROM ustore_entries WHERE key = $1`, key); err != nil {
		return data.NewError(data.KindUnexpected, data.OpDelete, key).WithCause(err).Retryable()
	}

	return nil
}

// List returns one page of entries under the prefix in key order.
func (pb *PostgresBackend) List(ctx context.Context, prefix string, opts backend.ListOptions) (*backend.Page, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}

	rows, err := pb.pool.Query(ctx,
		`SELECT key, size, modify_time, content_type, etag, is_dir FROM ustore_entries
		 WHERE key LIKE $1 ESCAPE '\' AND key > $2 ORDER BY key LIMIT $3`,
		likePattern(prefix), opts.Token, limit+1)
	if err != nil {
		return nil, data.NewError(data.KindUnexpected, data.OpList, prefix).WithCause(err).Retryable()
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
		return nil, data.NewError(data.KindUnexpected, data.OpList, prefix).WithCause(err).Retryable()
	}

	return page, nil
}

// Presign is not supported by the postgres backend.
func (pb *PostgresBackend) Presign(ctx context.Context, key string, op data.Operation, expiry time.Duration) (*data.PresignedRequest, error) {
	return nil, backend.Unsupported(data.OpPresign, key)
}

// Copy duplicates the object at src into dst, replacing dst.
func (pb *PostgresBackend) Copy(ctx context.Context, src, dst string) error {
	result, err := pb.pool.Exec(ctx,
		`INSERT INTO ustore_entries (key, size, modify_time, content_type, etag, is_dir, content)
		 SELECT $1, size, $2, content_type, etag, is_dir, content FROM ustore_entries WHERE key = $3
		 ON CONFLICT (key) DO UPDATE SET
		   size = EXCLUDED.size,
		   modify_time = EXCLUDED.modify_time,
		   content_type = EXCLUDED.content_type,
		   etag = EXCLUDED.etag,
		   is_dir = EXCLUDED.is_dir,
		   content = EXCLUDED.content`,
		dst, time.Now().UnixNano(), src)
	if err != nil {
		return data.NewError(data.KindUnexpected, data.OpCopy, src).WithCause(err).Retryable()
	}
	if result.RowsAffected() == 0 {
		return data.NewError(data.KindNotFound, data.OpCopy, src)
	}

	return nil
}

// Rename moves the object at src to dst inside a transaction.
func (pb *PostgresBackend) Rename(ctx context.Context, src, dst string) error {
	tx, err := pb.pool.Begin(ctx)
	if err != nil {
		return data.NewError(data.KindUnexpected, data.OpRename, src).WithCause(err).Retryable()
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM ustore_entries WHERE key = $1`, dst); err != nil {
		return data.NewError(data.KindUnexpected, data.OpRename, dst).WithCause(err).Retryable()
	}

	result, err := tx.Exec(ctx,
		`UPDATE ustore_entries SET key = $1 WHERE key = $2`, dst, src)
	if err != nil {
		return data.NewError(data.KindUnexpected, data.OpRename, src).WithCause(err).Retryable()
	}
	if result.RowsAffected() == 0 {
		return data.NewError(data.KindNotFound, data.OpRename, src)
	}

	if err := tx.Commit(ctx); err != nil {
		return data.NewError(data.KindUnexpected, data.OpRename, src).WithCause(err).Retryable()
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
