package consul

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/consul/api"
	"github.com/mwantia/ustore/backend"
	"github.com/mwantia/ustore/data"
)

// envelope carries object content and entry metadata in one KV value.
type envelope struct {
	Size        int64  `json:"size"`
	ModifyTime  int64  `json:"modify_time"`
	ContentType string `json:"content_type,omitempty"`
	ETag        string `json:"etag,omitempty"`
	IsDir       bool   `json:"is_dir,omitempty"`
	Content     []byte `json:"content"`
}

// Stat returns the entry for a key.
func (cb *ConsulBackend) Stat(ctx context.Context, key string) (*data.Entry, error) {
	if key == "" {
		return &data.Entry{Key: "", IsDir: true}, nil
	}

	env, err := cb.fetch(ctx, data.OpStat, key)
	if err != nil {
		return nil, err
	}

	return env.toEntry(key), nil
}

// Read opens a byte stream over the selected range.
func (cb *ConsulBackend) Read(ctx context.Context, key string, rng data.ByteRange) (io.ReadCloser, error) {
	env, err := cb.fetch(ctx, data.OpRead, key)
	if err != nil {
		return nil, err
	}

	size := int64(len(env.Content))
	start, end := rng.Start, rng.End
	if rng.Unbounded() {
		end = size
	}
	if start > size || end > size {
		return nil, data.NewError(data.KindRangeNotSatisfiable, data.OpRead, key)
	}

	return io.NopCloser(bytes.NewReader(env.Content[start:end])), nil
}

// Write consumes the reader into the object at key.
// Payloads beyond the Consul KV value limit fail with Unsupported.
func (cb *ConsulBackend) Write(ctx context.Context, key string, reader io.Reader, opts backend.WriteOptions) error {
	if opts.Size > consulMaxValueSize {
		return backend.Unsupported(data.OpWrite, key)
	}

	content, err := io.ReadAll(io.LimitReader(reader, consulMaxValueSize+1))
	if err != nil {
		return data.NewError(data.KindUnexpected, data.OpWrite, key).WithCause(err)
	}
	if len(content) > consulMaxValueSize {
		return backend.Unsupported(data.OpWrite, key)
	}

	if !opts.Overwrite {
		pair, _, err := cb.kv.Get(cb.buildKey(key), cb.queryOptions(ctx))
		if err != nil {
			return mapConsulError(err, data.OpWrite, key)
		}
		if pair != nil {
			return data.NewError(data.KindAlreadyExists, data.OpWrite, key)
		}
	}

	value, err := json.Marshal(&envelope{
		Size:        int64(len(content)),
		ModifyTime:  time.Now().UnixNano(),
		ContentType: opts.ContentType,
		ETag:        uuid.Must(uuid.NewV7()).String(),
		IsDir:       data.IsDirPath(key),
		Content:     content,
	})
	if err != nil {
		return data.NewError(data.KindUnexpected, data.OpWrite, key).WithCause(err)
	}

	pair := &api.KVPair{
		Key:   cb.buildKey(key),
		Value: value,
	}
	if _, err := cb.kv.Put(pair, cb.writeOptions(ctx)); err != nil {
		return mapConsulError(err, data.OpWrite, key)
	}

	return nil
}

// Delete removes the object at key. Absent keys succeed.
func (cb *ConsulBackend) Delete(ctx context.Context, key string) error {
	if _, err := cb.kv.Delete(cb.buildKey(key), cb.writeOptions(ctx)); err != nil {
		return mapConsulError(err, data.OpDelete, key)
	}

	return nil
}

// List returns all entries under the prefix. Consul KV returns the full
// result set at once; no pagination.
func (cb *ConsulBackend) List(ctx context.Context, prefix string, opts backend.ListOptions) (*backend.Page, error) {
	pairs, _, err := cb.kv.List(cb.buildKey(prefix), cb.queryOptions(ctx))
	if err != nil {
		return nil, mapConsulError(err, data.OpList, prefix)
	}

	page := &backend.Page{
		Entries: make([]*data.Entry, 0, len(pairs)),
	}
	for _, pair := range pairs {
		env := &envelope{}
		if err := json.Unmarshal(pair.Value, env); err != nil {
			// Skip values other writers placed under the prefix
			continue
		}

		key := strings.TrimPrefix(pair.Key, cb.config.Prefix)
		page.Entries = append(page.Entries, env.toEntry(key))
	}

	return page, nil
}

// Presign is not supported by the consul backend.
func (cb *ConsulBackend) Presign(ctx context.Context, key string, op data.Operation, expiry time.Duration) (*data.PresignedRequest, error) {
	return nil, backend.Unsupported(data.OpPresign, key)
}

// Copy duplicates the object at src into dst, replacing dst.
func (cb *ConsulBackend) Copy(ctx context.Context, src, dst string) error {
	pair, _, err := cb.kv.Get(cb.buildKey(src), cb.queryOptions(ctx))
	if err != nil {
		return mapConsulError(err, data.OpCopy, src)
	}
	if pair == nil {
		return data.NewError(data.KindNotFound, data.OpCopy, src)
	}

	target := &api.KVPair{
		Key:   cb.buildKey(dst),
		Value: pair.Value,
	}
	if _, err := cb.kv.Put(target, cb.writeOptions(ctx)); err != nil {
		return mapConsulError(err, data.OpCopy, dst)
	}

	return nil
}

// Rename is not supported; Consul KV has no atomic move.
func (cb *ConsulBackend) Rename(ctx context.Context, src, dst string) error {
	return backend.Unsupported(data.OpRename, src)
}

func (cb *ConsulBackend) fetch(ctx context.Context, op data.Operation, key string) (*envelope, error) {
	pair, _, err := cb.kv.Get(cb.buildKey(key), cb.queryOptions(ctx))
	if err != nil {
		return nil, mapConsulError(err, op, key)
	}
	if pair == nil {
		return nil, data.NewError(data.KindNotFound, op, key)
	}

	env := &envelope{}
	if err := json.Unmarshal(pair.Value, env); err != nil {
		return nil, data.NewError(data.KindUnexpected, op, key).WithCause(err)
	}

	return env, nil
}

func (cb *ConsulBackend) queryOptions(ctx context.Context) *api.QueryOptions {
	return (&api.QueryOptions{}).WithContext(ctx)
}

func (cb *ConsulBackend) writeOptions(ctx context.Context) *api.WriteOptions {
	return (&api.WriteOptions{}).WithContext(ctx)
}

func (e *envelope) toEntry(key string) *data.Entry {
	return &data.Entry{
		Key:         key,
		Size:        e.Size,
		ModifyTime:  time.Unix(0, e.ModifyTime),
		ContentType: e.ContentType,
		ETag:        e.ETag,
		IsDir:       e.IsDir,
	}
}

// mapConsulError normalizes a Consul client failure. The HTTP client
// surfaces transport errors as plain errors, which are worth retrying.
func mapConsulError(err error, op data.Operation, key string) error {
	if strings.Contains(err.Error(), "ACL not found") ||
		strings.Contains(err.Error(), "Permission denied") {
		return data.NewError(data.KindPermissionDenied, op, key).WithCause(err)
	}

	return data.NewError(data.KindUnexpected, op, key).WithCause(err).Retryable()
}
