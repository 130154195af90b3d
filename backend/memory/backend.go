package memory

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mwantia/ustore/backend"
	"github.com/mwantia/ustore/data"
	"github.com/tidwall/btree"
)

const defaultPageLimit = 1000

// MemoryBackend is a thread-safe in-memory adapter.
// Objects live in an ordered B-tree keyed by path, which keeps prefix
// listings cheap and deterministic. Everything is lost on Close.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects *btree.Map[string, *object]

	maxWriteSize int64
}

type object struct {
	content []byte
	entry   data.Entry
}

// Config contains configuration options for the memory backend
type Config struct {
	// MaxWriteSize limits a single write in bytes (default: unlimited)
	MaxWriteSize int64
}

// NewMemoryBackend creates a new in-memory adapter.
func NewMemoryBackend(config *Config) *MemoryBackend {
	if config == nil {
		config = &Config{}
	}

	return &MemoryBackend{
		objects:      btree.NewMap[string, *object](0),
		maxWriteSize: config.MaxWriteSize,
	}
}

// Name returns the identifier name defined for this backend
func (*MemoryBackend) Name() string {
	return "memory"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (mb *MemoryBackend) Open(ctx context.Context) error {
	// Nothing to initialize - backend is ready to use
	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (mb *MemoryBackend) Close(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.objects.Clear()
	return nil
}

// Capabilities returns the static descriptor of supported operations.
func (mb *MemoryBackend) Capabilities() data.Capability {
	return data.Capability{
		Stat:             true,
		Read:             true,
		Write:            true,
		Delete:           true,
		List:             true,
		ListContinuation: true,
		Copy:             true,
		Rename:           true,
		MaxWriteSize:     mb.maxWriteSize,
	}
}

// Stat returns the entry for a key.
func (mb *MemoryBackend) Stat(ctx context.Context, key string) (*data.Entry, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	// The root always exists
	if key == "" {
		return &data.Entry{Key: "", IsDir: true}, nil
	}

	obj, exists := mb.objects.Get(key)
	if !exists {
		return nil, data.NewError(data.KindNotFound, data.OpStat, key)
	}

	entry := obj.entry
	return &entry, nil
}

// Read opens a byte stream over the selected range.
func (mb *MemoryBackend) Read(ctx context.Context, key string, rng data.ByteRange) (io.ReadCloser, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	obj, exists := mb.objects.Get(key)
	if !exists {
		return nil, data.NewError(data.KindNotFound, data.OpRead, key)
	}

	size := int64(len(obj.content))
	start, end := rng.Start, rng.End
	if rng.Unbounded() {
		end = size
	}

	if start > size || end > size {
		return nil, data.NewError(data.KindRangeNotSatisfiable, data.OpRead, key)
	}

	// Copy so later writes can't mutate an open stream
	buffer := make([]byte, end-start)
	copy(buffer, obj.content[start:end])

	return io.NopCloser(bytes.NewReader(buffer)), nil
}

// Write consumes the reader into the object at key.
func (mb *MemoryBackend) Write(ctx context.Context, key string, reader io.Reader, opts backend.WriteOptions) error {
	content, err := mb.consume(key, reader, opts.Size)
	if err != nil {
		return err
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	if !opts.Overwrite {
		if _, exists := mb.objects.Get(key); exists {
			return data.NewError(data.KindAlreadyExists, data.OpWrite, key)
		}
	}

	mb.objects.Set(key, &object{
		content: content,
		entry: data.Entry{
			Key:         key,
			Size:        int64(len(content)),
			ModifyTime:  time.Now(),
			ContentType: opts.ContentType,
			ETag:        newETag(),
			IsDir:       data.IsDirPath(key),
		},
	})

	return nil
}

// Delete removes the object at key. Absent keys succeed.
func (mb *MemoryBackend) Delete(ctx context.Context, key string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.objects.Delete(key)
	return nil
}

// List returns one page of entries under the prefix in key order.
func (mb *MemoryBackend) List(ctx context.Context, prefix string, opts backend.ListOptions) (*backend.Page, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}

	pivot := prefix
	if opts.Token != "" {
		pivot = opts.Token
	}

	page := &backend.Page{}
	mb.objects.Ascend(pivot, func(key string, obj *object) bool {
		// The pivot itself was returned on the previous page
		if opts.Token != "" && key <= opts.Token {
			return true
		}
		if !data.HasPrefix(key, prefix) {
			return false
		}

		if len(page.Entries) == limit {
			page.Token = page.Entries[limit-1].Key
			return false
		}

		entry := obj.entry
		page.Entries = append(page.Entries, &entry)
		return true
	})

	return page, nil
}

// Presign is not supported by the memory backend.
func (mb *MemoryBackend) Presign(ctx context.Context, key string, op data.Operation, expiry time.Duration) (*data.PresignedRequest, error) {
	return nil, backend.Unsupported(data.OpPresign, key)
}

// Copy duplicates the object at src into dst, replacing dst.
func (mb *MemoryBackend) Copy(ctx context.Context, src, dst string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	obj, exists := mb.objects.Get(src)
	if !exists {
		return data.NewError(data.KindNotFound, data.OpCopy, src)
	}

	mb.objects.Set(dst, obj.clone(dst))
	return nil
}

// Rename moves the object at src to dst under a single lock.
func (mb *MemoryBackend) Rename(ctx context.Context, src, dst string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	obj, exists := mb.objects.Get(src)
	if !exists {
		return data.NewError(data.KindNotFound, data.OpRename, src)
	}

	mb.objects.Set(dst, obj.clone(dst))
	mb.objects.Delete(src)
	return nil
}

func (mb *MemoryBackend) consume(key string, reader io.Reader, size int64) ([]byte, error) {
	if mb.maxWriteSize > 0 {
		if size > mb.maxWriteSize {
			return nil, backend.Unsupported(data.OpWrite, key)
		}
		reader = io.LimitReader(reader, mb.maxWriteSize+1)
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, data.NewError(data.KindUnexpected, data.OpWrite, key).WithCause(err)
	}
	if mb.maxWriteSize > 0 && int64(len(content)) > mb.maxWriteSize {
		return nil, backend.Unsupported(data.OpWrite, key)
	}

	return content, nil
}

func (o *object) clone(key string) *object {
	content := make([]byte, len(o.content))
	copy(content, o.content)

	entry := o.entry
	entry.Key = key
	entry.ModifyTime = time.Now()

	return &object{
		content: content,
		entry:   entry,
	}
}

func newETag() string {
	return uuid.Must(uuid.NewV7()).String()
}
