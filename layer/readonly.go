package layer

import (
	"context"
	"io"
	"time"

	"github.com/mwantia/ustore/backend"
	"github.com/mwantia/ustore/data"
)

// ReadOnlyLayer makes any backend read-only.
// Read operations pass through untouched; the advertised capability is
// narrowed so mutations report as unsupported before reaching I/O.
type ReadOnlyLayer struct{}

// NewReadOnly creates a new read-only layer.
func NewReadOnly() *ReadOnlyLayer {
	return &ReadOnlyLayer{}
}

func (rl *ReadOnlyLayer) Apply(inner backend.Backend) backend.Backend {
	return &readOnlyBackend{
		inner: inner,
	}
}

type readOnlyBackend struct {
	inner backend.Backend
}

func (rb *readOnlyBackend) Name() string {
	return rb.inner.Name()
}

func (rb *readOnlyBackend) Open(ctx context.Context) error {
	return rb.inner.Open(ctx)
}

func (rb *readOnlyBackend) Close(ctx context.Context) error {
	return rb.inner.Close(ctx)
}

// Capabilities narrows the inner descriptor; a layer may remove
// advertised capabilities but never add one the backend lacks.
func (rb *readOnlyBackend) Capabilities() data.Capability {
	caps := rb.inner.Capabilities()
	caps.Write = false
	caps.Delete = false
	caps.Copy = false
	caps.Rename = false
	caps.Multipart = false
	caps.MaxWriteSize = 0

	return caps
}

func (rb *readOnlyBackend) Stat(ctx context.Context, key string) (*data.Entry, error) {
	return rb.inner.Stat(ctx, key)
}

func (rb *readOnlyBackend) Read(ctx context.Context, key string, rng data.ByteRange) (io.ReadCloser, error) {
	return rb.inner.Read(ctx, key, rng)
}

func (rb *readOnlyBackend) Write(ctx context.Context, key string, reader io.Reader, opts backend.WriteOptions) error {
	return backend.Unsupported(data.OpWrite, key)
}

func (rb *readOnlyBackend) Delete(ctx context.Context, key string) error {
	return backend.Unsupported(data.OpDelete, key)
}

func (rb *readOnlyBackend) List(ctx context.Context, prefix string, opts backend.ListOptions) (*backend.Page, error) {
	return rb.inner.List(ctx, prefix, opts)
}

func (rb *readOnlyBackend) Presign(ctx context.Context, key string, op data.Operation, expiry time.Duration) (*data.PresignedRequest, error) {
	if op != data.OpRead && op != data.OpStat {
		return nil, backend.Unsupported(data.OpPresign, key)
	}

	return rb.inner.Presign(ctx, key, op, expiry)
}

func (rb *readOnlyBackend) Copy(ctx context.Context, src, dst string) error {
	return backend.Unsupported(data.OpCopy, src)
}

func (rb *readOnlyBackend) Rename(ctx context.Context, src, dst string) error {
	return backend.Unsupported(data.OpRename, src)
}
