package layer

import (
	"context"
	"io"
	"time"

	"github.com/mwantia/ustore/backend"
	"github.com/mwantia/ustore/data"
	"golang.org/x/sync/semaphore"
)

// LimitLayer bounds the number of in-flight operations against the inner
// backend through a weighted semaphore. Callers beyond the bound suspend
// until a slot frees; with an acquire timeout configured they fail with
// Timeout instead of waiting indefinitely.
type LimitLayer struct {
	config LimitConfig
}

// LimitConfig contains configuration options for the limit layer
type LimitConfig struct {
	// MaxConcurrent bounds in-flight operations (default: 64)
	MaxConcurrent int64

	// AcquireTimeout bounds the wait for a free slot.
	// Zero waits until the caller's context is done.
	AcquireTimeout time.Duration
}

// NewLimit creates a new concurrency-limiting layer.
func NewLimit(config *LimitConfig) *LimitLayer {
	if config == nil {
		config = &LimitConfig{}
	}

	// Set defaults
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 64
	}

	return &LimitLayer{
		config: *config,
	}
}

func (ll *LimitLayer) Apply(inner backend.Backend) backend.Backend {
	return &limitBackend{
		inner:  inner,
		sem:    semaphore.NewWeighted(ll.config.MaxConcurrent),
		config: ll.config,
	}
}

type limitBackend struct {
	inner  backend.Backend
	sem    *semaphore.Weighted
	config LimitConfig
}

func (lb *limitBackend) Name() string {
	return lb.inner.Name()
}

func (lb *limitBackend) Open(ctx context.Context) error {
	return lb.inner.Open(ctx)
}

func (lb *limitBackend) Close(ctx context.Context) error {
	return lb.inner.Close(ctx)
}

func (lb *limitBackend) Capabilities() data.Capability {
	return lb.inner.Capabilities()
}

func (lb *limitBackend) Stat(ctx context.Context, key string) (*data.Entry, error) {
	if err := lb.acquire(ctx, data.OpStat, key); err != nil {
		return nil, err
	}
	defer lb.sem.Release(1)

	return lb.inner.Stat(ctx, key)
}

// Read holds its admission slot until the returned stream is closed,
// so an open stream counts as an in-flight operation.
func (lb *limitBackend) Read(ctx context.Context, key string, rng data.ByteRange) (io.ReadCloser, error) {
	if err := lb.acquire(ctx, data.OpRead, key); err != nil {
		return nil, err
	}

	reader, err := lb.inner.Read(ctx, key, rng)
	if err != nil {
		lb.sem.Release(1)
		return nil, err
	}

	return &releasingReader{
		inner: reader,
		sem:   lb.sem,
	}, nil
}

func (lb *limitBackend) Write(ctx context.Context, key string, reader io.Reader, opts backend.WriteOptions) error {
	if err := lb.acquire(ctx, data.OpWrite, key); err != nil {
		return err
	}
	defer lb.sem.Release(1)

	return lb.inner.Write(ctx, key, reader, opts)
}

func (lb *limitBackend) Delete(ctx context.Context, key string) error {
	if err := lb.acquire(ctx, data.OpDelete, key); err != nil {
		return err
	}
	defer lb.sem.Release(1)

	return lb.inner.Delete(ctx, key)
}

func (lb *limitBackend) List(ctx context.Context, prefix string, opts backend.ListOptions) (*backend.Page, error) {
	if err := lb.acquire(ctx, data.OpList, prefix); err != nil {
		return nil, err
	}
	defer lb.sem.Release(1)

	return lb.inner.List(ctx, prefix, opts)
}

func (lb *limitBackend) Presign(ctx context.Context, key string, op data.Operation, expiry time.Duration) (*data.PresignedRequest, error) {
	if err := lb.acquire(ctx, data.OpPresign, key); err != nil {
		return nil, err
	}
	defer lb.sem.Release(1)

	return lb.inner.Presign(ctx, key, op, expiry)
}

func (lb *limitBackend) Copy(ctx context.Context, src, dst string) error {
	if err := lb.acquire(ctx, data.OpCopy, src); err != nil {
		return err
	}
	defer lb.sem.Release(1)

	return lb.inner.Copy(ctx, src, dst)
}

func (lb *limitBackend) Rename(ctx context.Context, src, dst string) error {
	if err := lb.acquire(ctx, data.OpRename, src); err != nil {
		return err
	}
	defer lb.sem.Release(1)

	return lb.inner.Rename(ctx, src, dst)
}

func (lb *limitBackend) acquire(ctx context.Context, op data.Operation, key string) error {
	acquireCtx := ctx
	if lb.config.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, lb.config.AcquireTimeout)
		defer cancel()
	}

	if err := lb.sem.Acquire(acquireCtx, 1); err != nil {
		return data.NewError(data.KindTimeout, op, key).WithCause(err)
	}

	return nil
}

// releasingReader frees the admission slot when the stream closes.
type releasingReader struct {
	inner  io.ReadCloser
	sem    *semaphore.Weighted
	closed bool
}

func (rr *releasingReader) Read(p []byte) (int, error) {
	return rr.inner.Read(p)
}

func (rr *releasingReader) Close() error {
	if !rr.closed {
		rr.closed = true
		rr.sem.Release(1)
	}

	return rr.inner.Close()
}
