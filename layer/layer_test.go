package layer_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mwantia/ustore/backend"
	"github.com/mwantia/ustore/data"
	"github.com/mwantia/ustore/layer"
)

// stubBackend is a configurable in-process backend for exercising layers
// without real storage behind them.
type stubBackend struct {
	caps  data.Capability
	delay time.Duration

	mu       sync.Mutex
	calls    map[data.Operation]int
	failures int
	inflight int
	peak     int
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		caps: data.Capability{
			Stat:   true,
			Read:   true,
			Write:  true,
			Delete: true,
			List:   true,
			Copy:   true,
			Rename: true,
		},
		calls: make(map[data.Operation]int),
	}
}

func (sb *stubBackend) Name() string {
	return "stub"
}

func (sb *stubBackend) Open(ctx context.Context) error {
	return nil
}

func (sb *stubBackend) Close(ctx context.Context) error {
	return nil
}

func (sb *stubBackend) Capabilities() data.Capability {
	return sb.caps
}

// enter records the call, simulates latency and consumes one queued
// retryable failure when configured.
func (sb *stubBackend) enter(op data.Operation, key string) error {
	sb.mu.Lock()
	sb.calls[op]++
	sb.inflight++
	if sb.inflight > sb.peak {
		sb.peak = sb.inflight
	}
	fail := sb.failures > 0
	if fail {
		sb.failures--
	}
	delay := sb.delay
	sb.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	sb.mu.Lock()
	sb.inflight--
	sb.mu.Unlock()

	if fail {
		return data.NewError(data.KindUnexpected, op, key).Retryable()
	}

	return nil
}

func (sb *stubBackend) countOf(op data.Operation) int {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.calls[op]
}

func (sb *stubBackend) Stat(ctx context.Context, key string) (*data.Entry, error) {
	if err := sb.enter(data.OpStat, key); err != nil {
		return nil, err
	}

	return data.NewEntry(key, 0), nil
}

func (sb *stubBackend) Read(ctx context.Context, key string, rng data.ByteRange) (io.ReadCloser, error) {
	if err := sb.enter(data.OpRead, key); err != nil {
		return nil, err
	}

	return io.NopCloser(&emptyReader{}), nil
}

func (sb *stubBackend) Write(ctx context.Context, key string, reader io.Reader, opts backend.WriteOptions) error {
	if err := sb.enter(data.OpWrite, key); err != nil {
		return err
	}

	_, err := io.Copy(io.Discard, reader)
	return err
}

func (sb *stubBackend) Delete(ctx context.Context, key string) error {
	return sb.enter(data.OpDelete, key)
}

func (sb *stubBackend) List(ctx context.Context, prefix string, opts backend.ListOptions) (*backend.Page, error) {
	if err := sb.enter(data.OpList, prefix); err != nil {
		return nil, err
	}

	return &backend.Page{}, nil
}

func (sb *stubBackend) Presign(ctx context.Context, key string, op data.Operation, expiry time.Duration) (*data.PresignedRequest, error) {
	if err := sb.enter(data.OpPresign, key); err != nil {
		return nil, err
	}

	return &data.PresignedRequest{}, nil
}

func (sb *stubBackend) Copy(ctx context.Context, src, dst string) error {
	return sb.enter(data.OpCopy, src)
}

func (sb *stubBackend) Rename(ctx context.Context, src, dst string) error {
	return sb.enter(data.OpRename, src)
}

type emptyReader struct{}

func (er *emptyReader) Read(p []byte) (int, error) {
	return 0, io.EOF
}

// TestChain_Ordering verifies that the first listed layer ends up
// outermost: a read-only layer outside a retry layer must reject writes
// before any retry happens.
func TestChain_Ordering(t *testing.T) {
	stub := newStubBackend()
	stub.failures = 10

	head := layer.Chain(stub,
		layer.NewReadOnly(),
		layer.NewRetry(&layer.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}),
	)

	err := head.Delete(t.Context(), "a.txt")
	if err == nil {
		t.Fatal("Expected rejection from the read-only layer")
	}
	if stub.countOf(data.OpDelete) != 0 {
		t.Errorf("Expected zero inner calls, got %d", stub.countOf(data.OpDelete))
	}
}
