package layer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mwantia/ustore/backend"
	"github.com/mwantia/ustore/data"
)

// RetryLayer re-invokes the inner call on retryable failures with
// exponential backoff. Non-retryable failures propagate immediately.
type RetryLayer struct {
	config RetryConfig
}

// RetryConfig contains configuration options for the retry layer
type RetryConfig struct {
	// MaxAttempts bounds the total invocations, first try included (default: 3)
	MaxAttempts int

	// BaseDelay before the second attempt; doubles per attempt (default: 100ms)
	BaseDelay time.Duration

	// MaxDelay caps the backoff (default: 10s)
	MaxDelay time.Duration
}

// NewRetry creates a new retry layer.
func NewRetry(config *RetryConfig) *RetryLayer {
	if config == nil {
		config = &RetryConfig{}
	}

	// Set defaults
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 10 * time.Second
	}

	return &RetryLayer{
		config: *config,
	}
}

func (rl *RetryLayer) Apply(inner backend.Backend) backend.Backend {
	return &retryBackend{
		inner:  inner,
		config: rl.config,
	}
}

type retryBackend struct {
	inner  backend.Backend
	config RetryConfig
}

func (rb *retryBackend) Name() string {
	return rb.inner.Name()
}

func (rb *retryBackend) Open(ctx context.Context) error {
	return rb.inner.Open(ctx)
}

func (rb *retryBackend) Close(ctx context.Context) error {
	return rb.inner.Close(ctx)
}

func (rb *retryBackend) Capabilities() data.Capability {
	return rb.inner.Capabilities()
}

func (rb *retryBackend) Stat(ctx context.Context, key string) (*data.Entry, error) {
	var entry *data.Entry
	err := rb.do(ctx, data.OpStat, key, func() error {
		var err error
		entry, err = rb.inner.Stat(ctx, key)
		return err
	})

	return entry, err
}

func (rb *retryBackend) Read(ctx context.Context, key string, rng data.ByteRange) (io.ReadCloser, error) {
	var reader io.ReadCloser
	err := rb.do(ctx, data.OpRead, key, func() error {
		var err error
		reader, err = rb.inner.Read(ctx, key, rng)
		return err
	})

	return reader, err
}

// Write retries only replayable sources; a plain reader may already be
// partially consumed when the first attempt fails.
func (rb *retryBackend) Write(ctx context.Context, key string, reader io.Reader, opts backend.WriteOptions) error {
	seeker, ok := reader.(io.Seeker)
	if !ok {
		return rb.inner.Write(ctx, key, reader, opts)
	}

	return rb.do(ctx, data.OpWrite, key, func() error {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return data.NewError(data.KindUnexpected, data.OpWrite, key).WithCause(err)
		}
		return rb.inner.Write(ctx, key, reader, opts)
	})
}

func (rb *retryBackend) Delete(ctx context.Context, key string) error {
	return rb.do(ctx, data.OpDelete, key, func() error {
		return rb.inner.Delete(ctx, key)
	})
}

func (rb *retryBackend) List(ctx context.Context, prefix string, opts backend.ListOptions) (*backend.Page, error) {
	var page *backend.Page
	err := rb.do(ctx, data.OpList, prefix, func() error {
		var err error
		page, err = rb.inner.List(ctx, prefix, opts)
		return err
	})

	return page, err
}

func (rb *retryBackend) Presign(ctx context.Context, key string, op data.Operation, expiry time.Duration) (*data.PresignedRequest, error) {
	var request *data.PresignedRequest
	err := rb.do(ctx, data.OpPresign, key, func() error {
		var err error
		request, err = rb.inner.Presign(ctx, key, op, expiry)
		return err
	})

	return request, err
}

func (rb *retryBackend) Copy(ctx context.Context, src, dst string) error {
	return rb.do(ctx, data.OpCopy, src, func() error {
		return rb.inner.Copy(ctx, src, dst)
	})
}

func (rb *retryBackend) Rename(ctx context.Context, src, dst string) error {
	return rb.do(ctx, data.OpRename, src, func() error {
		return rb.inner.Rename(ctx, src, dst)
	})
}

func (rb *retryBackend) do(ctx context.Context, op data.Operation, key string, fn func() error) error {
	var last error
	for attempt := 0; attempt < rb.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := rb.backoff(ctx, op, key, attempt); err != nil {
				return err
			}
		}

		last = fn()
		if last == nil || !data.IsRetryable(last) {
			return last
		}
	}

	return fmt.Errorf("retry exhausted after %d attempts: %w", rb.config.MaxAttempts, last)
}

// backoff sleeps base * 2^(attempt-1), capped at MaxDelay.
// A canceled context aborts the retry loop promptly.
func (rb *retryBackend) backoff(ctx context.Context, op data.Operation, key string, attempt int) error {
	delay := rb.config.BaseDelay << (attempt - 1)
	if delay > rb.config.MaxDelay {
		delay = rb.config.MaxDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return data.NewError(data.KindTimeout, op, key).WithCause(ctx.Err())
	}
}
