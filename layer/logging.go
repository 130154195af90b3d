package layer

import (
	"context"
	"io"
	"time"

	"github.com/mwantia/ustore/backend"
	"github.com/mwantia/ustore/data"
	"github.com/mwantia/ustore/log"
)

// LoggingLayer records operation, path, duration and outcome for every
// call. It never alters results or errors.
type LoggingLayer struct {
	logger *log.Logger
}

// NewLogging creates a new logging layer writing through the given logger.
func NewLogging(logger *log.Logger) *LoggingLayer {
	if logger == nil {
		logger = log.NewLogger("ustore", log.Info, "", false)
	}

	return &LoggingLayer{
		logger: logger,
	}
}

func (ll *LoggingLayer) Apply(inner backend.Backend) backend.Backend {
	return &loggingBackend{
		inner:  inner,
		logger: ll.logger.Named(inner.Name()),
	}
}

type loggingBackend struct {
	inner  backend.Backend
	logger *log.Logger
}

func (lb *loggingBackend) Name() string {
	return lb.inner.Name()
}

func (lb *loggingBackend) Open(ctx context.Context) error {
	err := lb.inner.Open(ctx)
	if err != nil {
		lb.logger.Error("open failed: %v", err)
	} else {
		lb.logger.Debug("backend opened")
	}

	return err
}

func (lb *loggingBackend) Close(ctx context.Context) error {
	err := lb.inner.Close(ctx)
	if err != nil {
		lb.logger.Error("close failed: %v", err)
	} else {
		lb.logger.Debug("backend closed")
	}

	return err
}

func (lb *loggingBackend) Capabilities() data.Capability {
	return lb.inner.Capabilities()
}

func (lb *loggingBackend) Stat(ctx context.Context, key string) (*data.Entry, error) {
	start := time.Now()
	entry, err := lb.inner.Stat(ctx, key)
	lb.observe(data.OpStat, key, start, err)

	return entry, err
}

func (lb *loggingBackend) Read(ctx context.Context, key string, rng data.ByteRange) (io.ReadCloser, error) {
	start := time.Now()
	reader, err := lb.inner.Read(ctx, key, rng)
	lb.observe(data.OpRead, key, start, err)

	return reader, err
}

func (lb *loggingBackend) Write(ctx context.Context, key string, reader io.Reader, opts backend.WriteOptions) error {
	start := time.Now()
	err := lb.inner.Write(ctx, key, reader, opts)
	lb.observe(data.OpWrite, key, start, err)

	return err
}

func (lb *loggingBackend) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := lb.inner.Delete(ctx, key)
	lb.observe(data.OpDelete, key, start, err)

	return err
}

func (lb *loggingBackend) List(ctx context.Context, prefix string, opts backend.ListOptions) (*backend.Page, error) {
	start := time.Now()
	page, err := lb.inner.List(ctx, prefix, opts)
	lb.observe(data.OpList, prefix, start, err)

	return page, err
}

func (lb *loggingBackend) Presign(ctx context.Context, key string, op data.Operation, expiry time.Duration) (*data.PresignedRequest, error) {
	start := time.Now()
	request, err := lb.inner.Presign(ctx, key, op, expiry)
	lb.observe(data.OpPresign, key, start, err)

	return request, err
}

func (lb *loggingBackend) Copy(ctx context.Context, src, dst string) error {
	start := time.Now()
	err := lb.inner.Copy(ctx, src, dst)
	lb.observe(data.OpCopy, src, start, err)

	return err
}

func (lb *loggingBackend) Rename(ctx context.Context, src, dst string) error {
	start := time.Now()
	err := lb.inner.Rename(ctx, src, dst)
	lb.observe(data.OpRename, src, start, err)

	return err
}

func (lb *loggingBackend) observe(op data.Operation, key string, start time.Time, err error) {
	elapsed := time.Since(start)

	if err != nil {
		lb.logger.Warn("%s '%s' failed after %s: %s", op, key, elapsed, data.KindOf(err))
		return
	}

	lb.logger.Debug("%s '%s' succeeded in %s", op, key, elapsed)
}
