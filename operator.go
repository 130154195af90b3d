package ustore

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/mwantia/ustore/backend"
	"github.com/mwantia/ustore/data"
	"github.com/mwantia/ustore/layer"
	"github.com/mwantia/ustore/log"
)

// Operator is the user-facing handle bundling a backend and its
// middleware layers. It is safe for concurrent use; the layer chain is
// fixed once built.
//
// Operations outside the guaranteed baseline (stat, read, write, delete)
// are checked against the terminal adapter's capability descriptor and
// fail fast with Unsupported before any I/O happens.
type Operator struct {
	scheme Scheme
	head   backend.Backend

	logger  *log.Logger
	timeout time.Duration
}

// New creates an Operator for the given scheme and configuration.
// Construction validates configuration only; Open performs the first I/O.
func New(scheme Scheme, cfg map[string]string, opts ...OperatorOption) (*Operator, error) {
	options := newDefaultOperatorOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	base, err := newBackend(scheme, cfg)
	if err != nil {
		return nil, err
	}

	op := &Operator{
		scheme:  scheme,
		head:    layer.Chain(base, options.Layers...),
		logger:  options.Logger,
		timeout: options.Timeout,
	}

	op.logger.Debug("operator created for scheme '%s' with %d layer(s)", scheme, len(options.Layers))
	return op, nil
}

// NewFromAddress creates an Operator from a single-string address of the
// form scheme://..., with backend settings carried as query parameters.
func NewFromAddress(address string, opts ...OperatorOption) (*Operator, error) {
	scheme, cfg, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	return New(scheme, cfg, opts...)
}

// Open prepares the backend for use.
func (o *Operator) Open(ctx context.Context) error {
	return o.head.Open(ctx)
}

// Close releases the backend and everything the chain owns.
func (o *Operator) Close(ctx context.Context) error {
	return o.head.Close(ctx)
}

// Scheme returns the scheme this operator was built for.
func (o *Operator) Scheme() Scheme {
	return o.scheme
}

// Capabilities returns the descriptor as seen through the layer chain.
// Layers may narrow the terminal adapter's descriptor, never widen it.
func (o *Operator) Capabilities() data.Capability {
	return o.head.Capabilities()
}

// Supports is the cheap synchronous capability check, distinct from
// attempting an operation and catching the runtime failure.
func (o *Operator) Supports(op data.Operation) bool {
	return o.head.Capabilities().Supports(op)
}

// Stat returns the entry for a path.
func (o *Operator) Stat(ctx context.Context, path string) (*data.Entry, error) {
	key, err := data.NormalizePath(path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := o.applyTimeout(ctx)
	defer cancel()

	return o.head.Stat(ctx, key)
}

// Read opens a byte stream over the whole object.
func (o *Operator) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	return o.ReadRange(ctx, path, data.FullRange)
}

// ReadRange opens a byte stream over the selected range.
// The default timeout is not applied; the stream outlives the call.
func (o *Operator) ReadRange(ctx context.Context, path string, rng data.ByteRange) (io.ReadCloser, error) {
	key, err := data.NormalizePath(path)
	if err != nil {
		return nil, err
	}
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	return o.head.Read(ctx, key, rng)
}

// ReadAll reads the whole object into memory.
func (o *Operator) ReadAll(ctx context.Context, path string) ([]byte, error) {
	reader, err := o.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, data.NewError(data.KindUnexpected, data.OpRead, path).WithCause(err)
	}

	return content, nil
}

// Write consumes the reader into the object at path.
func (o *Operator) Write(ctx context.Context, path string, reader io.Reader, opts backend.WriteOptions) error {
	key, err := data.NormalizePath(path)
	if err != nil {
		return err
	}

	ctx, cancel := o.applyTimeout(ctx)
	defer cancel()

	return o.head.Write(ctx, key, reader, opts)
}

// WriteBytes writes an in-memory payload to the object at path.
func (o *Operator) WriteBytes(ctx context.Context, path string, content []byte, overwrite bool) error {
	return o.Write(ctx, path, bytes.NewReader(content), backend.WriteOptions{
		Overwrite: overwrite,
		Size:      int64(len(content)),
	})
}

// Delete removes the object at path. Deleting an absent path succeeds.
func (o *Operator) Delete(ctx context.Context, path string) error {
	key, err := data.NormalizePath(path)
	if err != nil {
		return err
	}

	ctx, cancel := o.applyTimeout(ctx)
	defer cancel()

	return o.head.Delete(ctx, key)
}

// List returns a lazy iterator over the entries under the prefix.
func (o *Operator) List(ctx context.Context, prefix string, opts backend.ListOptions) (*Lister, error) {
	key, err := data.NormalizePath(prefix)
	if err != nil {
		return nil, err
	}
	if !o.Supports(data.OpList) {
		return nil, backend.Unsupported(data.OpList, key)
	}

	return &Lister{
		head:   o.head,
		prefix: key,
		opts:   opts,
	}, nil
}

// ListPage returns a single page of entries under the prefix.
func (o *Operator) ListPage(ctx context.Context, prefix string, opts backend.ListOptions) (*backend.Page, error) {
	key, err := data.NormalizePath(prefix)
	if err != nil {
		return nil, err
	}
	if !o.Supports(data.OpList) {
		return nil, backend.Unsupported(data.OpList, key)
	}

	ctx, cancel := o.applyTimeout(ctx)
	defer cancel()

	return o.head.List(ctx, key, opts)
}

// Presign produces a signed request for the given operation.
func (o *Operator) Presign(ctx context.Context, path string, op data.Operation, expiry time.Duration) (*data.PresignedRequest, error) {
	key, err := data.NormalizePath(path)
	if err != nil {
		return nil, err
	}
	if !o.Supports(data.OpPresign) {
		return nil, backend.Unsupported(data.OpPresign, key)
	}

	ctx, cancel := o.applyTimeout(ctx)
	defer cancel()

	return o.head.Presign(ctx, key, op, expiry)
}

// Copy duplicates the object at src into dst.
func (o *Operator) Copy(ctx context.Context, src, dst string) error {
	srcKey, dstKey, err := o.normalizePair(src, dst)
	if err != nil {
		return err
	}
	if !o.Supports(data.OpCopy) {
		return backend.Unsupported(data.OpCopy, srcKey)
	}

	ctx, cancel := o.applyTimeout(ctx)
	defer cancel()

	return o.head.Copy(ctx, srcKey, dstKey)
}

// Rename moves the object at src to dst atomically.
func (o *Operator) Rename(ctx context.Context, src, dst string) error {
	srcKey, dstKey, err := o.normalizePair(src, dst)
	if err != nil {
		return err
	}
	if !o.Supports(data.OpRename) {
		return backend.Unsupported(data.OpRename, srcKey)
	}

	ctx, cancel := o.applyTimeout(ctx)
	defer cancel()

	return o.head.Rename(ctx, srcKey, dstKey)
}

func (o *Operator) normalizePair(src, dst string) (string, string, error) {
	srcKey, err := data.NormalizePath(src)
	if err != nil {
		return "", "", err
	}
	dstKey, err := data.NormalizePath(dst)
	if err != nil {
		return "", "", err
	}

	return srcKey, dstKey, nil
}

// applyTimeout attaches the default timeout when the caller's context
// carries no deadline of its own.
func (o *Operator) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return ctx, func() {}
	}
	if _, exists := ctx.Deadline(); exists {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, o.timeout)
}
