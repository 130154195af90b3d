package backend

import (
	"context"
	"io"
	"time"

	"github.com/mwantia/ustore/data"
)

// Backend is the polymorphic contract every storage adapter satisfies.
// All paths are normalized keys relative to the adapter's configured root.
// Every failure crossing this boundary is a *data.Error.
type Backend interface {
	// Name returns the identifier name defined for this backend
	Name() string
	// Open is part of the lifecycle behaviour and gets called when opening this backend.
	Open(ctx context.Context) error
	// Close is part of the lifecycle behaviour and gets called when closing this backend.
	Close(ctx context.Context) error

	// Capabilities returns the static descriptor of supported operations.
	Capabilities() data.Capability

	// Stat returns the entry for a key.
	// Fails with data.ErrNotFound if the key is absent.
	Stat(ctx context.Context, key string) (*data.Entry, error)

	// Read opens a forward-only byte stream over the selected range.
	// The returned ReadCloser must be closed by the caller.
	Read(ctx context.Context, key string, rng data.ByteRange) (io.ReadCloser, error)

	// Write consumes the reader into the object at key.
	// Fails with data.ErrAlreadyExists when Overwrite is false and the
	// key exists, and with data.ErrUnsupported when the payload exceeds
	// what the backend can buffer or store.
	Write(ctx context.Context, key string, reader io.Reader, opts WriteOptions) error

	// Delete removes the object at key.
	// Deleting an absent key succeeds.
	Delete(ctx context.Context, key string) error

	// List returns one page of entries under the prefix, in backend-native
	// order. A non-empty page token resumes a previous listing.
	List(ctx context.Context, prefix string, opts ListOptions) (*Page, error)

	// Presign produces a signed request for the given operation.
	Presign(ctx context.Context, key string, op data.Operation, expiry time.Duration) (*data.PresignedRequest, error)

	// Copy duplicates the object at src into dst, replacing dst.
	Copy(ctx context.Context, src, dst string) error

	// Rename moves the object at src to dst atomically.
	// Backends without an atomic move advertise Rename as unsupported.
	Rename(ctx context.Context, src, dst string) error
}

// WriteOptions carries the operation-specific arguments of a write.
type WriteOptions struct {
	// Overwrite permits replacing an existing object.
	Overwrite bool

	// ContentType to record alongside the object, if the backend keeps one.
	ContentType string

	// Size of the payload in bytes, or a negative value when unknown.
	// Backends without streaming support use it to reject oversized
	// writes before consuming the reader.
	Size int64
}

// ListOptions carries the operation-specific arguments of a listing.
type ListOptions struct {
	// Token resumes a paginated listing. Empty starts from the beginning.
	Token string

	// Limit caps the entries per page. Zero applies the backend default.
	Limit int
}

// Page is one chunk of a listing.
type Page struct {
	Entries []*data.Entry

	// Token resumes the listing after this page. Empty means exhausted.
	Token string
}

// Unsupported builds the normalized error for an operation the backend
// doesn't advertise.
func Unsupported(op data.Operation, key string) error {
	return data.NewError(data.KindUnsupported, op, key)
}
