package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwantia/ustore/backend"
	"github.com/mwantia/ustore/data"
)

// LocalBackend provides access to the local filesystem.
// All keys are resolved relative to the root path specified during creation.
type LocalBackend struct {
	root string
}

// NewLocalBackend creates a new adapter rooted at the given path.
func NewLocalBackend(root string) (*LocalBackend, error) {
	if root == "" {
		return nil, data.NewError(data.KindConfigInvalid, "", "").
			WithCause(errors.New("missing required key 'root'"))
	}

	return &LocalBackend{
		root: filepath.Clean(root),
	}, nil
}

// Name returns the identifier name defined for this backend
func (*LocalBackend) Name() string {
	return "fs"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (lb *LocalBackend) Open(ctx context.Context) error {
	if err := os.MkdirAll(lb.root, 0755); err != nil {
		return mapOSError(err, "", lb.root)
	}
	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (lb *LocalBackend) Close(ctx context.Context) error {
	return nil
}

// Capabilities returns the static descriptor of supported operations.
func (lb *LocalBackend) Capabilities() data.Capability {
	return data.Capability{
		Stat:   true,
		Read:   true,
		Write:  true,
		Delete: true,
		List:   true,
		Copy:   true,
		// os.Rename is atomic on POSIX filesystems
		Rename: true,
	}
}

// Stat returns the entry for a key.
func (lb *LocalBackend) Stat(ctx context.Context, key string) (*data.Entry, error) {
	info, err := os.Stat(lb.resolve(key))
	if err != nil {
		return nil, mapOSError(err, data.OpStat, key)
	}

	return lb.toEntry(info, key), nil
}

// Read opens a byte stream over the selected range.
func (lb *LocalBackend) Read(ctx context.Context, key string, rng data.ByteRange) (io.ReadCloser, error) {
	file, err := os.Open(lb.resolve(key))
	if err != nil {
		return nil, mapOSError(err, data.OpRead, key)
	}

	if rng.IsFull() {
		return file, nil
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, mapOSError(err, data.OpRead, key)
	}

	size := info.Size()
	start, end := rng.Start, rng.End
	if rng.Unbounded() {
		end = size
	}
	if start > size || end > size {
		file.Close()
		return nil, data.NewError(data.KindRangeNotSatisfiable, data.OpRead, key)
	}

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		file.Close()
		return nil, mapOSError(err, data.OpRead, key)
	}

	return &rangeReader{
		reader: io.LimitReader(file, end-start),
		file:   file,
	}, nil
}

// Write consumes the reader into the file at key.
func (lb *LocalBackend) Write(ctx context.Context, key string, reader io.Reader, opts backend.WriteOptions) error {
	fullPath := lb.resolve(key)

	if data.IsDirPath(key) {
		if err := os.MkdirAll(fullPath, 0755); err != nil {
			return mapOSError(err, data.OpWrite, key)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return mapOSError(err, data.OpWrite, key)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !opts.Overwrite {
		flags |= os.O_EXCL
	}

	file, err := os.OpenFile(fullPath, flags, 0644)
	if err != nil {
		return mapOSError(err, data.OpWrite, key)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(fullPath)
		return data.NewError(data.KindUnexpected, data.OpWrite, key).WithCause(err)
	}

	if err := file.Close(); err != nil {
		return mapOSError(err, data.OpWrite, key)
	}

	return nil
}

// Delete removes the file or directory marker at key. Absent keys succeed.
func (lb *LocalBackend) Delete(ctx context.Context, key string) error {
	if err := os.Remove(lb.resolve(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return mapOSError(err, data.OpDelete, key)
	}

	return nil
}

// List returns the immediate children of the prefix directory.
// The local filesystem lists a full directory at once; no pagination.
func (lb *LocalBackend) List(ctx context.Context, prefix string, opts backend.ListOptions) (*backend.Page, error) {
	fullPath := lb.resolve(prefix)

	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Listing an absent prefix yields an empty page
			return &backend.Page{}, nil
		}
		return nil, mapOSError(err, data.OpList, prefix)
	}

	if !info.IsDir() {
		return &backend.Page{
			Entries: []*data.Entry{lb.toEntry(info, prefix)},
		}, nil
	}

	children, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, mapOSError(err, data.OpList, prefix)
	}

	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	page := &backend.Page{
		Entries: make([]*data.Entry, 0, len(children)),
	}
	for _, child := range children {
		info, err := child.Info()
		if err != nil {
			continue
		}

		key := prefix + child.Name()
		page.Entries = append(page.Entries, lb.toEntry(info, key))
	}

	return page, nil
}

// Presign is not supported by the local backend.
func (lb *LocalBackend) Presign(ctx context.Context, key string, op data.Operation, expiry time.Duration) (*data.PresignedRequest, error) {
	return nil, backend.Unsupported(data.OpPresign, key)
}

// Copy duplicates the file at src into dst, replacing dst.
func (lb *LocalBackend) Copy(ctx context.Context, src, dst string) error {
	source, err := os.Open(lb.resolve(src))
	if err != nil {
		return mapOSError(err, data.OpCopy, src)
	}
	defer source.Close()

	return lb.Write(ctx, dst, source, backend.WriteOptions{Overwrite: true})
}

// Rename moves the file at src to dst via os.Rename.
func (lb *LocalBackend) Rename(ctx context.Context, src, dst string) error {
	target := lb.resolve(dst)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return mapOSError(err, data.OpRename, dst)
	}

	if err := os.Rename(lb.resolve(src), target); err != nil {
		return mapOSError(err, data.OpRename, src)
	}

	return nil
}

func (lb *LocalBackend) resolve(key string) string {
	return filepath.Join(lb.root, filepath.FromSlash(key))
}

func (lb *LocalBackend) toEntry(info fs.FileInfo, key string) *data.Entry {
	if info.IsDir() && key != "" && !strings.HasSuffix(key, "/") {
		key += "/"
	}

	entry := &data.Entry{
		Key:        key,
		ModifyTime: info.ModTime(),
		IsDir:      info.IsDir(),
	}
	if !info.IsDir() {
		entry.Size = info.Size()
	}

	return entry
}

func mapOSError(err error, op data.Operation, key string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return data.NewError(data.KindNotFound, op, key).WithCause(err)
	case errors.Is(err, fs.ErrExist):
		return data.NewError(data.KindAlreadyExists, op, key).WithCause(err)
	case errors.Is(err, fs.ErrPermission):
		return data.NewError(data.KindPermissionDenied, op, key).WithCause(err)
	default:
		return data.NewError(data.KindUnexpected, op, key).WithCause(err)
	}
}

// rangeReader limits a file stream to the selected window and closes the
// underlying handle with the stream.
type rangeReader struct {
	reader io.Reader
	file   *os.File
}

func (rr *rangeReader) Read(p []byte) (int, error) {
	return rr.reader.Read(p)
}

func (rr *rangeReader) Close() error {
	return rr.file.Close()
}
