package s3

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/mwantia/ustore/backend"
	"github.com/mwantia/ustore/data"
)

const defaultPageLimit = 1000

// Stat returns the entry for a key.
func (sb *S3Backend) Stat(ctx context.Context, key string) (*data.Entry, error) {
	if key == "" {
		return &data.Entry{Key: "", IsDir: true}, nil
	}

	info, err := sb.client.StatObject(ctx, sb.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, mapS3Error(err, data.OpStat, key)
	}

	return toEntry(info), nil
}

// Read opens a byte stream over the selected range.
func (sb *S3Backend) Read(ctx context.Context, key string, rng data.ByteRange) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	if !rng.IsFull() {
		// S3 ranges are inclusive on both ends
		end := rng.End - 1
		if rng.Unbounded() {
			end = 0
		}
		if err := opts.SetRange(rng.Start, end); err != nil {
			return nil, data.NewError(data.KindRangeNotSatisfiable, data.OpRead, key).WithCause(err)
		}
	}

	object, err := sb.client.GetObject(ctx, sb.bucket, key, opts)
	if err != nil {
		return nil, mapS3Error(err, data.OpRead, key)
	}

	// GetObject is lazy; surface stat errors before handing out the stream
	if _, err := object.Stat(); err != nil {
		object.Close()
		return nil, mapS3Error(err, data.OpRead, key)
	}

	return object, nil
}

// Write consumes the reader into the object at key. Unknown sizes are
// streamed as multipart uploads by the client.
func (sb *S3Backend) Write(ctx context.Context, key string, reader io.Reader, opts backend.WriteOptions) error {
	if !opts.Overwrite {
		_, err := sb.client.StatObject(ctx, sb.bucket, key, minio.StatObjectOptions{})
		if err == nil {
			return data.NewError(data.KindAlreadyExists, data.OpWrite, key)
		}
		if kindOfS3(err) != data.KindNotFound {
			return mapS3Error(err, data.OpWrite, key)
		}
	}

	size := opts.Size
	if size == 0 {
		size = -1
	}

	putOpts := minio.PutObjectOptions{
		ContentType: opts.ContentType,
	}
	if data.IsDirPath(key) {
		putOpts.ContentType = "application/x-directory"
	}

	if _, err := sb.client.PutObject(ctx, sb.bucket, key, reader, size, putOpts); err != nil {
		return mapS3Error(err, data.OpWrite, key)
	}

	return nil
}

// Delete removes the object at key. S3 deletes are idempotent.
func (sb *S3Backend) Delete(ctx context.Context, key string) error {
	if err := sb.client.RemoveObject(ctx, sb.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if kindOfS3(err) == data.KindNotFound {
			return nil
		}
		return mapS3Error(err, data.OpDelete, key)
	}

	return nil
}

// List returns one page of entries under the prefix in key order.
func (sb *S3Backend) List(ctx context.Context, prefix string, opts backend.ListOptions) (*backend.Page, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := sb.client.ListObjects(listCtx, sb.bucket, minio.ListObjectsOptions{
		Prefix:     prefix,
		Recursive:  true,
		StartAfter: opts.Token,
	})

	page := &backend.Page{}
	for info := range objects {
		if info.Err != nil {
			return nil, mapS3Error(info.Err, data.OpList, prefix)
		}

		if len(page.Entries) == limit {
			page.Token = page.Entries[limit-1].Key
			break
		}
		page.Entries = append(page.Entries, toEntry(info))
	}

	return page, nil
}

// Presign produces a signed URL for the given operation.
func (sb *S3Backend) Presign(ctx context.Context, key string, op data.Operation, expiry time.Duration) (*data.PresignedRequest, error) {
	var (
		method string
		signed *url.URL
		err    error
	)

	switch op {
	case data.OpRead:
		method = http.MethodGet
		signed, err = sb.client.PresignedGetObject(ctx, sb.bucket, key, expiry, nil)
	case data.OpWrite:
		method = http.MethodPut
		signed, err = sb.client.PresignedPutObject(ctx, sb.bucket, key, expiry)
	case data.OpStat:
		method = http.MethodHead
		signed, err = sb.client.PresignedHeadObject(ctx, sb.bucket, key, expiry, nil)
	default:
		return nil, backend.Unsupported(data.OpPresign, key)
	}

	if err != nil {
		return nil, mapS3Error(err, data.OpPresign, key)
	}

	return &data.PresignedRequest{
		URL:       signed.String(),
		Method:    method,
		ExpiresAt: time.Now().Add(expiry),
	}, nil
}

// Copy duplicates the object at src into dst server-side.
func (sb *S3Backend) Copy(ctx context.Context, src, dst string) error {
	_, err := sb.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: sb.bucket, Object: dst},
		minio.CopySrcOptions{Bucket: sb.bucket, Object: src})
	if err != nil {
		return mapS3Error(err, data.OpCopy, src)
	}

	return nil
}

// Rename is not supported; S3 has no atomic move.
func (sb *S3Backend) Rename(ctx context.Context, src, dst string) error {
	return backend.Unsupported(data.OpRename, src)
}

func toEntry(info minio.ObjectInfo) *data.Entry {
	return &data.Entry{
		Key:         info.Key,
		Size:        info.Size,
		ModifyTime:  info.LastModified,
		ContentType: info.ContentType,
		ETag:        info.ETag,
		IsDir:       strings.HasSuffix(info.Key, "/") || info.ContentType == "application/x-directory",
	}
}

func kindOfS3(err error) data.ErrorKind {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return data.KindNotFound
	case "AccessDenied":
		return data.KindPermissionDenied
	case "InvalidRange":
		return data.KindRangeNotSatisfiable
	default:
		return data.KindUnexpected
	}
}

// mapS3Error normalizes a MinIO client failure into the error taxonomy.
// Throttling and server-side hiccups are marked retryable.
func mapS3Error(err error, op data.Operation, key string) error {
	response := minio.ToErrorResponse(err)
	kind := kindOfS3(err)

	normalized := data.NewError(kind, op, key).
		WithCode(response.Code).
		WithCause(err)

	if kind == data.KindUnexpected {
		switch response.Code {
		case "SlowDown", "InternalError", "RequestTimeout", "ServiceUnavailable":
			normalized = normalized.Retryable()
		default:
			if response.StatusCode >= 500 || response.StatusCode == 0 {
				// Transport-level failures carry no status code
				normalized = normalized.Retryable()
			}
		}
	}

	return normalized
}
