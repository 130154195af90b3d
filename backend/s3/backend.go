package s3

import (
	"context"
	"errors"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mwantia/ustore/data"
)

// S3Backend provides an object storage adapter for S3-compatible services
// through the MinIO client. The client owns its connection pool; all
// synchronization happens inside it.
type S3Backend struct {
	client *minio.Client
	bucket string
}

// Config contains configuration options for the S3 backend
type Config struct {
	// Endpoint of the S3-compatible service, host:port
	Endpoint string

	// Bucket all keys are stored in
	Bucket string

	AccessKey string
	SecretKey string

	// Region of the bucket (optional)
	Region string

	// UseSSL enables TLS towards the endpoint
	UseSSL bool
}

// NewS3Backend creates a new adapter for an S3-compatible service.
func NewS3Backend(config *Config) (*S3Backend, error) {
	if config == nil || config.Endpoint == "" {
		return nil, data.NewError(data.KindConfigInvalid, "", "").
			WithCause(errors.New("missing required key 'endpoint'"))
	}
	if config.Bucket == "" {
		return nil, data.NewError(data.KindConfigInvalid, "", "").
			WithCause(errors.New("missing required key 'bucket'"))
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, data.NewError(data.KindConfigInvalid, "", "").WithCause(err)
	}

	return &S3Backend{
		client: client,
		bucket: config.Bucket,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*S3Backend) Name() string {
	return "s3"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (sb *S3Backend) Open(ctx context.Context) error {
	exists, err := sb.client.BucketExists(ctx, sb.bucket)
	if err != nil {
		return mapS3Error(err, "", "")
	}
	if !exists {
		return data.NewError(data.KindNotFound, "", sb.bucket).
			WithCause(errors.New("bucket does not exist"))
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (sb *S3Backend) Close(ctx context.Context) error {
	return nil
}

// Capabilities returns the static descriptor of supported operations.
func (sb *S3Backend) Capabilities() data.Capability {
	return data.Capability{
		Stat:             true,
		Read:             true,
		Write:            true,
		Delete:           true,
		List:             true,
		ListContinuation: true,
		Presign:          true,
		Copy:             true,
		// The client splits large writes into multipart uploads
		Multipart: true,
	}
}
