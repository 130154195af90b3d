package s3

import (
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/mwantia/ustore/data"
)

func TestMapS3Error(t *testing.T) {
	cases := map[string]struct {
		response  minio.ErrorResponse
		sentinel  error
		retryable bool
	}{
		"no-such-key": {
			response: minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404},
			sentinel: data.ErrNotFound,
		},
		"no-such-bucket": {
			response: minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: 404},
			sentinel: data.ErrNotFound,
		},
		"access-denied": {
			response: minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403},
			sentinel: data.ErrPermissionDenied,
		},
		"invalid-range": {
			response: minio.ErrorResponse{Code: "InvalidRange", StatusCode: 416},
			sentinel: data.ErrRangeNotSatisfiable,
		},
		"slow-down": {
			response:  minio.ErrorResponse{Code: "SlowDown", StatusCode: 503},
			sentinel:  data.ErrUnexpected,
			retryable: true,
		},
		"internal-error": {
			response:  minio.ErrorResponse{Code: "InternalError", StatusCode: 500},
			sentinel:  data.ErrUnexpected,
			retryable: true,
		},
		"server-side": {
			response:  minio.ErrorResponse{Code: "Unknown", StatusCode: 502},
			sentinel:  data.ErrUnexpected,
			retryable: true,
		},
		"client-side": {
			response: minio.ErrorResponse{Code: "InvalidArgument", StatusCode: 400},
			sentinel: data.ErrUnexpected,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(tst *testing.T) {
			err := mapS3Error(tc.response, data.OpRead, "a.txt")

			if !errors.Is(err, tc.sentinel) {
				tst.Errorf("Expected kind %v, got %v", tc.sentinel, err)
			}
			if data.IsRetryable(err) != tc.retryable {
				tst.Errorf("Expected retryable=%v, got %v", tc.retryable, err)
			}

			var normalized *data.Error
			if !errors.As(err, &normalized) {
				tst.Fatalf("Expected normalized error, got %T", err)
			}
			if normalized.Code != tc.response.Code {
				tst.Errorf("Expected code %q preserved, got %q", tc.response.Code, normalized.Code)
			}
		})
	}
}
