package consul

import (
	"errors"
	"testing"
	"time"

	"github.com/mwantia/ustore/data"
)

func TestConsulBackend_Defaults(t *testing.T) {
	cb, err := NewConsulBackend(nil)
	if err != nil {
		t.Fatalf("Backend creation failed: %v", err)
	}

	if cb.config.Address != "127.0.0.1:8500" {
		t.Errorf("Expected default address, got %q", cb.config.Address)
	}
	if cb.config.Prefix != "ustore/" {
		t.Errorf("Expected default prefix, got %q", cb.config.Prefix)
	}
	if cb.buildKey("a/b.txt") != "ustore/a/b.txt" {
		t.Errorf("Expected prefixed key, got %q", cb.buildKey("a/b.txt"))
	}

	caps := cb.Capabilities()
	if caps.MaxWriteSize != consulMaxValueSize {
		t.Errorf("Expected KV value limit advertised, got %d", caps.MaxWriteSize)
	}
	if caps.Rename || caps.Presign {
		t.Errorf("Expected rename and presign unsupported, got %+v", caps)
	}
}

func TestEnvelope_ToEntry(t *testing.T) {
	now := time.Now()
	env := &envelope{
		Size:        42,
		ModifyTime:  now.UnixNano(),
		ContentType: "text/plain",
		ETag:        "abc",
	}

	entry := env.toEntry("a.txt")
	if entry.Key != "a.txt" || entry.Size != 42 || entry.ETag != "abc" {
		t.Errorf("Unexpected entry %+v", entry)
	}
	if !entry.ModifyTime.Equal(time.Unix(0, now.UnixNano())) {
		t.Errorf("Expected modify time preserved, got %v", entry.ModifyTime)
	}
}

func TestMapConsulError(t *testing.T) {
	err := mapConsulError(errors.New("Unexpected response code: 403 (Permission denied)"), data.OpRead, "a.txt")
	if !errors.Is(err, data.ErrPermissionDenied) {
		t.Errorf("Expected PermissionDenied, got %v", err)
	}

	err = mapConsulError(errors.New("dial tcp: connection refused"), data.OpRead, "a.txt")
	if !errors.Is(err, data.ErrUnexpected) {
		t.Errorf("Expected Unexpected, got %v", err)
	}
	if !data.IsRetryable(err) {
		t.Error("Expected transport failures retryable")
	}
}
