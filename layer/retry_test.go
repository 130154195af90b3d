package layer_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mwantia/ustore/data"
	"github.com/mwantia/ustore/layer"
)

func newRetryStub(failures int) (*stubBackend, *layer.RetryLayer) {
	stub := newStubBackend()
	stub.failures = failures

	return stub, layer.NewRetry(&layer.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	})
}

// TestRetry_SucceedsAfterTransientFailures verifies that transient
// failures are retried until the inner call succeeds.
func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	stub, retry := newRetryStub(2)
	head := retry.Apply(stub)

	entry, err := head.Stat(t.Context(), "flaky.txt")
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if entry == nil {
		t.Fatal("Expected an entry")
	}

	if count := stub.countOf(data.OpStat); count != 3 {
		t.Errorf("Expected 3 attempts, got %d", count)
	}
}

// TestRetry_Exhaustion verifies that the loop gives up after MaxAttempts
// and still surfaces the normalized error kind.
func TestRetry_Exhaustion(t *testing.T) {
	stub, retry := newRetryStub(10)
	head := retry.Apply(stub)

	_, err := head.Stat(t.Context(), "down.txt")
	if err == nil {
		t.Fatal("Expected exhaustion error")
	}

	if !strings.Contains(err.Error(), "3 attempts") {
		t.Errorf("Expected attempt count in error, got %q", err)
	}
	if !errors.Is(err, data.ErrUnexpected) {
		t.Errorf("Expected wrapped Unexpected kind, got %v", err)
	}

	if count := stub.countOf(data.OpStat); count != 3 {
		t.Errorf("Expected 3 attempts, got %d", count)
	}
}

// TestRetry_NonRetryablePropagatesImmediately verifies that failures not
// marked retryable skip the retry loop entirely.
func TestRetry_NonRetryablePropagatesImmediately(t *testing.T) {
	retry := layer.NewRetry(&layer.RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond})
	failing := &failingStatBackend{
		stubBackend: newStubBackend(),
		err:         data.NewError(data.KindNotFound, data.OpStat, "missing.txt"),
	}
	head := retry.Apply(failing)

	_, err := head.Stat(t.Context(), "missing.txt")
	if !errors.Is(err, data.ErrNotFound) {
		t.Fatalf("Expected NotFound, got %v", err)
	}

	if failing.calls != 1 {
		t.Errorf("Expected a single attempt, got %d", failing.calls)
	}
}

// TestRetry_ContextCancelAbortsBackoff verifies that a canceled context
// cuts the backoff sleep short with a Timeout error.
func TestRetry_ContextCancelAbortsBackoff(t *testing.T) {
	stub := newStubBackend()
	stub.failures = 10

	retry := layer.NewRetry(&layer.RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Minute,
	})
	head := retry.Apply(stub)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err := head.Stat(ctx, "slow.txt")
	if !errors.Is(err, data.ErrTimeout) {
		t.Fatalf("Expected Timeout, got %v", err)
	}

	if count := stub.countOf(data.OpStat); count != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got %d", count)
	}
}

// failingStatBackend overrides Stat with a fixed error.
type failingStatBackend struct {
	*stubBackend
	err error

	calls int
}

func (fb *failingStatBackend) Stat(ctx context.Context, key string) (*data.Entry, error) {
	fb.calls++
	return nil, fb.err
}
