package layer_test

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mwantia/ustore/data"
	"github.com/mwantia/ustore/layer"
)

// TestLimit_BoundsConcurrency verifies that no more than MaxConcurrent
// operations reach the inner backend at once.
func TestLimit_BoundsConcurrency(t *testing.T) {
	stub := newStubBackend()
	stub.delay = 50 * time.Millisecond

	limit := layer.NewLimit(&layer.LimitConfig{MaxConcurrent: 2})
	head := limit.Apply(stub)

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := head.Stat(t.Context(), "x.txt"); err != nil {
				t.Errorf("Stat failed: %v", err)
			}
		}()
	}
	wg.Wait()

	stub.mu.Lock()
	peak := stub.peak
	stub.mu.Unlock()

	if peak > 2 {
		t.Errorf("Expected at most 2 in-flight operations, observed %d", peak)
	}
	if count := stub.countOf(data.OpStat); count != 6 {
		t.Errorf("Expected all 6 operations to complete, got %d", count)
	}
}

// TestLimit_AcquireTimeout verifies that waiting past the acquire
// timeout fails with Timeout instead of blocking.
func TestLimit_AcquireTimeout(t *testing.T) {
	stub := newStubBackend()

	limit := layer.NewLimit(&layer.LimitConfig{
		MaxConcurrent:  1,
		AcquireTimeout: 20 * time.Millisecond,
	})
	head := limit.Apply(stub)

	// Occupy the only slot through an open read stream.
	reader, err := head.Read(t.Context(), "held.txt", data.FullRange)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	_, err = head.Stat(t.Context(), "blocked.txt")
	if !errors.Is(err, data.ErrTimeout) {
		t.Fatalf("Expected Timeout, got %v", err)
	}

	// Closing the stream frees the slot.
	if err := reader.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := head.Stat(t.Context(), "after.txt"); err != nil {
		t.Fatalf("Stat after release failed: %v", err)
	}
}

// TestLimit_ReadSlotReleasedOnce verifies that double-closing a stream
// does not free a second slot.
func TestLimit_ReadSlotReleasedOnce(t *testing.T) {
	stub := newStubBackend()

	limit := layer.NewLimit(&layer.LimitConfig{
		MaxConcurrent:  1,
		AcquireTimeout: 20 * time.Millisecond,
	})
	head := limit.Apply(stub)

	reader, err := head.Read(t.Context(), "a.txt", data.FullRange)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if _, err := io.ReadAll(reader); err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	reader.Close()
	reader.Close()

	// The single slot must still bound concurrency after the double close.
	second, err := head.Read(t.Context(), "b.txt", data.FullRange)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	defer second.Close()

	if _, err := head.Stat(t.Context(), "c.txt"); !errors.Is(err, data.ErrTimeout) {
		t.Fatalf("Expected Timeout while stream open, got %v", err)
	}
}
