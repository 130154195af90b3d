package ustore

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/mwantia/ustore/backend"
	"github.com/mwantia/ustore/data"
	"github.com/mwantia/ustore/layer"
)

func newMemoryOperator(tst *testing.T, opts ...OperatorOption) *Operator {
	ctx := tst.Context()

	op, err := New(SchemeMemory, nil, opts...)
	if err != nil {
		tst.Fatalf("Operator creation failed: %v", err)
	}

	if err := op.Open(ctx); err != nil {
		tst.Fatalf("Operator open failed: %v", err)
	}
	tst.Cleanup(func() {
		op.Close(ctx)
	})

	return op
}

func TestOperator_RoundTrip(t *testing.T) {
	ctx := t.Context()
	op := newMemoryOperator(t)

	if err := op.WriteBytes(ctx, "/docs/readme.md", []byte("# hello"), false); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Leading slashes normalize away, so both spellings address the same object
	content, err := op.ReadAll(ctx, "docs/readme.md")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(content) != "# hello" {
		t.Errorf("Expected '# hello', got %q", content)
	}

	entry, err := op.Stat(ctx, "docs/readme.md")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if entry.Size != 7 {
		t.Errorf("Expected size 7, got %d", entry.Size)
	}

	if err := op.Delete(ctx, "docs/readme.md"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := op.Stat(ctx, "docs/readme.md"); !errors.Is(err, data.ErrNotFound) {
		t.Fatalf("Expected NotFound after delete, got %v", err)
	}
}

func TestOperator_InvalidPathRejected(t *testing.T) {
	ctx := t.Context()
	op := newMemoryOperator(t)

	if err := op.WriteBytes(ctx, "a/../b.txt", []byte("x"), false); err == nil {
		t.Error("Expected traversal path to fail")
	}
	if _, err := op.Stat(ctx, "a\\b.txt"); err == nil {
		t.Error("Expected backslash path to fail")
	}
}

func TestOperator_UnsupportedFailsFast(t *testing.T) {
	ctx := t.Context()
	op := newMemoryOperator(t)

	if op.Supports(data.OpPresign) {
		t.Fatal("Expected memory backend not to advertise presign")
	}

	_, err := op.Presign(ctx, "a.txt", data.OpRead, time.Minute)
	if !errors.Is(err, data.ErrUnsupported) {
		t.Fatalf("Expected Unsupported, got %v", err)
	}
}

func TestOperator_ConfigValidation(t *testing.T) {
	if _, err := New(SchemeMemory, map[string]string{"bogus": "1"}); !errors.Is(err, data.ErrConfigInvalid) {
		t.Errorf("Expected ConfigInvalid for unknown key, got %v", err)
	}
	if _, err := New(SchemeFs, nil); !errors.Is(err, data.ErrConfigInvalid) {
		t.Errorf("Expected ConfigInvalid for missing root, got %v", err)
	}
	if _, err := New(SchemeMemory, map[string]string{"max_write_size": "abc"}); !errors.Is(err, data.ErrConfigInvalid) {
		t.Errorf("Expected ConfigInvalid for bad integer, got %v", err)
	}
}

func TestOperator_ReadOnlyLayer(t *testing.T) {
	ctx := t.Context()
	op := newMemoryOperator(t, WithLayers(layer.NewReadOnly()))

	if op.Supports(data.OpWrite) {
		t.Error("Expected write capability removed by the layer")
	}

	err := op.WriteBytes(ctx, "a.txt", []byte("x"), false)
	if !errors.Is(err, data.ErrUnsupported) {
		t.Fatalf("Expected Unsupported, got %v", err)
	}
}

func TestOperator_Lister(t *testing.T) {
	ctx := t.Context()
	op := newMemoryOperator(t)

	keys := []string{"logs/a", "logs/b", "logs/c", "logs/d"}
	for _, key := range keys {
		if err := op.WriteBytes(ctx, key, []byte(key), false); err != nil {
			t.Fatalf("Write %q failed: %v", key, err)
		}
	}

	lister, err := op.List(ctx, "logs/", backend.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	var collected []string
	for {
		entry, err := lister.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		collected = append(collected, entry.Key)
	}

	if len(collected) != len(keys) {
		t.Fatalf("Expected %d entries, got %d: %v", len(keys), len(collected), collected)
	}
	for i, key := range keys {
		if collected[i] != key {
			t.Errorf("Expected %q at index %d, got %q", key, i, collected[i])
		}
	}
}

func TestOperator_FromAddress(t *testing.T) {
	ctx := t.Context()

	op, err := NewFromAddress("memory://?max_write_size=64")
	if err != nil {
		t.Fatalf("Operator creation failed: %v", err)
	}
	if err := op.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer op.Close(ctx)

	if op.Scheme() != SchemeMemory {
		t.Errorf("Expected memory scheme, got %s", op.Scheme())
	}
	if got := op.Capabilities().MaxWriteSize; got != 64 {
		t.Errorf("Expected max write size 64, got %d", got)
	}

	if err := op.WriteBytes(ctx, "small.txt", []byte("ok"), false); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}
