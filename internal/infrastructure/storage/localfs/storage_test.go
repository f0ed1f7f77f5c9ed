package localfs

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveOpenRemoveRoundTrip(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := storage.Save(ctx, "doc-1_notes.txt", strings.NewReader("hello")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reader, err := storage.Open(ctx, "doc-1_notes.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	raw, err := io.ReadAll(reader)
	reader.Close()
	if err != nil || string(raw) != "hello" {
		t.Fatalf("expected %q, got %q (err=%v)", "hello", raw, err)
	}

	if err := storage.Remove(ctx, "doc-1_notes.txt"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := storage.Open(ctx, "doc-1_notes.txt"); err == nil {
		t.Fatalf("expected error opening removed file")
	}
}

func TestRemoveMissingFileIsNoOp(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := storage.Remove(context.Background(), "never-saved.txt"); err != nil {
		t.Fatalf("Remove() on missing file error = %v", err)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, key := range []string{"", ".", "..", "../escape", "a/b", `a\b`} {
		if err := storage.Save(context.Background(), key, strings.NewReader("x")); err == nil {
			t.Fatalf("expected rejection for key %q", key)
		}
	}
}
