package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, ok, err := s.Get(ctx, "exerciseRecords"); ok || err != nil {
		t.Fatalf("expected absent blob, got ok=%v err=%v", ok, err)
	}

	for _, content := range []string{`[{"a":1}]`, `[]`} {
		if err := s.Put(ctx, "exerciseRecords", []byte(content)); err != nil {
			t.Fatalf("put: %v", err)
		}
		got, ok, err := s.Get(ctx, "exerciseRecords")
		if err != nil || !ok || string(got) != content {
			t.Fatalf("expected %q, got %q ok=%v err=%v", content, got, ok, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "exerciseRecords.json" {
		t.Fatalf("expected only the blob file, got %v", entries)
	}
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"../escape", "a/b", ""} {
		if err := s.Put(context.Background(), key, []byte("x")); err == nil {
			t.Fatalf("%q expected error", key)
		}
	}
}
