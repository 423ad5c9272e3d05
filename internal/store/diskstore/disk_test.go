package diskstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/discochess/codeassist/internal/codec/noopcodec"
	"github.com/discochess/codeassist/internal/codec/zstdcodec"
	"github.com/discochess/codeassist/internal/store"
)

func TestStore_PutGet(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, zstdcodec.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	data := []byte(`{"id":"abc","messages":[]}`)
	if err := s.Put(ctx, "sessions/abc.json", data); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "sessions", "abc.json.zst")); err != nil {
		t.Errorf("expected compressed file on disk: %v", err)
	}

	got, err := s.Get(ctx, "sessions/abc.json")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Get() = %q, want %q", got, data)
	}
}

func TestStore_PutOverwrites(t *testing.T) {
	s, err := New(t.TempDir(), noopcodec.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	for _, v := range []string{"one", "two"} {
		if err := s.Put(ctx, "x", []byte(v)); err != nil {
			t.Fatalf("Put(%q) error = %v", v, err)
		}
	}
	got, err := s.Get(ctx, "x")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "two" {
		t.Errorf("Get() = %q, want %q", got, "two")
	}
	entries, _ := os.ReadDir(s.Root())
	if len(entries) != 1 {
		t.Errorf("root has %d entries, want 1 (temp files should be cleaned up)", len(entries))
	}
}

func TestStore_NotFound(t *testing.T) {
	s, err := New(t.TempDir(), noopcodec.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if _, err := s.Get(ctx, "sessions/missing.json"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "sessions/missing.json"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestStore_Delete(t *testing.T) {
	s, err := New(t.TempDir(), noopcodec.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	if err := s.Put(ctx, "a", []byte("1")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "a"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}
}

func TestStore_RejectsEscapingNames(t *testing.T) {
	s, err := New(t.TempDir(), noopcodec.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Put(context.Background(), "../outside", []byte("x")); !errors.Is(err, store.ErrInvalidName) {
		t.Errorf("Put() error = %v, want ErrInvalidName", err)
	}
}

func TestNew_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "sessions")
	if _, err := New(root, noopcodec.New()); err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Errorf("root not created: %v", err)
	}
}

func TestNew_NotDirectory(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(f, noopcodec.New()); err == nil {
		t.Error("New() with file (not directory) should return error")
	}
}
