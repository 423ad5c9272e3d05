package badgerstore

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/codec/zstdcodec"
	"github.com/discochess/codeassist/internal/store"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true}, zstdcodec.New(), zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGetDelete(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	data := []byte(`{"id":"abc"}`)
	if err := s.Put(ctx, "sessions/abc.json", data); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := s.Get(ctx, "sessions/abc.json")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Get() = %q, want %q", got, data)
	}

	if err := s.Delete(ctx, "sessions/abc.json"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "sessions/abc.json"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "sessions/abc.json"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestStore_Persists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(Config{Path: dir}, zstdcodec.New(), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Put(ctx, "a", []byte("kept")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = Open(Config{Path: dir}, zstdcodec.New(), nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "kept" {
		t.Errorf("Get() = %q, want %q", got, "kept")
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(Config{}, zstdcodec.New(), nil); err == nil {
		t.Error("Open() without path should fail")
	}
}

func TestStore_InvalidName(t *testing.T) {
	s := openTest(t)
	if err := s.Put(context.Background(), "../x", nil); !errors.Is(err, store.ErrInvalidName) {
		t.Errorf("Put() error = %v, want ErrInvalidName", err)
	}
}
