package gcsstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"cloud.google.com/go/storage"

	"github.com/discochess/codeassist/internal/codec/gzipcodec"
	"github.com/discochess/codeassist/internal/codec/noopcodec"
	"github.com/discochess/codeassist/internal/store"
)

// fakeBucket keeps objects in memory. Writes become visible on Close, like
// GCS uploads.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string][]byte)}
}

func (b *fakeBucket) NewReader(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBucket) NewWriter(ctx context.Context, key string) io.WriteCloser {
	return &fakeWriter{bucket: b, key: key}
}

func (b *fakeBucket) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[key]; !ok {
		return storage.ErrObjectNotExist
	}
	delete(b.objects, key)
	return nil
}

type fakeWriter struct {
	bucket *fakeBucket
	key    string
	buf    bytes.Buffer
}

func (w *fakeWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *fakeWriter) Close() error {
	w.bucket.mu.Lock()
	defer w.bucket.mu.Unlock()
	w.bucket.objects[w.key] = w.buf.Bytes()
	return nil
}

func TestWithPrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"prefix", "prefix/"},
		{"prefix/", "prefix/"},
		{"a/b/c/", "a/b/c/"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var o options
			WithPrefix(tt.input)(&o)
			if o.prefix != tt.want {
				t.Errorf("prefix = %q, want %q", o.prefix, tt.want)
			}
		})
	}
}

func TestStore_PutGet(t *testing.T) {
	b := newFakeBucket()
	s := &Store{bucket: b, prefix: "v1/", codec: gzipcodec.New()}
	ctx := context.Background()

	data := []byte(`{"messages":[{"role":"user","content":"hi"}]}`)
	if err := s.Put(ctx, "sessions/x.json", data); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, ok := b.objects["v1/sessions/x.json.gz"]; !ok {
		t.Fatalf("object key not found, have %v", b.objects)
	}

	got, err := s.Get(ctx, "sessions/x.json")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get() = %q, want %q", got, data)
	}
}

func TestStore_NotFound(t *testing.T) {
	s := &Store{bucket: newFakeBucket(), codec: noopcodec.New()}
	ctx := context.Background()
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestStore_Delete(t *testing.T) {
	s := &Store{bucket: newFakeBucket(), codec: noopcodec.New()}
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

func TestStore_CloseWithoutClient(t *testing.T) {
	s := &Store{}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
