// Package gcsstore implements a Google Cloud Storage backend.
package gcsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/discochess/codeassist/internal/codec"
	"github.com/discochess/codeassist/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// bucket is the subset of bucket operations used by Store.
type bucket interface {
	NewReader(ctx context.Context, key string) (io.ReadCloser, error)
	NewWriter(ctx context.Context, key string) io.WriteCloser
	Delete(ctx context.Context, key string) error
}

// gcsBucket adapts a *storage.BucketHandle to bucket.
type gcsBucket struct {
	h *storage.BucketHandle
}

func (b gcsBucket) NewReader(ctx context.Context, key string) (io.ReadCloser, error) {
	return b.h.Object(key).NewReader(ctx)
}

func (b gcsBucket) NewWriter(ctx context.Context, key string) io.WriteCloser {
	w := b.h.Object(key).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	return w
}

func (b gcsBucket) Delete(ctx context.Context, key string) error {
	return b.h.Object(key).Delete(ctx)
}

// Store is a Google Cloud Storage backend.
type Store struct {
	client *storage.Client
	bucket bucket
	prefix string
	codec  codec.Codec
}

type options struct {
	prefix     string
	clientOpts []option.ClientOption
}

// Option configures a Store.
type Option func(*options)

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = strings.TrimSuffix(prefix, "/")
		if o.prefix != "" {
			o.prefix += "/"
		}
	}
}

// WithClientOptions passes options to storage.NewClient, for example
// option.WithCredentialsFile or option.WithEndpoint.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// New creates a new GCS store.
// The bucket must already exist.
func New(ctx context.Context, bucketName string, c codec.Codec, opts ...Option) (*Store, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	client, err := storage.NewClient(ctx, o.clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	return &Store{
		client: client,
		bucket: gcsBucket{h: client.Bucket(bucketName)},
		prefix: o.prefix,
		codec:  c,
	}, nil
}

// Get reads and decompresses the object stored under name.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, err
	}

	reader, err := s.bucket.NewReader(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("creating reader for %s: %w", key, err)
	}
	defer reader.Close()

	return codec.Decode(s.codec, reader)
}

// Put compresses data and uploads it under name. The upload is committed
// when the writer closes.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}
	encoded, err := codec.Encode(s.codec, data)
	if err != nil {
		return err
	}

	w := s.bucket.NewWriter(ctx, key)
	if _, err := w.Write(encoded); err != nil {
		w.Close()
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("committing %s: %w", key, err)
	}
	return nil
}

// Delete removes the object stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}
	if err := s.bucket.Delete(ctx, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return store.ErrNotFound
		}
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Close releases resources.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// key returns the full object key for name.
func (s *Store) key(name string) (string, error) {
	if err := store.ValidateName(name); err != nil {
		return "", err
	}
	return s.prefix + codec.FileName(s.codec, name), nil
}
