// Package miniostore implements a MinIO (or other S3-compatible) storage
// backend using minio-go.
package miniostore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/discochess/codeassist/internal/codec"
	"github.com/discochess/codeassist/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// objects is the subset of object operations used by Store.
// Implementations map missing keys to store.ErrNotFound.
type objects interface {
	get(ctx context.Context, key string) (io.ReadCloser, error)
	put(ctx context.Context, key string, data []byte) error
	remove(ctx context.Context, key string) error
}

// Config describes the MinIO endpoint.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Secure    bool
}

// Store is a MinIO storage backend.
type Store struct {
	objects objects
	prefix  string
	codec   codec.Codec
}

// New connects to cfg.Endpoint. The bucket must already exist.
func New(cfg Config, c codec.Codec) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	return &Store{
		objects: minioObjects{client: client, bucket: cfg.Bucket},
		prefix:  cfg.Prefix,
		codec:   c,
	}, nil
}

// Get reads and decompresses the object stored under name.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, err
	}
	rc, err := s.objects.get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	defer rc.Close()
	return codec.Decode(s.codec, rc)
}

// Put compresses data and uploads it under name.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}
	encoded, err := codec.Encode(s.codec, data)
	if err != nil {
		return err
	}
	if err := s.objects.put(ctx, key, encoded); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Delete removes the object stored under name. Missing objects are not an
// error.
func (s *Store) Delete(ctx context.Context, name string) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}
	if err := s.objects.remove(ctx, key); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; minio clients hold no resources.
func (s *Store) Close() error {
	return nil
}

func (s *Store) key(name string) (string, error) {
	if err := store.ValidateName(name); err != nil {
		return "", err
	}
	return path.Join(s.prefix, codec.FileName(s.codec, name)), nil
}

type minioObjects struct {
	client *minio.Client
	bucket string
}

func notFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (m minioObjects) get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if notFound(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if notFound(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return obj, nil
}

func (m minioObjects) put(ctx context.Context, key string, data []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return err
}

func (m minioObjects) remove(ctx context.Context, key string) error {
	err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && notFound(err) {
		return store.ErrNotFound
	}
	return err
}
