// Package sessionstore opens the store.Store that session snapshots are
// persisted to, as selected by config.SessionConfig.
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/cache"
	"github.com/discochess/codeassist/internal/codec"
	"github.com/discochess/codeassist/internal/codec/gzipcodec"
	"github.com/discochess/codeassist/internal/codec/lz4codec"
	"github.com/discochess/codeassist/internal/codec/noopcodec"
	"github.com/discochess/codeassist/internal/codec/zstdcodec"
	"github.com/discochess/codeassist/internal/config"
	"github.com/discochess/codeassist/internal/store"
	"github.com/discochess/codeassist/internal/store/badgerstore"
	"github.com/discochess/codeassist/internal/store/cachedstore"
	"github.com/discochess/codeassist/internal/store/diskstore"
	"github.com/discochess/codeassist/internal/store/gcsstore"
	"github.com/discochess/codeassist/internal/store/memstore"
	"github.com/discochess/codeassist/internal/store/miniostore"
	"github.com/discochess/codeassist/internal/store/s3store"
)

var (
	// ErrUnknownBackend is returned for a backend name Open does not serve.
	ErrUnknownBackend = errors.New("sessionstore: unknown backend")

	// ErrUnknownCodec is returned for a codec name Codec does not serve.
	ErrUnknownCodec = errors.New("sessionstore: unknown codec")
)

// Remote backends are fronted by a small read-through cache.
var readCache = cache.Config{
	MaxEntries:     64,
	MaxMemoryBytes: 16 << 20,
}

// Codec returns the codec registered under name. An empty name selects zstd.
func Codec(name string) (codec.Codec, error) {
	switch name {
	case "", "zstd":
		return zstdcodec.New(), nil
	case "gzip":
		return gzipcodec.New(), nil
	case "lz4":
		return lz4codec.New(), nil
	case "none":
		return noopcodec.New(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// Open returns the store described by cfg. The caller owns the store and
// must Close it.
func Open(ctx context.Context, cfg config.SessionConfig, logger *zap.Logger) (store.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := Codec(cfg.Codec)
	if err != nil {
		return nil, err
	}

	var st store.Store
	switch cfg.Backend {
	case "memory":
		return memstore.New(), nil
	case "", "disk":
		ds, err := diskstore.New(cfg.Dir, c)
		if err != nil {
			return nil, fmt.Errorf("opening disk store: %w", err)
		}
		return ds, nil
	case "badger":
		// Local stores are not fronted by the read cache.
		bs, err := badgerstore.Open(badgerstore.Config{Path: filepath.Join(cfg.Dir, "badger")}, c, logger.Named("badger"))
		if err != nil {
			return nil, fmt.Errorf("opening badger store: %w", err)
		}
		return bs, nil
	case "s3":
		opts := []s3store.Option{s3store.WithPrefix(cfg.Prefix)}
		if cfg.Region != "" {
			opts = append(opts, s3store.WithRegion(cfg.Region))
		}
		if cfg.Endpoint != "" {
			opts = append(opts, s3store.WithEndpoint(cfg.Endpoint))
		}
		st, err = s3store.New(ctx, cfg.Bucket, c, opts...)
	case "gcs":
		st, err = gcsstore.New(ctx, cfg.Bucket, c, gcsstore.WithPrefix(cfg.Prefix))
	case "minio":
		st, err = miniostore.New(miniostore.Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Secure:    cfg.Secure,
		}, c)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Backend, err)
	}

	rc, err := cache.New[[]byte](readCache, cache.WithLogger(logger.Named("storecache")))
	if err != nil {
		return nil, err
	}
	logger.Debug("session store opened",
		zap.String("backend", cfg.Backend),
		zap.String("bucket", cfg.Bucket),
		zap.String("codec", c.Extension()),
	)
	return cachedstore.New(st, rc), nil
}
