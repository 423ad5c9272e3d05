// Package cachedstore wraps a Store with a bounded read-through cache.
package cachedstore

import (
	"context"
	"errors"
	"slices"

	"github.com/discochess/codeassist/internal/cache"
	"github.com/discochess/codeassist/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store wraps another Store with caching. Writes go to the underlying store
// first and update the cache only when they succeed.
type Store struct {
	underlying store.Store
	cache      *cache.Cache[[]byte]
}

// New creates a new cached store wrapping the given store.
func New(underlying store.Store, c *cache.Cache[[]byte]) *Store {
	return &Store{
		underlying: underlying,
		cache:      c,
	}
}

// Get reads an object, checking the cache first.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	if data, ok := s.cache.Get(name); ok {
		return slices.Clone(data), nil
	}

	data, err := s.underlying.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	s.cache.Set(name, slices.Clone(data))
	return data, nil
}

// Put writes through to the underlying store.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if err := s.underlying.Put(ctx, name, data); err != nil {
		s.cache.Delete(name)
		return err
	}
	s.cache.Set(name, slices.Clone(data))
	return nil
}

// Delete removes the object from the underlying store and the cache.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.cache.Delete(name)
	if err := s.underlying.Delete(ctx, name); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// Close closes the underlying store and empties the cache.
func (s *Store) Close() error {
	s.cache.Clear()
	return s.underlying.Close()
}

// Stats returns cache statistics.
func (s *Store) Stats() cache.Stats {
	return s.cache.Stats()
}
