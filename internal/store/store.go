// Package store defines the storage backend interface for persisted session
// snapshots.
package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned when no object exists under a name.
	ErrNotFound = errors.New("store: object not found")

	// ErrInvalidName is returned for names that are empty, absolute or
	// escape the store root.
	ErrInvalidName = errors.New("store: invalid object name")
)

// Store defines the interface for storage backends.
// Names are slash-separated relative paths such as "sessions/<id>.json".
// Implementations apply their codec and any key prefix internally.
type Store interface {
	// Get reads and decodes the object stored under name.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put encodes data and stores it under name, replacing any previous
	// object.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes the object stored under name. Backends that can detect a
	// missing object return ErrNotFound for it.
	Delete(ctx context.Context, name string) error

	// Close releases any resources held by the store.
	Close() error
}

// ValidateName reports whether name is usable as an object name.
func ValidateName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	clean := path.Clean(name)
	if clean != name || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
