// Package storage implements the key-value persistence gateway for notes, folders,
// the sync mirror, summary settings and audio blobs.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates that no value is stored under the requested key.
	ErrNotFound = errors.New("storage: key not found")
	// ErrEmptyKey indicates that an operation was attempted with an empty key.
	ErrEmptyKey = errors.New("storage: empty key")
)

// Store is a durable string-keyed value store.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set inserts or replaces the value stored under key.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists stored keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Close releases the underlying connection.
	Close() error
}
