// Package kvstore holds the local key-value stores the expense collection is
// persisted to. Every backend stores opaque string values under string keys;
// there is no partial update and no listing.
package kvstore

import (
	"context"
	"errors"
)

// Store is an asynchronous-safe, fallible key-value store.
type Store interface {
	// Get returns the value stored under key. ok is false when the key
	// has never been set.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set overwrites the value stored under key.
	Set(ctx context.Context, key, value string) error

	// Close releases the underlying resources.
	Close() error
}

var (
	ErrClosed      = errors.New("store closed")
	ErrEmptyKey    = errors.New("empty key")
	ErrCorrupt     = errors.New("stored value is corrupt")
	ErrKeyTooShort = errors.New("key too short for encryption or signing, want at least 32 bytes")
)
