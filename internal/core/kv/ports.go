package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key has no value in the store.
var ErrNotFound = errors.New("key not found")

// Store is the port for the durable key-value layer backing the offline
// action queue and the run-sheet cache. Implementations must make each
// Set/Delete visible atomically: readers see either the previous value or
// the new one, never a partial write.
type Store interface {
	// Get retrieves the value stored under key.
	// Returns ErrNotFound (wrapped) if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with the given TTL.
	// TTL of 0 means the value never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the value stored under key.
	Delete(ctx context.Context, key string) error

	// Ping checks if the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
