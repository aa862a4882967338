// Package kv provides a small key-value abstraction used for state that does
// not need a relational schema (email templates and their id sequence).
//
// Two implementations are provided: an in-process Memory store and a Redis
// store. Both guarantee that Incr is atomic with respect to other operations
// on the same store.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Store is the key-value contract.
type Store interface {
	// Get returns the value stored at key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value at key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// Keys returns all keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Incr atomically increments the counter at key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Close releases any underlying connection.
	Close() error
}
