// Package storage defines the persistent key-value storage used by the SDK
// to hold credentials, together with in-memory and SQLite implementations.
//
// Values are opaque strings. Get reports an absent key as ("", nil); Delete
// of an absent key is a no-op. Implementations must be safe for use from
// multiple goroutines.
package storage

import "context"

type Storage interface {
	// Get returns the value stored under key, or "" when the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
