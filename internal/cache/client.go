// Package cache implements the read-through cache service for transcript,
// video metadata, and search result entries, backed by a Redis-compatible
// remote store. The service is fail-soft: its only failure mode is behaving
// as if the cache were empty, never surfacing an error to request handlers.
package cache

import (
	"context"
	"time"
)

// Client abstracts the remote key-value store so the Service can be tested
// against an in-memory fake and so the Redis dependency stays at the edge.
//
// Implementations classify failures through pkg/errors: an unreachable store
// (connection refused, circuit breaker open) yields an Unavailable error, a
// failed call on a live connection yields an Operation error.
type Client interface {
	// Get returns the value for key. found is false when the key is absent
	// or expired; absence is not an error.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key with the given time-to-live.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes the given keys. Deleting a missing key is a no-op.
	Delete(ctx context.Context, keys ...string) error

	// ScanKeys returns all keys matching a glob-style pattern.
	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Info returns the store's diagnostics text (memory section).
	Info(ctx context.Context) (string, error)
}
