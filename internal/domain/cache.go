package domain

import (
	"context"
	"time"
)

// TTL classes for cached values. No entry may outlive its class.
const (
	CacheTTLShort  = 1 * time.Minute
	CacheTTLMedium = 10 * time.Minute
	CacheTTLLong   = 1 * time.Hour
)

// CacheStore is the boundary to the remote key-value store. The cache is an
// optimization, never a correctness dependency: implementations absorb store
// failures and report them as misses or no-ops, so none of these methods can
// surface a transport error to the caller. Increment is the one exception:
// the rate limiter needs to distinguish "zero count" from "store down" to
// fail open.
type CacheStore interface {
	GetString(ctx context.Context, key string) (string, bool)
	SetString(ctx context.Context, key, value string, ttl time.Duration)

	// GetJSON unmarshals the cached value into dest and reports a hit.
	GetJSON(ctx context.Context, key string, dest any) bool
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration)

	GetInt(ctx context.Context, key string) (int64, bool)

	// Delete removes the given keys and returns how many existed.
	Delete(ctx context.Context, keys ...string) int

	// DeleteByPattern removes every key matching a wildcard pattern, scanning
	// in bounded batches. Zero matches is not an error.
	DeleteByPattern(ctx context.Context, pattern string) int

	Exists(ctx context.Context, key string) bool

	// Increment atomically increments the integer at key, creating it at 1.
	Increment(ctx context.Context, key string) (int64, error)

	// Expire sets the key's TTL and reports whether the key existed.
	Expire(ctx context.Context, key string, ttl time.Duration) bool

	// TTL returns the remaining lifetime of key. ok is false when the key is
	// absent or has no expiry.
	TTL(ctx context.Context, key string) (time.Duration, bool)
}
