package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/record-api/internal/adapter/metrics"
	"github.com/user/record-api/internal/domain"
)

// RedisStore implements domain.CacheStore on a remote Redis instance.
//
// The store treats Redis strictly as an optimization: every operation runs
// under a bounded timeout, and any transport failure is logged, counted, and
// reported to the caller as a miss or no-op. The repository remains the
// fallback of record for every read. go-redis re-establishes the connection
// lazily on the next call after a failure, so no recovery loop is needed here.
type RedisStore struct {
	client    *redis.Client
	logger    *slog.Logger
	metrics   *metrics.APIMetrics
	opTimeout time.Duration
	scanBatch int64
}

// NewRedisStore creates a Redis-backed cache store. opTimeout bounds every
// individual store call; scanBatch bounds SCAN page sizes during pattern
// deletion.
func NewRedisStore(client *redis.Client, logger *slog.Logger, m *metrics.APIMetrics, opTimeout time.Duration, scanBatch int) *RedisStore {
	if opTimeout <= 0 {
		opTimeout = 250 * time.Millisecond
	}
	if scanBatch <= 0 {
		scanBatch = 256
	}
	return &RedisStore{
		client:    client,
		logger:    logger.With("component", "redis_cache"),
		metrics:   m,
		opTimeout: opTimeout,
		scanBatch: int64(scanBatch),
	}
}

var _ domain.CacheStore = (*RedisStore)(nil)

func (s *RedisStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// absorb logs a store failure and counts it. redis.Nil is a plain miss, not
// a failure.
func (s *RedisStore) absorb(op, key string, err error) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}
	s.logger.Warn("cache store call failed, degrading to miss", "op", op, "key", key, "error", err)
	if s.metrics != nil {
		s.metrics.CacheStoreErrors.Inc()
	}
}

func (s *RedisStore) GetString(ctx context.Context, key string) (string, bool) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		s.absorb("get", key, err)
		return "", false
	}
	return val, true
}

func (s *RedisStore) SetString(ctx context.Context, key, value string, ttl time.Duration) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.absorb("set", key, err)
	}
}

func (s *RedisStore) GetJSON(ctx context.Context, key string, dest any) bool {
	raw, ok := s.GetString(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		// A corrupt entry is as good as absent; drop it so the next
		// write-through replaces it.
		s.logger.Warn("dropping undecodable cache entry", "key", key, "error", err)
		s.Delete(ctx, key)
		return false
	}
	return true
}

func (s *RedisStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("failed to marshal value for cache", "key", key, "error", err)
		return
	}
	s.SetString(ctx, key, string(raw), ttl)
}

func (s *RedisStore) GetInt(ctx context.Context, key string) (int64, bool) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	val, err := s.client.Get(ctx, key).Int64()
	if err != nil {
		s.absorb("get", key, err)
		return 0, false
	}
	return val, true
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) int {
	if len(keys) == 0 {
		return 0
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	n, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		s.absorb("del", keys[0], err)
		return 0
	}
	return int(n)
}

// DeleteByPattern scans for keys matching pattern in bounded batches and
// deletes each batch. Deletes are idempotent, so a partial failure is safe
// to retry on the next invalidation.
func (s *RedisStore) DeleteByPattern(ctx context.Context, pattern string) int {
	deleted := 0
	var cursor uint64

	for {
		scanCtx, cancel := s.bound(ctx)
		keys, next, err := s.client.Scan(scanCtx, cursor, pattern, s.scanBatch).Result()
		cancel()
		if err != nil {
			s.absorb("scan", pattern, err)
			return deleted
		}

		if len(keys) > 0 {
			deleted += s.Delete(ctx, keys...)
		}

		cursor = next
		if cursor == 0 {
			return deleted
		}
	}
}

func (s *RedisStore) Exists(ctx context.Context, key string) bool {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		s.absorb("exists", key, err)
		return false
	}
	return n > 0
}

// Increment is the one operation that surfaces a store failure: the rate
// limiter must be able to tell "count is now N" from "store is down" so it
// can fail open instead of treating every request as the first in a window.
func (s *RedisStore) Increment(ctx context.Context, key string) (int64, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		s.absorb("incr", key, err)
		return 0, err
	}
	return n, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) bool {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	ok, err := s.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		s.absorb("expire", key, err)
		return false
	}
	return ok
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, bool) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	d, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		s.absorb("ttl", key, err)
		return 0, false
	}
	// go-redis reports -1 for "no expiry" and -2 for "no such key".
	if d < 0 {
		return 0, false
	}
	return d, true
}
