package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/user/record-api/internal/adapter/cache"
	"github.com/user/record-api/internal/adapter/metrics"
	"github.com/user/record-api/internal/domain"
)

// Result is the outcome of one rate-limit decision. Remaining and
// ResetSeconds feed the response headers on both allowed and rejected
// requests.
type Result struct {
	Allowed      bool
	Limit        int
	Remaining    int
	ResetSeconds int
}

// Limiter implements fixed-window rate limiting on the shared cache store.
// A window is a single counter: absent until the first request, counting
// until its TTL elapses, then absent again. The TTL is set exactly once, at
// creation; re-increments never extend a window.
//
// When the store is unreachable the limiter fails open through a
// process-local token bucket, so an outage degrades protection instead of
// either blocking all traffic or removing limits entirely.
type Limiter struct {
	store   domain.CacheStore
	logger  *slog.Logger
	metrics *metrics.APIMetrics

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

// New creates a limiter backed by the given cache store.
func New(store domain.CacheStore, logger *slog.Logger, m *metrics.APIMetrics) *Limiter {
	return &Limiter{
		store:   store,
		logger:  logger.With("component", "rate_limiter"),
		metrics: m,
		local:   make(map[string]*rate.Limiter),
	}
}

// Check reads the current window without mutating it. The observed count has
// not been consumed yet, so the next request is admitted only while the
// window still has room: Check agrees with what the following Consume would
// decide.
func (l *Limiter) Check(ctx context.Context, identifier, operationClass string, limit int, window time.Duration) Result {
	key := cache.RateLimitKey(identifier, operationClass)

	count, ok := l.store.GetInt(ctx, key)
	if !ok {
		return Result{Allowed: true, Limit: limit, Remaining: limit, ResetSeconds: int(window.Seconds())}
	}

	res := l.result(ctx, key, count, limit, window)
	res.Allowed = int(count) < limit
	return res
}

// Consume counts this request against the caller's window and reports the
// decision. The increment is a single atomic store operation; two racing
// requests can never observe the same count, so no request is
// double-admitted at the boundary.
func (l *Limiter) Consume(ctx context.Context, identifier, operationClass string, limit int, window time.Duration) Result {
	key := cache.RateLimitKey(identifier, operationClass)

	count, err := l.store.Increment(ctx, key)
	if err != nil {
		return l.failOpen(operationClass, limit, window)
	}

	if count == 1 {
		// First request of the window: set the TTL, once.
		l.store.Expire(ctx, key, window)
	} else if _, ok := l.store.TTL(ctx, key); !ok {
		// A crash between INCR and EXPIRE leaves an immortal counter;
		// repair it here rather than letting it deny forever.
		l.store.Expire(ctx, key, window)
	}

	return l.result(ctx, key, count, limit, window)
}

// Limit is the middleware-facing decision: one atomic consume whose result
// carries everything needed for the response headers.
func (l *Limiter) Limit(ctx context.Context, identifier, operationClass string, limit int, window time.Duration) Result {
	res := l.Consume(ctx, identifier, operationClass, limit, window)
	if !res.Allowed && l.metrics != nil {
		l.metrics.RateLimitRejected.WithLabelValues(operationClass).Inc()
	}
	return res
}

func (l *Limiter) result(ctx context.Context, key string, count int64, limit int, window time.Duration) Result {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	reset := int(window.Seconds())
	if ttl, ok := l.store.TTL(ctx, key); ok {
		reset = int(ttl.Seconds() + 0.5)
	}

	return Result{
		Allowed:      int(count) <= limit,
		Limit:        limit,
		Remaining:    remaining,
		ResetSeconds: reset,
	}
}

// failOpen admits requests through a process-local token bucket while the
// store is down. The bucket refills at the configured window rate, so a
// single process still cannot exceed the intended average throughput.
func (l *Limiter) failOpen(operationClass string, limit int, window time.Duration) Result {
	if l.metrics != nil {
		l.metrics.RateLimitFallbacks.Inc()
	}

	l.mu.Lock()
	lim, ok := l.local[operationClass]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit)
		l.local[operationClass] = lim
	}
	l.mu.Unlock()

	allowed := lim.Allow()
	if !allowed {
		l.logger.Warn("local rate limiter rejected request during store outage", "class", operationClass)
	}

	return Result{
		Allowed:      allowed,
		Limit:        limit,
		Remaining:    0,
		ResetSeconds: int(window.Seconds()),
	}
}
