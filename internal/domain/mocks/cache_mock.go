package mocks

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/user/record-api/internal/domain"
)

// ErrStoreDown simulates an unreachable cache store.
var ErrStoreDown = errors.New("cache store unavailable")

type mockEntry struct {
	value     string
	expiresAt time.Time
	hasExpiry bool
}

// MockCacheStore is an in-memory implementation of domain.CacheStore for
// testing. Setting Down simulates a store outage: every operation degrades
// to miss/no-op the way the real store does, and Increment returns
// ErrStoreDown.
type MockCacheStore struct {
	mu      sync.Mutex
	entries map[string]mockEntry
	Down    bool

	Gets       int
	Sets       int
	Deletes    int
	Increments int
}

func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{entries: make(map[string]mockEntry)}
}

func (m *MockCacheStore) get(key string) (string, bool) {
	e, ok := m.entries[key]
	if !ok {
		return "", false
	}
	if e.hasExpiry && time.Now().After(e.expiresAt) {
		delete(m.entries, key)
		return "", false
	}
	return e.value, true
}

func (m *MockCacheStore) put(key, value string, ttl time.Duration) {
	e := mockEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
		e.hasExpiry = true
	}
	m.entries[key] = e
}

func (m *MockCacheStore) GetString(ctx context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	if m.Down {
		return "", false
	}
	return m.get(key)
}

func (m *MockCacheStore) SetString(ctx context.Context, key, value string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sets++
	if m.Down {
		return
	}
	m.put(key, value, ttl)
}

func (m *MockCacheStore) GetJSON(ctx context.Context, key string, dest any) bool {
	raw, ok := m.GetString(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), dest) == nil
}

func (m *MockCacheStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	m.SetString(ctx, key, string(raw), ttl)
}

func (m *MockCacheStore) GetInt(ctx context.Context, key string) (int64, bool) {
	raw, ok := m.GetString(ctx, key)
	if !ok {
		return 0, false
	}
	var n int64
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return 0, false
	}
	return n, true
}

func (m *MockCacheStore) Delete(ctx context.Context, keys ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes++
	if m.Down {
		return 0
	}
	n := 0
	for _, key := range keys {
		if _, ok := m.get(key); ok {
			delete(m.entries, key)
			n++
		}
	}
	return n
}

func (m *MockCacheStore) DeleteByPattern(ctx context.Context, pattern string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes++
	if m.Down {
		return 0
	}

	prefix, ok := strings.CutSuffix(pattern, "*")
	if !ok {
		prefix = pattern
	}

	n := 0
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			n++
		}
	}
	return n
}

func (m *MockCacheStore) Exists(ctx context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Down {
		return false
	}
	_, ok := m.get(key)
	return ok
}

func (m *MockCacheStore) Increment(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Increments++
	if m.Down {
		return 0, ErrStoreDown
	}

	var n int64
	if raw, ok := m.get(key); ok {
		_ = json.Unmarshal([]byte(raw), &n)
	}
	n++

	// Preserve any existing expiry, matching redis INCR semantics.
	e, existed := m.entries[key]
	e.value = string(mustMarshal(n))
	if !existed {
		e.hasExpiry = false
	}
	m.entries[key] = e
	return n, nil
}

func (m *MockCacheStore) Expire(ctx context.Context, key string, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Down {
		return false
	}
	e, ok := m.entries[key]
	if !ok {
		return false
	}
	e.expiresAt = time.Now().Add(ttl)
	e.hasExpiry = true
	m.entries[key] = e
	return true
}

func (m *MockCacheStore) TTL(ctx context.Context, key string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Down {
		return 0, false
	}
	e, ok := m.entries[key]
	if !ok || !e.hasExpiry {
		return 0, false
	}
	remaining := time.Until(e.expiresAt)
	if remaining <= 0 {
		delete(m.entries, key)
		return 0, false
	}
	return remaining, true
}

// Keys returns a snapshot of the stored keys, for assertions.
func (m *MockCacheStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

func mustMarshal(v any) []byte {
	raw, _ := json.Marshal(v)
	return raw
}

var _ domain.CacheStore = (*MockCacheStore)(nil)
