package cache

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/user/record-api/internal/domain"
)

// Cache key namespaces. This is a stable wire contract: changing any of
// these tokens orphans every key already in the store.
const (
	nsEntity    = "entity"
	nsList      = "entity:list"
	nsSearch    = "search"
	nsRateLimit = "rate_limit"
	nsBlacklist = "blacklist"
)

// EntityKey returns the cache key for a single entity.
func EntityKey(entityType string, tenantID, id int64) string {
	return nsEntity + ":" + entityType + ":" + itoa(tenantID) + ":" + itoa(id)
}

// ListKey returns the cache key for one page of a tenant's entity list.
func ListKey(entityType string, tenantID int64, page domain.Page) string {
	return nsList + ":" + entityType + ":" + itoa(tenantID) + ":" + strconv.Itoa(page.Number) + ":" + strconv.Itoa(page.Size)
}

// SearchKey returns the cache key for one page of a tenant's search results.
// queryHash must come from QueryHash so that logically identical queries map
// to the same key.
func SearchKey(entityType string, tenantID int64, queryHash string, page domain.Page) string {
	return nsSearch + ":" + entityType + ":" + itoa(tenantID) + ":" + queryHash + ":" + strconv.Itoa(page.Number) + ":" + strconv.Itoa(page.Size)
}

// RateLimitKey returns the fixed-window counter key for one caller and
// operation class.
func RateLimitKey(identifier, operationClass string) string {
	return nsRateLimit + ":" + identifier + ":" + operationClass
}

// BlacklistKey returns the key marking a revoked token id.
func BlacklistKey(jti string) string {
	return nsBlacklist + ":" + jti
}

// InvalidationPatterns returns the wildcard patterns covering every list and
// search key cached for one tenant and entity type. Bulk deletion by pattern
// avoids enumerating each page/filter combination that was ever cached.
func InvalidationPatterns(entityType string, tenantID int64) []string {
	return []string{
		nsList + ":" + entityType + ":" + itoa(tenantID) + ":*",
		nsSearch + ":" + entityType + ":" + itoa(tenantID) + ":*",
	}
}

// QueryHash digests a filter set plus a raw query string into a fixed-width
// token. Filters are canonicalized before serialization so the hash is
// independent of the order the caller assembled them in. xxhash is not a
// cryptographic digest; collisions only cost a wrong cache page until the
// next invalidation, which is acceptable for cache keys.
func QueryHash(filters []domain.Filter, query string) string {
	canonical, err := json.Marshal(domain.CanonicalFilters(filters))
	if err != nil {
		// Filter values are plain JSON scalars; this cannot fail for any
		// filter that passed validation. Fall back to the raw query alone.
		canonical = nil
	}

	h := xxhash.New()
	_, _ = h.Write(canonical)
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(query))
	return fmt.Sprintf("%016x", h.Sum64())
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
