package cache

import (
	"context"
	"log/slog"

	"github.com/user/record-api/internal/adapter/metrics"
	"github.com/user/record-api/internal/domain"
)

// InvalidationSet is the complete collection of keys and patterns that must
// be purged after one mutation: the entity's own key, the tenant's list and
// search patterns for the entity type, and the same patterns for every
// cascade type. It is always computed whole: purging a partial subset would
// leave stale pages serveable.
type InvalidationSet struct {
	Keys     []string
	Patterns []string
}

// Invalidator purges every cache entry that a write to one entity type can
// have made stale. One instance exists per entity type; cascade types name
// owning aggregates whose list/search caches depend on this type (a note
// write invalidates the interaction lists, for example).
type Invalidator struct {
	entityType string
	cascades   []string
	store      domain.CacheStore
	logger     *slog.Logger
	metrics    *metrics.APIMetrics
}

// NewInvalidator creates an invalidator for entityType. cascades lists the
// entity types whose tenant-wide list/search caches must be purged in the
// same invalidation set.
func NewInvalidator(entityType string, store domain.CacheStore, logger *slog.Logger, m *metrics.APIMetrics, cascades ...string) *Invalidator {
	return &Invalidator{
		entityType: entityType,
		cascades:   cascades,
		store:      store,
		logger:     logger.With("component", "invalidator", "entity_type", entityType),
		metrics:    m,
	}
}

// SetFor computes the invalidation set for one mutated entity. Tenant-wide
// list/search purging on every write trades hit ratio for correctness: no
// dependency tracking is needed to guarantee that no stale page survives.
func (inv *Invalidator) SetFor(tenantID, entityID int64) InvalidationSet {
	set := InvalidationSet{
		Keys:     []string{EntityKey(inv.entityType, tenantID, entityID)},
		Patterns: InvalidationPatterns(inv.entityType, tenantID),
	}
	for _, cascade := range inv.cascades {
		set.Patterns = append(set.Patterns, InvalidationPatterns(cascade, tenantID)...)
	}
	return set
}

// OnWrite purges every key the mutation can have made stale. It detaches
// from the caller's cancellation: a request aborted between commit and purge
// must not strand stale entries until TTL. Deletes are idempotent and a
// pattern with zero matches is not an error, so partial failures are safe to
// retry on the next write.
func (inv *Invalidator) OnWrite(ctx context.Context, tenantID, entityID int64) {
	ctx = context.WithoutCancel(ctx)

	set := inv.SetFor(tenantID, entityID)

	purged := inv.store.Delete(ctx, set.Keys...)
	for _, pattern := range set.Patterns {
		purged += inv.store.DeleteByPattern(ctx, pattern)
	}

	if inv.metrics != nil {
		inv.metrics.InvalidationRuns.Inc()
		inv.metrics.InvalidatedKeys.Add(float64(purged))
	}
	inv.logger.Debug("invalidated cache after write", "tenant_id", tenantID, "entity_id", entityID, "purged", purged)
}
