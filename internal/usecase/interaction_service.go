package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/record-api/internal/adapter/cache"
	"github.com/user/record-api/internal/adapter/metrics"
	"github.com/user/record-api/internal/domain"
)

const (
	entityInteraction = "interaction"
	entityNote        = "note"
)

// interactionPage is the cached shape of one list/search page.
type interactionPage struct {
	Items []*domain.Interaction `json:"items"`
	Total int                   `json:"total"`
}

// InteractionService implements reads through the cache and writes through
// the transaction manager, invalidating after every successful commit. The
// cache is consulted first on reads but the repository is always the fallback
// of record; a cold or unavailable cache only costs latency.
type InteractionService struct {
	repo    domain.InteractionRepository
	notes   domain.NoteRepository
	tx      domain.TransactionManager
	store   domain.CacheStore
	inv     *cache.Invalidator
	noteInv *cache.Invalidator
	logger  *slog.Logger
	metrics *metrics.APIMetrics
}

// NewInteractionService wires the interaction read/write path. The note
// invalidator cascades to the interaction namespace: a note write purges the
// owning tenant's interaction lists and search results in the same
// invalidation set.
func NewInteractionService(
	repo domain.InteractionRepository,
	notes domain.NoteRepository,
	tx domain.TransactionManager,
	store domain.CacheStore,
	logger *slog.Logger,
	m *metrics.APIMetrics,
) *InteractionService {
	return &InteractionService{
		repo:    repo,
		notes:   notes,
		tx:      tx,
		store:   store,
		inv:     cache.NewInvalidator(entityInteraction, store, logger, m),
		noteInv: cache.NewInvalidator(entityNote, store, logger, m, entityInteraction),
		logger:  logger.With("component", "interaction_service"),
		metrics: m,
	}
}

// Get returns one interaction, probing the entity cache before the
// repository.
func (s *InteractionService) Get(ctx context.Context, tc domain.TenantContext, id int64) (*domain.Interaction, error) {
	if !tc.Scoped() {
		return nil, fmt.Errorf("%w: get requires a site context", domain.ErrUnauthorized)
	}

	key := cache.EntityKey(entityInteraction, tc.SiteID, id)
	var cached domain.Interaction
	if s.store.GetJSON(ctx, key, &cached) {
		s.hit("entity")
		return &cached, nil
	}
	s.miss("entity")

	in, err := s.repo.Find(ctx, tc, id)
	if err != nil {
		return nil, err
	}

	s.store.SetJSON(ctx, key, in, domain.CacheTTLMedium)
	return in, nil
}

// List returns one page of the tenant's interactions. Unfiltered pages in
// the default order live under the list namespace; anything filtered,
// queried, or re-sorted is content-addressed under the search namespace.
func (s *InteractionService) List(ctx context.Context, tc domain.TenantContext, filters []domain.Filter, sort domain.Sort, page domain.Page) ([]*domain.Interaction, int, error) {
	return s.page(ctx, tc, "", filters, sort, page)
}

// Search behaves like List but additionally matches query against the
// interaction's text columns.
func (s *InteractionService) Search(ctx context.Context, tc domain.TenantContext, query string, filters []domain.Filter, sort domain.Sort, page domain.Page) ([]*domain.Interaction, int, error) {
	return s.page(ctx, tc, query, filters, sort, page)
}

func (s *InteractionService) page(ctx context.Context, tc domain.TenantContext, query string, filters []domain.Filter, sort domain.Sort, page domain.Page) ([]*domain.Interaction, int, error) {
	if !tc.Scoped() {
		return nil, 0, fmt.Errorf("%w: list requires a site context", domain.ErrUnauthorized)
	}

	// Clamp before building the key so the page the repository serves and
	// the page the cache stores are the same logical page under one key.
	page = page.Normalize()

	plain := query == "" && len(filters) == 0 && sort == (domain.Sort{})

	var key, namespace string
	if plain {
		key = cache.ListKey(entityInteraction, tc.SiteID, page)
		namespace = "list"
	} else {
		// Fold the sort into the hashed content so a re-sorted request can
		// never be served someone else's ordering.
		hashQuery := query + "|" + sort.Field
		if sort.Desc {
			hashQuery += ":desc"
		}
		key = cache.SearchKey(entityInteraction, tc.SiteID, cache.QueryHash(filters, hashQuery), page)
		namespace = "search"
	}

	var cached interactionPage
	if s.store.GetJSON(ctx, key, &cached) {
		s.hit(namespace)
		return cached.Items, cached.Total, nil
	}
	s.miss(namespace)

	var (
		items []*domain.Interaction
		total int
		err   error
	)
	if query == "" {
		items, total, err = s.repo.List(ctx, tc, filters, sort, page)
	} else {
		items, total, err = s.repo.Search(ctx, tc, query, filters, sort, page)
	}
	if err != nil {
		return nil, 0, err
	}

	s.store.SetJSON(ctx, key, interactionPage{Items: items, Total: total}, domain.CacheTTLShort)
	return items, total, nil
}

// Create persists a new interaction inside a transaction and purges the
// tenant's interaction caches once the commit has succeeded. A failed commit
// never reaches invalidation.
func (s *InteractionService) Create(ctx context.Context, tc domain.TenantContext, in *domain.Interaction) error {
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, tc, in)
	})
	if err != nil {
		return err
	}

	s.inv.OnWrite(ctx, tc.SiteID, in.ID)
	return nil
}

// Update applies a patch and invalidates on success.
func (s *InteractionService) Update(ctx context.Context, tc domain.TenantContext, id int64, patch domain.InteractionPatch) (*domain.Interaction, error) {
	var updated *domain.Interaction
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var txErr error
		updated, txErr = s.repo.Update(ctx, tc, id, patch)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.inv.OnWrite(ctx, tc.SiteID, id)
	return updated, nil
}

// Delete removes an interaction if it exists under this tenant. It is
// idempotent: a second call reports false without failing. The cache is only
// purged when a row was actually removed.
func (s *InteractionService) Delete(ctx context.Context, tc domain.TenantContext, id int64) (bool, error) {
	var deleted bool
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var txErr error
		deleted, txErr = s.repo.Delete(ctx, tc, id)
		return txErr
	})
	if err != nil {
		return false, err
	}

	if deleted {
		s.inv.OnWrite(ctx, tc.SiteID, id)
	}
	return deleted, nil
}

// RequireDelete is the strict delete variant: ErrNotFound when nothing was
// removed.
func (s *InteractionService) RequireDelete(ctx context.Context, tc domain.TenantContext, id int64) error {
	deleted, err := s.Delete(ctx, tc, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

// ListNotes returns one page of an interaction's notes. The parent lookup
// enforces tenant scoping before the child query runs.
func (s *InteractionService) ListNotes(ctx context.Context, tc domain.TenantContext, interactionID int64, page domain.Page) ([]*domain.Note, int, error) {
	if _, err := s.repo.Find(ctx, tc, interactionID); err != nil {
		return nil, 0, err
	}
	return s.notes.ListByInteraction(ctx, tc, interactionID, page)
}

// AddNote attaches a note to an interaction. The parent is loaded inside the
// same transaction so a foreign or vanished interaction aborts the write.
// The note invalidator cascades: the owning tenant's interaction lists and
// search results are purged together with the note's own namespace.
func (s *InteractionService) AddNote(ctx context.Context, tc domain.TenantContext, n *domain.Note) error {
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.Find(ctx, tc, n.InteractionID); err != nil {
			return err
		}
		return s.notes.Create(ctx, tc, n)
	})
	if err != nil {
		return err
	}

	s.noteInv.OnWrite(ctx, tc.SiteID, n.ID)
	return nil
}

// DeleteNote removes a note idempotently, with the same cascade semantics as
// AddNote.
func (s *InteractionService) DeleteNote(ctx context.Context, tc domain.TenantContext, id int64) (bool, error) {
	var deleted bool
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var txErr error
		deleted, txErr = s.notes.Delete(ctx, tc, id)
		return txErr
	})
	if err != nil {
		return false, err
	}

	if deleted {
		s.noteInv.OnWrite(ctx, tc.SiteID, id)
	}
	return deleted, nil
}

func (s *InteractionService) hit(namespace string) {
	if s.metrics != nil {
		s.metrics.CacheHits.WithLabelValues(namespace).Inc()
	}
}

func (s *InteractionService) miss(namespace string) {
	if s.metrics != nil {
		s.metrics.CacheMisses.WithLabelValues(namespace).Inc()
	}
}
