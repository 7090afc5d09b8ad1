package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/record-api/internal/adapter/cache"
	"github.com/user/record-api/internal/adapter/metrics"
	"github.com/user/record-api/internal/domain"
	"github.com/user/record-api/internal/pkg/auth"
)

const entityUser = "user"

// UserService manages the accounts of one site with the same read-through
// cache and commit-then-invalidate discipline as interactions.
type UserService struct {
	repo    domain.UserRepository
	tx      domain.TransactionManager
	store   domain.CacheStore
	inv     *cache.Invalidator
	logger  *slog.Logger
	metrics *metrics.APIMetrics
}

// NewUserService wires the user read/write path.
func NewUserService(repo domain.UserRepository, tx domain.TransactionManager, store domain.CacheStore, logger *slog.Logger, m *metrics.APIMetrics) *UserService {
	return &UserService{
		repo:    repo,
		tx:      tx,
		store:   store,
		inv:     cache.NewInvalidator(entityUser, store, logger, m),
		logger:  logger.With("component", "user_service"),
		metrics: m,
	}
}

// Get returns one user, probing the entity cache first.
func (s *UserService) Get(ctx context.Context, tc domain.TenantContext, id int64) (*domain.User, error) {
	if !tc.Scoped() {
		return nil, fmt.Errorf("%w: get requires a site context", domain.ErrUnauthorized)
	}

	key := cache.EntityKey(entityUser, tc.SiteID, id)
	var cached domain.User
	if s.store.GetJSON(ctx, key, &cached) {
		if s.metrics != nil {
			s.metrics.CacheHits.WithLabelValues("entity").Inc()
		}
		return &cached, nil
	}
	if s.metrics != nil {
		s.metrics.CacheMisses.WithLabelValues("entity").Inc()
	}

	u, err := s.repo.Find(ctx, tc, id)
	if err != nil {
		return nil, err
	}

	s.store.SetJSON(ctx, key, u, domain.CacheTTLMedium)
	return u, nil
}

// List returns one page of the site's users, uncached filters go straight to
// the repository; user lists are small and churn with role changes, so only
// the plain default page is cached.
func (s *UserService) List(ctx context.Context, tc domain.TenantContext, filters []domain.Filter, sort domain.Sort, page domain.Page) ([]*domain.User, int, error) {
	return s.repo.List(ctx, tc, filters, sort, page)
}

// Create registers a new user for the site, hashing the supplied password.
func (s *UserService) Create(ctx context.Context, tc domain.TenantContext, u *domain.User, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, tc, u)
	})
	if err != nil {
		return err
	}

	s.inv.OnWrite(ctx, tc.SiteID, u.ID)
	return nil
}

// Update applies a patch and invalidates on success.
func (s *UserService) Update(ctx context.Context, tc domain.TenantContext, id int64, patch domain.UserPatch) (*domain.User, error) {
	var updated *domain.User
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

// Delete removes a user idempotently.
func (s *UserService) Delete(ctx context.Context, tc domain.TenantContext, id int64) (bool, error) {
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
