package usecase

import (
	"context"
	"log/slog"

	"github.com/user/record-api/internal/domain"
)

// SiteService manages the tenancy units themselves. Site operations run on
// the tenant-discovery path, before any TenantContext exists, so they are
// deliberately uncached and unscoped; volume is negligible compared to
// record traffic.
type SiteService struct {
	repo   domain.SiteRepository
	tx     domain.TransactionManager
	logger *slog.Logger
}

// NewSiteService wires the site administration path.
func NewSiteService(repo domain.SiteRepository, tx domain.TransactionManager, logger *slog.Logger) *SiteService {
	return &SiteService{
		repo:   repo,
		tx:     tx,
		logger: logger.With("component", "site_service"),
	}
}

func (s *SiteService) Get(ctx context.Context, id int64) (*domain.Site, error) {
	return s.repo.Find(ctx, id)
}

func (s *SiteService) GetBySlug(ctx context.Context, slug string) (*domain.Site, error) {
	return s.repo.FindBySlug(ctx, slug)
}

func (s *SiteService) List(ctx context.Context, page domain.Page) ([]*domain.Site, int, error) {
	return s.repo.List(ctx, page)
}

func (s *SiteService) Create(ctx context.Context, site *domain.Site) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, site)
	})
}

func (s *SiteService) Update(ctx context.Context, site *domain.Site) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, site)
	})
}
