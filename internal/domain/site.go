package domain

import (
	"context"
	"time"
)

// DefaultSiteSlug is the reserved slug of the site created at install time.
// Tokens issued against it mark their TenantContext as default-site, which
// gates site administration.
const DefaultSiteSlug = "default"

// Site is the tenancy unit. Every other entity belongs to exactly one site.
type Site struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SiteRepository is the tenant-discovery bypass: it is the only repository
// that runs unscoped queries, because a site lookup is what establishes the
// tenant in the first place.
type SiteRepository interface {
	Find(ctx context.Context, id int64) (*Site, error)
	FindBySlug(ctx context.Context, slug string) (*Site, error)
	List(ctx context.Context, page Page) ([]*Site, int, error)
	Create(ctx context.Context, s *Site) error
	Update(ctx context.Context, s *Site) error
}
