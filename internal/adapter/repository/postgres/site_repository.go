package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/user/record-api/internal/domain"
)

type postgresSiteRepository struct {
	db *sql.DB
}

// NewSiteRepository creates the PostgreSQL-backed site repository. This is
// the tenant-discovery bypass: site queries are deliberately unscoped,
// because resolving a site is what establishes the tenant for everything
// else.
func NewSiteRepository(db *sql.DB) domain.SiteRepository {
	return &postgresSiteRepository{db: db}
}

func (r *postgresSiteRepository) Find(ctx context.Context, id int64) (*domain.Site, error) {
	return r.scanOne(q(ctx, r.db).QueryRowContext(ctx, `
        SELECT id, name, slug, created_at, updated_at
        FROM sites
        WHERE id = $1
    `, id))
}

func (r *postgresSiteRepository) FindBySlug(ctx context.Context, slug string) (*domain.Site, error) {
	return r.scanOne(q(ctx, r.db).QueryRowContext(ctx, `
        SELECT id, name, slug, created_at, updated_at
        FROM sites
        WHERE slug = $1
    `, slug))
}

func (r *postgresSiteRepository) scanOne(row *sql.Row) (*domain.Site, error) {
	var s domain.Site
	err := row.Scan(&s.ID, &s.Name, &s.Slug, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find site: %w", err)
	}
	return &s, nil
}

func (r *postgresSiteRepository) List(ctx context.Context, page domain.Page) ([]*domain.Site, int, error) {
	var total int
	if err := q(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM sites`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sites: %w", err)
	}

	page = page.Normalize()
	rows, err := q(ctx, r.db).QueryContext(ctx, `
        SELECT id, name, slug, created_at, updated_at
        FROM sites
        ORDER BY id ASC
        LIMIT $1 OFFSET $2
    `, page.Size, pageOffset(page))
	if err != nil {
		return nil, 0, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()

	var items []*domain.Site
	for rows.Next() {
		var s domain.Site
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan site: %w", err)
		}
		items = append(items, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate sites: %w", err)
	}

	return items, total, nil
}

func (r *postgresSiteRepository) Create(ctx context.Context, s *domain.Site) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	err := q(ctx, r.db).QueryRowContext(ctx, `
        INSERT INTO sites (name, slug, created_at, updated_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `, s.Name, s.Slug, s.CreatedAt, s.UpdatedAt).Scan(&s.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: slug %q already taken", domain.ErrConflict, s.Slug)
		}
		return fmt.Errorf("create site: %w", err)
	}

	return nil
}

func (r *postgresSiteRepository) Update(ctx context.Context, s *domain.Site) error {
	s.UpdatedAt = time.Now().UTC()

	res, err := q(ctx, r.db).ExecContext(ctx, `
        UPDATE sites
        SET name = $1, slug = $2, updated_at = $3
        WHERE id = $4
    `, s.Name, s.Slug, s.UpdatedAt, s.ID)
	if err != nil {
		return fmt.Errorf("update site: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}

	return nil
}
