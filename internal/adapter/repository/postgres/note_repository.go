package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/user/record-api/internal/domain"
)

type postgresNoteRepository struct {
	db *sql.DB
}

// NewNoteRepository creates the PostgreSQL-backed note repository. Notes are
// scoped by site like their owning interaction; the interaction_id predicate
// alone is never trusted.
func NewNoteRepository(db *sql.DB) domain.NoteRepository {
	return &postgresNoteRepository{db: db}
}

func (r *postgresNoteRepository) Find(ctx context.Context, tc domain.TenantContext, id int64) (*domain.Note, error) {
	if !tc.Scoped() {
		return nil, fmt.Errorf("%w: find requires a site context", domain.ErrUnauthorized)
	}

	query := `
        SELECT id, site_id, interaction_id, author_id, body, created_at, updated_at
        FROM notes
        WHERE id = $1 AND site_id = $2
    `

	var n domain.Note
	err := q(ctx, r.db).QueryRowContext(ctx, query, id, tc.SiteID).Scan(
		&n.ID,
		&n.SiteID,
		&n.InteractionID,
		&n.AuthorID,
		&n.Body,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find note: %w", err)
	}

	return &n, nil
}

func (r *postgresNoteRepository) ListByInteraction(ctx context.Context, tc domain.TenantContext, interactionID int64, page domain.Page) ([]*domain.Note, int, error) {
	if !tc.Scoped() {
		return nil, 0, fmt.Errorf("%w: list requires a site context", domain.ErrUnauthorized)
	}

	var total int
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notes WHERE site_id = $1 AND interaction_id = $2`,
		tc.SiteID, interactionID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
	}

	page = page.Normalize()
	rows, err := q(ctx, r.db).QueryContext(ctx, `
        SELECT id, site_id, interaction_id, author_id, body, created_at, updated_at
        FROM notes
        WHERE site_id = $1 AND interaction_id = $2
        ORDER BY created_at DESC, id DESC
        LIMIT $3 OFFSET $4
    `, tc.SiteID, interactionID, page.Size, pageOffset(page))
	if err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var items []*domain.Note
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.SiteID, &n.InteractionID, &n.AuthorID, &n.Body, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan note: %w", err)
		}
		items = append(items, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate notes: %w", err)
	}

	return items, total, nil
}

func (r *postgresNoteRepository) Create(ctx context.Context, tc domain.TenantContext, n *domain.Note) error {
	if !tc.Scoped() {
		return fmt.Errorf("%w: create requires a site context", domain.ErrUnauthorized)
	}
	if n.SiteID != 0 && n.SiteID != tc.SiteID {
		return fmt.Errorf("%w: entity site id %d conflicts with context site %d", domain.ErrUnauthorized, n.SiteID, tc.SiteID)
	}

	now := time.Now().UTC()
	n.SiteID = tc.SiteID
	n.CreatedAt = now
	n.UpdatedAt = now

	query := `
        INSERT INTO notes (site_id, interaction_id, author_id, body, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `

	err := q(ctx, r.db).QueryRowContext(ctx, query,
		n.SiteID,
		n.InteractionID,
		n.AuthorID,
		n.Body,
		n.CreatedAt,
		n.UpdatedAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("create note: %w", err)
	}

	return nil
}

func (r *postgresNoteRepository) Delete(ctx context.Context, tc domain.TenantContext, id int64) (bool, error) {
	if !tc.Scoped() {
		return false, fmt.Errorf("%w: delete requires a site context", domain.ErrUnauthorized)
	}

	res, err := q(ctx, r.db).ExecContext(ctx,
		`DELETE FROM notes WHERE id = $1 AND site_id = $2`, id, tc.SiteID)
	if err != nil {
		return false, fmt.Errorf("delete note: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete note rows affected: %w", err)
	}
	return n > 0, nil
}
