package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/user/record-api/internal/domain"
)

// interactionColumns maps filterable/sortable API fields to table columns.
var interactionColumns = map[string]string{
	"title":       "title",
	"channel":     "channel",
	"status":      "status",
	"contact":     "contact",
	"occurred_at": "occurred_at",
	"created_at":  "created_at",
}

type postgresInteractionRepository struct {
	db *sql.DB
}

// NewInteractionRepository creates the PostgreSQL-backed interaction
// repository. Every query it issues is intersected with the caller's site.
func NewInteractionRepository(db *sql.DB) domain.InteractionRepository {
	return &postgresInteractionRepository{db: db}
}

func (r *postgresInteractionRepository) Find(ctx context.Context, tc domain.TenantContext, id int64) (*domain.Interaction, error) {
	if !tc.Scoped() {
		return nil, fmt.Errorf("%w: find requires a site context", domain.ErrUnauthorized)
	}

	query := `
        SELECT id, site_id, title, channel, status, contact, body, occurred_at, created_at, updated_at
        FROM interactions
        WHERE id = $1 AND site_id = $2
    `

	var in domain.Interaction
	err := q(ctx, r.db).QueryRowContext(ctx, query, id, tc.SiteID).Scan(
		&in.ID,
		&in.SiteID,
		&in.Title,
		&in.Channel,
		&in.Status,
		&in.Contact,
		&in.Body,
		&in.OccurredAt,
		&in.CreatedAt,
		&in.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A row owned by another site scans as no rows; both cases look
			// identical to the caller.
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find interaction: %w", err)
	}

	return &in, nil
}

func (r *postgresInteractionRepository) List(ctx context.Context, tc domain.TenantContext, filters []domain.Filter, sort domain.Sort, page domain.Page) ([]*domain.Interaction, int, error) {
	if !tc.Scoped() {
		return nil, 0, fmt.Errorf("%w: list requires a site context", domain.ErrUnauthorized)
	}
	return r.query(ctx, tc, "", filters, sort, page)
}

func (r *postgresInteractionRepository) Search(ctx context.Context, tc domain.TenantContext, query string, filters []domain.Filter, sort domain.Sort, page domain.Page) ([]*domain.Interaction, int, error) {
	if !tc.Scoped() {
		return nil, 0, fmt.Errorf("%w: search requires a site context", domain.ErrUnauthorized)
	}
	return r.query(ctx, tc, query, filters, sort, page)
}

// query runs the shared tenant-filtered list/search. The total is counted
// against the same scoped predicate, never the unscoped table.
func (r *postgresInteractionRepository) query(ctx context.Context, tc domain.TenantContext, search string, filters []domain.Filter, sort domain.Sort, page domain.Page) ([]*domain.Interaction, int, error) {
	where, args, err := scopedWhere(tc, filters, interactionColumns)
	if err != nil {
		return nil, 0, err
	}

	if search != "" {
		args = append(args, fmt.Sprintf("%%%s%%", search))
		where += fmt.Sprintf(" AND (title ILIKE $%d OR contact ILIKE $%d OR body ILIKE $%d)", len(args), len(args), len(args))
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM interactions WHERE " + where
	if err := q(ctx, r.db).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count interactions: %w", err)
	}

	page = page.Normalize()
	order := orderClause(sort, interactionColumns, "occurred_at DESC, id DESC")

	args = append(args, page.Size, pageOffset(page))
	listQuery := fmt.Sprintf(`
        SELECT id, site_id, title, channel, status, contact, body, occurred_at, created_at, updated_at
        FROM interactions
        WHERE %s
        ORDER BY %s
        LIMIT $%d OFFSET $%d
    `, where, order, len(args)-1, len(args))

	rows, err := q(ctx, r.db).QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var items []*domain.Interaction
	for rows.Next() {
		var in domain.Interaction
		if err := rows.Scan(
			&in.ID,
			&in.SiteID,
			&in.Title,
			&in.Channel,
			&in.Status,
			&in.Contact,
			&in.Body,
			&in.OccurredAt,
			&in.CreatedAt,
			&in.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan interaction: %w", err)
		}
		items = append(items, &in)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate interactions: %w", err)
	}

	return items, total, nil
}

func (r *postgresInteractionRepository) Create(ctx context.Context, tc domain.TenantContext, in *domain.Interaction) error {
	if !tc.Scoped() {
		return fmt.Errorf("%w: create requires a site context", domain.ErrUnauthorized)
	}
	// A caller-supplied site id that disagrees with the context is a
	// programmer error, never silently corrected.
	if in.SiteID != 0 && in.SiteID != tc.SiteID {
		return fmt.Errorf("%w: entity site id %d conflicts with context site %d", domain.ErrUnauthorized, in.SiteID, tc.SiteID)
	}

	now := time.Now().UTC()
	in.SiteID = tc.SiteID
	in.CreatedAt = now
	in.UpdatedAt = now
	if in.Status == "" {
		in.Status = domain.StatusOpen
	}
	if in.OccurredAt.IsZero() {
		in.OccurredAt = now
	}

	query := `
        INSERT INTO interactions (site_id, title, channel, status, contact, body, occurred_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `

	err := q(ctx, r.db).QueryRowContext(ctx, query,
		in.SiteID,
		in.Title,
		in.Channel,
		in.Status,
		in.Contact,
		in.Body,
		in.OccurredAt,
		in.CreatedAt,
		in.UpdatedAt,
	).Scan(&in.ID)
	if err != nil {
		return fmt.Errorf("create interaction: %w", err)
	}

	return nil
}

func (r *postgresInteractionRepository) Update(ctx context.Context, tc domain.TenantContext, id int64, patch domain.InteractionPatch) (*domain.Interaction, error) {
	// Find enforces scoping before any mutation is attempted.
	in, err := r.Find(ctx, tc, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		in.Title = *patch.Title
	}
	if patch.Channel != nil {
		in.Channel = *patch.Channel
	}
	if patch.Status != nil {
		in.Status = *patch.Status
	}
	if patch.Contact != nil {
		in.Contact = *patch.Contact
	}
	if patch.Body != nil {
		in.Body = *patch.Body
	}
	if patch.OccurredAt != nil {
		in.OccurredAt = *patch.OccurredAt
	}
	in.UpdatedAt = time.Now().UTC()

	query := `
        UPDATE interactions
        SET title = $1, channel = $2, status = $3, contact = $4, body = $5, occurred_at = $6, updated_at = $7
        WHERE id = $8 AND site_id = $9
    `

	res, err := q(ctx, r.db).ExecContext(ctx, query,
		in.Title,
		in.Channel,
		in.Status,
		in.Contact,
		in.Body,
		in.OccurredAt,
		in.UpdatedAt,
		in.ID,
		tc.SiteID,
	)
	if err != nil {
		return nil, fmt.Errorf("update interaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Deleted between the read and the write.
		return nil, domain.ErrNotFound
	}

	return in, nil
}

func (r *postgresInteractionRepository) Delete(ctx context.Context, tc domain.TenantContext, id int64) (bool, error) {
	if !tc.Scoped() {
		return false, fmt.Errorf("%w: delete requires a site context", domain.ErrUnauthorized)
	}

	res, err := q(ctx, r.db).ExecContext(ctx,
		`DELETE FROM interactions WHERE id = $1 AND site_id = $2`, id, tc.SiteID)
	if err != nil {
		return false, fmt.Errorf("delete interaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete interaction rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *postgresInteractionRepository) RequireDelete(ctx context.Context, tc domain.TenantContext, id int64) error {
	deleted, err := r.Delete(ctx, tc, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}
