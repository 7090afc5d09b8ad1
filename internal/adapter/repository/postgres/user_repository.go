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

var userColumns = map[string]string{
	"email":      "email",
	"name":       "name",
	"role":       "role",
	"created_at": "created_at",
}

const uniqueViolation = "23505"

type postgresUserRepository struct {
	db *sql.DB
}

// NewUserRepository creates the PostgreSQL-backed user repository.
func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) Find(ctx context.Context, tc domain.TenantContext, id int64) (*domain.User, error) {
	if !tc.Scoped() {
		return nil, fmt.Errorf("%w: find requires a site context", domain.ErrUnauthorized)
	}

	query := `
        SELECT id, site_id, email, name, password_hash, role, created_at, updated_at
        FROM users
        WHERE id = $1 AND site_id = $2
    `
	return r.scanOne(q(ctx, r.db).QueryRowContext(ctx, query, id, tc.SiteID))
}

// FindByEmail runs before a tenant context exists (login); the site id is
// passed explicitly instead.
func (r *postgresUserRepository) FindByEmail(ctx context.Context, siteID int64, email string) (*domain.User, error) {
	query := `
        SELECT id, site_id, email, name, password_hash, role, created_at, updated_at
        FROM users
        WHERE site_id = $1 AND email = $2
    `
	return r.scanOne(q(ctx, r.db).QueryRowContext(ctx, query, siteID, email))
}

func (r *postgresUserRepository) scanOne(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.SiteID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *postgresUserRepository) List(ctx context.Context, tc domain.TenantContext, filters []domain.Filter, sort domain.Sort, page domain.Page) ([]*domain.User, int, error) {
	if !tc.Scoped() {
		return nil, 0, fmt.Errorf("%w: list requires a site context", domain.ErrUnauthorized)
	}

	where, args, err := scopedWhere(tc, filters, userColumns)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := q(ctx, r.db).QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	page = page.Normalize()
	order := orderClause(sort, userColumns, "created_at ASC, id ASC")

	args = append(args, page.Size, pageOffset(page))
	rows, err := q(ctx, r.db).QueryContext(ctx, fmt.Sprintf(`
        SELECT id, site_id, email, name, password_hash, role, created_at, updated_at
        FROM users
        WHERE %s
        ORDER BY %s
        LIMIT $%d OFFSET $%d
    `, where, order, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var items []*domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.SiteID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		items = append(items, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}

	return items, total, nil
}

func (r *postgresUserRepository) Create(ctx context.Context, tc domain.TenantContext, u *domain.User) error {
	if !tc.Scoped() {
		return fmt.Errorf("%w: create requires a site context", domain.ErrUnauthorized)
	}
	if u.SiteID != 0 && u.SiteID != tc.SiteID {
		return fmt.Errorf("%w: entity site id %d conflicts with context site %d", domain.ErrUnauthorized, u.SiteID, tc.SiteID)
	}

	now := time.Now().UTC()
	u.SiteID = tc.SiteID
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = domain.RoleMember
	}

	query := `
        INSERT INTO users (site_id, email, name, password_hash, role, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `

	err := q(ctx, r.db).QueryRowContext(ctx, query,
		u.SiteID,
		u.Email,
		u.Name,
		u.PasswordHash,
		u.Role,
		u.CreatedAt,
		u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: email %q already registered for this site", domain.ErrConflict, u.Email)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *postgresUserRepository) Update(ctx context.Context, tc domain.TenantContext, id int64, patch domain.UserPatch) (*domain.User, error) {
	u, err := r.Find(ctx, tc, id)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	u.UpdatedAt = time.Now().UTC()

	query := `
        UPDATE users
        SET email = $1, name = $2, role = $3, updated_at = $4
        WHERE id = $5 AND site_id = $6
    `

	res, err := q(ctx, r.db).ExecContext(ctx, query, u.Email, u.Name, u.Role, u.UpdatedAt, u.ID, tc.SiteID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: email %q already registered for this site", domain.ErrConflict, u.Email)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, domain.ErrNotFound
	}

	return u, nil
}

func (r *postgresUserRepository) Delete(ctx context.Context, tc domain.TenantContext, id int64) (bool, error) {
	if !tc.Scoped() {
		return false, fmt.Errorf("%w: delete requires a site context", domain.ErrUnauthorized)
	}

	res, err := q(ctx, r.db).ExecContext(ctx,
		`DELETE FROM users WHERE id = $1 AND site_id = $2`, id, tc.SiteID)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete user rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *postgresUserRepository) RequireDelete(ctx context.Context, tc domain.TenantContext, id int64) error {
	deleted, err := r.Delete(ctx, tc, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}
