package domain

import (
	"context"
	"time"
)

// UserRole controls what a user may do within their site.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleMember UserRole = "member"
)

// User is an account within one site.
type User struct {
	ID           int64     `json:"id"`
	SiteID       int64     `json:"site_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // never exposed in API responses
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPatch carries the mutable user fields; nil means "leave unchanged".
type UserPatch struct {
	Email *string   `json:"email,omitempty"`
	Name  *string   `json:"name,omitempty"`
	Role  *UserRole `json:"role,omitempty"`
}

// UserRepository persists users, scoped to the tenant in the TenantContext.
// FindByEmail is used by login, before a tenant is established, and is
// therefore keyed by (site slug derived) site id passed explicitly.
type UserRepository interface {
	Find(ctx context.Context, tc TenantContext, id int64) (*User, error)
	FindByEmail(ctx context.Context, siteID int64, email string) (*User, error)
	List(ctx context.Context, tc TenantContext, filters []Filter, sort Sort, page Page) ([]*User, int, error)
	Create(ctx context.Context, tc TenantContext, u *User) error
	Update(ctx context.Context, tc TenantContext, id int64, patch UserPatch) (*User, error)
	Delete(ctx context.Context, tc TenantContext, id int64) (bool, error)
	RequireDelete(ctx context.Context, tc TenantContext, id int64) error
}
