package domain

import (
	"context"
	"time"
)

// InteractionChannel is the medium a customer interaction happened over.
type InteractionChannel string

const (
	ChannelCall    InteractionChannel = "call"
	ChannelEmail   InteractionChannel = "email"
	ChannelMeeting InteractionChannel = "meeting"
	ChannelChat    InteractionChannel = "chat"
)

// InteractionStatus is the workflow state of an interaction record.
type InteractionStatus string

const (
	StatusOpen     InteractionStatus = "open"
	StatusClosed   InteractionStatus = "closed"
	StatusArchived InteractionStatus = "archived"
)

// Interaction is the primary record type: one logged customer interaction
// owned by exactly one site.
type Interaction struct {
	ID         int64              `json:"id"`
	SiteID     int64              `json:"site_id"`
	Title      string             `json:"title"`
	Channel    InteractionChannel `json:"channel"`
	Status     InteractionStatus  `json:"status"`
	Contact    string             `json:"contact"`
	Body       string             `json:"body,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// InteractionPatch carries the mutable fields; nil means "leave unchanged".
type InteractionPatch struct {
	Title      *string             `json:"title,omitempty"`
	Channel    *InteractionChannel `json:"channel,omitempty"`
	Status     *InteractionStatus  `json:"status,omitempty"`
	Contact    *string             `json:"contact,omitempty"`
	Body       *string             `json:"body,omitempty"`
	OccurredAt *time.Time          `json:"occurred_at,omitempty"`
}

// InteractionRepository persists interactions, transparently scoped to the
// tenant carried by the TenantContext.
type InteractionRepository interface {
	Find(ctx context.Context, tc TenantContext, id int64) (*Interaction, error)
	List(ctx context.Context, tc TenantContext, filters []Filter, sort Sort, page Page) ([]*Interaction, int, error)

	// Search behaves like List but additionally matches query against the
	// title, contact, and body columns.
	Search(ctx context.Context, tc TenantContext, query string, filters []Filter, sort Sort, page Page) ([]*Interaction, int, error)

	Create(ctx context.Context, tc TenantContext, in *Interaction) error
	Update(ctx context.Context, tc TenantContext, id int64, patch InteractionPatch) (*Interaction, error)

	// Delete is idempotent: it reports false when no row exists under this
	// tenant instead of failing.
	Delete(ctx context.Context, tc TenantContext, id int64) (bool, error)

	// RequireDelete is the strict variant: ErrNotFound when nothing was
	// deleted.
	RequireDelete(ctx context.Context, tc TenantContext, id int64) error
}

// Note is a child record attached to one interaction.
type Note struct {
	ID            int64     `json:"id"`
	SiteID        int64     `json:"site_id"`
	InteractionID int64     `json:"interaction_id"`
	AuthorID      int64     `json:"author_id"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NoteRepository persists interaction notes under the same tenant scoping
// rules as their owning interaction.
type NoteRepository interface {
	Find(ctx context.Context, tc TenantContext, id int64) (*Note, error)
	ListByInteraction(ctx context.Context, tc TenantContext, interactionID int64, page Page) ([]*Note, int, error)
	Create(ctx context.Context, tc TenantContext, n *Note) error
	Delete(ctx context.Context, tc TenantContext, id int64) (bool, error)
}
