package postgres

import (
	"errors"
	"testing"

	"github.com/user/record-api/internal/domain"
)

var testColumns = map[string]string{
	"status":  "status",
	"channel": "channel",
	"contact": "contact",
}

func TestScopedWhere(t *testing.T) {
	tc := domain.TenantContext{UserID: 1, SiteID: 42}

	t.Run("no filters still scopes to the tenant", func(t *testing.T) {
		where, args, err := scopedWhere(tc, nil, testColumns)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if where != "site_id = $1" {
			t.Errorf("where = %q", where)
		}
		if len(args) != 1 || args[0] != int64(42) {
			t.Errorf("args = %v", args)
		}
	})

	t.Run("tenant conjunct always comes first", func(t *testing.T) {
		filters := []domain.Filter{
			{Field: "status", Op: domain.OpEquals, Value: "open"},
			{Field: "contact", Op: domain.OpContains, Value: "mega"},
		}
		where, args, err := scopedWhere(tc, filters, testColumns)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "site_id = $1 AND status = $2 AND contact ILIKE $3"
		if where != want {
			t.Errorf("where = %q, want %q", where, want)
		}
		if len(args) != 3 || args[0] != int64(42) || args[1] != "open" || args[2] != "%mega%" {
			t.Errorf("args = %v", args)
		}
	})

	t.Run("between consumes two placeholders", func(t *testing.T) {
		filters := []domain.Filter{
			{Field: "status", Op: domain.OpBetween, Lo: "a", Hi: "b"},
		}
		where, args, err := scopedWhere(tc, filters, testColumns)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "site_id = $1 AND status BETWEEN $2 AND $3"
		if where != want {
			t.Errorf("where = %q, want %q", where, want)
		}
		if len(args) != 3 {
			t.Errorf("args = %v", args)
		}
	})

	t.Run("in set binds one array placeholder", func(t *testing.T) {
		filters := []domain.Filter{
			{Field: "status", Op: domain.OpInSet, Values: []any{"open", "closed"}},
		}
		where, _, err := scopedWhere(tc, filters, testColumns)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "site_id = $1 AND status = ANY($2)"
		if where != want {
			t.Errorf("where = %q, want %q", where, want)
		}
	})

	t.Run("unknown field is rejected before any SQL is built", func(t *testing.T) {
		filters := []domain.Filter{
			{Field: "password_hash", Op: domain.OpEquals, Value: "x"},
		}
		_, _, err := scopedWhere(tc, filters, testColumns)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("missing operator value is rejected", func(t *testing.T) {
		filters := []domain.Filter{
			{Field: "status", Op: domain.OpEquals},
		}
		_, _, err := scopedWhere(tc, filters, testColumns)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("err = %v, want ErrValidation", err)
		}
	})
}

func TestOrderClause(t *testing.T) {
	columns := map[string]string{"occurred_at": "occurred_at"}

	t.Run("whitelisted field", func(t *testing.T) {
		got := orderClause(domain.Sort{Field: "occurred_at", Desc: true}, columns, "id DESC")
		if got != "occurred_at DESC, id DESC" {
			t.Errorf("clause = %q", got)
		}
	})

	t.Run("unknown field falls back", func(t *testing.T) {
		got := orderClause(domain.Sort{Field: "1; DROP TABLE interactions"}, columns, "id DESC")
		if got != "id DESC" {
			t.Errorf("clause = %q", got)
		}
	})
}

func TestPageOffset(t *testing.T) {
	if off := pageOffset(domain.Page{Number: 3, Size: 20}); off != 40 {
		t.Errorf("pageOffset = %d, want 40", off)
	}
	if off := pageOffset(domain.Page{}.Normalize()); off != 0 {
		t.Errorf("offset of normalized zero page = %d, want 0", off)
	}
}
