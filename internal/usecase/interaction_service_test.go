package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/user/record-api/internal/domain"
	"github.com/user/record-api/internal/domain/mocks"
)

type interactionFixture struct {
	svc   *InteractionService
	repo  *mocks.MockInteractionRepository
	notes *mocks.MockNoteRepository
	store *mocks.MockCacheStore
	tx    *mocks.MockTxManager
}

func newInteractionFixture() *interactionFixture {
	repo := mocks.NewMockInteractionRepository()
	notes := mocks.NewMockNoteRepository()
	store := mocks.NewMockCacheStore()
	tx := &mocks.MockTxManager{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &interactionFixture{
		svc:   NewInteractionService(repo, notes, tx, store, logger, nil),
		repo:  repo,
		notes: notes,
		store: store,
		tx:    tx,
	}
}

var (
	tenantA = domain.TenantContext{UserID: 1, SiteID: 42}
	tenantB = domain.TenantContext{UserID: 2, SiteID: 99}
)

func seedInteraction(t *testing.T, f *interactionFixture, tc domain.TenantContext, title string) *domain.Interaction {
	t.Helper()
	in := &domain.Interaction{
		Title:      title,
		Channel:    domain.ChannelEmail,
		Status:     domain.StatusOpen,
		Contact:    "sam@megacorp.test",
		OccurredAt: time.Now(),
	}
	if err := f.svc.Create(context.Background(), tc, in); err != nil {
		t.Fatalf("seed interaction: %v", err)
	}
	return in
}

func TestInteractionServiceTenantIsolation(t *testing.T) {
	ctx := context.Background()
	f := newInteractionFixture()
	in := seedInteraction(t, f, tenantA, "Kickoff call")

	t.Run("foreign tenant reads not found", func(t *testing.T) {
		if _, err := f.svc.Get(ctx, tenantB, in.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("foreign tenant cannot update", func(t *testing.T) {
		title := "hijacked"
		if _, err := f.svc.Update(ctx, tenantB, in.ID, domain.InteractionPatch{Title: &title}); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("foreign tenant delete is a silent miss", func(t *testing.T) {
		deleted, err := f.svc.Delete(ctx, tenantB, in.ID)
		if err != nil || deleted {
			t.Errorf("delete = %v, %v; want false, nil", deleted, err)
		}
		if _, err := f.svc.Get(ctx, tenantA, in.ID); err != nil {
			t.Errorf("owner lost the record: %v", err)
		}
	})

	t.Run("foreign tenant sees an empty list", func(t *testing.T) {
		items, total, err := f.svc.List(ctx, tenantB, nil, domain.Sort{}, domain.Page{Number: 1, Size: 20})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(items) != 0 || total != 0 {
			t.Errorf("foreign tenant saw %d items (total %d)", len(items), total)
		}
	})

	t.Run("unscoped context is rejected", func(t *testing.T) {
		if _, err := f.svc.Get(ctx, domain.TenantContext{}, in.ID); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("err = %v, want ErrUnauthorized", err)
		}
	})
}

func TestInteractionServiceCaching(t *testing.T) {
	ctx := context.Background()

	t.Run("repeat get is served from cache", func(t *testing.T) {
		f := newInteractionFixture()
		in := seedInteraction(t, f, tenantA, "Kickoff call")

		if _, err := f.svc.Get(ctx, tenantA, in.ID); err != nil {
			t.Fatalf("first get: %v", err)
		}

		// A read that reaches the repository would now fail.
		f.repo.FindErr = errors.New("repository must not be hit")
		got, err := f.svc.Get(ctx, tenantA, in.ID)
		if err != nil {
			t.Fatalf("cached get: %v", err)
		}
		if got.Title != "Kickoff call" {
			t.Errorf("title = %q", got.Title)
		}
	})

	t.Run("update purges the stale entity and list entries", func(t *testing.T) {
		f := newInteractionFixture()
		in := seedInteraction(t, f, tenantA, "Kickoff call")
		page := domain.Page{Number: 1, Size: 20}

		f.svc.Get(ctx, tenantA, in.ID)
		f.svc.List(ctx, tenantA, nil, domain.Sort{}, page)

		title := "Kickoff call (rescheduled)"
		if _, err := f.svc.Update(ctx, tenantA, in.ID, domain.InteractionPatch{Title: &title}); err != nil {
			t.Fatalf("update: %v", err)
		}

		got, err := f.svc.Get(ctx, tenantA, in.ID)
		if err != nil {
			t.Fatalf("get after update: %v", err)
		}
		if got.Title != title {
			t.Errorf("stale title %q served after update", got.Title)
		}

		items, _, err := f.svc.List(ctx, tenantA, nil, domain.Sort{}, page)
		if err != nil {
			t.Fatalf("list after update: %v", err)
		}
		if len(items) != 1 || items[0].Title != title {
			t.Errorf("stale list page served after update: %+v", items)
		}
	})

	t.Run("search pages are content addressed and purged on write", func(t *testing.T) {
		f := newInteractionFixture()
		seedInteraction(t, f, tenantA, "Kickoff call")
		page := domain.Page{Number: 1, Size: 20}

		items, _, err := f.svc.Search(ctx, tenantA, "Kickoff", nil, domain.Sort{}, page)
		if err != nil || len(items) != 1 {
			t.Fatalf("search = %v items, err %v", len(items), err)
		}

		seedInteraction(t, f, tenantA, "Kickoff retro")

		items, _, err = f.svc.Search(ctx, tenantA, "Kickoff", nil, domain.Sort{}, page)
		if err != nil {
			t.Fatalf("search after write: %v", err)
		}
		if len(items) != 2 {
			t.Errorf("stale search page: got %d items, want 2", len(items))
		}
	})

	t.Run("equivalent page requests share one cache key", func(t *testing.T) {
		f := newInteractionFixture()
		seedInteraction(t, f, tenantA, "Kickoff call")

		// The zero page and the explicit first page are the same logical
		// page; the second request must hit the entry the first cached.
		if _, _, err := f.svc.List(ctx, tenantA, nil, domain.Sort{}, domain.Page{}); err != nil {
			t.Fatalf("first list: %v", err)
		}

		f.repo.ListErr = errors.New("repository must not be hit")
		items, _, err := f.svc.List(ctx, tenantA, nil, domain.Sort{}, domain.Page{Number: 1, Size: domain.DefaultPageSize})
		if err != nil {
			t.Fatalf("second list: %v", err)
		}
		if len(items) != 1 {
			t.Errorf("cached page returned %d items, want 1", len(items))
		}

		var pages int
		for _, key := range f.store.Keys() {
			if len(key) > 11 && key[:11] == "entity:list" {
				pages++
			}
		}
		if pages != 1 {
			t.Errorf("cached list pages = %d, want 1 (keys %v)", pages, f.store.Keys())
		}
	})

	t.Run("re-sorted list does not share the plain page's key", func(t *testing.T) {
		f := newInteractionFixture()
		seedInteraction(t, f, tenantA, "Kickoff call")
		page := domain.Page{Number: 1, Size: 20}

		f.svc.List(ctx, tenantA, nil, domain.Sort{}, page)
		f.svc.List(ctx, tenantA, nil, domain.Sort{Field: "occurred_at", Desc: true}, page)

		var plain, sorted int
		for _, key := range f.store.Keys() {
			switch {
			case len(key) > 11 && key[:11] == "entity:list":
				plain++
			case len(key) > 6 && key[:6] == "search":
				sorted++
			}
		}
		if plain != 1 || sorted != 1 {
			t.Errorf("cached pages = %d plain, %d sorted; want 1 and 1", plain, sorted)
		}
	})

	t.Run("failed commit never reaches invalidation", func(t *testing.T) {
		f := newInteractionFixture()
		in := seedInteraction(t, f, tenantA, "Kickoff call")
		page := domain.Page{Number: 1, Size: 20}

		f.svc.List(ctx, tenantA, nil, domain.Sort{}, page)
		cachedKeys := len(f.store.Keys())

		f.tx.CommitErr = errors.New("connection reset")
		title := "never lands"
		if _, err := f.svc.Update(ctx, tenantA, in.ID, domain.InteractionPatch{Title: &title}); !errors.Is(err, domain.ErrTransaction) {
			t.Fatalf("err = %v, want ErrTransaction", err)
		}

		if got := len(f.store.Keys()); got != cachedKeys {
			t.Errorf("cache changed on failed commit: %d -> %d keys", cachedKeys, got)
		}
	})
}

func TestInteractionServiceDelete(t *testing.T) {
	ctx := context.Background()
	f := newInteractionFixture()
	in := seedInteraction(t, f, tenantA, "Kickoff call")

	deleted, err := f.svc.Delete(ctx, tenantA, in.ID)
	if err != nil || !deleted {
		t.Fatalf("first delete = %v, %v; want true, nil", deleted, err)
	}

	t.Run("second delete reports false without failing", func(t *testing.T) {
		deleted, err := f.svc.Delete(ctx, tenantA, in.ID)
		if err != nil || deleted {
			t.Errorf("second delete = %v, %v; want false, nil", deleted, err)
		}
	})

	t.Run("strict variant reports not found", func(t *testing.T) {
		if err := f.svc.RequireDelete(ctx, tenantA, in.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("deleted record is gone from cache and repository", func(t *testing.T) {
		if _, err := f.svc.Get(ctx, tenantA, in.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestInteractionServiceNotes(t *testing.T) {
	ctx := context.Background()

	t.Run("note write cascades into the interaction pages", func(t *testing.T) {
		f := newInteractionFixture()
		in := seedInteraction(t, f, tenantA, "Kickoff call")
		page := domain.Page{Number: 1, Size: 20}

		f.svc.List(ctx, tenantA, nil, domain.Sort{}, page)

		n := &domain.Note{InteractionID: in.ID, AuthorID: tenantA.UserID, Body: "follow up Monday"}
		if err := f.svc.AddNote(ctx, tenantA, n); err != nil {
			t.Fatalf("add note: %v", err)
		}

		for _, key := range f.store.Keys() {
			if len(key) > 11 && key[:11] == "entity:list" {
				t.Errorf("interaction list page %q survived note cascade", key)
			}
		}

		notes, total, err := f.svc.ListNotes(ctx, tenantA, in.ID, page)
		if err != nil || total != 1 || len(notes) != 1 {
			t.Fatalf("list notes = %d items (total %d), err %v", len(notes), total, err)
		}
	})

	t.Run("note on a foreign interaction aborts inside the transaction", func(t *testing.T) {
		f := newInteractionFixture()
		in := seedInteraction(t, f, tenantA, "Kickoff call")

		n := &domain.Note{InteractionID: in.ID, AuthorID: tenantB.UserID, Body: "sneaky"}
		if err := f.svc.AddNote(ctx, tenantB, n); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
		if f.tx.Rollbacks != 1 {
			t.Errorf("rollbacks = %d, want 1", f.tx.Rollbacks)
		}
		if len(f.notes.Items) != 0 {
			t.Errorf("note persisted despite foreign parent")
		}
	})

	t.Run("note delete is idempotent", func(t *testing.T) {
		f := newInteractionFixture()
		in := seedInteraction(t, f, tenantA, "Kickoff call")
		n := &domain.Note{InteractionID: in.ID, AuthorID: tenantA.UserID, Body: "x"}
		if err := f.svc.AddNote(ctx, tenantA, n); err != nil {
			t.Fatalf("add note: %v", err)
		}

		deleted, err := f.svc.DeleteNote(ctx, tenantA, n.ID)
		if err != nil || !deleted {
			t.Fatalf("first delete = %v, %v", deleted, err)
		}
		deleted, err = f.svc.DeleteNote(ctx, tenantA, n.ID)
		if err != nil || deleted {
			t.Errorf("second delete = %v, %v; want false, nil", deleted, err)
		}
	})
}

func TestInteractionServiceStoreOutage(t *testing.T) {
	ctx := context.Background()
	f := newInteractionFixture()
	in := seedInteraction(t, f, tenantA, "Kickoff call")
	f.store.Down = true

	t.Run("reads fall through to the repository", func(t *testing.T) {
		got, err := f.svc.Get(ctx, tenantA, in.ID)
		if err != nil {
			t.Fatalf("get during outage: %v", err)
		}
		if got.Title != "Kickoff call" {
			t.Errorf("title = %q", got.Title)
		}

		items, total, err := f.svc.List(ctx, tenantA, nil, domain.Sort{}, domain.Page{Number: 1, Size: 20})
		if err != nil || total != 1 || len(items) != 1 {
			t.Errorf("list during outage = %d items (total %d), err %v", len(items), total, err)
		}
	})

	t.Run("writes still commit", func(t *testing.T) {
		title := "updated during outage"
		got, err := f.svc.Update(ctx, tenantA, in.ID, domain.InteractionPatch{Title: &title})
		if err != nil {
			t.Fatalf("update during outage: %v", err)
		}
		if got.Title != title {
			t.Errorf("title = %q", got.Title)
		}
	})
}
