package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/user/record-api/internal/adapter/api/middleware"
	"github.com/user/record-api/internal/domain"
	"github.com/user/record-api/internal/domain/mocks"
	"github.com/user/record-api/internal/pkg/auth"
	"github.com/user/record-api/internal/usecase"
)

func newSiteServer(t *testing.T) (http.Handler, *mocks.MockSiteRepository) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := mocks.NewMockCacheStore()
	sites := mocks.NewMockSiteRepository()

	service := usecase.NewSiteService(sites, &mocks.MockTxManager{}, logger)
	authService := usecase.NewAuthService(
		mocks.NewMockUserRepository(),
		sites,
		store,
		testSecret,
		time.Hour,
		logger,
	)

	h := NewSiteHandler(service, logger)
	r := chi.NewRouter()
	r.Route("/sites", func(r chi.Router) {
		r.Use(middleware.Auth(authService, logger))
		h.Routes(r)
	})
	return r, sites
}

func defaultSiteToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken(1, 1, domain.RoleAdmin, true, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return "Bearer " + token
}

func TestSiteHandlerMutationGate(t *testing.T) {
	srv, sites := newSiteServer(t)
	if err := sites.Create(context.Background(), &domain.Site{Name: "Acme", Slug: "acme"}); err != nil {
		t.Fatalf("seed site: %v", err)
	}

	admin := defaultSiteToken(t)
	tenant := bearerToken(t, 7, 1)

	t.Run("tenant callers can read sites", func(t *testing.T) {
		if rec := doRequest(t, srv, http.MethodGet, "/sites/", tenant, ""); rec.Code != http.StatusOK {
			t.Errorf("list status = %d, body %s", rec.Code, rec.Body.String())
		}
		if rec := doRequest(t, srv, http.MethodGet, "/sites/1", tenant, ""); rec.Code != http.StatusOK {
			t.Errorf("get status = %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("tenant callers cannot create or update sites", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/sites/", tenant, `{"name":"Rogue","slug":"rogue"}`)
		if rec.Code != http.StatusForbidden {
			t.Errorf("create status = %d, want 403", rec.Code)
		}
		rec = doRequest(t, srv, http.MethodPatch, "/sites/1", tenant, `{"name":"Hijacked"}`)
		if rec.Code != http.StatusForbidden {
			t.Errorf("update status = %d, want 403", rec.Code)
		}
		if site, err := sites.Find(context.Background(), 1); err != nil || site.Name != "Acme" {
			t.Errorf("site after rejected update = %+v, %v", site, err)
		}
	})

	t.Run("default-site callers administer sites", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/sites/", admin, `{"name":"Megacorp","slug":"megacorp"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
		}
		var created domain.Site
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("decode created: %v", err)
		}
		if created.Slug != "megacorp" {
			t.Errorf("created slug = %q", created.Slug)
		}

		rec = doRequest(t, srv, http.MethodPatch, "/sites/1", admin, `{"name":"Acme Corp"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
		}
		if site, err := sites.Find(context.Background(), 1); err != nil || site.Name != "Acme Corp" {
			t.Errorf("site after update = %+v, %v", site, err)
		}
	})
}
