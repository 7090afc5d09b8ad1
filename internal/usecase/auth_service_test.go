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
	"github.com/user/record-api/internal/pkg/auth"
)

const testSecret = "test-secret"

func newAuthFixture(t *testing.T) (*AuthService, *mocks.MockCacheStore) {
	t.Helper()

	sites := mocks.NewMockSiteRepository()
	site := &domain.Site{Name: "Acme", Slug: "acme"}
	if err := sites.Create(context.Background(), site); err != nil {
		t.Fatalf("seed site: %v", err)
	}

	hash, err := auth.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	users := mocks.NewMockUserRepository()
	tc := domain.TenantContext{UserID: 0, SiteID: site.ID}
	if err := users.Create(context.Background(), tc, &domain.User{
		Email:        "sam@acme.test",
		Name:         "Sam",
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	root := &domain.Site{Name: "Default", Slug: domain.DefaultSiteSlug}
	if err := sites.Create(context.Background(), root); err != nil {
		t.Fatalf("seed default site: %v", err)
	}
	rootTC := domain.TenantContext{UserID: 0, SiteID: root.ID}
	if err := users.Create(context.Background(), rootTC, &domain.User{
		Email:        "root@example.test",
		Name:         "Root",
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	}); err != nil {
		t.Fatalf("seed default-site user: %v", err)
	}

	store := mocks.NewMockCacheStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthService(users, sites, store, testSecret, time.Hour, logger), store
}

func TestAuthServiceLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthFixture(t)

	t.Run("valid credentials issue a scoped token", func(t *testing.T) {
		token, err := svc.Login(ctx, "acme", "sam@acme.test", "correct horse")
		if err != nil {
			t.Fatalf("login: %v", err)
		}

		claims, err := auth.ValidateToken(token, testSecret)
		if err != nil {
			t.Fatalf("validate issued token: %v", err)
		}
		if claims.UserID != 1 || claims.SiteID != 1 {
			t.Errorf("claims = user %d site %d, want user 1 site 1", claims.UserID, claims.SiteID)
		}
		if claims.ID == "" {
			t.Error("issued token has no jti")
		}
		if claims.IsDefaultSite {
			t.Error("ordinary tenant token carries the default-site marker")
		}
	})

	t.Run("default-site login marks the claims", func(t *testing.T) {
		token, err := svc.Login(ctx, domain.DefaultSiteSlug, "root@example.test", "correct horse")
		if err != nil {
			t.Fatalf("login: %v", err)
		}

		claims, err := auth.ValidateToken(token, testSecret)
		if err != nil {
			t.Fatalf("validate issued token: %v", err)
		}
		if !claims.IsDefaultSite {
			t.Error("default-site token lacks the default-site marker")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, err := svc.Login(ctx, "acme", "sam@acme.test", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("unknown site and unknown user are indistinguishable", func(t *testing.T) {
		_, siteErr := svc.Login(ctx, "nope", "sam@acme.test", "correct horse")
		_, userErr := svc.Login(ctx, "acme", "nobody@acme.test", "correct horse")
		if !errors.Is(siteErr, ErrInvalidCredentials) || !errors.Is(userErr, ErrInvalidCredentials) {
			t.Errorf("errs = %v / %v, want ErrInvalidCredentials for both", siteErr, userErr)
		}
	})
}

func TestAuthServiceLogout(t *testing.T) {
	ctx := context.Background()
	svc, store := newAuthFixture(t)

	token, err := svc.Login(ctx, "acme", "sam@acme.test", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	svc.Logout(ctx, claims)

	t.Run("revoked token fails validation", func(t *testing.T) {
		if _, err := svc.Validate(ctx, token); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("blacklist entry expires with the token", func(t *testing.T) {
		ttl, ok := store.TTL(ctx, "blacklist:"+claims.ID)
		if !ok {
			t.Fatal("blacklist entry has no TTL")
		}
		if ttl <= 0 || ttl > time.Hour {
			t.Errorf("ttl = %v, want within (0, 1h]", ttl)
		}
	})

	t.Run("revocation check fails open during a store outage", func(t *testing.T) {
		store.Down = true
		defer func() { store.Down = false }()

		if _, err := svc.Validate(ctx, token); err != nil {
			t.Errorf("validate during outage = %v, want token accepted", err)
		}
	})
}
