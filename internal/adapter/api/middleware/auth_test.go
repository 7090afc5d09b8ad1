package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user/record-api/internal/domain"
	"github.com/user/record-api/internal/domain/mocks"
	"github.com/user/record-api/internal/pkg/auth"
	"github.com/user/record-api/internal/usecase"
)

const testSecret = "test-secret"

func newAuthService(store *mocks.MockCacheStore) *usecase.AuthService {
	return usecase.NewAuthService(
		mocks.NewMockUserRepository(),
		mocks.NewMockSiteRepository(),
		store,
		testSecret,
		time.Hour,
		testLogger(),
	)
}

func TestAuthMiddleware(t *testing.T) {
	store := mocks.NewMockCacheStore()
	svc := newAuthService(store)

	var gotTC domain.TenantContext
	var gotClaims *auth.Claims
	handler := Auth(svc, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTC, _ = TenantFrom(r.Context())
		gotClaims = ClaimsFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	do := func(authorization string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/interactions", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid token attaches the tenant", func(t *testing.T) {
		token, err := auth.GenerateToken(7, 42, domain.RoleMember, false, testSecret, time.Hour)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}

		rec := do("Bearer " + token)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if gotTC.UserID != 7 || gotTC.SiteID != 42 {
			t.Errorf("tenant = %+v, want user 7 site 42", gotTC)
		}
		if gotClaims == nil || gotClaims.ID == "" {
			t.Error("claims not attached")
		}
	})

	t.Run("default-site marker propagates from claims", func(t *testing.T) {
		token, err := auth.GenerateToken(1, 1, domain.RoleAdmin, true, testSecret, time.Hour)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}

		rec := do("Bearer " + token)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !gotTC.IsDefaultSite {
			t.Error("tenant context lost the default-site marker")
		}
	})

	t.Run("missing header", func(t *testing.T) {
		if rec := do(""); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("malformed header", func(t *testing.T) {
		if rec := do("Basic dXNlcjpwYXNz"); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		token, err := auth.GenerateToken(7, 42, domain.RoleMember, false, "other-secret", time.Hour)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		if rec := do("Bearer " + token); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := auth.GenerateToken(7, 42, domain.RoleMember, false, testSecret, -time.Minute)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		if rec := do("Bearer " + token); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("revoked token", func(t *testing.T) {
		token, err := auth.GenerateToken(7, 42, domain.RoleMember, false, testSecret, time.Hour)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		claims, err := auth.ValidateToken(token, testSecret)
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		svc.Logout(context.Background(), claims)

		if rec := do("Bearer " + token); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}
