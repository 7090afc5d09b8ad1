package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/user/record-api/internal/domain"
	"github.com/user/record-api/internal/pkg/auth"
	"github.com/user/record-api/internal/usecase"
)

type tenantKey struct{}
type claimsKey struct{}

// Auth is a middleware factory that validates the bearer token, rejects
// revoked tokens, and attaches the resulting TenantContext to the request.
// The request context only transports the value from here to the handler;
// handlers pass it on as an explicit parameter.
func Auth(authService *usecase.AuthService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				logger.Warn("missing bearer token", "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: bearer token required", http.StatusUnauthorized)
				return
			}

			claims, err := authService.Validate(r.Context(), token)
			if err != nil {
				logger.Warn("invalid or revoked token", "remote_addr", r.RemoteAddr, "error", err)
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			tc := domain.TenantContext{
				UserID:        claims.UserID,
				SiteID:        claims.SiteID,
				IsDefaultSite: claims.IsDefaultSite,
			}

			ctx := context.WithValue(r.Context(), tenantKey{}, tc)
			ctx = context.WithValue(ctx, claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFrom extracts the TenantContext attached by Auth. ok is false on
// routes that never passed through the middleware.
func TenantFrom(ctx context.Context) (domain.TenantContext, bool) {
	tc, ok := ctx.Value(tenantKey{}).(domain.TenantContext)
	return tc, ok
}

// ClaimsFrom returns the validated token claims, for logout.
func ClaimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims
}
