package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/user/record-api/internal/adapter/cache"
	"github.com/user/record-api/internal/domain"
	"github.com/user/record-api/internal/pkg/auth"
)

// ErrInvalidCredentials is returned for a wrong site, email, or password.
// The three cases are indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService issues and revokes tokens. Revocation rides the shared cache
// store: a logged-out token's jti is blacklisted for exactly its remaining
// validity, after which the entry expires with the token itself.
type AuthService struct {
	users     domain.UserRepository
	sites     domain.SiteRepository
	store     domain.CacheStore
	jwtSecret string
	jwtExpiry time.Duration
	logger    *slog.Logger
}

// NewAuthService wires login, logout, and revocation checks.
func NewAuthService(users domain.UserRepository, sites domain.SiteRepository, store domain.CacheStore, jwtSecret string, jwtExpiry time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		sites:     sites,
		store:     store,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
		logger:    logger.With("component", "auth_service"),
	}
}

// Login authenticates a user within one site and returns a signed token
// carrying the user and site ids every subsequent request is scoped by.
func (s *AuthService) Login(ctx context.Context, siteSlug, email, password string) (string, error) {
	site, err := s.sites.FindBySlug(ctx, siteSlug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	user, err := s.users.FindByEmail(ctx, site.ID, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return auth.GenerateToken(user.ID, user.SiteID, user.Role, site.Slug == domain.DefaultSiteSlug, s.jwtSecret, s.jwtExpiry)
}

// Logout blacklists the token's jti for its remaining lifetime. An already
// expired token is a no-op.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return
	}
	s.store.SetString(ctx, cache.BlacklistKey(claims.ID), "revoked", remaining)
	s.logger.Info("token revoked", "user_id", claims.UserID, "site_id", claims.SiteID)
}

// IsRevoked reports whether a token id has been blacklisted. A store outage
// reads as "not revoked": availability is preferred over strict revocation,
// and the entry outlives the outage for the token's remaining lifetime.
func (s *AuthService) IsRevoked(ctx context.Context, jti string) bool {
	if jti == "" {
		return false
	}
	return s.store.Exists(ctx, cache.BlacklistKey(jti))
}

// Validate parses the token and checks the revocation list.
func (s *AuthService) Validate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := auth.ValidateToken(token, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	if s.IsRevoked(ctx, claims.ID) {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}
