package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/user/record-api/internal/domain"
)

// Claims defines the custom claims for the JWT.
type Claims struct {
	UserID        int64           `json:"user_id"`
	SiteID        int64           `json:"site_id"`
	Role          domain.UserRole `json:"role"`
	IsDefaultSite bool            `json:"default_site,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken creates a new JWT for a given user. The token carries a
// unique jti so that individual tokens can be blacklisted on logout, and the
// default-site marker so site administration can be gated without a lookup.
func GenerateToken(userID, siteID int64, role domain.UserRole, defaultSite bool, secretKey string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:        userID,
		SiteID:        siteID,
		Role:          role,
		IsDefaultSite: defaultSite,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}

// ValidateToken parses and validates a JWT string.
func ValidateToken(tokenString, secretKey string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}

	return claims, nil
}
