package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload of the externally issued tokens this service
// accepts. Authentication lives in another service; by the time a
// request lands here, the token already names the acting user and the
// tenant scope the request may see.
//
// TenantUUIDs is the visible scope for multi-tenant administrative
// tokens. When empty, the scope is just TenantUUID.
type Claims struct {
	UserUUID    uuid.UUID   `json:"user_uuid"`
	TenantUUID  uuid.UUID   `json:"tenant_uuid"`
	TenantUUIDs []uuid.UUID `json:"tenant_uuids,omitempty"`
	jwt.RegisteredClaims
}

// Scope returns the tenant UUIDs the token may see.
func (c *Claims) Scope() []uuid.UUID {
	if len(c.TenantUUIDs) > 0 {
		return c.TenantUUIDs
	}
	return []uuid.UUID{c.TenantUUID}
}

// GenerateToken signs a token for the given identity. The server never
// calls this in production (tokens come from the auth service); it
// exists for tests and local tooling.
func GenerateToken(userUUID, tenantUUID uuid.UUID, tenantUUIDs []uuid.UUID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		UserUUID:    userUUID,
		TenantUUID:  tenantUUID,
		TenantUUIDs: tenantUUIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "wazo-chatd",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ParseToken validates a token string and extracts the claims. The
// signing method is pinned to HMAC so an attacker cannot downgrade the
// algorithm, and expiry is enforced by the jwt library.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
