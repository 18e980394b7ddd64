// Package auth implements session token issuance and verification for the
// operator-facing routes (detokenization, key rotation).
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is an operator role carried in the session token.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleAuditor  Role = "auditor"
	RoleMerchant Role = "merchant"
)

var (
	ErrInvalidToken  = errors.New("invalid session token")
	ErrMissingBearer = errors.New("missing bearer token")
)

// Principal is an authenticated operator identity.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

// HasAnyRole reports whether the principal holds one of the given roles.
func (p *Principal) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// Claims carries the registered claims plus the principal's identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// GenerateToken issues a signed HS256 session token for the principal.
func GenerateToken(p Principal, secret []byte, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: p.UserID.String(),
		Role:   string(p.Role),
	})

	return token.SignedString(secret)
}

// ParseToken verifies the token signature and expiry and returns the
// principal it carries.
func ParseToken(tokenString string, secret []byte) (*Principal, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &Principal{UserID: userID, Role: Role(claims.Role)}, nil
}

// ParseBearer extracts and verifies the token from an Authorization header
// value of the form "Bearer <token>".
func ParseBearer(authHeader string, secret []byte) (*Principal, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return nil, ErrMissingBearer
	}
	return ParseToken(strings.TrimPrefix(authHeader, prefix), secret)
}
