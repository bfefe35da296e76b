// Package auth mints and verifies the self-issued access/refresh token pair
// the spec's local-credential login endpoint requires. The teacher
// delegates identity entirely to Auth0 and never mints a token itself; this
// concern is filled from the wider Go ecosystem (golang-jwt/jwt/v5) per
// SPEC_FULL.md, while the middleware that consumes it keeps the teacher's
// context-key/Authenticate() shape (internal/middleware/auth.go).
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/namma-finance/ledger-core/internal/domain"
)

// Claims is embedded in both the access and refresh token; TokenType
// distinguishes which secret verified it, so a refresh token presented as
// an access token (or vice versa) is rejected.
type Claims struct {
	jwt.RegisteredClaims
	UserID    uuid.UUID   `json:"uid"`
	Role      domain.Role `json:"role"`
	TokenType string      `json:"typ"`
}

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenManager is one of the process-wide handles used by the auth
// service and the auth middleware.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (m *TokenManager) mint(user *domain.User, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    user.ID,
		Role:      user.Role,
		TokenType: tokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (m *TokenManager) MintAccessToken(user *domain.User) (string, error) {
	return m.mint(user, tokenTypeAccess, m.accessSecret, m.accessTTL)
}

func (m *TokenManager) MintRefreshToken(user *domain.User) (string, error) {
	return m.mint(user, tokenTypeRefresh, m.refreshSecret, m.refreshTTL)
}

func (m *TokenManager) AccessTokenTTL() time.Duration  { return m.accessTTL }
func (m *TokenManager) RefreshTokenTTL() time.Duration { return m.refreshTTL }

func (m *TokenManager) parse(tokenStr string, secret []byte, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, domain.ErrTokenExpired
	}
	if !token.Valid || claims.TokenType != wantType {
		return nil, domain.ErrNoSession
	}
	return claims, nil
}

func (m *TokenManager) ParseAccessToken(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, m.accessSecret, tokenTypeAccess)
}

func (m *TokenManager) ParseRefreshToken(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, m.refreshSecret, tokenTypeRefresh)
}
