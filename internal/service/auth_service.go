// Package service holds the application's use-case layer: one file per
// aggregate, each a thin wrapper over repositories plus the authz/calculator
// packages, mirroring the teacher's service-per-domain composition.
package service

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/namma-finance/ledger-core/internal/auth"
	"github.com/namma-finance/ledger-core/internal/domain"
)

// AuthService implements §6's login/refresh/logout/me flows. Credentials are
// local (bcrypt-hashed passwords) rather than delegated to an external
// identity provider, unlike the teacher; the TokenManager this service wraps
// is the replacement for the teacher's Auth0/JWKS verification.
type AuthService struct {
	users  domain.UserRepository
	tokens *auth.TokenManager
}

func NewAuthService(users domain.UserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Login verifies email+password and mints a fresh access/refresh pair.
// Failures are uniform regardless of whether the email exists, to avoid
// leaking account existence.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", "", domain.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, "", "", domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", "", domain.ErrInvalidCredentials
	}

	access, err := s.tokens.MintAccessToken(user)
	if err != nil {
		return nil, "", "", err
	}
	refresh, err := s.tokens.MintRefreshToken(user)
	if err != nil {
		return nil, "", "", err
	}
	return user, access, refresh, nil
}

// Refresh verifies the refresh token and mints a new access/refresh pair.
// The user's active flag is re-checked so a deactivated account's refresh
// token stops working immediately rather than only after its expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.User, string, string, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, "", "", err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, "", "", domain.ErrNoSession
	}
	if !user.Active {
		return nil, "", "", domain.ErrNoSession
	}
	access, err := s.tokens.MintAccessToken(user)
	if err != nil {
		return nil, "", "", err
	}
	refresh, err := s.tokens.MintRefreshToken(user)
	if err != nil {
		return nil, "", "", err
	}
	return user, access, refresh, nil
}

// AccessTokenTTL and RefreshTokenTTL expose the configured cookie lifetimes
// so the handler can set matching cookie Max-Age values without reaching
// past this service into internal/auth directly.
func (s *AuthService) AccessTokenTTL() time.Duration  { return s.tokens.AccessTokenTTL() }
func (s *AuthService) RefreshTokenTTL() time.Duration { return s.tokens.RefreshTokenTTL() }

// HashPassword is used by UserService.Create; kept here because it is
// the only caller of bcrypt in the module.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}
