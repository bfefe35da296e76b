package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/namma-finance/ledger-core/internal/auth"
	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/respond"
)

// contextKey mirrors the teacher's collision-avoidance idiom for context keys.
type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RoleKey   contextKey = "role"
)

const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// AuthMiddleware verifies the self-issued access token carried in the
// httpOnly session cookie. The context-key pattern and Authenticate()
// middleware-factory shape are carried over from the teacher's Auth0-backed
// middleware; the verification itself is local (internal/auth) rather than
// JWKS-based.
type AuthMiddleware struct {
	tokens *auth.TokenManager
	users  domain.UserRepository
}

func NewAuthMiddleware(tokens *auth.TokenManager, users domain.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Authenticate requires a valid, unexpired access token cookie.
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(AccessCookieName)
			if err != nil || cookie.Value == "" {
				return respond.Unauthorized(c, domain.ErrNoSession.Error())
			}
			claims, err := m.tokens.ParseAccessToken(cookie.Value)
			if err != nil {
				return respond.Unauthorized(c, domain.ErrTokenExpired.Error())
			}

			ctx := context.WithValue(c.Request().Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// CurrentUser loads the full domain.User for the authenticated request. It
// is a separate step from Authenticate, which only places the id and role on
// the request context without a repository round trip.
func (m *AuthMiddleware) CurrentUser(c echo.Context) (*domain.User, error) {
	userID, ok := GetUserIDFromContext(c)
	if !ok {
		return nil, domain.ErrNoSession
	}
	return m.users.GetByID(c.Request().Context(), userID)
}

func GetUserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Request().Context().Value(UserIDKey).(uuid.UUID)
	return id, ok
}

func GetRoleFromContext(c echo.Context) (domain.Role, bool) {
	role, ok := c.Request().Context().Value(RoleKey).(domain.Role)
	return role, ok
}

// RequireRole restricts a route group to the listed roles. It must run
// after Authenticate.
func RequireRole(roles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := GetRoleFromContext(c)
			if !ok || !allowed[role] {
				return respond.Forbidden(c, domain.ErrNotAuthorized.Error())
			}
			return next(c)
		}
	}
}

// SetSessionCookies centralizes the httpOnly/same-site/secure cookie contract
// of §6 so the auth handler and the login/refresh flows stay consistent.
func SetSessionCookies(c echo.Context, access, refresh string, accessTTLSeconds, refreshTTLSeconds int, production bool) {
	c.SetCookie(&http.Cookie{
		Name:     AccessCookieName,
		Value:    access,
		Path:     "/",
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   accessTTLSeconds,
	})
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    refresh,
		Path:     "/",
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   refreshTTLSeconds,
	})
}

func ClearSessionCookies(c echo.Context) {
	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
	}
}
