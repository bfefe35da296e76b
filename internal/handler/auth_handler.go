package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/middleware"
	"github.com/namma-finance/ledger-core/internal/respond"
	"github.com/namma-finance/ledger-core/internal/service"
)

// AuthHandler implements §6's session endpoints: login mints the cookie
// pair, me echoes the authenticated user, refresh exchanges a valid refresh
// cookie for a new access token, logout clears both.
type AuthHandler struct {
	auth       *service.AuthService
	authMw     *middleware.AuthMiddleware
	production bool
}

func NewAuthHandler(auth *service.AuthService, authMw *middleware.AuthMiddleware, production bool) *AuthHandler {
	return &AuthHandler{auth: auth, authMw: authMw, production: production}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID                   string `json:"id"`
	Email                string `json:"email"`
	Name                 string `json:"name"`
	Role                 string `json:"role"`
	Active               bool   `json:"active"`
	MayDeleteCollections bool   `json:"mayDeleteCollections"`
	MayDeleteCustomers   bool   `json:"mayDeleteCustomers"`
	MayDeleteUsers       bool   `json:"mayDeleteUsers"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:                   u.ID.String(),
		Email:                u.Email,
		Name:                 u.Name,
		Role:                 string(u.Role),
		Active:               u.Active,
		MayDeleteCollections: u.MayDeleteCollections,
		MayDeleteCustomers:   u.MayDeleteCustomers,
		MayDeleteUsers:       u.MayDeleteUsers,
	}
}

func (h *AuthHandler) setCookies(c echo.Context, access, refresh string) {
	middleware.SetSessionCookies(c, access, refresh,
		int(h.auth.AccessTokenTTL().Seconds()), int(h.auth.RefreshTokenTTL().Seconds()), h.production)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return respond.ValidationError(c, "invalid request body", nil)
	}

	user, access, refresh, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respond.FromDomainError(c, err)
	}

	h.setCookies(c, access, refresh)
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Refresh handles POST /auth/refresh: exchanges the refresh cookie for a
// fresh access/refresh pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(middleware.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return respond.Unauthorized(c, domain.ErrNoSession.Error())
	}

	user, access, refresh, err := h.auth.Refresh(c.Request().Context(), cookie.Value)
	if err != nil {
		return respond.FromDomainError(c, err)
	}

	h.setCookies(c, access, refresh)
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Logout handles POST /auth/logout: clears both session cookies. There is
// no server-side session to invalidate since tokens are self-verifying; the
// access token simply expires within 15 minutes if it leaks.
func (h *AuthHandler) Logout(c echo.Context) error {
	middleware.ClearSessionCookies(c)
	return c.NoContent(http.StatusNoContent)
}
