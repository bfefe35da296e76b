package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/middleware"
	"github.com/namma-finance/ledger-core/internal/respond"
	"github.com/namma-finance/ledger-core/internal/service"
)

// UserHandler implements admin-only provisioning of manager/agent/admin
// accounts (customer accounts go through CustomerHandler instead).
type UserHandler struct {
	users  *service.UserService
	authMw *middleware.AuthMiddleware
}

func NewUserHandler(users *service.UserService, authMw *middleware.AuthMiddleware) *UserHandler {
	return &UserHandler{users: users, authMw: authMw}
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Create handles POST /users.
func (h *UserHandler) Create(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return respond.ValidationError(c, "invalid request body", nil)
	}
	role := domain.Role(req.Role)
	if !domain.IsValidRole(role) {
		return respond.ValidationError(c, "invalid role", []respond.Detail{{Field: "role", Message: "unrecognized role"}})
	}

	user, err := h.users.Create(c.Request().Context(), actor, req.Email, req.Password, req.Name, role)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// List handles GET /users?role=&page=&limit=.
func (h *UserHandler) List(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	role := domain.Role(c.QueryParam("role"))
	page := parsePageParam(c, "page")
	limit := parseLimitParam(c, "limit")

	users, total, err := h.users.List(c.Request().Context(), actor, role, page, limit)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	return c.JSON(http.StatusOK, paginatedResponse{Items: resp, Total: total, Page: page, Limit: limit})
}

// Deactivate handles DELETE /users/{id}: guarded by MayDeleteUsers.
func (h *UserHandler) Deactivate(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.NotFound(c, domain.ErrUserNotFound.Error())
	}
	if err := h.users.Deactivate(c.Request().Context(), actor, id); err != nil {
		return respond.FromDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
