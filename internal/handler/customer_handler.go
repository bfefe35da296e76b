package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/middleware"
	"github.com/namma-finance/ledger-core/internal/respond"
	"github.com/namma-finance/ledger-core/internal/service"
)

// CustomerHandler implements §6's customer CRUD surface. Creating a customer
// also provisions the backing login (role=customer) since the two are
// 1-to-1 and the wire contract exposes them as a single resource.
type CustomerHandler struct {
	customers *service.CustomerService
	users     *service.UserService
	authMw    *middleware.AuthMiddleware
}

func NewCustomerHandler(customers *service.CustomerService, users *service.UserService, authMw *middleware.AuthMiddleware) *CustomerHandler {
	return &CustomerHandler{customers: customers, users: users, authMw: authMw}
}

type createCustomerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	DateOfBirth string `json:"dateOfBirth"`
	IDProof     string `json:"idProof"`
}

type customerResponse struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Email       string  `json:"email,omitempty"`
	Name        string  `json:"name,omitempty"`
	KYCStatus   string  `json:"kycStatus"`
	DateOfBirth string  `json:"dateOfBirth"`
	IDProof     string  `json:"idProof"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
	DeletedAt   *string `json:"deletedAt,omitempty"`
}

func toCustomerResponse(c *domain.Customer) customerResponse {
	r := customerResponse{
		ID:          c.ID.String(),
		UserID:      c.UserID.String(),
		KYCStatus:   string(c.KYCStatus),
		DateOfBirth: c.DateOfBirth.Format("2006-01-02"),
		IDProof:     c.IDProof,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.Format(time.RFC3339),
	}
	if c.DeletedAt != nil {
		s := c.DeletedAt.Format(time.RFC3339)
		r.DeletedAt = &s
	}
	return r
}

// Create handles POST /customers: admin/manager only.
func (h *CustomerHandler) Create(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	var req createCustomerRequest
	if err := c.Bind(&req); err != nil {
		return respond.ValidationError(c, "invalid request body", nil)
	}
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return respond.ValidationError(c, "invalid dateOfBirth", []respond.Detail{{Field: "dateOfBirth", Message: "must be YYYY-MM-DD"}})
	}

	user, err := h.users.Create(c.Request().Context(), actor, req.Email, req.Password, req.Name, domain.RoleCustomer)
	if err != nil {
		return respond.FromDomainError(c, err)
	}

	customer, err := h.customers.Create(c.Request().Context(), actor, &domain.Customer{
		UserID:      user.ID,
		KYCStatus:   domain.KYCPending,
		DateOfBirth: dob,
		IDProof:     req.IDProof,
	})
	if err != nil {
		return respond.FromDomainError(c, err)
	}

	resp := toCustomerResponse(customer)
	resp.Email = user.Email
	resp.Name = user.Name
	return c.JSON(http.StatusCreated, resp)
}

// GetByID handles GET /customers/{id}.
func (h *CustomerHandler) GetByID(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.NotFound(c, domain.ErrCustomerNotFound.Error())
	}
	customer, err := h.customers.GetByID(c.Request().Context(), actor, id)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toCustomerResponse(customer))
}

// List handles GET /customers?page=&limit=.
func (h *CustomerHandler) List(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	page := parsePageParam(c, "page")
	limit := parseLimitParam(c, "limit")
	customers, total, err := h.customers.List(c.Request().Context(), actor, page, limit)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	resp := make([]customerResponse, len(customers))
	for i, cust := range customers {
		resp[i] = toCustomerResponse(cust)
	}
	return c.JSON(http.StatusOK, paginatedResponse{Items: resp, Total: total, Page: page, Limit: limit})
}

// Delete handles DELETE /customers/{id}: guarded by MayDeleteCustomers.
func (h *CustomerHandler) Delete(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.NotFound(c, domain.ErrCustomerNotFound.Error())
	}
	if err := h.customers.Delete(c.Request().Context(), actor, id); err != nil {
		return respond.FromDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
