package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/middleware"
	"github.com/namma-finance/ledger-core/internal/money"
	"github.com/namma-finance/ledger-core/internal/respond"
	"github.com/namma-finance/ledger-core/internal/service"
)

// CapitalHandler implements the admin/manager-only investment and borrowing
// ledger of §6. Neither entity feeds a loan invariant; they exist purely for
// the capital-position view analytics reads alongside loan totals.
type CapitalHandler struct {
	capital *service.CapitalService
	authMw  *middleware.AuthMiddleware
}

func NewCapitalHandler(capital *service.CapitalService, authMw *middleware.AuthMiddleware) *CapitalHandler {
	return &CapitalHandler{capital: capital, authMw: authMw}
}

type capitalEntryRequest struct {
	Amount    string  `json:"amount"`
	Party     string  `json:"source,omitempty"`
	Lender    string  `json:"lender,omitempty"`
	StartDate string  `json:"startDate"`
	EndDate   *string `json:"endDate,omitempty"`
}

type capitalEntryResponse struct {
	ID        string  `json:"id"`
	Amount    string  `json:"amount"`
	Source    string  `json:"source,omitempty"`
	Lender    string  `json:"lender,omitempty"`
	StartDate string  `json:"startDate"`
	EndDate   *string `json:"endDate,omitempty"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
}

func parseCapitalDates(req capitalEntryRequest) (start time.Time, end *time.Time, err error) {
	start, err = time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return time.Time{}, nil, err
	}
	if req.EndDate != nil && *req.EndDate != "" {
		e, err := time.Parse("2006-01-02", *req.EndDate)
		if err != nil {
			return time.Time{}, nil, err
		}
		end = &e
	}
	return start, end, nil
}

// CreateInvestment handles POST /investments.
func (h *CapitalHandler) CreateInvestment(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	var req capitalEntryRequest
	if err := c.Bind(&req); err != nil {
		return respond.ValidationError(c, "invalid request body", nil)
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return respond.ValidationError(c, "invalid amount", nil)
	}
	start, end, err := parseCapitalDates(req)
	if err != nil {
		return respond.ValidationError(c, "invalid date", nil)
	}

	inv, err := h.capital.CreateInvestment(c.Request().Context(), actor, &domain.Investment{
		Amount:    amount,
		Source:    req.Party,
		StartDate: start,
		EndDate:   end,
		Status:    domain.CapitalActive,
	})
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, toInvestmentResponse(inv))
}

// ListInvestments handles GET /investments?page=&limit=.
func (h *CapitalHandler) ListInvestments(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	page, limit := parsePageParam(c, "page"), parseLimitParam(c, "limit")
	items, total, err := h.capital.ListInvestments(c.Request().Context(), actor, page, limit)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	resp := make([]capitalEntryResponse, len(items))
	for i, inv := range items {
		resp[i] = toInvestmentResponse(inv)
	}
	return c.JSON(http.StatusOK, paginatedResponse{Items: resp, Total: total, Page: page, Limit: limit})
}

// CreateBorrowing handles POST /borrowings.
func (h *CapitalHandler) CreateBorrowing(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	var req capitalEntryRequest
	if err := c.Bind(&req); err != nil {
		return respond.ValidationError(c, "invalid request body", nil)
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return respond.ValidationError(c, "invalid amount", nil)
	}
	start, end, err := parseCapitalDates(req)
	if err != nil {
		return respond.ValidationError(c, "invalid date", nil)
	}

	b, err := h.capital.CreateBorrowing(c.Request().Context(), actor, &domain.Borrowing{
		Amount:    amount,
		Lender:    req.Lender,
		StartDate: start,
		EndDate:   end,
		Status:    domain.CapitalActive,
	})
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, toBorrowingResponse(b))
}

// ListBorrowings handles GET /borrowings?page=&limit=.
func (h *CapitalHandler) ListBorrowings(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	page, limit := parsePageParam(c, "page"), parseLimitParam(c, "limit")
	items, total, err := h.capital.ListBorrowings(c.Request().Context(), actor, page, limit)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	resp := make([]capitalEntryResponse, len(items))
	for i, b := range items {
		resp[i] = toBorrowingResponse(b)
	}
	return c.JSON(http.StatusOK, paginatedResponse{Items: resp, Total: total, Page: page, Limit: limit})
}

func toInvestmentResponse(inv *domain.Investment) capitalEntryResponse {
	r := capitalEntryResponse{
		ID:        inv.ID.String(),
		Amount:    money.String(inv.Amount),
		Source:    inv.Source,
		StartDate: inv.StartDate.Format("2006-01-02"),
		Status:    string(inv.Status),
		CreatedAt: inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.EndDate != nil {
		s := inv.EndDate.Format("2006-01-02")
		r.EndDate = &s
	}
	return r
}

func toBorrowingResponse(b *domain.Borrowing) capitalEntryResponse {
	r := capitalEntryResponse{
		ID:        b.ID.String(),
		Amount:    money.String(b.Amount),
		Lender:    b.Lender,
		StartDate: b.StartDate.Format("2006-01-02"),
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
	}
	if b.EndDate != nil {
		s := b.EndDate.Format("2006-01-02")
		r.EndDate = &s
	}
	return r
}
