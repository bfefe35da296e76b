package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/middleware"
	"github.com/namma-finance/ledger-core/internal/money"
	"github.com/namma-finance/ledger-core/internal/respond"
	"github.com/namma-finance/ledger-core/internal/service"
)

// CollectionHandler implements §6's repayment-recording and listing surface.
type CollectionHandler struct {
	collections *service.CollectionService
	authMw      *middleware.AuthMiddleware
}

func NewCollectionHandler(collections *service.CollectionService, authMw *middleware.AuthMiddleware) *CollectionHandler {
	return &CollectionHandler{collections: collections, authMw: authMw}
}

type recordCollectionRequest struct {
	LoanID         string  `json:"loanId"`
	Amount         string  `json:"amount"`
	CollectionDate *string `json:"collectionDate,omitempty"`
	PaymentMethod  string  `json:"paymentMethod,omitempty"`
	Remarks        string  `json:"remarks,omitempty"`
}

// overpaymentResponse is the bespoke 400 body for ErrOverpayment: the spec
// requires the outstanding total echoed back so the client can show it
// without a second round-trip.
type overpaymentResponse struct {
	Error       string `json:"error"`
	Outstanding string `json:"outstanding"`
}

// Record handles POST /collections.
func (h *CollectionHandler) Record(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	var req recordCollectionRequest
	if err := c.Bind(&req); err != nil {
		return respond.ValidationError(c, "invalid request body", nil)
	}

	loanID, err := uuid.Parse(req.LoanID)
	if err != nil {
		return respond.ValidationError(c, "invalid loanId", nil)
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return respond.ValidationError(c, "invalid amount", []respond.Detail{{Field: "amount", Message: err.Error()}})
	}
	var collectionDate *time.Time
	if req.CollectionDate != nil && *req.CollectionDate != "" {
		t, err := time.Parse(time.RFC3339, *req.CollectionDate)
		if err != nil {
			return respond.ValidationError(c, "invalid collectionDate", nil)
		}
		collectionDate = &t
	}

	result, err := h.collections.Record(c.Request().Context(), actor, service.RecordInput{
		LoanID:         loanID,
		Amount:         amount,
		CollectionDate: collectionDate,
		PaymentMethod:  req.PaymentMethod,
		Remarks:        req.Remarks,
	})
	if err != nil {
		var overpay *domain.OverpaymentError
		if errors.As(err, &overpay) {
			return c.JSON(http.StatusBadRequest, overpaymentResponse{Error: overpay.Error(), Outstanding: overpay.Outstanding})
		}
		return respond.FromDomainError(c, err)
	}

	return c.JSON(http.StatusCreated, recordCollectionResponse{
		Collection: toCollectionResponse(result.Collection),
		Loan:       toLoanResponse(result.Loan),
		Allocation: allocationResponse{
			FeePaid:       money.String(result.Allocation.FeePaid),
			PenaltyPaid:   money.String(result.Allocation.PenaltyPaid),
			InterestPaid:  money.String(result.Allocation.InterestPaid),
			PrincipalPaid: money.String(result.Allocation.PrincipalPaid),
		},
	})
}

type allocationResponse struct {
	FeePaid       string `json:"feePaid"`
	PenaltyPaid   string `json:"penaltyPaid"`
	InterestPaid  string `json:"interestPaid"`
	PrincipalPaid string `json:"principalPaid"`
}

type recordCollectionResponse struct {
	Collection collectionResponse `json:"collection"`
	Loan       loanResponse       `json:"loan"`
	Allocation allocationResponse `json:"allocation"`
}

// List handles GET /collections?loanId=&agentId=&startDate=&endDate=&page=&limit=.
func (h *CollectionHandler) List(c echo.Context) error {
	if _, err := h.authMw.CurrentUser(c); err != nil {
		return respond.FromDomainError(c, err)
	}

	var filter domain.CollectionFilter
	if v := c.QueryParam("loanId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return respond.ValidationError(c, "invalid loanId", nil)
		}
		filter.LoanID = &id
	}
	if v := c.QueryParam("agentId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return respond.ValidationError(c, "invalid agentId", nil)
		}
		filter.AgentID = &id
	}
	if v := c.QueryParam("startDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return respond.ValidationError(c, "invalid startDate", nil)
		}
		filter.StartDate = &t
	}
	if v := c.QueryParam("endDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return respond.ValidationError(c, "invalid endDate", nil)
		}
		filter.EndDate = &t
	}
	filter.Page = parsePageParam(c, "page")
	filter.Limit = parseLimitParam(c, "limit")

	collections, total, err := h.collections.List(c.Request().Context(), filter)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	resp := make([]collectionResponse, len(collections))
	for i, col := range collections {
		resp[i] = toCollectionResponse(col)
	}
	return c.JSON(http.StatusOK, paginatedResponse{Items: resp, Total: total, Page: filter.Page, Limit: filter.Limit})
}
