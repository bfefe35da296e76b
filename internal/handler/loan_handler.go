package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/middleware"
	"github.com/namma-finance/ledger-core/internal/money"
	"github.com/namma-finance/ledger-core/internal/respond"
	"github.com/namma-finance/ledger-core/internal/service"
)

// LoanHandler implements the loan lifecycle surface of §6: create, list,
// fetch-with-detail, the PATCH action dispatch, and top-up.
type LoanHandler struct {
	loans     *service.LoanService
	schedules *service.ScheduleService
	collections *service.CollectionService
	authMw    *middleware.AuthMiddleware
}

func NewLoanHandler(loans *service.LoanService, schedules *service.ScheduleService, collections *service.CollectionService, authMw *middleware.AuthMiddleware) *LoanHandler {
	return &LoanHandler{loans: loans, schedules: schedules, collections: collections, authMw: authMw}
}

type chargeRequest struct {
	Type   string `json:"type"`
	Amount string `json:"amount"`
}

type createLoanRequest struct {
	CustomerID          string          `json:"customerId"`
	Principal           string          `json:"principal"`
	InterestRate         string          `json:"interestRate"`
	Frequency            string          `json:"frequency"`
	TenureInstallments   int             `json:"tenureInstallments"`
	CustomPeriodDays     int             `json:"customPeriodDays,omitempty"`
	RepaymentType        string          `json:"repaymentType,omitempty"`
	GracePeriodDays      int             `json:"gracePeriodDays,omitempty"`
	LateFeeDailyPercent  string          `json:"lateFeeDailyPercent,omitempty"`
	PenaltyPercent       string          `json:"penaltyPercent,omitempty"`
	Charges              []chargeRequest `json:"charges,omitempty"`
	StartDate            *string         `json:"startDate,omitempty"`
	// FirstInstallmentPaid is accepted for wire compatibility but has no
	// effect: this ledger has no notion of a pre-collected first
	// installment distinct from a recorded collection.
	FirstInstallmentPaid bool   `json:"firstInstallmentPaid,omitempty"`
	Remarks              string `json:"remarks,omitempty"`
}

func parseDecimalOrZero(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return money.Parse(s)
}

// CreateLoan handles POST /loans.
func (h *LoanHandler) CreateLoan(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	var req createLoanRequest
	if err := c.Bind(&req); err != nil {
		return respond.ValidationError(c, "invalid request body", nil)
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return respond.ValidationError(c, "invalid customerId", []respond.Detail{{Field: "customerId", Message: "must be a uuid"}})
	}
	principal, err := money.Parse(req.Principal)
	if err != nil {
		return respond.ValidationError(c, "invalid principal", []respond.Detail{{Field: "principal", Message: err.Error()}})
	}
	rate, err := money.Parse(req.InterestRate)
	if err != nil {
		return respond.ValidationError(c, "invalid interestRate", []respond.Detail{{Field: "interestRate", Message: err.Error()}})
	}
	lateFeeDaily, err := parseDecimalOrZero(req.LateFeeDailyPercent)
	if err != nil {
		return respond.ValidationError(c, "invalid lateFeeDailyPercent", nil)
	}
	penaltyPercent, err := parseDecimalOrZero(req.PenaltyPercent)
	if err != nil {
		return respond.ValidationError(c, "invalid penaltyPercent", nil)
	}

	repaymentType := domain.RepaymentType(req.RepaymentType)
	if repaymentType == "" {
		repaymentType = domain.RepaymentEMI
	}
	if !domain.IsValidRepaymentType(repaymentType) {
		return respond.ValidationError(c, "invalid repaymentType", nil)
	}
	if !domain.IsValidFrequency(domain.Frequency(req.Frequency)) {
		return respond.ValidationError(c, "invalid frequency", nil)
	}

	var startDate *time.Time
	if req.StartDate != nil && *req.StartDate != "" {
		t, err := time.Parse(time.RFC3339, *req.StartDate)
		if err != nil {
			return respond.ValidationError(c, "invalid startDate", nil)
		}
		startDate = &t
	}

	charges := make([]*domain.LoanCharge, 0, len(req.Charges))
	for _, cr := range req.Charges {
		amt, err := money.Parse(cr.Amount)
		if err != nil {
			return respond.ValidationError(c, "invalid charge amount", nil)
		}
		chargeType := domain.ChargeType(cr.Type)
		if !domain.IsValidChargeType(chargeType) {
			return respond.ValidationError(c, "invalid charge type", nil)
		}
		charges = append(charges, &domain.LoanCharge{Type: chargeType, Amount: amt})
	}

	loan, err := h.loans.CreateLoan(c.Request().Context(), actor, service.CreateLoanInput{
		CustomerID:            customerID,
		Principal:             principal,
		AnnualInterestPercent: rate,
		Frequency:             domain.Frequency(req.Frequency),
		TenureInstallments:    req.TenureInstallments,
		CustomPeriodDays:      req.CustomPeriodDays,
		RepaymentType:         repaymentType,
		GracePeriodDays:       req.GracePeriodDays,
		LateFeeDailyPercent:   lateFeeDaily,
		PenaltyPercent:        penaltyPercent,
		Charges:               charges,
		StartDate:             startDate,
		Remarks:               req.Remarks,
	})
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, toLoanResponse(loan))
}

// GetLoans handles GET /loans?status=&customerId=&page=&limit=.
func (h *LoanHandler) GetLoans(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}

	var filter domain.LoanFilter
	if s := c.QueryParam("status"); s != "" {
		status := domain.LoanStatus(s)
		filter.Status = &status
	}
	if cid := c.QueryParam("customerId"); cid != "" {
		id, err := uuid.Parse(cid)
		if err != nil {
			return respond.ValidationError(c, "invalid customerId", nil)
		}
		filter.CustomerID = &id
	}
	filter.Page = parsePageParam(c, "page")
	filter.Limit = parseLimitParam(c, "limit")

	loans, total, err := h.loans.List(c.Request().Context(), actor, filter)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	resp := make([]loanResponse, len(loans))
	for i, l := range loans {
		resp[i] = toLoanResponse(l)
	}
	return c.JSON(http.StatusOK, paginatedResponse{Items: resp, Total: total, Page: filter.Page, Limit: filter.Limit})
}

// loanDetailResponse is GET /loans/{id}'s body: the loan plus its schedule,
// collections and charges, per §6.
type loanDetailResponse struct {
	loanResponse
	Schedule    []scheduleRowResponse `json:"schedule"`
	Collections []collectionResponse  `json:"collections"`
	Charges     []chargeResponseBody  `json:"charges"`
}

type chargeResponseBody struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Amount string `json:"amount"`
}

// GetLoan handles GET /loans/{id}.
func (h *LoanHandler) GetLoan(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.NotFound(c, domain.ErrLoanNotFound.Error())
	}

	loan, err := h.loans.GetByID(c.Request().Context(), actor, loanID)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	schedule, err := h.schedules.ListByLoan(c.Request().Context(), loanID)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	collections, _, err := h.collections.List(c.Request().Context(), domain.CollectionFilter{LoanID: &loanID, Page: 1, Limit: 1000})
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	charges, err := h.loans.ListCharges(c.Request().Context(), loanID)
	if err != nil {
		return respond.FromDomainError(c, err)
	}

	scheduleResp := make([]scheduleRowResponse, len(schedule))
	for i, row := range schedule {
		scheduleResp[i] = toScheduleRowResponse(row)
	}
	collectionsResp := make([]collectionResponse, len(collections))
	for i, col := range collections {
		collectionsResp[i] = toCollectionResponse(col)
	}
	chargesResp := make([]chargeResponseBody, len(charges))
	for i, ch := range charges {
		chargesResp[i] = chargeResponseBody{ID: ch.ID.String(), Type: string(ch.Type), Amount: money.String(ch.Amount)}
	}

	return c.JSON(http.StatusOK, loanDetailResponse{
		loanResponse: toLoanResponse(loan),
		Schedule:     scheduleResp,
		Collections:  collectionsResp,
		Charges:      chargesResp,
	})
}

type patchLoanRequest struct {
	Action                   string  `json:"action"`
	Remarks                  string  `json:"remarks,omitempty"`
	DisbursedAmount          *string `json:"disbursedAmount,omitempty"`
	PreclosurePenaltyPercent *string `json:"preclosurePenaltyPercent,omitempty"`
}

// PatchLoan handles PATCH /loans/{id}: approve/disburse/close/preclose/default.
func (h *LoanHandler) PatchLoan(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.NotFound(c, domain.ErrLoanNotFound.Error())
	}
	var req patchLoanRequest
	if err := c.Bind(&req); err != nil {
		return respond.ValidationError(c, "invalid request body", nil)
	}

	var disbursedAmount *decimal.Decimal
	if req.DisbursedAmount != nil {
		amt, err := money.Parse(*req.DisbursedAmount)
		if err != nil {
			return respond.ValidationError(c, "invalid disbursedAmount", nil)
		}
		disbursedAmount = &amt
	}
	preclosurePenalty := decimal.Zero
	if req.PreclosurePenaltyPercent != nil {
		preclosurePenalty, err = money.Parse(*req.PreclosurePenaltyPercent)
		if err != nil {
			return respond.ValidationError(c, "invalid preclosurePenaltyPercent", nil)
		}
	}

	loan, err := h.loans.ApplyTransition(c.Request().Context(), actor, loanID,
		service.Transition(req.Action), req.Remarks, disbursedAmount, preclosurePenalty)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toLoanResponse(loan))
}

// DeleteLoan handles DELETE /loans/{id}: admin/manager, pending-only.
func (h *LoanHandler) DeleteLoan(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.NotFound(c, domain.ErrLoanNotFound.Error())
	}
	if err := h.loans.DeletePendingLoan(c.Request().Context(), actor, loanID); err != nil {
		return respond.FromDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type topUpRequest struct {
	LoanID                string          `json:"loanId"`
	TopUpAmount            string          `json:"topUpAmount"`
	NewTenure              *int            `json:"newTenure,omitempty"`
	NewInterestRate        *string         `json:"newInterestRate,omitempty"`
	Charges                []chargeRequest `json:"charges,omitempty"`
	Remarks                string          `json:"remarks,omitempty"`
}

type topUpResponse struct {
	OldLoan     loanResponse `json:"oldLoan"`
	NewLoan     loanResponse `json:"newLoan"`
	TopUpDetail struct {
		NewPrincipal        string `json:"newPrincipal"`
		NewInstallment      string `json:"newInstallment"`
		DisbursedToCustomer string `json:"disbursedToCustomer"`
	} `json:"topUpDetails"`
}

// TopUp handles POST /loans/topup.
func (h *LoanHandler) TopUp(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}
	var req topUpRequest
	if err := c.Bind(&req); err != nil {
		return respond.ValidationError(c, "invalid request body", nil)
	}
	loanID, err := uuid.Parse(req.LoanID)
	if err != nil {
		return respond.ValidationError(c, "invalid loanId", nil)
	}
	amount, err := money.Parse(req.TopUpAmount)
	if err != nil {
		return respond.ValidationError(c, "invalid topUpAmount", nil)
	}
	var newRate *decimal.Decimal
	if req.NewInterestRate != nil {
		r, err := money.Parse(*req.NewInterestRate)
		if err != nil {
			return respond.ValidationError(c, "invalid newInterestRate", nil)
		}
		newRate = &r
	}
	charges := make([]*domain.LoanCharge, 0, len(req.Charges))
	for _, cr := range req.Charges {
		amt, err := money.Parse(cr.Amount)
		if err != nil {
			return respond.ValidationError(c, "invalid charge amount", nil)
		}
		charges = append(charges, &domain.LoanCharge{Type: domain.ChargeType(cr.Type), Amount: amt})
	}

	result, err := h.loans.TopUp(c.Request().Context(), actor, service.TopUpInput{
		LoanID:                   loanID,
		TopUpAmount:              amount,
		NewTenureInstallments:    req.NewTenure,
		NewAnnualInterestPercent: newRate,
		Charges:                  charges,
		Remarks:                  req.Remarks,
	})
	if err != nil {
		return respond.FromDomainError(c, err)
	}

	resp := topUpResponse{OldLoan: toLoanResponse(result.OldLoan), NewLoan: toLoanResponse(result.NewLoan)}
	resp.TopUpDetail.NewPrincipal = money.String(result.Detail.NewPrincipal)
	resp.TopUpDetail.NewInstallment = money.String(result.Detail.NewInstallment)
	resp.TopUpDetail.DisbursedToCustomer = money.String(result.Detail.DisbursedToCustomer)
	return c.JSON(http.StatusCreated, resp)
}

func parsePageParam(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v < 1 {
		return 1
	}
	return v
}

func parseLimitParam(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v < 1 || v > 200 {
		return 20
	}
	return v
}

type paginatedResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

type loanResponse struct {
	ID                    string  `json:"id"`
	LoanNumber            string  `json:"loanNumber"`
	CustomerID            string  `json:"customerId"`
	CreatedBy             string  `json:"createdBy"`
	Principal             string  `json:"principal"`
	AnnualInterestPercent string  `json:"annualInterestPercent"`
	TenureInstallments    int     `json:"tenureInstallments"`
	Frequency             string  `json:"frequency"`
	CustomPeriodDays      int     `json:"customPeriodDays,omitempty"`
	RepaymentType         string  `json:"repaymentType"`
	GracePeriodDays       int     `json:"gracePeriodDays"`
	LateFeeDailyPercent   string  `json:"lateFeeDailyPercent"`
	PenaltyPercent        string  `json:"penaltyPercent"`
	InstallmentAmount     string  `json:"installmentAmount"`
	TotalInterest         string  `json:"totalInterest"`
	TotalAmount           string  `json:"totalAmount"`
	DisbursedAmount       string  `json:"disbursedAmount"`
	DisbursedAt           *string `json:"disbursedAt,omitempty"`
	StartDate             string  `json:"startDate"`
	EndDate               string  `json:"endDate"`
	OutstandingPrincipal  string  `json:"outstandingPrincipal"`
	OutstandingInterest   string  `json:"outstandingInterest"`
	TotalCollected        string  `json:"totalCollected"`
	TotalLateFeesPaid     string  `json:"totalLateFeesPaid"`
	TotalPenaltiesPaid    string  `json:"totalPenaltiesPaid"`
	Status                string  `json:"status"`
	ClosedAt              *string `json:"closedAt,omitempty"`
	OriginalLoanID        *string `json:"originalLoanId,omitempty"`
	IsTopUp               bool    `json:"isTopUp"`
	TopUpAmount           string  `json:"topUpAmount,omitempty"`
	Remarks               string  `json:"remarks,omitempty"`
	CreatedAt             string  `json:"createdAt"`
	UpdatedAt             string  `json:"updatedAt"`
}

func toLoanResponse(l *domain.Loan) loanResponse {
	r := loanResponse{
		ID:                    l.ID.String(),
		LoanNumber:            l.LoanNumber,
		CustomerID:            l.CustomerID.String(),
		CreatedBy:             l.CreatedBy.String(),
		Principal:             money.String(l.Principal),
		AnnualInterestPercent: money.RateString(l.AnnualInterestPercent),
		TenureInstallments:    l.TenureInstallments,
		Frequency:             string(l.Frequency),
		CustomPeriodDays:      l.CustomPeriodDays,
		RepaymentType:         string(l.RepaymentType),
		GracePeriodDays:       l.GracePeriodDays,
		LateFeeDailyPercent:   money.RateString(l.LateFeeDailyPercent),
		PenaltyPercent:        money.RateString(l.PenaltyPercent),
		InstallmentAmount:     money.String(l.InstallmentAmount),
		TotalInterest:         money.String(l.TotalInterest),
		TotalAmount:           money.String(l.TotalAmount),
		DisbursedAmount:       money.String(l.DisbursedAmount),
		StartDate:             l.StartDate.Format(time.RFC3339),
		EndDate:               l.EndDate.Format(time.RFC3339),
		OutstandingPrincipal:  money.String(l.OutstandingPrincipal),
		OutstandingInterest:   money.String(l.OutstandingInterest),
		TotalCollected:        money.String(l.TotalCollected),
		TotalLateFeesPaid:     money.String(l.TotalLateFeesPaid),
		TotalPenaltiesPaid:    money.String(l.TotalPenaltiesPaid),
		Status:                string(l.Status),
		IsTopUp:               l.IsTopUp,
		Remarks:               l.Remarks,
		CreatedAt:             l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             l.UpdatedAt.Format(time.RFC3339),
	}
	if l.DisbursedAt != nil {
		s := l.DisbursedAt.Format(time.RFC3339)
		r.DisbursedAt = &s
	}
	if l.ClosedAt != nil {
		s := l.ClosedAt.Format(time.RFC3339)
		r.ClosedAt = &s
	}
	if l.OriginalLoanID != nil {
		s := l.OriginalLoanID.String()
		r.OriginalLoanID = &s
	}
	if l.IsTopUp {
		r.TopUpAmount = money.String(l.TopUpAmount)
	}
	return r
}

type scheduleRowResponse struct {
	ID                string  `json:"id"`
	InstallmentNumber int     `json:"installmentNumber"`
	DueDate           string  `json:"dueDate"`
	PrincipalDue      string  `json:"principalDue"`
	InterestDue       string  `json:"interestDue"`
	TotalDue          string  `json:"totalDue"`
	TotalPaid         string  `json:"totalPaid"`
	Paid              bool    `json:"paid"`
	PaidAt            *string `json:"paidAt,omitempty"`
}

func toScheduleRowResponse(r *domain.ScheduleRow) scheduleRowResponse {
	out := scheduleRowResponse{
		ID:                r.ID.String(),
		InstallmentNumber: r.InstallmentNumber,
		DueDate:           r.DueDate.Format(time.RFC3339),
		PrincipalDue:      money.String(r.PrincipalDue),
		InterestDue:       money.String(r.InterestDue),
		TotalDue:          money.String(r.TotalDue),
		TotalPaid:         money.String(r.TotalPaid),
		Paid:              r.Paid,
	}
	if r.PaidAt != nil {
		s := r.PaidAt.Format(time.RFC3339)
		out.PaidAt = &s
	}
	return out
}

type collectionResponse struct {
	ID                  string `json:"id"`
	LoanID              string `json:"loanId"`
	AgentID             string `json:"agentId"`
	Amount              string `json:"amount"`
	FeeAllocation       string `json:"feeAllocation"`
	PenaltyAllocation   string `json:"penaltyAllocation"`
	InterestAllocation  string `json:"interestAllocation"`
	PrincipalAllocation string `json:"principalAllocation"`
	CollectionDate      string `json:"collectionDate"`
	PaymentMethod       string `json:"paymentMethod,omitempty"`
	ReceiptNumber       string `json:"receiptNumber"`
	Remarks             string `json:"remarks,omitempty"`
}

func toCollectionResponse(c *domain.Collection) collectionResponse {
	return collectionResponse{
		ID:                  c.ID.String(),
		LoanID:              c.LoanID.String(),
		AgentID:              c.AgentID.String(),
		Amount:              money.String(c.Amount),
		FeeAllocation:       money.String(c.FeeAllocation),
		PenaltyAllocation:   money.String(c.PenaltyAllocation),
		InterestAllocation:  money.String(c.InterestAllocation),
		PrincipalAllocation: money.String(c.PrincipalAllocation),
		CollectionDate:      c.CollectionDate.Format(time.RFC3339),
		PaymentMethod:       c.PaymentMethod,
		ReceiptNumber:       c.ReceiptNumber,
		Remarks:             c.Remarks,
	}
}
