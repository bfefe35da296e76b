package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/namma-finance/ledger-core/internal/middleware"
	"github.com/namma-finance/ledger-core/internal/money"
	"github.com/namma-finance/ledger-core/internal/respond"
	"github.com/namma-finance/ledger-core/internal/service"
)

// AnalyticsHandler wraps AnalyticsService for GET /analytics.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	authMw    *middleware.AuthMiddleware
}

func NewAnalyticsHandler(analytics *service.AnalyticsService, authMw *middleware.AuthMiddleware) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, authMw: authMw}
}

type statusCountResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type trendPointResponse struct {
	BucketStart string `json:"bucketStart"`
	Disbursed   string `json:"disbursed"`
	Collected   string `json:"collected"`
}

type analyticsSummaryResponse struct {
	RangeStart                string                `json:"rangeStart"`
	RangeEnd                  string                `json:"rangeEnd"`
	LoansByStatus             []statusCountResponse `json:"loansByStatus"`
	TotalOutstandingPrincipal string                `json:"totalOutstandingPrincipal"`
	TotalOutstandingInterest  string                `json:"totalOutstandingInterest"`
	TotalDisbursed            string                `json:"totalDisbursed"`
	TotalCollected            string                `json:"totalCollected"`
	Trend                     []trendPointResponse  `json:"trend"`
}

// Summary handles GET /analytics?period=... or ?startDate=&endDate=.
func (h *AnalyticsHandler) Summary(c echo.Context) error {
	actor, err := h.authMw.CurrentUser(c)
	if err != nil {
		return respond.FromDomainError(c, err)
	}

	in := service.SummaryInput{Period: c.QueryParam("period")}
	if s := c.QueryParam("startDate"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return respond.ValidationError(c, "invalid startDate", nil)
		}
		in.StartDate = &t
	}
	if s := c.QueryParam("endDate"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return respond.ValidationError(c, "invalid endDate", nil)
		}
		in.EndDate = &t
	}

	summary, err := h.analytics.Summary(c.Request().Context(), actor, in)
	if err != nil {
		return respond.FromDomainError(c, err)
	}

	byStatus := make([]statusCountResponse, len(summary.LoansByStatus))
	for i, sc := range summary.LoansByStatus {
		byStatus[i] = statusCountResponse{Status: string(sc.Status), Count: sc.Count}
	}
	trend := make([]trendPointResponse, len(summary.Trend))
	for i, tp := range summary.Trend {
		trend[i] = trendPointResponse{
			BucketStart: tp.BucketStart.Format(time.RFC3339),
			Disbursed:   money.String(tp.Disbursed),
			Collected:   money.String(tp.Collected),
		}
	}

	return c.JSON(http.StatusOK, analyticsSummaryResponse{
		RangeStart:                summary.RangeStart.Format(time.RFC3339),
		RangeEnd:                  summary.RangeEnd.Format(time.RFC3339),
		LoansByStatus:             byStatus,
		TotalOutstandingPrincipal: money.String(summary.TotalOutstandingPrincipal),
		TotalOutstandingInterest:  money.String(summary.TotalOutstandingInterest),
		TotalDisbursed:            money.String(summary.TotalDisbursed),
		TotalCollected:            money.String(summary.TotalCollected),
		Trend:                     trend,
	})
}
