package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/testutil"
)

func TestAnalyticsService_Summary_RejectsAgentAndCustomer(t *testing.T) {
	svc := NewAnalyticsService(testutil.NewMockAnalyticsRepository())
	for _, role := range []domain.Role{domain.RoleAgent, domain.RoleCustomer} {
		actor := &domain.User{ID: uuid.New(), Role: role}
		if _, err := svc.Summary(context.Background(), actor, SummaryInput{Period: PeriodMonth}); err != domain.ErrNotAuthorized {
			t.Errorf("expected %s to be rejected, got %v", role, err)
		}
	}
}

func TestAnalyticsService_Summary_ReturnsRepositoryTotals(t *testing.T) {
	repo := testutil.NewMockAnalyticsRepository()
	repo.StatusCounts = []domain.StatusCount{{Status: domain.LoanActive, Count: 3}}
	repo.OutstandingPrinc = decimal.NewFromInt(5000)
	repo.OutstandingInt = decimal.NewFromInt(500)
	repo.Disbursed = decimal.NewFromInt(10000)
	repo.Collected = decimal.NewFromInt(2000)

	svc := NewAnalyticsService(repo)
	admin := &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}

	summary, err := svc.Summary(context.Background(), admin, SummaryInput{Period: PeriodMonth})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !summary.TotalOutstandingPrincipal.Equal(repo.OutstandingPrinc) {
		t.Errorf("expected outstanding principal to pass through, got %s", summary.TotalOutstandingPrincipal)
	}
	if len(summary.LoansByStatus) != 1 || summary.LoansByStatus[0].Count != 3 {
		t.Errorf("expected status counts to pass through, got %+v", summary.LoansByStatus)
	}
}

func TestResolveRange_PeriodBoundaries(t *testing.T) {
	now := time.Date(2026, 7, 31, 15, 0, 0, 0, time.UTC) // Friday

	cases := []struct {
		period        string
		wantTruncUnit string
	}{
		{PeriodToday, "hour"},
		{PeriodWeek, "day"},
		{PeriodMonth, "day"},
		{PeriodQuarter, "week"},
		{PeriodHalfYear, "month"},
		{PeriodYear, "month"},
		{PeriodAll, "month"},
	}
	for _, tc := range cases {
		start, end, truncUnit, err := resolveRange(SummaryInput{Period: tc.period}, now)
		if err != nil {
			t.Fatalf("period %s: unexpected error %v", tc.period, err)
		}
		if !start.Before(end) {
			t.Errorf("period %s: expected start before end, got %s..%s", tc.period, start, end)
		}
		if truncUnit != tc.wantTruncUnit {
			t.Errorf("period %s: expected truncUnit %s, got %s", tc.period, tc.wantTruncUnit, truncUnit)
		}
	}
}

func TestResolveRange_UnknownPeriodRejected(t *testing.T) {
	_, _, _, err := resolveRange(SummaryInput{Period: "decade"}, time.Now())
	if err != domain.ErrValidation {
		t.Errorf("expected ErrValidation for an unrecognized period, got %v", err)
	}
}

func TestResolveRange_ExplicitRangeOverridesPeriod(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	gotStart, gotEnd, truncUnit, err := resolveRange(SummaryInput{StartDate: &start, EndDate: &end}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gotStart.Equal(start) || !gotEnd.Equal(end) {
		t.Errorf("expected explicit range to be honored verbatim, got %s..%s", gotStart, gotEnd)
	}
	if truncUnit != "day" {
		t.Errorf("expected a 9-day span to bucket by day, got %s", truncUnit)
	}
}
