package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/jobs"
	"github.com/namma-finance/ledger-core/internal/testutil"
)

func TestScheduleService_GenerateForLoan_CreatesRowsAndIsIdempotent(t *testing.T) {
	loans := testutil.NewMockLoanRepository()
	schedules := testutil.NewMockScheduleRepository()
	svc := NewScheduleService(loans, schedules)

	loan, err := loans.Create(context.Background(), &domain.Loan{
		Principal:             decimal.NewFromInt(12000),
		AnnualInterestPercent: decimal.NewFromInt(12),
		TenureInstallments:    12,
		Frequency:             domain.FrequencyMonthly,
		RepaymentType:         domain.RepaymentEMI,
		InstallmentAmount:     decimal.NewFromInt(1067),
		StartDate:             time.Now(),
	})
	if err != nil {
		t.Fatalf("seed loan: %v", err)
	}

	if err := svc.GenerateForLoan(context.Background(), jobs.ScheduleGenerationPayload{LoanID: loan.ID}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	rows, err := svc.ListByLoan(context.Background(), loan.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 12 {
		t.Fatalf("expected 12 installment rows, got %d", len(rows))
	}

	// Idempotent: a second generation call must not duplicate rows.
	if err := svc.GenerateForLoan(context.Background(), jobs.ScheduleGenerationPayload{LoanID: loan.ID}); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	rowsAgain, _ := svc.ListByLoan(context.Background(), loan.ID)
	if len(rowsAgain) != 12 {
		t.Errorf("expected regeneration to be a no-op, got %d rows", len(rowsAgain))
	}
}
