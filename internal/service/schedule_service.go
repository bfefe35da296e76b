package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/namma-finance/ledger-core/internal/calculator"
	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/jobs"
)

// ScheduleService generates and persists a loan's amortization schedule. It
// implements jobs.ScheduleGenerator so the worker process can dispatch into
// it directly; LoanService also calls GenerateForLoan synchronously as a
// fallback when the queue is unavailable (§4.6).
type ScheduleService struct {
	loans     domain.LoanRepository
	schedules domain.ScheduleRepository
}

func NewScheduleService(loans domain.LoanRepository, schedules domain.ScheduleRepository) *ScheduleService {
	return &ScheduleService{loans: loans, schedules: schedules}
}

// GenerateForLoan is idempotent: if rows already exist for the loan (a retry
// after a prior partial failure, or a duplicate delivery) it is a no-op.
func (s *ScheduleService) GenerateForLoan(ctx context.Context, payload jobs.ScheduleGenerationPayload) error {
	exists, err := s.schedules.ExistsAny(ctx, payload.LoanID)
	if err != nil {
		return err
	}
	if exists {
		log.Debug().Str("loan_id", payload.LoanID.String()).Msg("schedule already generated, skipping")
		return nil
	}

	loan, err := s.loans.GetByID(ctx, payload.LoanID)
	if err != nil {
		return err
	}

	terms := calculator.Terms{
		Principal:             loan.Principal,
		AnnualInterestPercent: loan.AnnualInterestPercent,
		TenureInstallments:    loan.TenureInstallments,
		Frequency:             loan.Frequency,
		CustomPeriodDays:      loan.CustomPeriodDays,
		RepaymentType:         loan.RepaymentType,
		StartDate:             loan.StartDate,
	}
	rows, err := calculator.GenerateSchedule(terms, loan.InstallmentAmount)
	if err != nil {
		return err
	}
	for _, row := range rows {
		row.LoanID = loan.ID
	}
	return s.schedules.InsertBatch(ctx, rows)
}

// ListByLoan returns the persisted schedule for the loan-detail endpoint.
func (s *ScheduleService) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduleRow, error) {
	return s.schedules.ListByLoan(ctx, loanID)
}
