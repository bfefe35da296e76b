package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScheduleRow is one installment of a loan's amortization schedule.
type ScheduleRow struct {
	ID                uuid.UUID       `json:"id"`
	LoanID            uuid.UUID       `json:"loanId"`
	InstallmentNumber int             `json:"installmentNumber"`
	DueDate           time.Time       `json:"dueDate"`
	PrincipalDue      decimal.Decimal `json:"principalDue"`
	InterestDue       decimal.Decimal `json:"interestDue"`
	TotalDue          decimal.Decimal `json:"totalDue"`
	PrincipalPaid     decimal.Decimal `json:"principalPaid"`
	InterestPaid      decimal.Decimal `json:"interestPaid"`
	TotalPaid         decimal.Decimal `json:"totalPaid"`
	Paid              bool            `json:"paid"`
	PaidAt            *time.Time      `json:"paidAt,omitempty"`
	// OutstandingBalance is the balance after this installment, carried for
	// the outstanding-after-k property check and persisted with the row.
	OutstandingBalance decimal.Decimal `json:"outstandingBalance"`
}

// RemainingDue is the amount still owed on this row.
func (r *ScheduleRow) RemainingDue() decimal.Decimal {
	return r.TotalDue.Sub(r.TotalPaid)
}

type ScheduleRepository interface {
	// ExistsAny reports whether any row has been generated for this loan,
	// used by the idempotent job handler.
	ExistsAny(ctx context.Context, loanID uuid.UUID) (bool, error)
	InsertBatch(ctx context.Context, rows []*ScheduleRow) error
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*ScheduleRow, error)
	// ListUnpaidAscending returns unpaid rows ordered by installment number,
	// the order the collection projection step consumes them in.
	ListUnpaidAscending(ctx context.Context, loanID uuid.UUID) ([]*ScheduleRow, error)
	UpdateRow(ctx context.Context, row *ScheduleRow) error
}
