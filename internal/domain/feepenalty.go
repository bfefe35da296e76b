package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LateFeeRecord is engine-generated; paid when a collection's allocation
// consumes it, oldest-first.
type LateFeeRecord struct {
	ID            uuid.UUID       `json:"id"`
	LoanID        uuid.UUID       `json:"loanId"`
	ScheduleRowID uuid.UUID       `json:"scheduleRowId"`
	Amount        decimal.Decimal `json:"amount"`
	OverdueDays   int             `json:"overdueDays"`
	AppliedAt     time.Time       `json:"appliedAt"`
	Paid          bool            `json:"paid"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
}

// PenaltyRecord is either a flat amount or a percent-of-base charge; Reason
// is recorded verbatim (e.g. "preclosure", "manual adjustment").
type PenaltyRecord struct {
	ID        uuid.UUID       `json:"id"`
	LoanID    uuid.UUID       `json:"loanId"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	AppliedAt time.Time       `json:"appliedAt"`
	Paid      bool            `json:"paid"`
	PaidAt    *time.Time      `json:"paidAt,omitempty"`
}

type FeePenaltyRepository interface {
	CreateLateFee(ctx context.Context, f *LateFeeRecord) error
	CreatePenalty(ctx context.Context, p *PenaltyRecord) error
	// ListUnpaidLateFeesAscending returns unpaid fees oldest-applied-first.
	ListUnpaidLateFeesAscending(ctx context.Context, loanID uuid.UUID) ([]*LateFeeRecord, error)
	// ListUnpaidPenaltiesAscending returns unpaid penalties oldest-applied-first.
	ListUnpaidPenaltiesAscending(ctx context.Context, loanID uuid.UUID) ([]*PenaltyRecord, error)
	MarkLateFeePaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error
	MarkPenaltyPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error
	SumUnpaidLateFees(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error)
	SumUnpaidPenalties(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error)
}
