package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvestmentStatus and BorrowingStatus share the same small lifecycle.
type CapitalStatus string

const (
	CapitalActive   CapitalStatus = "active"
	CapitalClosed   CapitalStatus = "closed"
)

// Investment is capital placed by the business; it is read by analytics and
// written by its own endpoints. It affects no loan invariant.
type Investment struct {
	ID        uuid.UUID       `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Source    string          `json:"source"`
	StartDate time.Time       `json:"startDate"`
	EndDate   *time.Time      `json:"endDate,omitempty"`
	Status    CapitalStatus   `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

type InvestmentRepository interface {
	Create(ctx context.Context, i *Investment) (*Investment, error)
	List(ctx context.Context, page, limit int) ([]*Investment, int, error)
}

// Borrowing is capital the business borrows from a lender. Modeled on the
// lender/cutoff-day shape of a loan-provider record, repurposed here as a
// capital-ledger entity rather than a billing counterparty.
type Borrowing struct {
	ID        uuid.UUID       `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Lender    string          `json:"lender"`
	StartDate time.Time       `json:"startDate"`
	EndDate   *time.Time      `json:"endDate,omitempty"`
	Status    CapitalStatus   `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

type BorrowingRepository interface {
	Create(ctx context.Context, b *Borrowing) (*Borrowing, error)
	List(ctx context.Context, page, limit int) ([]*Borrowing, int, error)
}
