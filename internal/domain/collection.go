package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Collection is an immutable record of a repayment. Allocation is recorded
// exactly as computed by the calculator's priority allocator.
type Collection struct {
	ID                 uuid.UUID       `json:"id"`
	LoanID             uuid.UUID       `json:"loanId"`
	AgentID            uuid.UUID       `json:"agentId"`
	Amount             decimal.Decimal `json:"amount"`
	FeeAllocation      decimal.Decimal `json:"feeAllocation"`
	PenaltyAllocation  decimal.Decimal `json:"penaltyAllocation"`
	InterestAllocation decimal.Decimal `json:"interestAllocation"`
	PrincipalAllocation decimal.Decimal `json:"principalAllocation"`
	CollectionDate     time.Time       `json:"collectionDate"`
	PaymentMethod      string          `json:"paymentMethod,omitempty"`
	ReceiptNumber      string          `json:"receiptNumber"`
	Remarks            string          `json:"remarks,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

type CollectionFilter struct {
	LoanID    *uuid.UUID
	AgentID   *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

type CollectionRepository interface {
	Create(ctx context.Context, c *Collection) (*Collection, error)
	GetByReceiptNumber(ctx context.Context, receipt string) (*Collection, error)
	List(ctx context.Context, filter CollectionFilter) ([]*Collection, int, error)
}
