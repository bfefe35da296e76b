package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyMonthly    Frequency = "monthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencyHalfYearly Frequency = "half-yearly"
	FrequencyYearly     Frequency = "yearly"
	FrequencyCustom     Frequency = "custom"
)

func IsValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly,
		FrequencyHalfYearly, FrequencyYearly, FrequencyCustom:
		return true
	}
	return false
}

type RepaymentType string

const (
	RepaymentEMI             RepaymentType = "emi"
	RepaymentInterestOnly    RepaymentType = "interest-only"
	RepaymentBullet          RepaymentType = "bullet"
	RepaymentReducingBalance RepaymentType = "reducing-balance"
)

func IsValidRepaymentType(t RepaymentType) bool {
	switch t {
	case RepaymentEMI, RepaymentInterestOnly, RepaymentBullet, RepaymentReducingBalance:
		return true
	}
	return false
}

type LoanStatus string

const (
	LoanPending   LoanStatus = "pending"
	LoanActive    LoanStatus = "active"
	LoanClosed    LoanStatus = "closed"
	LoanPreclosed LoanStatus = "preclosed"
	LoanDefaulted LoanStatus = "defaulted"
)

// IsTerminal reports whether the status accepts no further collections.
func (s LoanStatus) IsTerminal() bool {
	switch s {
	case LoanClosed, LoanPreclosed, LoanDefaulted:
		return true
	}
	return false
}

type ChargeType string

const (
	ChargeStampDuty      ChargeType = "stamp-duty"
	ChargeDocumentFee    ChargeType = "document-fee"
	ChargeProcessingFee  ChargeType = "processing-fee"
	ChargeOther          ChargeType = "other"
)

func IsValidChargeType(t ChargeType) bool {
	switch t {
	case ChargeStampDuty, ChargeDocumentFee, ChargeProcessingFee, ChargeOther:
		return true
	}
	return false
}

// LoanCharge is a one-time deduction at creation or top-up time.
type LoanCharge struct {
	ID     uuid.UUID       `json:"id"`
	LoanID uuid.UUID       `json:"loanId"`
	Type   ChargeType      `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// Loan is the central entity: terms at origination plus the live ledger.
type Loan struct {
	ID         uuid.UUID `json:"id"`
	LoanNumber string    `json:"loanNumber"`

	CustomerID uuid.UUID `json:"customerId"`
	CreatedBy  uuid.UUID `json:"createdBy"`

	Principal            decimal.Decimal `json:"principal"`
	AnnualInterestPercent decimal.Decimal `json:"annualInterestPercent"`
	TenureInstallments   int             `json:"tenureInstallments"`
	Frequency            Frequency       `json:"frequency"`
	CustomPeriodDays     int             `json:"customPeriodDays,omitempty"`
	RepaymentType        RepaymentType   `json:"repaymentType"`
	GracePeriodDays      int             `json:"gracePeriodDays"`
	LateFeeDailyPercent  decimal.Decimal `json:"lateFeeDailyPercent"`
	PenaltyPercent       decimal.Decimal `json:"penaltyPercent"`

	InstallmentAmount decimal.Decimal `json:"installmentAmount"`
	TotalInterest     decimal.Decimal `json:"totalInterest"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`

	DisbursedAmount decimal.Decimal `json:"disbursedAmount"`
	DisbursedAt     *time.Time      `json:"disbursedAt,omitempty"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`

	OutstandingPrincipal decimal.Decimal `json:"outstandingPrincipal"`
	OutstandingInterest  decimal.Decimal `json:"outstandingInterest"`
	TotalCollected       decimal.Decimal `json:"totalCollected"`
	TotalLateFeesPaid    decimal.Decimal `json:"totalLateFeesPaid"`
	TotalPenaltiesPaid   decimal.Decimal `json:"totalPenaltiesPaid"`

	Status   LoanStatus `json:"status"`
	ClosedAt *time.Time `json:"closedAt,omitempty"`

	OriginalLoanID *uuid.UUID      `json:"originalLoanId,omitempty"`
	IsTopUp        bool            `json:"isTopUp"`
	TopUpAmount    decimal.Decimal `json:"topUpAmount,omitempty"`

	Remarks string `json:"remarks,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// InstallmentsPerYear implements the spec's frequency table.
func (f Frequency) InstallmentsPerYear(customPeriodDays int) (int, error) {
	switch f {
	case FrequencyDaily:
		return 365, nil
	case FrequencyWeekly:
		return 52, nil
	case FrequencyMonthly:
		return 12, nil
	case FrequencyQuarterly:
		return 4, nil
	case FrequencyHalfYearly:
		return 2, nil
	case FrequencyYearly:
		return 1, nil
	case FrequencyCustom:
		if customPeriodDays < 1 {
			return 0, ErrInvalidTerms
		}
		n := 365 / customPeriodDays
		if n < 1 {
			n = 1
		}
		return n, nil
	}
	return 0, ErrInvalidTerms
}

// LoanRepository is the storage-facing operations over loans. Methods take a
// context that, when produced by Transactor.WithinTx, carries the active
// transaction; reads within that context observe writes made earlier in the
// same transaction.
type LoanRepository interface {
	Create(ctx context.Context, loan *Loan) (*Loan, error)
	CreateCharges(ctx context.Context, charges []*LoanCharge) error
	GetByID(ctx context.Context, id uuid.UUID) (*Loan, error)
	// GetByIDForUpdate acquires a row-level write lock (SELECT ... FOR UPDATE);
	// callers must be inside a transaction started via Transactor.WithinTx.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Loan, error)
	GetNextLoanNumber(ctx context.Context) (string, error)
	Update(ctx context.Context, loan *Loan) error
	ListCharges(ctx context.Context, loanID uuid.UUID) ([]*LoanCharge, error)
	List(ctx context.Context, filter LoanFilter) ([]*Loan, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// LoanFilter captures GET /loans query parameters.
type LoanFilter struct {
	Status     *LoanStatus
	CustomerID *uuid.UUID
	AgentID    *uuid.UUID
	Page       int
	Limit      int
}
