package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/namma-finance/ledger-core/internal/authz"
	"github.com/namma-finance/ledger-core/internal/cache"
	"github.com/namma-finance/ledger-core/internal/calculator"
	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/money"
	"github.com/namma-finance/ledger-core/internal/repository/postgres"
	"github.com/namma-finance/ledger-core/internal/repository"
)

const receiptBase36Chars = "abcdefghijklmnopqrstuvwxyz0123456789"

// CollectionService implements §4.5's eleven-step procedure, the highest
// traffic and highest correctness-risk path in the system.
type CollectionService struct {
	tx          repository.Transactor
	loans       domain.LoanRepository
	collections domain.CollectionRepository
	schedules   domain.ScheduleRepository
	fees        domain.FeePenaltyRepository
	checker     *authz.Checker
	audit       *AuditService
	cache       *cache.Cache
}

func NewCollectionService(
	tx repository.Transactor,
	loans domain.LoanRepository,
	collections domain.CollectionRepository,
	schedules domain.ScheduleRepository,
	fees domain.FeePenaltyRepository,
	checker *authz.Checker,
	audit *AuditService,
	c *cache.Cache,
) *CollectionService {
	return &CollectionService{
		tx: tx, loans: loans, collections: collections, schedules: schedules, fees: fees,
		checker: checker, audit: audit, cache: c,
	}
}

// RecordInput mirrors POST /collections's body.
type RecordInput struct {
	LoanID         uuid.UUID
	Amount         decimal.Decimal
	CollectionDate *time.Time
	PaymentMethod  string
	Remarks        string
}

// RecordResult bundles the three values the handler echoes back.
type RecordResult struct {
	Collection *domain.Collection
	Loan       *domain.Loan
	Allocation calculator.Allocation
}

// Record runs the full collection procedure, retrying once on a storage
// serialization conflict per §5's retry policy.
func (s *CollectionService) Record(ctx context.Context, actor *domain.User, in RecordInput) (*RecordResult, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	result, err := s.attempt(ctx, actor, in)
	if err != nil && postgres.IsSerializationFailure(err) {
		result, err = s.attempt(ctx, actor, in)
		if err != nil && postgres.IsSerializationFailure(err) {
			return nil, domain.ErrTransientFailure
		}
	}
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateLoan(ctx, result.Loan.ID.String(), result.Loan.CustomerID.String())
	return result, nil
}

func (s *CollectionService) attempt(ctx context.Context, actor *domain.User, in RecordInput) (*RecordResult, error) {
	var result *RecordResult

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Step 2: row-level lock on the loan for the duration of this
		// transaction prevents a second concurrent collection from reading
		// the same pre-update outstanding totals (§5 lost-update prevention).
		loan, err := s.loans.GetByIDForUpdate(ctx, in.LoanID)
		if err != nil {
			return err
		}

		// Step 1: authorize.
		allowed, err := s.checker.MayAccessLoan(ctx, actor, loan)
		if err != nil {
			return err
		}
		if !allowed || !authz.MayRecordCollection(actor) {
			return domain.ErrNotAuthorized
		}

		// Step 3.
		if loan.Status != domain.LoanActive {
			return domain.ErrStatusNotCollectable
		}

		// Step 4.
		unpaidFees, err := s.fees.SumUnpaidLateFees(ctx, loan.ID)
		if err != nil {
			return err
		}
		unpaidPenalties, err := s.fees.SumUnpaidPenalties(ctx, loan.ID)
		if err != nil {
			return err
		}
		outstanding := calculator.Outstanding{
			UnpaidFees:      unpaidFees,
			UnpaidPenalties: unpaidPenalties,
			Interest:        loan.OutstandingInterest,
			Principal:       loan.OutstandingPrincipal,
		}
		total := outstanding.Total()
		if in.Amount.GreaterThan(total) {
			return &domain.OverpaymentError{Outstanding: money.String(total)}
		}

		// Step 5.
		alloc := calculator.Allocate(in.Amount, outstanding)

		before := *loan

		// Step 6.
		loan.OutstandingInterest = money.Max(decimal.Zero, loan.OutstandingInterest.Sub(alloc.InterestPaid))
		loan.OutstandingPrincipal = money.Max(decimal.Zero, loan.OutstandingPrincipal.Sub(alloc.PrincipalPaid))
		loan.TotalCollected = money.RoundAmount(loan.TotalCollected.Add(in.Amount))
		loan.TotalLateFeesPaid = money.RoundAmount(loan.TotalLateFeesPaid.Add(alloc.FeePaid))
		loan.TotalPenaltiesPaid = money.RoundAmount(loan.TotalPenaltiesPaid.Add(alloc.PenaltyPaid))

		// Step 7.
		if loan.OutstandingPrincipal.IsZero() && loan.OutstandingInterest.IsZero() {
			now := time.Now()
			loan.Status = domain.LoanClosed
			loan.ClosedAt = &now
		}
		if err := s.loans.Update(ctx, loan); err != nil {
			return err
		}

		if err := s.markPaidFeesAndPenalties(ctx, loan.ID, alloc.FeePaid, alloc.PenaltyPaid); err != nil {
			return err
		}

		// Step 8: informational projection onto schedule rows.
		if err := s.projectOntoSchedule(ctx, loan.ID, in.Amount); err != nil {
			return err
		}

		// Step 9.
		collectionDate := time.Now()
		if in.CollectionDate != nil {
			collectionDate = *in.CollectionDate
		}
		collection := &domain.Collection{
			LoanID:              loan.ID,
			AgentID:             actor.ID,
			Amount:              in.Amount,
			FeeAllocation:       alloc.FeePaid,
			PenaltyAllocation:   alloc.PenaltyPaid,
			InterestAllocation:  alloc.InterestPaid,
			PrincipalAllocation: alloc.PrincipalPaid,
			CollectionDate:      collectionDate,
			PaymentMethod:       in.PaymentMethod,
			Remarks:             in.Remarks,
		}
		if err := s.createWithReceipt(ctx, collection); err != nil {
			return err
		}

		// Step 10 (audit part; cache invalidation happens post-commit in Record).
		s.audit.Record(ctx, actor.ID, domain.AuditCollectionRecorded, "loan", loan.ID, &before, loan)

		result = &RecordResult{Collection: collection, Loan: loan, Allocation: alloc}
		return nil
	})
	return result, err
}

// createWithReceipt retries receipt-number generation on a unique-constraint
// collision; collisions are astronomically unlikely given the random
// component but the retry keeps the operation total rather than failing the
// whole collection over a cosmetic id clash.
func (s *CollectionService) createWithReceipt(ctx context.Context, c *domain.Collection) error {
	for attempt := 0; attempt < 3; attempt++ {
		c.ReceiptNumber = newReceiptNumber()
		_, err := s.collections.Create(ctx, c)
		if err == nil {
			return nil
		}
		if err != domain.ErrReceiptCollision {
			return err
		}
	}
	return domain.ErrReceiptCollision
}

// newReceiptNumber implements §6's RCP-{epoch-millis}-{9-char-base36} format.
func newReceiptNumber() string {
	buf := make([]byte, 9)
	for i := range buf {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(receiptBase36Chars))))
		buf[i] = receiptBase36Chars[n.Int64()]
	}
	return fmt.Sprintf("RCP-%d-%s", time.Now().UnixMilli(), string(buf))
}

func (s *CollectionService) markPaidFeesAndPenalties(ctx context.Context, loanID uuid.UUID, feePaid, penaltyPaid decimal.Decimal) error {
	now := time.Now()
	if feePaid.GreaterThan(decimal.Zero) {
		fees, err := s.fees.ListUnpaidLateFeesAscending(ctx, loanID)
		if err != nil {
			return err
		}
		remaining := feePaid
		for _, f := range fees {
			if remaining.LessThanOrEqual(decimal.Zero) {
				break
			}
			if f.Amount.LessThanOrEqual(remaining) {
				if err := s.fees.MarkLateFeePaid(ctx, f.ID, now); err != nil {
					return err
				}
				remaining = remaining.Sub(f.Amount)
			} else {
				break
			}
		}
	}
	if penaltyPaid.GreaterThan(decimal.Zero) {
		penalties, err := s.fees.ListUnpaidPenaltiesAscending(ctx, loanID)
		if err != nil {
			return err
		}
		remaining := penaltyPaid
		for _, p := range penalties {
			if remaining.LessThanOrEqual(decimal.Zero) {
				break
			}
			if p.Amount.LessThanOrEqual(remaining) {
				if err := s.fees.MarkPenaltyPaid(ctx, p.ID, now); err != nil {
					return err
				}
				remaining = remaining.Sub(p.Amount)
			} else {
				break
			}
		}
	}
	return nil
}

// projectOntoSchedule applies the raw collected amount to unpaid rows oldest
// first, per step 8. It is informational only: the loan ledger updated above
// remains the source of truth, and a loan with no generated rows yet (a race
// with the deferred generator) simply skips this step.
func (s *CollectionService) projectOntoSchedule(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal) error {
	rows, err := s.schedules.ListUnpaidAscending(ctx, loanID)
	if err != nil {
		return err
	}
	remaining := amount
	now := time.Now()
	for _, row := range rows {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		due := row.RemainingDue()
		consumed := money.Min(remaining, due)
		row.TotalPaid = money.RoundAmount(row.TotalPaid.Add(consumed))
		remaining = remaining.Sub(consumed)
		if row.TotalPaid.GreaterThanOrEqual(row.TotalDue) {
			row.Paid = true
			row.PaidAt = &now
		}
		if err := s.schedules.UpdateRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func (s *CollectionService) List(ctx context.Context, filter domain.CollectionFilter) ([]*domain.Collection, int, error) {
	return s.collections.List(ctx, filter)
}
