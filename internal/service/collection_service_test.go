package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/namma-finance/ledger-core/internal/authz"
	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/testutil"
)

type collectionFixture struct {
	svc        *CollectionService
	loans      *testutil.MockLoanRepository
	collections *testutil.MockCollectionRepository
	fees       *testutil.MockFeePenaltyRepository
	admin      *domain.User
}

func newCollectionFixture(t *testing.T) *collectionFixture {
	t.Helper()
	loans := testutil.NewMockLoanRepository()
	customers := testutil.NewMockCustomerRepository()
	collections := testutil.NewMockCollectionRepository()
	schedules := testutil.NewMockScheduleRepository()
	fees := testutil.NewMockFeePenaltyRepository()
	assignments := testutil.NewMockAgentAssignmentRepository()
	checker := authz.New(assignments, customers)
	audit := NewAuditService(testutil.NewMockAuditRepository())
	c := testutil.NewTestCache(t)

	svc := NewCollectionService(testutil.NewMockTransactor(), loans, collections, schedules, fees, checker, audit, c)
	return &collectionFixture{svc: svc, loans: loans, collections: collections, fees: fees, admin: &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}}
}

func (f *collectionFixture) activeLoan(t *testing.T) *domain.Loan {
	t.Helper()
	loan := &domain.Loan{
		CustomerID:           uuid.New(),
		OutstandingPrincipal: decimal.NewFromInt(1000),
		OutstandingInterest:  decimal.NewFromInt(100),
		Status:               domain.LoanActive,
	}
	created, err := f.loans.Create(context.Background(), loan)
	if err != nil {
		t.Fatalf("seed loan: %v", err)
	}
	return created
}

func TestCollectionService_Record_AllocatesFeesPenaltiesInterestPrincipalInOrder(t *testing.T) {
	f := newCollectionFixture(t)
	loan := f.activeLoan(t)
	f.fees.CreateLateFee(context.Background(), &domain.LateFeeRecord{LoanID: loan.ID, Amount: decimal.NewFromInt(10)})
	f.fees.CreatePenalty(context.Background(), &domain.PenaltyRecord{LoanID: loan.ID, Amount: decimal.NewFromInt(20)})

	result, err := f.svc.Record(context.Background(), f.admin, RecordInput{LoanID: loan.ID, Amount: decimal.NewFromInt(50)})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !result.Allocation.FeePaid.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected fee of 10 consumed first, got %s", result.Allocation.FeePaid)
	}
	if !result.Allocation.PenaltyPaid.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected penalty of 20 consumed second, got %s", result.Allocation.PenaltyPaid)
	}
	// Remaining 20 goes to interest before principal.
	if !result.Allocation.InterestPaid.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected remaining 20 allocated to interest, got %s", result.Allocation.InterestPaid)
	}
	if !result.Allocation.PrincipalPaid.IsZero() {
		t.Errorf("expected nothing left for principal, got %s", result.Allocation.PrincipalPaid)
	}
	if result.Collection.ReceiptNumber == "" {
		t.Error("expected a generated receipt number")
	}
}

func TestCollectionService_Record_OverpaymentRejected(t *testing.T) {
	f := newCollectionFixture(t)
	loan := f.activeLoan(t)

	_, err := f.svc.Record(context.Background(), f.admin, RecordInput{LoanID: loan.ID, Amount: decimal.NewFromInt(100000)})
	if err == nil {
		t.Fatal("expected an overpayment error")
	}
	overpayErr, ok := err.(*domain.OverpaymentError)
	if !ok {
		t.Fatalf("expected *domain.OverpaymentError, got %T: %v", err, err)
	}
	if overpayErr.Outstanding == "" {
		t.Error("expected outstanding total to be echoed back")
	}
}

func TestCollectionService_Record_ClosesLoanWhenFullyPaid(t *testing.T) {
	f := newCollectionFixture(t)
	loan := f.activeLoan(t)

	result, err := f.svc.Record(context.Background(), f.admin, RecordInput{LoanID: loan.ID, Amount: decimal.NewFromInt(1100)})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if result.Loan.Status != domain.LoanClosed {
		t.Errorf("expected loan closed once fully paid, got %s", result.Loan.Status)
	}
	if result.Loan.ClosedAt == nil {
		t.Error("expected ClosedAt to be set")
	}
}

func TestCollectionService_Record_NonCollectableStatusRejected(t *testing.T) {
	f := newCollectionFixture(t)
	loan := f.activeLoan(t)
	loan.Status = domain.LoanClosed
	f.loans.Update(context.Background(), loan)

	_, err := f.svc.Record(context.Background(), f.admin, RecordInput{LoanID: loan.ID, Amount: decimal.NewFromInt(10)})
	if err != domain.ErrStatusNotCollectable {
		t.Errorf("expected ErrStatusNotCollectable, got %v", err)
	}
}

func TestCollectionService_Record_ZeroOrNegativeAmountRejected(t *testing.T) {
	f := newCollectionFixture(t)
	loan := f.activeLoan(t)

	_, err := f.svc.Record(context.Background(), f.admin, RecordInput{LoanID: loan.ID, Amount: decimal.Zero})
	if err != domain.ErrInvalidAmount {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}

	_, err = f.svc.Record(context.Background(), f.admin, RecordInput{LoanID: loan.ID, Amount: decimal.NewFromInt(-5)})
	if err != domain.ErrInvalidAmount {
		t.Errorf("expected ErrInvalidAmount for a negative amount, got %v", err)
	}
}

func TestCollectionService_Record_AgentWithoutAssignmentRejected(t *testing.T) {
	f := newCollectionFixture(t)
	loan := f.activeLoan(t)
	agent := &domain.User{ID: uuid.New(), Role: domain.RoleAgent}

	_, err := f.svc.Record(context.Background(), agent, RecordInput{LoanID: loan.ID, Amount: decimal.NewFromInt(10)})
	if err != domain.ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized for an unassigned agent, got %v", err)
	}
}

func TestCollectionService_List_DelegatesToRepository(t *testing.T) {
	f := newCollectionFixture(t)
	loan := f.activeLoan(t)
	f.svc.Record(context.Background(), f.admin, RecordInput{LoanID: loan.ID, Amount: decimal.NewFromInt(50)})

	results, total, err := f.svc.List(context.Background(), domain.CollectionFilter{LoanID: &loan.ID, Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(results) != 1 {
		t.Fatalf("expected one collection, got %d/%d", len(results), total)
	}
	if results[0].CollectionDate.After(time.Now()) {
		t.Error("collection date should not be in the future by default")
	}
}
