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

func newTestCapitalService() *CapitalService {
	return NewCapitalService(testutil.NewMockInvestmentRepository(), testutil.NewMockBorrowingRepository())
}

func TestCapitalService_CreateInvestment_SetsActiveStatus(t *testing.T) {
	svc := newTestCapitalService()
	admin := &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}

	inv, err := svc.CreateInvestment(context.Background(), admin, &domain.Investment{
		Amount: decimal.NewFromInt(50000), Source: "promoter", StartDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("create investment: %v", err)
	}
	if inv.Status != domain.CapitalActive {
		t.Errorf("expected newly created investment to be active, got %s", inv.Status)
	}
}

func TestCapitalService_CreateBorrowing_RejectsAgentAndCustomer(t *testing.T) {
	svc := newTestCapitalService()
	b := &domain.Borrowing{Amount: decimal.NewFromInt(10000), Lender: "bank", StartDate: time.Now()}
	for _, role := range []domain.Role{domain.RoleAgent, domain.RoleCustomer} {
		actor := &domain.User{ID: uuid.New(), Role: role}
		if _, err := svc.CreateBorrowing(context.Background(), actor, b); err != domain.ErrNotAuthorized {
			t.Errorf("expected %s to be rejected, got %v", role, err)
		}
	}
}

func TestCapitalService_ListInvestmentsAndBorrowings(t *testing.T) {
	svc := newTestCapitalService()
	manager := &domain.User{ID: uuid.New(), Role: domain.RoleManager}
	svc.CreateInvestment(context.Background(), manager, &domain.Investment{Amount: decimal.NewFromInt(1000), Source: "s", StartDate: time.Now()})
	svc.CreateBorrowing(context.Background(), manager, &domain.Borrowing{Amount: decimal.NewFromInt(2000), Lender: "l", StartDate: time.Now()})

	invs, total, err := svc.ListInvestments(context.Background(), manager, 1, 20)
	if err != nil || total != 1 || len(invs) != 1 {
		t.Fatalf("expected one investment, got %d/%d err=%v", len(invs), total, err)
	}
	borrowings, total, err := svc.ListBorrowings(context.Background(), manager, 1, 20)
	if err != nil || total != 1 || len(borrowings) != 1 {
		t.Fatalf("expected one borrowing, got %d/%d err=%v", len(borrowings), total, err)
	}
}
