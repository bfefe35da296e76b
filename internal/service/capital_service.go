package service

import (
	"context"

	"github.com/namma-finance/ledger-core/internal/authz"
	"github.com/namma-finance/ledger-core/internal/domain"
)

// CapitalService implements the investments/borrowings endpoints of §6: a
// simple admin/manager-gated capital ledger that feeds AnalyticsService but
// affects no loan invariant.
type CapitalService struct {
	investments domain.InvestmentRepository
	borrowings  domain.BorrowingRepository
}

func NewCapitalService(investments domain.InvestmentRepository, borrowings domain.BorrowingRepository) *CapitalService {
	return &CapitalService{investments: investments, borrowings: borrowings}
}

func (s *CapitalService) CreateInvestment(ctx context.Context, actor *domain.User, inv *domain.Investment) (*domain.Investment, error) {
	if !authz.MayManageCapitalLedger(actor) {
		return nil, domain.ErrNotAuthorized
	}
	inv.Status = domain.CapitalActive
	return s.investments.Create(ctx, inv)
}

func (s *CapitalService) ListInvestments(ctx context.Context, actor *domain.User, page, limit int) ([]*domain.Investment, int, error) {
	if !authz.MayManageCapitalLedger(actor) {
		return nil, 0, domain.ErrNotAuthorized
	}
	return s.investments.List(ctx, page, limit)
}

func (s *CapitalService) CreateBorrowing(ctx context.Context, actor *domain.User, b *domain.Borrowing) (*domain.Borrowing, error) {
	if !authz.MayManageCapitalLedger(actor) {
		return nil, domain.ErrNotAuthorized
	}
	b.Status = domain.CapitalActive
	return s.borrowings.Create(ctx, b)
}

func (s *CapitalService) ListBorrowings(ctx context.Context, actor *domain.User, page, limit int) ([]*domain.Borrowing, int, error) {
	if !authz.MayManageCapitalLedger(actor) {
		return nil, 0, domain.ErrNotAuthorized
	}
	return s.borrowings.List(ctx, page, limit)
}
