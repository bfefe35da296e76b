package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/namma-finance/ledger-core/internal/authz"
	"github.com/namma-finance/ledger-core/internal/domain"
)

// CustomerService implements the customer CRUD surface of §6.
type CustomerService struct {
	customers domain.CustomerRepository
	checker   *authz.Checker
	audit     *AuditService
}

func NewCustomerService(customers domain.CustomerRepository, checker *authz.Checker, audit *AuditService) *CustomerService {
	return &CustomerService{customers: customers, checker: checker, audit: audit}
}

func (s *CustomerService) Create(ctx context.Context, actor *domain.User, c *domain.Customer) (*domain.Customer, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleManager {
		return nil, domain.ErrNotAuthorized
	}
	created, err := s.customers.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor.ID, domain.AuditCustomerCreated, "customer", created.ID, nil, created)
	return created, nil
}

func (s *CustomerService) GetByID(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.Customer, error) {
	allowed, err := s.checker.MayAccessCustomer(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, domain.ErrNotAuthorized
	}
	return s.customers.GetByID(ctx, id)
}

func (s *CustomerService) List(ctx context.Context, actor *domain.User, page, limit int) ([]*domain.Customer, int, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleManager {
		return nil, 0, domain.ErrNotAuthorized
	}
	return s.customers.List(ctx, page, limit)
}

func (s *CustomerService) Delete(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	if !authz.MayDeleteCustomers(actor) {
		return domain.ErrNotAuthorized
	}
	before, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.customers.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, actor.ID, domain.AuditCustomerDeleted, "customer", id, before, nil)
	return nil
}
