package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/namma-finance/ledger-core/internal/authz"
	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/testutil"
)

func newTestCustomerService() (*CustomerService, *testutil.MockCustomerRepository) {
	customers := testutil.NewMockCustomerRepository()
	assignments := testutil.NewMockAgentAssignmentRepository()
	checker := authz.New(assignments, customers)
	audit := NewAuditService(testutil.NewMockAuditRepository())
	return NewCustomerService(customers, checker, audit), customers
}

func TestCustomerService_Create_AdminAndManagerAllowed(t *testing.T) {
	svc, _ := newTestCustomerService()
	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleManager} {
		actor := &domain.User{ID: uuid.New(), Role: role}
		c, err := svc.Create(context.Background(), actor, &domain.Customer{UserID: uuid.New(), DateOfBirth: time.Now()})
		if err != nil {
			t.Errorf("expected %s to create a customer, got %v", role, err)
		}
		if c.ID == uuid.Nil {
			t.Error("expected a generated customer id")
		}
	}
}

func TestCustomerService_Create_AgentRejected(t *testing.T) {
	svc, _ := newTestCustomerService()
	agent := &domain.User{ID: uuid.New(), Role: domain.RoleAgent}
	_, err := svc.Create(context.Background(), agent, &domain.Customer{UserID: uuid.New()})
	if err != domain.ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestCustomerService_GetByID_CustomerCanOnlySeeSelf(t *testing.T) {
	svc, _ := newTestCustomerService()
	admin := &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}
	selfUserID := uuid.New()
	self, _ := svc.Create(context.Background(), admin, &domain.Customer{UserID: selfUserID})
	other, _ := svc.Create(context.Background(), admin, &domain.Customer{UserID: uuid.New()})

	selfActor := &domain.User{ID: selfUserID, Role: domain.RoleCustomer}

	if _, err := svc.GetByID(context.Background(), selfActor, self.ID); err != nil {
		t.Errorf("expected customer to view their own record, got %v", err)
	}
	if _, err := svc.GetByID(context.Background(), selfActor, other.ID); err != domain.ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized viewing another customer's record, got %v", err)
	}
}

func TestCustomerService_Delete_RequiresFlagForManager(t *testing.T) {
	svc, _ := newTestCustomerService()
	admin := &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}
	cust, _ := svc.Create(context.Background(), admin, &domain.Customer{UserID: uuid.New()})

	managerWithoutFlag := &domain.User{ID: uuid.New(), Role: domain.RoleManager, MayDeleteCustomers: false}
	if err := svc.Delete(context.Background(), managerWithoutFlag, cust.ID); err != domain.ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized without the delete flag, got %v", err)
	}

	managerWithFlag := &domain.User{ID: uuid.New(), Role: domain.RoleManager, MayDeleteCustomers: true}
	if err := svc.Delete(context.Background(), managerWithFlag, cust.ID); err != nil {
		t.Errorf("expected manager with the delete flag to succeed, got %v", err)
	}

	if _, err := svc.GetByID(context.Background(), admin, cust.ID); err != domain.ErrCustomerNotFound {
		t.Errorf("expected soft-deleted customer to read as not found, got %v", err)
	}
}
