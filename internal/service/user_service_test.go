package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/testutil"
)

func newTestUserService() (*UserService, *testutil.MockUserRepository) {
	users := testutil.NewMockUserRepository()
	audit := NewAuditService(testutil.NewMockAuditRepository())
	return NewUserService(users, audit), users
}

func TestUserService_Create_AdminOnlyForStaffRoles(t *testing.T) {
	svc, _ := newTestUserService()
	admin := &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}
	manager := &domain.User{ID: uuid.New(), Role: domain.RoleManager}

	if _, err := svc.Create(context.Background(), admin, "agent@example.com", "hunter2", "Agent Smith", domain.RoleAgent); err != nil {
		t.Errorf("expected admin to create an agent account, got %v", err)
	}
	if _, err := svc.Create(context.Background(), manager, "agent2@example.com", "hunter2", "Agent Jones", domain.RoleAgent); err != domain.ErrNotAuthorized {
		t.Errorf("expected a manager to be rejected creating an agent account, got %v", err)
	}
}

// TestUserService_Create_ManagerMayCreateCustomerAccount guards the fix that
// lets CustomerHandler.Create compose UserService.Create + CustomerService.Create
// for a manager actor without the two services disagreeing on authorization.
func TestUserService_Create_ManagerMayCreateCustomerAccount(t *testing.T) {
	svc, _ := newTestUserService()
	manager := &domain.User{ID: uuid.New(), Role: domain.RoleManager}

	user, err := svc.Create(context.Background(), manager, "customer@example.com", "hunter2", "Jane Doe", domain.RoleCustomer)
	if err != nil {
		t.Fatalf("expected manager to create a customer account, got %v", err)
	}
	if user.Role != domain.RoleCustomer {
		t.Errorf("expected role customer, got %s", user.Role)
	}
	if user.PasswordHash == "" || user.PasswordHash == "hunter2" {
		t.Error("expected the password to be hashed, not stored or left blank")
	}
}

func TestUserService_Create_AgentCannotCreateAnyAccount(t *testing.T) {
	svc, _ := newTestUserService()
	agent := &domain.User{ID: uuid.New(), Role: domain.RoleAgent}
	if _, err := svc.Create(context.Background(), agent, "x@example.com", "pw", "X", domain.RoleCustomer); err != domain.ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestUserService_Create_InvalidRoleRejected(t *testing.T) {
	svc, _ := newTestUserService()
	admin := &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}
	if _, err := svc.Create(context.Background(), admin, "x@example.com", "pw", "X", domain.Role("superuser")); err != domain.ErrValidation {
		t.Errorf("expected ErrValidation for an unrecognized role, got %v", err)
	}
}

func TestUserService_Deactivate_RequiresPermission(t *testing.T) {
	svc, _ := newTestUserService()
	admin := &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}
	created, err := svc.Create(context.Background(), admin, "agent@example.com", "hunter2", "Agent Smith", domain.RoleAgent)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	agent := &domain.User{ID: uuid.New(), Role: domain.RoleAgent}
	if err := svc.Deactivate(context.Background(), agent, created.ID); err != domain.ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized for a non-privileged actor, got %v", err)
	}

	if err := svc.Deactivate(context.Background(), admin, created.ID); err != nil {
		t.Errorf("expected admin to deactivate, got %v", err)
	}
}
