package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/namma-finance/ledger-core/internal/authz"
	"github.com/namma-finance/ledger-core/internal/domain"
)

// UserService implements user provisioning: manager/agent/admin accounts are
// admin-only, while customer login accounts may be created by an admin or a
// manager (CustomerHandler.Create pairs one with CustomerService.Create).
type UserService struct {
	users domain.UserRepository
	audit *AuditService
}

func NewUserService(users domain.UserRepository, audit *AuditService) *UserService {
	return &UserService{users: users, audit: audit}
}

func (s *UserService) Create(ctx context.Context, actor *domain.User, email, password, name string, role domain.Role) (*domain.User, error) {
	// Customer accounts may be provisioned by admin or manager, matching
	// CustomerService.Create's own check; every other role is admin-only.
	if role == domain.RoleCustomer {
		if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleManager {
			return nil, domain.ErrNotAuthorized
		}
	} else if actor.Role != domain.RoleAdmin {
		return nil, domain.ErrNotAuthorized
	}
	if !domain.IsValidRole(role) {
		return nil, domain.ErrValidation
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		Active:       true,
	}
	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor.ID, domain.AuditUserCreated, "user", created.ID, nil, created)
	return created, nil
}

func (s *UserService) List(ctx context.Context, actor *domain.User, role domain.Role, page, limit int) ([]*domain.User, int, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleManager {
		return nil, 0, domain.ErrNotAuthorized
	}
	return s.users.List(ctx, role, page, limit)
}

func (s *UserService) Deactivate(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	if !authz.MayDeleteUsers(actor) {
		return domain.ErrNotAuthorized
	}
	before, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Deactivate(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, actor.ID, domain.AuditUserDeleted, "user", id, before, nil)
	return nil
}
