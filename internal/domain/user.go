package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role is the actor class used throughout authorization.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleAgent    Role = "agent"
	RoleCustomer Role = "customer"
)

func IsValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleAgent, RoleCustomer:
		return true
	}
	return false
}

// User is the identity + role record. Managers carry optional destructive
// permission flags; the other roles leave them false.
type User struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"-"`
	Name               string    `json:"name"`
	Role               Role      `json:"role"`
	Active             bool      `json:"active"`
	MayDeleteCollections bool    `json:"mayDeleteCollections"`
	MayDeleteCustomers   bool    `json:"mayDeleteCustomers"`
	MayDeleteUsers       bool    `json:"mayDeleteUsers"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type UserRepository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, role Role, page, limit int) ([]*User, int, error)
}
