package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCVerified KYCStatus = "verified"
	KYCRejected KYCStatus = "rejected"
)

// Customer extends a user (role=customer) with KYC attributes. 1-to-1 with
// the backing User row.
type Customer struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	KYCStatus   KYCStatus `json:"kycStatus"`
	DateOfBirth time.Time `json:"dateOfBirth"`
	IDProof     string    `json:"idProof"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

type CustomerRepository interface {
	Create(ctx context.Context, customer *Customer) (*Customer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Customer, error)
	Update(ctx context.Context, customer *Customer) (*Customer, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, page, limit int) ([]*Customer, int, error)
}

// AgentAssignment records which agent currently services a customer. At any
// moment a customer has zero or one active assignment.
type AgentAssignment struct {
	ID         uuid.UUID  `json:"id"`
	AgentID    uuid.UUID  `json:"agentId"`
	CustomerID uuid.UUID  `json:"customerId"`
	Active     bool       `json:"active"`
	AssignedAt time.Time  `json:"assignedAt"`
	EndedAt    *time.Time `json:"endedAt,omitempty"`
}

type AgentAssignmentRepository interface {
	Create(ctx context.Context, a *AgentAssignment) (*AgentAssignment, error)
	GetActiveForCustomer(ctx context.Context, customerID uuid.UUID) (*AgentAssignment, error)
	EndActiveForCustomer(ctx context.Context, customerID uuid.UUID) error
	ListActiveForAgent(ctx context.Context, agentID uuid.UUID) ([]*AgentAssignment, error)
	IsActiveAssignment(ctx context.Context, agentID, customerID uuid.UUID) (bool, error)
}
