package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditLoanCreated      AuditAction = "loan.created"
	AuditLoanApproved     AuditAction = "loan.approved"
	AuditLoanDisbursed    AuditAction = "loan.disbursed"
	AuditLoanClosed       AuditAction = "loan.closed"
	AuditLoanPreclosed    AuditAction = "loan.preclosed"
	AuditLoanDefaulted    AuditAction = "loan.defaulted"
	AuditLoanTopUp        AuditAction = "loan.topup"
	AuditLoanDeleted      AuditAction = "loan.deleted"
	AuditCollectionRecorded AuditAction = "collection.recorded"
	AuditCustomerCreated  AuditAction = "customer.created"
	AuditCustomerDeleted  AuditAction = "customer.deleted"
	AuditUserCreated      AuditAction = "user.created"
	AuditUserDeleted      AuditAction = "user.deleted"
)

// AuditEntry is append-only. Entity{Type,ID} identify the affected record;
// Before/After carry the pre/post state as raw JSON. Write failures are
// logged at warn and never propagate (§4.7).
type AuditEntry struct {
	ID         uuid.UUID   `json:"id"`
	ActorID    uuid.UUID   `json:"actorId"`
	Action     AuditAction `json:"action"`
	EntityType string      `json:"entityType"`
	EntityID   uuid.UUID   `json:"entityId"`
	Before     []byte      `json:"before,omitempty"`
	After      []byte      `json:"after,omitempty"`
	IP         string      `json:"ip,omitempty"`
	UserAgent  string      `json:"userAgent,omitempty"`
	Remarks    string      `json:"remarks,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

type AuditRepository interface {
	Append(ctx context.Context, e *AuditEntry) error
}
