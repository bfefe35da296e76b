// Package authz implements the two primitive checks every service
// operation calls before proceeding, per §4.3.
package authz

import (
	"context"

	"github.com/google/uuid"

	"github.com/namma-finance/ledger-core/internal/domain"
)

// Checker is the authorization gate. It is constructed once per process and
// injected into every service, mirroring the teacher's thin-service-wraps-
// repo composition idiom.
type Checker struct {
	agentAssignments domain.AgentAssignmentRepository
	customers        domain.CustomerRepository
}

func New(agentAssignments domain.AgentAssignmentRepository, customers domain.CustomerRepository) *Checker {
	return &Checker{agentAssignments: agentAssignments, customers: customers}
}

// MayAccessCustomer implements the customer-scoped primitive check.
func (c *Checker) MayAccessCustomer(ctx context.Context, actor *domain.User, customerID uuid.UUID) (bool, error) {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleManager:
		return true, nil
	case domain.RoleAgent:
		active, err := c.agentAssignments.IsActiveAssignment(ctx, actor.ID, customerID)
		if err != nil {
			return false, err
		}
		return active, nil
	case domain.RoleCustomer:
		customer, err := c.customers.GetByUserID(ctx, actor.ID)
		if err != nil {
			return false, err
		}
		return customer.ID == customerID, nil
	}
	return false, nil
}

// MayAccessLoan implements the loan-scoped primitive check.
func (c *Checker) MayAccessLoan(ctx context.Context, actor *domain.User, loan *domain.Loan) (bool, error) {
	return c.MayAccessCustomer(ctx, actor, loan.CustomerID)
}

// MayMutateLoanLifecycle gates write operations: agents may record collections on
// loans they can access but may not approve/disburse/close/preclose/top-up;
// those are admin/manager only.
func MayMutateLoanLifecycle(actor *domain.User) bool {
	return actor.Role == domain.RoleAdmin || actor.Role == domain.RoleManager
}

// MayRecordCollection gates §4.5 step 1: agents and admin/manager, subject
// to MayAccessLoan already having passed.
func MayRecordCollection(actor *domain.User) bool {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleManager, domain.RoleAgent:
		return true
	}
	return false
}

func MayDeleteCollections(actor *domain.User) bool {
	return actor.Role == domain.RoleAdmin || (actor.Role == domain.RoleManager && actor.MayDeleteCollections)
}

func MayDeleteCustomers(actor *domain.User) bool {
	return actor.Role == domain.RoleAdmin || (actor.Role == domain.RoleManager && actor.MayDeleteCustomers)
}

func MayDeleteUsers(actor *domain.User) bool {
	return actor.Role == domain.RoleAdmin || (actor.Role == domain.RoleManager && actor.MayDeleteUsers)
}

// MayDeletePendingLoan implements the state machine's "delete while pending
// is permitted to admin/manager" rule.
func MayDeletePendingLoan(actor *domain.User) bool {
	return actor.Role == domain.RoleAdmin || actor.Role == domain.RoleManager
}

// MayManageCapitalLedger gates the investments/borrowings endpoints
// (admin/manager only, §6).
func MayManageCapitalLedger(actor *domain.User) bool {
	return actor.Role == domain.RoleAdmin || actor.Role == domain.RoleManager
}

// MayViewAnalytics gates GET /analytics. Its totals are portfolio-wide, not
// customer- or agent-scoped, so there is no partial view to carve out for
// agents or customers the way MayAccessLoan/MayAccessCustomer do.
func MayViewAnalytics(actor *domain.User) bool {
	return actor.Role == domain.RoleAdmin || actor.Role == domain.RoleManager
}
