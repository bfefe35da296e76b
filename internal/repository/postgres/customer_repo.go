package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/namma-finance/ledger-core/internal/domain"
)

type CustomerRepo struct {
	db *DB
}

func NewCustomerRepo(db *DB) *CustomerRepo { return &CustomerRepo{db: db} }

const selectCustomerColumns = `id, user_id, kyc_status, date_of_birth, id_proof, created_at, updated_at, deleted_at`

func (r *CustomerRepo) scan(row pgx.Row) (*domain.Customer, error) {
	c := &domain.Customer{}
	var deletedAt pgtype.Timestamptz
	err := row.Scan(&c.ID, &c.UserID, &c.KYCStatus, &c.DateOfBirth, &c.IDProof, &c.CreatedAt, &c.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, mapNotFound(err, domain.ErrCustomerNotFound)
	}
	if deletedAt.Valid {
		c.DeletedAt = &deletedAt.Time
	}
	return c, nil
}

func (r *CustomerRepo) Create(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	const q = `
		INSERT INTO customers (id, user_id, kyc_status, date_of_birth, id_proof, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at`
	row := r.db.exec(ctx).QueryRow(ctx, q, c.ID, c.UserID, c.KYCStatus, c.DateOfBirth, c.IDProof)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	row := r.db.exec(ctx).QueryRow(ctx, `SELECT `+selectCustomerColumns+` FROM customers WHERE id = $1 AND deleted_at IS NULL`, id)
	return r.scan(row)
}

func (r *CustomerRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Customer, error) {
	row := r.db.exec(ctx).QueryRow(ctx, `SELECT `+selectCustomerColumns+` FROM customers WHERE user_id = $1 AND deleted_at IS NULL`, userID)
	return r.scan(row)
}

func (r *CustomerRepo) Update(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	const q = `
		UPDATE customers SET kyc_status = $2, id_proof = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`
	row := r.db.exec(ctx).QueryRow(ctx, q, c.ID, c.KYCStatus, c.IDProof)
	if err := row.Scan(&c.UpdatedAt); err != nil {
		return nil, mapNotFound(err, domain.ErrCustomerNotFound)
	}
	return c, nil
}

func (r *CustomerRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.db.exec(ctx).Exec(ctx, `UPDATE customers SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (r *CustomerRepo) List(ctx context.Context, page, limit int) ([]*domain.Customer, int, error) {
	offset := (page - 1) * limit
	var total int
	if err := r.db.exec(ctx).QueryRow(ctx, `SELECT count(*) FROM customers WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.exec(ctx).Query(ctx, `SELECT `+selectCustomerColumns+` FROM customers WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*domain.Customer
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

type AgentAssignmentRepo struct {
	db *DB
}

func NewAgentAssignmentRepo(db *DB) *AgentAssignmentRepo { return &AgentAssignmentRepo{db: db} }

func (r *AgentAssignmentRepo) Create(ctx context.Context, a *domain.AgentAssignment) (*domain.AgentAssignment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	const q = `
		INSERT INTO agent_assignments (id, agent_id, customer_id, active, assigned_at)
		VALUES ($1, $2, $3, true, now())
		RETURNING assigned_at`
	row := r.db.exec(ctx).QueryRow(ctx, q, a.ID, a.AgentID, a.CustomerID)
	a.Active = true
	if err := row.Scan(&a.AssignedAt); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AgentAssignmentRepo) GetActiveForCustomer(ctx context.Context, customerID uuid.UUID) (*domain.AgentAssignment, error) {
	const q = `SELECT id, agent_id, customer_id, active, assigned_at, ended_at FROM agent_assignments WHERE customer_id = $1 AND active = true`
	row := r.db.exec(ctx).QueryRow(ctx, q, customerID)
	a := &domain.AgentAssignment{}
	var endedAt pgtype.Timestamptz
	if err := row.Scan(&a.ID, &a.AgentID, &a.CustomerID, &a.Active, &a.AssignedAt, &endedAt); err != nil {
		return nil, mapNotFound(err, domain.ErrCustomerNotFound)
	}
	if endedAt.Valid {
		a.EndedAt = &endedAt.Time
	}
	return a, nil
}

func (r *AgentAssignmentRepo) EndActiveForCustomer(ctx context.Context, customerID uuid.UUID) error {
	_, err := r.db.exec(ctx).Exec(ctx, `UPDATE agent_assignments SET active = false, ended_at = now() WHERE customer_id = $1 AND active = true`, customerID)
	return err
}

func (r *AgentAssignmentRepo) ListActiveForAgent(ctx context.Context, agentID uuid.UUID) ([]*domain.AgentAssignment, error) {
	rows, err := r.db.exec(ctx).Query(ctx, `SELECT id, agent_id, customer_id, active, assigned_at, ended_at FROM agent_assignments WHERE agent_id = $1 AND active = true`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AgentAssignment
	for rows.Next() {
		a := &domain.AgentAssignment{}
		var endedAt pgtype.Timestamptz
		if err := rows.Scan(&a.ID, &a.AgentID, &a.CustomerID, &a.Active, &a.AssignedAt, &endedAt); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			a.EndedAt = &endedAt.Time
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AgentAssignmentRepo) IsActiveAssignment(ctx context.Context, agentID, customerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.exec(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM agent_assignments WHERE agent_id = $1 AND customer_id = $2 AND active = true)`,
		agentID, customerID).Scan(&exists)
	return exists, err
}
