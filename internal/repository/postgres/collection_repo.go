package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/namma-finance/ledger-core/internal/domain"
)

type CollectionRepo struct {
	db *DB
}

func NewCollectionRepo(db *DB) *CollectionRepo { return &CollectionRepo{db: db} }

const selectCollectionColumns = `
	id, loan_id, agent_id, amount, fee_allocation, penalty_allocation, interest_allocation, principal_allocation,
	collection_date, payment_method, receipt_number, remarks, created_at`

func scanCollection(row pgx.Row) (*domain.Collection, error) {
	c := &domain.Collection{}
	var amount, feeAllocation, penaltyAllocation, interestAllocation, principalAllocation pgtype.Numeric
	var paymentMethod, remarks pgtype.Text

	err := row.Scan(&c.ID, &c.LoanID, &c.AgentID, &amount, &feeAllocation, &penaltyAllocation, &interestAllocation, &principalAllocation,
		&c.CollectionDate, &paymentMethod, &c.ReceiptNumber, &remarks, &c.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err, domain.ErrCollectionNotFound)
	}
	c.Amount = pgNumericToDecimal(amount)
	c.FeeAllocation = pgNumericToDecimal(feeAllocation)
	c.PenaltyAllocation = pgNumericToDecimal(penaltyAllocation)
	c.InterestAllocation = pgNumericToDecimal(interestAllocation)
	c.PrincipalAllocation = pgNumericToDecimal(principalAllocation)
	c.PaymentMethod = textOrEmpty(paymentMethod)
	c.Remarks = textOrEmpty(remarks)
	return c, nil
}

// Create relies on a unique constraint on receipt_number and reports a clash
// as domain.ErrReceiptCollision; the collection service retries with a
// freshly minted receipt, up to three attempts in all, and returns
// domain.ErrReceiptCollision to its caller only if every attempt clashes (§4.5).
func (r *CollectionRepo) Create(ctx context.Context, c *domain.Collection) (*domain.Collection, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	amount, err := decimalToPgNumeric(c.Amount)
	if err != nil {
		return nil, err
	}
	feeAllocation, _ := decimalToPgNumeric(c.FeeAllocation)
	penaltyAllocation, _ := decimalToPgNumeric(c.PenaltyAllocation)
	interestAllocation, _ := decimalToPgNumeric(c.InterestAllocation)
	principalAllocation, _ := decimalToPgNumeric(c.PrincipalAllocation)

	const q = `
		INSERT INTO collections (
			id, loan_id, agent_id, amount, fee_allocation, penalty_allocation, interest_allocation, principal_allocation,
			collection_date, payment_method, receipt_number, remarks, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		RETURNING created_at`

	row := r.db.exec(ctx).QueryRow(ctx, q, c.ID, c.LoanID, c.AgentID, amount, feeAllocation, penaltyAllocation, interestAllocation, principalAllocation,
		c.CollectionDate, pgText(c.PaymentMethod), c.ReceiptNumber, pgText(c.Remarks))
	if err := row.Scan(&c.CreatedAt); err != nil {
		if IsUniqueViolation(err) {
			return nil, domain.ErrReceiptCollision
		}
		return nil, err
	}
	return c, nil
}

func (r *CollectionRepo) GetByReceiptNumber(ctx context.Context, receipt string) (*domain.Collection, error) {
	row := r.db.exec(ctx).QueryRow(ctx, `SELECT `+selectCollectionColumns+` FROM collections WHERE receipt_number = $1`, receipt)
	return scanCollection(row)
}

func (r *CollectionRepo) List(ctx context.Context, filter domain.CollectionFilter) ([]*domain.Collection, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argn := 1

	if filter.LoanID != nil {
		where += fmt.Sprintf(" AND loan_id = $%d", argn)
		args = append(args, *filter.LoanID)
		argn++
	}
	if filter.AgentID != nil {
		where += fmt.Sprintf(" AND agent_id = $%d", argn)
		args = append(args, *filter.AgentID)
		argn++
	}
	if filter.StartDate != nil {
		where += fmt.Sprintf(" AND collection_date >= $%d", argn)
		args = append(args, *filter.StartDate)
		argn++
	}
	if filter.EndDate != nil {
		where += fmt.Sprintf(" AND collection_date <= $%d", argn)
		args = append(args, *filter.EndDate)
		argn++
	}

	var total int
	if err := r.db.exec(ctx).QueryRow(ctx, `SELECT count(*) FROM collections `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit
	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM collections %s ORDER BY collection_date DESC LIMIT $%d OFFSET $%d`, selectCollectionColumns, where, argn, argn+1)

	rows, err := r.db.exec(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*domain.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}
