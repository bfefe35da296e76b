package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/namma-finance/ledger-core/internal/domain"
)

type BorrowingRepo struct {
	db *DB
}

func NewBorrowingRepo(db *DB) *BorrowingRepo { return &BorrowingRepo{db: db} }

func (r *BorrowingRepo) Create(ctx context.Context, b *domain.Borrowing) (*domain.Borrowing, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	amount, err := decimalToPgNumeric(b.Amount)
	if err != nil {
		return nil, err
	}
	const q = `
		INSERT INTO borrowings (id, amount, lender, start_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at`
	row := r.db.exec(ctx).QueryRow(ctx, q, b.ID, amount, b.Lender, b.StartDate, b.Status)
	if err := row.Scan(&b.CreatedAt); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *BorrowingRepo) List(ctx context.Context, page, limit int) ([]*domain.Borrowing, int, error) {
	offset := (page - 1) * limit
	var total int
	if err := r.db.exec(ctx).QueryRow(ctx, `SELECT count(*) FROM borrowings`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.exec(ctx).Query(ctx,
		`SELECT id, amount, lender, start_date, end_date, status, created_at FROM borrowings ORDER BY start_date DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*domain.Borrowing
	for rows.Next() {
		b := &domain.Borrowing{}
		var amount pgtype.Numeric
		var endDate pgtype.Timestamptz
		if err := rows.Scan(&b.ID, &amount, &b.Lender, &b.StartDate, &endDate, &b.Status, &b.CreatedAt); err != nil {
			return nil, 0, err
		}
		b.Amount = pgNumericToDecimal(amount)
		if endDate.Valid {
			b.EndDate = &endDate.Time
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}
