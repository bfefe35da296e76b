package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/namma-finance/ledger-core/internal/domain"
)

type InvestmentRepo struct {
	db *DB
}

func NewInvestmentRepo(db *DB) *InvestmentRepo { return &InvestmentRepo{db: db} }

func (r *InvestmentRepo) Create(ctx context.Context, i *domain.Investment) (*domain.Investment, error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	amount, err := decimalToPgNumeric(i.Amount)
	if err != nil {
		return nil, err
	}
	const q = `
		INSERT INTO investments (id, amount, source, start_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at`
	row := r.db.exec(ctx).QueryRow(ctx, q, i.ID, amount, i.Source, i.StartDate, i.Status)
	if err := row.Scan(&i.CreatedAt); err != nil {
		return nil, err
	}
	return i, nil
}

func (r *InvestmentRepo) List(ctx context.Context, page, limit int) ([]*domain.Investment, int, error) {
	offset := (page - 1) * limit
	var total int
	if err := r.db.exec(ctx).QueryRow(ctx, `SELECT count(*) FROM investments`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.exec(ctx).Query(ctx,
		`SELECT id, amount, source, start_date, end_date, status, created_at FROM investments ORDER BY start_date DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*domain.Investment
	for rows.Next() {
		i := &domain.Investment{}
		var amount pgtype.Numeric
		var endDate pgtype.Timestamptz
		if err := rows.Scan(&i.ID, &amount, &i.Source, &i.StartDate, &endDate, &i.Status, &i.CreatedAt); err != nil {
			return nil, 0, err
		}
		i.Amount = pgNumericToDecimal(amount)
		if endDate.Valid {
			i.EndDate = &endDate.Time
		}
		out = append(out, i)
	}
	return out, total, rows.Err()
}
