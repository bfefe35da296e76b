package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/namma-finance/ledger-core/internal/domain"
)

type FeePenaltyRepo struct {
	db *DB
}

func NewFeePenaltyRepo(db *DB) *FeePenaltyRepo { return &FeePenaltyRepo{db: db} }

func (r *FeePenaltyRepo) CreateLateFee(ctx context.Context, f *domain.LateFeeRecord) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	amount, err := decimalToPgNumeric(f.Amount)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO late_fees (id, loan_id, schedule_row_id, amount, overdue_days, applied_at, paid)
		VALUES ($1, $2, $3, $4, $5, now(), false)
		RETURNING applied_at`
	row := r.db.exec(ctx).QueryRow(ctx, q, f.ID, f.LoanID, f.ScheduleRowID, amount, f.OverdueDays)
	return row.Scan(&f.AppliedAt)
}

func (r *FeePenaltyRepo) CreatePenalty(ctx context.Context, p *domain.PenaltyRecord) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	amount, err := decimalToPgNumeric(p.Amount)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO penalties (id, loan_id, amount, reason, applied_at, paid)
		VALUES ($1, $2, $3, $4, now(), false)
		RETURNING applied_at`
	row := r.db.exec(ctx).QueryRow(ctx, q, p.ID, p.LoanID, amount, p.Reason)
	return row.Scan(&p.AppliedAt)
}

func (r *FeePenaltyRepo) ListUnpaidLateFeesAscending(ctx context.Context, loanID uuid.UUID) ([]*domain.LateFeeRecord, error) {
	rows, err := r.db.exec(ctx).Query(ctx,
		`SELECT id, loan_id, schedule_row_id, amount, overdue_days, applied_at, paid, paid_at
		 FROM late_fees WHERE loan_id = $1 AND paid = false ORDER BY applied_at ASC`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.LateFeeRecord
	for rows.Next() {
		f := &domain.LateFeeRecord{}
		var amount pgtype.Numeric
		var paidAt pgtype.Timestamptz
		if err := rows.Scan(&f.ID, &f.LoanID, &f.ScheduleRowID, &amount, &f.OverdueDays, &f.AppliedAt, &f.Paid, &paidAt); err != nil {
			return nil, err
		}
		f.Amount = pgNumericToDecimal(amount)
		if paidAt.Valid {
			f.PaidAt = &paidAt.Time
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *FeePenaltyRepo) ListUnpaidPenaltiesAscending(ctx context.Context, loanID uuid.UUID) ([]*domain.PenaltyRecord, error) {
	rows, err := r.db.exec(ctx).Query(ctx,
		`SELECT id, loan_id, amount, reason, applied_at, paid, paid_at
		 FROM penalties WHERE loan_id = $1 AND paid = false ORDER BY applied_at ASC`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.PenaltyRecord
	for rows.Next() {
		p := &domain.PenaltyRecord{}
		var amount pgtype.Numeric
		var paidAt pgtype.Timestamptz
		if err := rows.Scan(&p.ID, &p.LoanID, &amount, &p.Reason, &p.AppliedAt, &p.Paid, &paidAt); err != nil {
			return nil, err
		}
		p.Amount = pgNumericToDecimal(amount)
		if paidAt.Valid {
			p.PaidAt = &paidAt.Time
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *FeePenaltyRepo) MarkLateFeePaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	_, err := r.db.exec(ctx).Exec(ctx, `UPDATE late_fees SET paid = true, paid_at = $2 WHERE id = $1`, id, paidAt)
	return err
}

func (r *FeePenaltyRepo) MarkPenaltyPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	_, err := r.db.exec(ctx).Exec(ctx, `UPDATE penalties SET paid = true, paid_at = $2 WHERE id = $1`, id, paidAt)
	return err
}

func (r *FeePenaltyRepo) SumUnpaidLateFees(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := r.db.exec(ctx).QueryRow(ctx,
		`SELECT coalesce(sum(amount), 0) FROM late_fees WHERE loan_id = $1 AND paid = false`, loanID).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return pgNumericToDecimal(sum), nil
}

func (r *FeePenaltyRepo) SumUnpaidPenalties(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := r.db.exec(ctx).QueryRow(ctx,
		`SELECT coalesce(sum(amount), 0) FROM penalties WHERE loan_id = $1 AND paid = false`, loanID).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return pgNumericToDecimal(sum), nil
}
