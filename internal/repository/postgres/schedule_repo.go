package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/namma-finance/ledger-core/internal/domain"
)

type ScheduleRepo struct {
	db *DB
}

func NewScheduleRepo(db *DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

const selectScheduleColumns = `
	id, loan_id, installment_number, due_date,
	principal_due, interest_due, total_due, principal_paid, interest_paid, total_paid,
	paid, paid_at, outstanding_balance`

func scanScheduleRow(scan func(dest ...interface{}) error) (*domain.ScheduleRow, error) {
	s := &domain.ScheduleRow{}
	var principalDue, interestDue, totalDue, principalPaid, interestPaid, totalPaid, outstandingBalance pgtype.Numeric
	var paidAt pgtype.Timestamptz

	err := scan(&s.ID, &s.LoanID, &s.InstallmentNumber, &s.DueDate,
		&principalDue, &interestDue, &totalDue, &principalPaid, &interestPaid, &totalPaid,
		&s.Paid, &paidAt, &outstandingBalance)
	if err != nil {
		return nil, err
	}
	s.PrincipalDue = pgNumericToDecimal(principalDue)
	s.InterestDue = pgNumericToDecimal(interestDue)
	s.TotalDue = pgNumericToDecimal(totalDue)
	s.PrincipalPaid = pgNumericToDecimal(principalPaid)
	s.InterestPaid = pgNumericToDecimal(interestPaid)
	s.TotalPaid = pgNumericToDecimal(totalPaid)
	s.OutstandingBalance = pgNumericToDecimal(outstandingBalance)
	if paidAt.Valid {
		s.PaidAt = &paidAt.Time
	}
	return s, nil
}

func (r *ScheduleRepo) ExistsAny(ctx context.Context, loanID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.exec(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schedule_rows WHERE loan_id = $1)`, loanID).Scan(&exists)
	return exists, err
}

// InsertBatch relies on a unique constraint over (loan_id, installment_number)
// and is a no-op per row on conflict, making the job handler's retry path
// idempotent.
func (r *ScheduleRepo) InsertBatch(ctx context.Context, rows []*domain.ScheduleRow) error {
	const q = `
		INSERT INTO schedule_rows (
			id, loan_id, installment_number, due_date,
			principal_due, interest_due, total_due, principal_paid, interest_paid, total_paid,
			paid, outstanding_balance
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, 0, false, $8)
		ON CONFLICT (loan_id, installment_number) DO NOTHING`

	for _, s := range rows {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		principalDue, err := decimalToPgNumeric(s.PrincipalDue)
		if err != nil {
			return err
		}
		interestDue, _ := decimalToPgNumeric(s.InterestDue)
		totalDue, _ := decimalToPgNumeric(s.TotalDue)
		outstandingBalance, _ := decimalToPgNumeric(s.OutstandingBalance)

		_, err = r.db.exec(ctx).Exec(ctx, q, s.ID, s.LoanID, s.InstallmentNumber, s.DueDate,
			principalDue, interestDue, totalDue, outstandingBalance)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *ScheduleRepo) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduleRow, error) {
	rows, err := r.db.exec(ctx).Query(ctx, `SELECT `+selectScheduleColumns+` FROM schedule_rows WHERE loan_id = $1 ORDER BY installment_number ASC`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.ScheduleRow
	for rows.Next() {
		s, err := scanScheduleRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ScheduleRepo) ListUnpaidAscending(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduleRow, error) {
	rows, err := r.db.exec(ctx).Query(ctx,
		`SELECT `+selectScheduleColumns+` FROM schedule_rows WHERE loan_id = $1 AND paid = false ORDER BY installment_number ASC`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.ScheduleRow
	for rows.Next() {
		s, err := scanScheduleRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ScheduleRepo) UpdateRow(ctx context.Context, s *domain.ScheduleRow) error {
	principalPaid, err := decimalToPgNumeric(s.PrincipalPaid)
	if err != nil {
		return err
	}
	interestPaid, _ := decimalToPgNumeric(s.InterestPaid)
	totalPaid, _ := decimalToPgNumeric(s.TotalPaid)

	var paidAt pgtype.Timestamptz
	if s.PaidAt != nil {
		paidAt = pgtype.Timestamptz{Time: *s.PaidAt, Valid: true}
	}

	const q = `
		UPDATE schedule_rows SET principal_paid = $2, interest_paid = $3, total_paid = $4, paid = $5, paid_at = $6
		WHERE id = $1`
	_, err = r.db.exec(ctx).Exec(ctx, q, s.ID, principalPaid, interestPaid, totalPaid, s.Paid, paidAt)
	return err
}
