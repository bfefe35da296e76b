package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/namma-finance/ledger-core/internal/domain"
)

type LoanRepo struct {
	db *DB
}

func NewLoanRepo(db *DB) *LoanRepo { return &LoanRepo{db: db} }

const selectLoanColumns = `
	id, loan_number, customer_id, created_by,
	principal, annual_interest_percent, tenure_installments, frequency, custom_period_days,
	repayment_type, grace_period_days, late_fee_daily_percent, penalty_percent,
	installment_amount, total_interest, total_amount,
	disbursed_amount, disbursed_at, start_date, end_date,
	outstanding_principal, outstanding_interest, total_collected, total_late_fees_paid, total_penalties_paid,
	status, closed_at, original_loan_id, is_top_up, top_up_amount, remarks, created_at, updated_at`

func (r *LoanRepo) scan(row pgx.Row) (*domain.Loan, error) {
	l := &domain.Loan{}
	var customPeriodDays pgtype.Int4
	var disbursedAt, closedAt pgtype.Timestamptz
	var originalLoanID pgtype.UUID
	var remarks pgtype.Text

	var principal, annualInterestPercent, lateFeeDailyPercent, penaltyPercent pgtype.Numeric
	var installmentAmount, totalInterest, totalAmount, disbursedAmount pgtype.Numeric
	var outstandingPrincipal, outstandingInterest, totalCollected, totalLateFeesPaid, totalPenaltiesPaid pgtype.Numeric
	var topUpAmount pgtype.Numeric

	err := row.Scan(
		&l.ID, &l.LoanNumber, &l.CustomerID, &l.CreatedBy,
		&principal, &annualInterestPercent, &l.TenureInstallments, &l.Frequency, &customPeriodDays,
		&l.RepaymentType, &l.GracePeriodDays, &lateFeeDailyPercent, &penaltyPercent,
		&installmentAmount, &totalInterest, &totalAmount,
		&disbursedAmount, &disbursedAt, &l.StartDate, &l.EndDate,
		&outstandingPrincipal, &outstandingInterest, &totalCollected, &totalLateFeesPaid, &totalPenaltiesPaid,
		&l.Status, &closedAt, &originalLoanID, &l.IsTopUp, &topUpAmount, &remarks, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, mapNotFound(err, domain.ErrLoanNotFound)
	}

	l.Principal = pgNumericToDecimal(principal)
	l.AnnualInterestPercent = pgNumericToDecimal(annualInterestPercent)
	l.LateFeeDailyPercent = pgNumericToDecimal(lateFeeDailyPercent)
	l.PenaltyPercent = pgNumericToDecimal(penaltyPercent)
	l.InstallmentAmount = pgNumericToDecimal(installmentAmount)
	l.TotalInterest = pgNumericToDecimal(totalInterest)
	l.TotalAmount = pgNumericToDecimal(totalAmount)
	l.DisbursedAmount = pgNumericToDecimal(disbursedAmount)
	l.OutstandingPrincipal = pgNumericToDecimal(outstandingPrincipal)
	l.OutstandingInterest = pgNumericToDecimal(outstandingInterest)
	l.TotalCollected = pgNumericToDecimal(totalCollected)
	l.TotalLateFeesPaid = pgNumericToDecimal(totalLateFeesPaid)
	l.TotalPenaltiesPaid = pgNumericToDecimal(totalPenaltiesPaid)
	l.TopUpAmount = pgNumericToDecimal(topUpAmount)

	if customPeriodDays.Valid {
		l.CustomPeriodDays = int(customPeriodDays.Int32)
	}
	if disbursedAt.Valid {
		l.DisbursedAt = &disbursedAt.Time
	}
	if closedAt.Valid {
		l.ClosedAt = &closedAt.Time
	}
	if originalLoanID.Valid {
		id := uuid.UUID(originalLoanID.Bytes)
		l.OriginalLoanID = &id
	}
	l.Remarks = textOrEmpty(remarks)
	return l, nil
}

func (r *LoanRepo) Create(ctx context.Context, l *domain.Loan) (*domain.Loan, error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	principal, err := decimalToPgNumeric(l.Principal)
	if err != nil {
		return nil, err
	}
	annualInterestPercent, _ := decimalToPgNumeric(l.AnnualInterestPercent)
	lateFeeDailyPercent, _ := decimalToPgNumeric(l.LateFeeDailyPercent)
	penaltyPercent, _ := decimalToPgNumeric(l.PenaltyPercent)
	installmentAmount, _ := decimalToPgNumeric(l.InstallmentAmount)
	totalInterest, _ := decimalToPgNumeric(l.TotalInterest)
	totalAmount, _ := decimalToPgNumeric(l.TotalAmount)
	disbursedAmount, _ := decimalToPgNumeric(l.DisbursedAmount)
	outstandingPrincipal, _ := decimalToPgNumeric(l.OutstandingPrincipal)
	outstandingInterest, _ := decimalToPgNumeric(l.OutstandingInterest)
	topUpAmount, _ := decimalToPgNumeric(l.TopUpAmount)

	var originalLoanID pgtype.UUID
	if l.OriginalLoanID != nil {
		originalLoanID = pgtype.UUID{Bytes: *l.OriginalLoanID, Valid: true}
	}
	var customPeriodDays pgtype.Int4
	if l.CustomPeriodDays > 0 {
		customPeriodDays = pgtype.Int4{Int32: int32(l.CustomPeriodDays), Valid: true}
	}

	const q = `
		INSERT INTO loans (
			id, loan_number, customer_id, created_by,
			principal, annual_interest_percent, tenure_installments, frequency, custom_period_days,
			repayment_type, grace_period_days, late_fee_daily_percent, penalty_percent,
			installment_amount, total_interest, total_amount,
			disbursed_amount, start_date, end_date,
			outstanding_principal, outstanding_interest, total_collected, total_late_fees_paid, total_penalties_paid,
			status, original_loan_id, is_top_up, top_up_amount, remarks, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, now(), now()
		) RETURNING created_at, updated_at`

	row := r.db.exec(ctx).QueryRow(ctx, q,
		l.ID, l.LoanNumber, l.CustomerID, l.CreatedBy,
		principal, annualInterestPercent, l.TenureInstallments, l.Frequency, customPeriodDays,
		l.RepaymentType, l.GracePeriodDays, lateFeeDailyPercent, penaltyPercent,
		installmentAmount, totalInterest, totalAmount,
		disbursedAmount, l.StartDate, l.EndDate,
		outstandingPrincipal, outstandingInterest, zeroNumeric(), zeroNumeric(), zeroNumeric(),
		l.Status, originalLoanID, l.IsTopUp, topUpAmount, pgText(l.Remarks),
	)
	if err := row.Scan(&l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return l, nil
}

func zeroNumeric() pgtype.Numeric {
	n, _ := decimalToPgNumeric(decimal.Zero)
	return n
}

func (r *LoanRepo) CreateCharges(ctx context.Context, charges []*domain.LoanCharge) error {
	for _, c := range charges {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		amount, err := decimalToPgNumeric(c.Amount)
		if err != nil {
			return err
		}
		_, err = r.db.exec(ctx).Exec(ctx,
			`INSERT INTO loan_charges (id, loan_id, type, amount) VALUES ($1, $2, $3, $4)`,
			c.ID, c.LoanID, c.Type, amount)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *LoanRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	row := r.db.exec(ctx).QueryRow(ctx, `SELECT `+selectLoanColumns+` FROM loans WHERE id = $1`, id)
	return r.scan(row)
}

// GetByIDForUpdate must run inside Transactor.WithinTx; callers that need the
// ledger-mutating collection/top-up/closure paths acquire this lock before
// reading outstanding balances to prevent two concurrent writers racing on
// the same loan (§4.5, §5).
func (r *LoanRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	row := r.db.exec(ctx).QueryRow(ctx, `SELECT `+selectLoanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id)
	return r.scan(row)
}

// GetNextLoanNumber reserves a monotonically increasing loan number from a
// dedicated sequence, formatted as LN-000001.
func (r *LoanRepo) GetNextLoanNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.db.exec(ctx).QueryRow(ctx, `SELECT nextval('loan_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("LN-%06d", n), nil
}

func (r *LoanRepo) Update(ctx context.Context, l *domain.Loan) error {
	installmentAmount, _ := decimalToPgNumeric(l.InstallmentAmount)
	totalInterest, _ := decimalToPgNumeric(l.TotalInterest)
	totalAmount, _ := decimalToPgNumeric(l.TotalAmount)
	disbursedAmount, _ := decimalToPgNumeric(l.DisbursedAmount)
	outstandingPrincipal, _ := decimalToPgNumeric(l.OutstandingPrincipal)
	outstandingInterest, _ := decimalToPgNumeric(l.OutstandingInterest)
	totalCollected, _ := decimalToPgNumeric(l.TotalCollected)
	totalLateFeesPaid, _ := decimalToPgNumeric(l.TotalLateFeesPaid)
	totalPenaltiesPaid, _ := decimalToPgNumeric(l.TotalPenaltiesPaid)
	topUpAmount, _ := decimalToPgNumeric(l.TopUpAmount)

	var disbursedAt, closedAt pgtype.Timestamptz
	if l.DisbursedAt != nil {
		disbursedAt = pgtype.Timestamptz{Time: *l.DisbursedAt, Valid: true}
	}
	if l.ClosedAt != nil {
		closedAt = pgtype.Timestamptz{Time: *l.ClosedAt, Valid: true}
	}

	const q = `
		UPDATE loans SET
			installment_amount = $2, total_interest = $3, total_amount = $4,
			disbursed_amount = $5, disbursed_at = $6,
			outstanding_principal = $7, outstanding_interest = $8, total_collected = $9,
			total_late_fees_paid = $10, total_penalties_paid = $11,
			status = $12, closed_at = $13, top_up_amount = $14, remarks = $15, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	row := r.db.exec(ctx).QueryRow(ctx, q,
		l.ID, installmentAmount, totalInterest, totalAmount,
		disbursedAmount, disbursedAt,
		outstandingPrincipal, outstandingInterest, totalCollected,
		totalLateFeesPaid, totalPenaltiesPaid,
		l.Status, closedAt, topUpAmount, pgText(l.Remarks),
	)
	if err := row.Scan(&l.UpdatedAt); err != nil {
		return mapNotFound(err, domain.ErrLoanNotFound)
	}
	return nil
}

func (r *LoanRepo) ListCharges(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanCharge, error) {
	rows, err := r.db.exec(ctx).Query(ctx, `SELECT id, loan_id, type, amount FROM loan_charges WHERE loan_id = $1`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.LoanCharge
	for rows.Next() {
		c := &domain.LoanCharge{}
		var amount pgtype.Numeric
		if err := rows.Scan(&c.ID, &c.LoanID, &c.Type, &amount); err != nil {
			return nil, err
		}
		c.Amount = pgNumericToDecimal(amount)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *LoanRepo) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argn := 1

	if filter.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argn)
		args = append(args, *filter.Status)
		argn++
	}
	if filter.CustomerID != nil {
		where += fmt.Sprintf(" AND customer_id = $%d", argn)
		args = append(args, *filter.CustomerID)
		argn++
	}
	if filter.AgentID != nil {
		where += fmt.Sprintf(` AND customer_id IN (SELECT customer_id FROM agent_assignments WHERE agent_id = $%d AND active = true)`, argn)
		args = append(args, *filter.AgentID)
		argn++
	}

	var total int
	if err := r.db.exec(ctx).QueryRow(ctx, `SELECT count(*) FROM loans `+where, args...).Scan(&total); err != nil {
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
	q := fmt.Sprintf(`SELECT %s FROM loans %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, selectLoanColumns, where, argn, argn+1)

	rows, err := r.db.exec(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*domain.Loan
	for rows.Next() {
		l, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func (r *LoanRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.db.exec(ctx).Exec(ctx, `DELETE FROM loans WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrLoanNotPending
	}
	return nil
}
