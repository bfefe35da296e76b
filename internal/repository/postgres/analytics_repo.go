package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/namma-finance/ledger-core/internal/domain"
)

// analyticsTruncUnits whitelists the values AnalyticsRepository.TrendBuckets
// accepts; AnalyticsService maps a request's period to one of these before
// calling in, so this is a defensive second check rather than the only one.
var analyticsTruncUnits = map[string]bool{
	"hour": true, "day": true, "week": true, "month": true,
}

// AnalyticsRepo implements domain.AnalyticsRepository with aggregate SQL
// against the loans/collections tables, grounded on the teacher's
// LoanService.GetTrend month-bucketing idiom (loan_service.go) but pushed
// down into the database instead of walked in Go, since the teacher's own
// trend data source (GetTrendRaw) was never implemented.
type AnalyticsRepo struct {
	db *DB
}

func NewAnalyticsRepo(db *DB) *AnalyticsRepo {
	return &AnalyticsRepo{db: db}
}

func (r *AnalyticsRepo) CountLoansByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	rows, err := r.db.exec(ctx).Query(ctx, `SELECT status, count(*) FROM loans GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.StatusCount{}
	for rows.Next() {
		var sc domain.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (r *AnalyticsRepo) SumOutstanding(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	var principal, interest pgtype.Numeric
	err := r.db.exec(ctx).QueryRow(ctx, `
		SELECT coalesce(sum(outstanding_principal), 0), coalesce(sum(outstanding_interest), 0)
		FROM loans WHERE status = 'active'`).Scan(&principal, &interest)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return pgNumericToDecimal(principal), pgNumericToDecimal(interest), nil
}

func (r *AnalyticsRepo) SumDisbursedInRange(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := r.db.exec(ctx).QueryRow(ctx, `
		SELECT coalesce(sum(disbursed_amount), 0) FROM loans
		WHERE disbursed_at IS NOT NULL AND disbursed_at >= $1 AND disbursed_at < $2`,
		start, end).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return pgNumericToDecimal(sum), nil
}

func (r *AnalyticsRepo) SumCollectedInRange(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := r.db.exec(ctx).QueryRow(ctx, `
		SELECT coalesce(sum(amount), 0) FROM collections
		WHERE collection_date >= $1 AND collection_date < $2`,
		start, end).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return pgNumericToDecimal(sum), nil
}

// TrendBuckets aggregates disbursements and collections separately, each
// keyed by its own date_trunc'd bucket, and full-outer-joins them so a
// bucket with activity on only one side still appears with a zero on the
// other, matching the teacher's gap-filled month range (generateMonthRange
// in loan_service.go) without walking the range in Go.
func (r *AnalyticsRepo) TrendBuckets(ctx context.Context, start, end time.Time, truncUnit string) ([]domain.TrendPoint, error) {
	if !analyticsTruncUnits[truncUnit] {
		return nil, fmt.Errorf("analytics: unsupported trend bucket unit %q", truncUnit)
	}

	rows, err := r.db.exec(ctx).Query(ctx, `
		WITH disb AS (
			SELECT date_trunc($3, disbursed_at) AS bucket, sum(disbursed_amount) AS total
			FROM loans
			WHERE disbursed_at IS NOT NULL AND disbursed_at >= $1 AND disbursed_at < $2
			GROUP BY bucket
		), coll AS (
			SELECT date_trunc($3, collection_date) AS bucket, sum(amount) AS total
			FROM collections
			WHERE collection_date >= $1 AND collection_date < $2
			GROUP BY bucket
		)
		SELECT coalesce(disb.bucket, coll.bucket) AS bucket,
		       coalesce(disb.total, 0) AS disbursed,
		       coalesce(coll.total, 0) AS collected
		FROM disb
		FULL OUTER JOIN coll ON disb.bucket = coll.bucket
		ORDER BY bucket`, start, end, truncUnit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.TrendPoint{}
	for rows.Next() {
		var bucket time.Time
		var disbursed, collected pgtype.Numeric
		if err := rows.Scan(&bucket, &disbursed, &collected); err != nil {
			return nil, err
		}
		out = append(out, domain.TrendPoint{
			BucketStart: bucket,
			Disbursed:   pgNumericToDecimal(disbursed),
			Collected:   pgNumericToDecimal(collected),
		})
	}
	return out, rows.Err()
}
