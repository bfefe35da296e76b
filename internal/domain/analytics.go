package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StatusCount is one bucket of AnalyticsSummary.LoansByStatus.
type StatusCount struct {
	Status LoanStatus `json:"status"`
	Count  int        `json:"count"`
}

// TrendPoint is one bucketed interval of the GET /analytics trend, mirroring
// the teacher's month-bucketed TrendMonthResponse but generalized to any of
// the spec's period granularities.
type TrendPoint struct {
	BucketStart time.Time       `json:"bucketStart"`
	Disbursed   decimal.Decimal `json:"disbursed"`
	Collected   decimal.Decimal `json:"collected"`
}

// AnalyticsSummary is the GET /analytics response body: point-in-time
// totals plus a trend broken into the requested period's buckets.
type AnalyticsSummary struct {
	RangeStart                time.Time       `json:"rangeStart"`
	RangeEnd                  time.Time       `json:"rangeEnd"`
	LoansByStatus             []StatusCount   `json:"loansByStatus"`
	TotalOutstandingPrincipal decimal.Decimal `json:"totalOutstandingPrincipal"`
	TotalOutstandingInterest  decimal.Decimal `json:"totalOutstandingInterest"`
	TotalDisbursed            decimal.Decimal `json:"totalDisbursed"`
	TotalCollected            decimal.Decimal `json:"totalCollected"`
	Trend                     []TrendPoint    `json:"trend"`
}

// AnalyticsRepository aggregates across loans and collections for a date
// range. Unlike the per-aggregate repositories, it has no corresponding
// domain entity of its own: it exists purely to back AnalyticsService with
// SQL-side aggregation instead of pulling whole tables into the service.
type AnalyticsRepository interface {
	CountLoansByStatus(ctx context.Context) ([]StatusCount, error)
	SumOutstanding(ctx context.Context) (principal, interest decimal.Decimal, err error)
	SumDisbursedInRange(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	SumCollectedInRange(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	// TrendBuckets returns one (disbursed, collected) pair per bucket,
	// bucketed with Postgres date_trunc(truncUnit, ...); truncUnit is one
	// of "hour", "day", "week", "month" per AnalyticsService's period-to-
	// granularity mapping.
	TrendBuckets(ctx context.Context, start, end time.Time, truncUnit string) ([]TrendPoint, error)
}
