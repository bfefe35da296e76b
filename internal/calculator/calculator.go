// Package calculator holds the money engine's pure functions: installment
// amount, amortization schedule, outstanding-after-k, preclosure, late fee,
// penalty, top-up recomputation, overdue days, and collection allocation.
// Every function here is free of shared state and side effects — no repo,
// no clock other than what's passed in — mirroring the amortization walk in
// jiangshenghai57-andy-warhol's amortization package, generalized from a
// single monthly-mortgage case to the full frequency/repayment-type matrix
// and ported from float64 to shopspring/decimal with HALF_UP rounding.
package calculator

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/money"
)

// Terms is the set of inputs that determine an installment amount and a
// schedule; it is the calculator's only view of a loan, never the full
// domain.Loan record.
type Terms struct {
	Principal             decimal.Decimal
	AnnualInterestPercent  decimal.Decimal
	TenureInstallments     int
	Frequency              domain.Frequency
	CustomPeriodDays       int
	RepaymentType          domain.RepaymentType
	StartDate              time.Time
}

// periodicRate returns r = (annual-percent/100) / installments-per-year.
func periodicRate(t Terms) (decimal.Decimal, error) {
	perYear, err := t.Frequency.InstallmentsPerYear(t.CustomPeriodDays)
	if err != nil {
		return decimal.Zero, err
	}
	return t.AnnualInterestPercent.Div(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(perYear))), nil
}

// powInt computes base^n for a non-negative integer exponent by repeated
// decimal multiplication; tenure is bounded (≤ 1000) so this stays cheap and
// avoids relying on a fractional-exponent Pow implementation for something
// that is always an integer power here.
func powInt(base decimal.Decimal, n int) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for i := 0; i < n; i++ {
		result = result.Mul(base)
	}
	return result
}

// ValidateTerms enforces §4.1's precondition list.
func ValidateTerms(t Terms) error {
	if t.Principal.LessThanOrEqual(decimal.Zero) {
		return domain.ErrInvalidTerms
	}
	if t.TenureInstallments <= 0 {
		return domain.ErrInvalidTerms
	}
	if t.AnnualInterestPercent.LessThan(decimal.Zero) || t.AnnualInterestPercent.GreaterThan(decimal.NewFromInt(100)) {
		return domain.ErrInvalidTerms
	}
	if !domain.IsValidFrequency(t.Frequency) {
		return domain.ErrInvalidTerms
	}
	if t.Frequency == domain.FrequencyCustom && t.CustomPeriodDays < 1 {
		return domain.ErrInvalidTerms
	}
	if !domain.IsValidRepaymentType(t.RepaymentType) {
		return domain.ErrInvalidTerms
	}
	return nil
}

// InstallmentAmount computes the periodic payment per §4.1. For EMI and
// reducing-balance it is the standard amortization payment; for
// interest-only and bullet it is the first period's total due (principal is
// repaid separately, in full on the final schedule row, for both).
func InstallmentAmount(t Terms) (decimal.Decimal, error) {
	if err := ValidateTerms(t); err != nil {
		return decimal.Zero, err
	}
	r, err := periodicRate(t)
	if err != nil {
		return decimal.Zero, err
	}
	n := t.TenureInstallments

	switch t.RepaymentType {
	case domain.RepaymentInterestOnly, domain.RepaymentBullet:
		return money.RoundAmount(t.Principal.Mul(r)), nil
	case domain.RepaymentReducingBalance:
		perInstallmentPrincipal := t.Principal.Div(decimal.NewFromInt(int64(n)))
		firstInterest := t.Principal.Mul(r)
		return money.RoundAmount(perInstallmentPrincipal.Add(firstInterest)), nil
	default: // EMI
		if r.IsZero() {
			return money.RoundAmount(t.Principal.Div(decimal.NewFromInt(int64(n)))), nil
		}
		if n == 1 {
			return money.RoundAmount(t.Principal.Mul(decimal.NewFromInt(1).Add(r))), nil
		}
		factor := powInt(decimal.NewFromInt(1).Add(r), n)
		numerator := t.Principal.Mul(r).Mul(factor)
		denominator := factor.Sub(decimal.NewFromInt(1))
		return money.RoundAmount(numerator.Div(denominator)), nil
	}
}

// TotalInterest = installment * tenure - principal, for the EMI/
// reducing-balance shape. LoanService stores this value as the loan's
// TotalInterest; the per-row interest from GenerateSchedule is stored only on
// the schedule rows.
func TotalInterest(installment decimal.Decimal, tenure int, principal decimal.Decimal) decimal.Decimal {
	return money.RoundAmount(installment.Mul(decimal.NewFromInt(int64(tenure))).Sub(principal))
}

// advanceDueDate advances start by n periods: calendar arithmetic for
// monthly/quarterly/half-yearly/yearly, day arithmetic otherwise.
func advanceDueDate(start time.Time, frequency domain.Frequency, customPeriodDays, n int) time.Time {
	switch frequency {
	case domain.FrequencyMonthly:
		return start.AddDate(0, n, 0)
	case domain.FrequencyQuarterly:
		return start.AddDate(0, 3*n, 0)
	case domain.FrequencyHalfYearly:
		return start.AddDate(0, 6*n, 0)
	case domain.FrequencyYearly:
		return start.AddDate(n, 0, 0)
	case domain.FrequencyDaily:
		return start.AddDate(0, 0, n)
	case domain.FrequencyWeekly:
		return start.AddDate(0, 0, 7*n)
	case domain.FrequencyCustom:
		return start.AddDate(0, 0, customPeriodDays*n)
	default:
		return start.AddDate(0, 0, n)
	}
}

// GenerateSchedule walks the amortization table per §4.1, never rounding
// intermediate state, only the per-row emission. Postcondition: sum of
// PrincipalDue across all rows equals Principal exactly.
func GenerateSchedule(t Terms, installment decimal.Decimal) ([]*domain.ScheduleRow, error) {
	if err := ValidateTerms(t); err != nil {
		return nil, err
	}
	r, err := periodicRate(t)
	if err != nil {
		return nil, err
	}

	n := t.TenureInstallments
	rows := make([]*domain.ScheduleRow, 0, n)
	outstanding := t.Principal

	for i := 1; i <= n; i++ {
		last := i == n
		var principalDue, interestDue decimal.Decimal

		switch t.RepaymentType {
		case domain.RepaymentInterestOnly:
			interestDue = money.RoundAmount(outstanding.Mul(r))
			if last {
				principalDue = outstanding
			} else {
				principalDue = decimal.Zero
			}
		case domain.RepaymentBullet:
			interestDue = money.RoundAmount(outstanding.Mul(r))
			if last {
				principalDue = outstanding
			} else {
				principalDue = decimal.Zero
			}
		case domain.RepaymentReducingBalance:
			interestDue = money.RoundAmount(outstanding.Mul(r))
			if last {
				principalDue = outstanding
			} else {
				principalDue = money.RoundAmount(t.Principal.Div(decimal.NewFromInt(int64(n))))
			}
		default: // EMI
			interestDue = money.RoundAmount(outstanding.Mul(r))
			if last {
				principalDue = outstanding
			} else {
				principalDue = installment.Sub(interestDue)
			}
		}

		if principalDue.GreaterThan(outstanding) {
			principalDue = outstanding
		}
		if principalDue.LessThan(decimal.Zero) {
			principalDue = decimal.Zero
		}

		totalDue := principalDue.Add(interestDue)
		outstanding = money.Max(decimal.Zero, outstanding.Sub(principalDue))

		rows = append(rows, &domain.ScheduleRow{
			InstallmentNumber:  i,
			DueDate:            advanceDueDate(t.StartDate, t.Frequency, t.CustomPeriodDays, i),
			PrincipalDue:       principalDue,
			InterestDue:        interestDue,
			TotalDue:           totalDue,
			OutstandingBalance: outstanding,
		})
	}

	return rows, nil
}

// OutstandingAfterK returns the outstanding-principal balance after k
// installments have been fully paid on-schedule. k >= tenure yields zero; k
// < 0 is an error.
func OutstandingAfterK(t Terms, installment decimal.Decimal, k int) (decimal.Decimal, error) {
	if k < 0 {
		return decimal.Zero, domain.ErrInvalidTerms
	}
	if k >= t.TenureInstallments {
		return decimal.Zero, nil
	}
	if k == 0 {
		return t.Principal, nil
	}
	rows, err := GenerateSchedule(t, installment)
	if err != nil {
		return decimal.Zero, err
	}
	return rows[k-1].OutstandingBalance, nil
}

// EndDate returns the due date of the final installment, used to stamp a
// loan's end-date at creation/top-up time without generating the full schedule.
func EndDate(t Terms) time.Time {
	return advanceDueDate(t.StartDate, t.Frequency, t.CustomPeriodDays, t.TenureInstallments)
}

// PreclosureAmount = outstanding-principal + accrued-interest-for-current-
// period + penalty. Remaining scheduled interest is waived.
func PreclosureAmount(outstandingPrincipal, accruedInterest, preclosurePenaltyPercent decimal.Decimal) decimal.Decimal {
	penalty := money.RoundAmount(outstandingPrincipal.Mul(preclosurePenaltyPercent).Div(decimal.NewFromInt(100)))
	return money.RoundAmount(outstandingPrincipal.Add(accruedInterest).Add(penalty))
}

// OverdueDaysWithGrace: 0 if today <= dueDate; otherwise the ceil of whole
// days past due date, minus grace, floored at 0.
func OverdueDaysWithGrace(today, dueDate time.Time, graceDays int) int {
	if !today.After(dueDate) {
		return 0
	}
	elapsed := today.Sub(dueDate)
	day := 24 * time.Hour
	diffDays := int(elapsed / day)
	if elapsed%day != 0 {
		diffDays++
	}
	overdue := diffDays - graceDays
	if overdue < 0 {
		return 0
	}
	return overdue
}

// LateFee = base * dailyRatePercent/100 * overdueDays, optionally capped.
func LateFee(base, dailyRatePercent decimal.Decimal, overdueDays int, cap *decimal.Decimal) decimal.Decimal {
	fee := base.Mul(dailyRatePercent).Div(decimal.NewFromInt(100)).Mul(decimal.NewFromInt(int64(overdueDays)))
	fee = money.RoundAmount(fee)
	if cap != nil && fee.GreaterThan(*cap) {
		return *cap
	}
	return fee
}

// Penalty is either a flat amount (percent == nil) or percent-of-base.
func Penalty(base decimal.Decimal, percent *decimal.Decimal, flat decimal.Decimal) decimal.Decimal {
	if percent == nil {
		return money.RoundAmount(flat)
	}
	return money.RoundAmount(base.Mul(*percent).Div(decimal.NewFromInt(100)))
}

// TopUpResult is the output of TopUpRecompute.
type TopUpResult struct {
	NewPrincipal         decimal.Decimal
	NewInstallment       decimal.Decimal
	IncrementInEMI       decimal.Decimal
	DisbursedToCustomer  decimal.Decimal
}

// TopUpRecompute implements §4.1's top-up formula.
func TopUpRecompute(outstandingPrincipal, topUpAmount decimal.Decimal, newTerms Terms, previousInstallment decimal.Decimal, newCharges decimal.Decimal) (*TopUpResult, error) {
	newPrincipal := outstandingPrincipal.Add(topUpAmount)
	terms := newTerms
	terms.Principal = newPrincipal
	newInstallment, err := InstallmentAmount(terms)
	if err != nil {
		return nil, err
	}
	disbursed := topUpAmount.Sub(newCharges)
	if disbursed.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrChargesExceedPrincipal
	}
	return &TopUpResult{
		NewPrincipal:        newPrincipal,
		NewInstallment:      newInstallment,
		IncrementInEMI:      money.RoundAmount(newInstallment.Sub(previousInstallment)),
		DisbursedToCustomer: money.RoundAmount(disbursed),
	}, nil
}

// Allocation is the result of priority-ordered collection allocation.
type Allocation struct {
	FeePaid       decimal.Decimal
	PenaltyPaid   decimal.Decimal
	InterestPaid  decimal.Decimal
	PrincipalPaid decimal.Decimal
	Remainder     decimal.Decimal
}

// Outstanding is the set of unpaid buckets a collection is allocated
// against, in priority order: fees, penalties, interest, principal.
type Outstanding struct {
	UnpaidFees      decimal.Decimal
	UnpaidPenalties decimal.Decimal
	Interest        decimal.Decimal
	Principal       decimal.Decimal
}

func (o Outstanding) Total() decimal.Decimal {
	return o.UnpaidFees.Add(o.UnpaidPenalties).Add(o.Interest).Add(o.Principal)
}

// Allocate runs the strictly-monotone priority allocator described in
// §4.1/§4.5, grounded on the pawnshop payment_service.go bucket-consumption
// idiom (fees -> interest -> principal there; generalized here to the
// spec's four-bucket fees -> penalties -> interest -> principal law).
// amount must not exceed o.Total(); callers check that first and return
// domain.ErrOverpayment rather than calling Allocate.
func Allocate(amount decimal.Decimal, o Outstanding) Allocation {
	remaining := amount
	var alloc Allocation

	take := func(bucket decimal.Decimal) decimal.Decimal {
		consumed := money.Min(remaining, bucket)
		remaining = remaining.Sub(consumed)
		return consumed
	}

	alloc.FeePaid = take(o.UnpaidFees)
	alloc.PenaltyPaid = take(o.UnpaidPenalties)
	alloc.InterestPaid = take(o.Interest)
	alloc.PrincipalPaid = take(o.Principal)
	alloc.Remainder = remaining
	return alloc
}
