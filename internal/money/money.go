// Package money centralizes the decimal conventions used across the money
// engine: canonical string round-tripping and the two rounding scales the
// spec distinguishes (amounts vs. rates).
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func init() {
	// 20 decimal places of working precision for intermediate division;
	// final emission always goes through RoundAmount/RoundRate below.
	decimal.DivisionPrecision = 20
}

// AmountScale is the rounding scale for stored/transported money fields.
const AmountScale = 2

// RateScale is the rounding scale for stored/transported rate fields.
const RateScale = 3

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// RoundAmount rounds to the money scale, HALF_UP.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountScale)
}

// RoundRate rounds to the rate scale, HALF_UP.
func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RateScale)
}

// Parse converts a canonical textual amount ("123.45") into a decimal.
// The calculator never sees raw strings; this is the HTTP/repository
// boundary conversion point.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid decimal amount %q: %w", s, err)
	}
	return d, nil
}

// String renders the canonical textual form used on the wire, fixed to the
// money scale.
func String(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}

// RateString renders the canonical textual form for a rate field.
func RateString(d decimal.Decimal) string {
	return d.StringFixed(RateScale)
}

// Max returns the larger of a, b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Min returns the smaller of a, b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
