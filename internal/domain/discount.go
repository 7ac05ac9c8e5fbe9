package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DiscountPercent returns how many percent current is below previous.
// Whole results are returned as is, anything else is rounded to 2 decimals.
func DiscountPercent(current, previous decimal.Decimal) decimal.Decimal {
	if !previous.IsPositive() || current.GreaterThanOrEqual(previous) {
		return decimal.Zero
	}

	pct := previous.Sub(current).Div(previous).Mul(hundred)
	if pct.IsInteger() {
		return pct
	}
	return pct.Round(2)
}
