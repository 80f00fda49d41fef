package payment

import "github.com/shopspring/decimal"

var (
	feeThreshold = decimal.NewFromInt(500)
	feeHigh      = decimal.NewFromInt(100)
	feeLow       = decimal.NewFromInt(50)

	// CommissionRate is the platform share of a service payment.
	CommissionRate = decimal.NewFromFloat(0.10)
)

// Fee is the mediation fee for a job budget: 100 when the lower bound is
// above 500, 50 when the upper bound is at most 500, otherwise nothing.
func Fee(budgetMin, budgetMax decimal.NullDecimal) decimal.Decimal {
	if budgetMin.Valid && budgetMin.Decimal.GreaterThan(feeThreshold) {
		return feeHigh
	}
	if budgetMax.Valid && budgetMax.Decimal.LessThanOrEqual(feeThreshold) {
		return feeLow
	}
	return decimal.Zero
}

// Split returns the commission and the fundi's share of amount.
func Split(amount decimal.Decimal) (commission, fundiAmount decimal.Decimal) {
	commission = amount.Mul(CommissionRate).Round(2)
	return commission, amount.Sub(commission)
}
