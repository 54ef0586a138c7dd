package service

import (
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// CommissionCalculator computes the platform fee owed by a seller from the
// final winning bid. It is a pure function of the amount: no state, no side
// effects, the same input always yields the same fee.
type CommissionCalculator struct {
	rate decimal.Decimal // fraction in [0, 1]
}

// NewCommissionCalculator creates a calculator from a percentage rate.
// Rates outside [0, 100] are clamped.
func NewCommissionCalculator(ratePercent float64) *CommissionCalculator {
	rate := decimal.NewFromFloat(ratePercent).Div(oneHundred)
	if rate.IsNegative() {
		rate = decimal.Zero
	}
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		rate = decimal.NewFromInt(1)
	}
	return &CommissionCalculator{rate: rate}
}

// Commission returns the fee in cents for a final bid in cents. The result
// always satisfies 0 <= fee <= finalBid.
func (c *CommissionCalculator) Commission(finalBid int64) int64 {
	if finalBid <= 0 {
		return 0
	}

	fee := decimal.NewFromInt(finalBid).Mul(c.rate).Floor().IntPart()
	if fee < 0 {
		return 0
	}
	if fee > finalBid {
		return finalBid
	}
	return fee
}
