package calendar

import (
	"github.com/shopspring/decimal"

	"rata/internal/core"
)

// Fixed per-frequency multipliers used to express any cadence as an
// approximate monthly amount. These are budgeting-preview conventions
// (4.33 weeks per month and so on), not scheduling inputs.
var monthlyMultipliers = map[core.Frequency]decimal.Decimal{
	core.Daily:     decimal.NewFromInt(30),
	core.Weekly:    decimal.RequireFromString("4.33"),
	core.Biweekly:  decimal.NewFromInt(2),
	core.Monthly:   decimal.NewFromInt(1),
	core.Bimonthly: decimal.RequireFromString("0.5"),
	core.Quarterly: decimal.RequireFromString("0.333"),
	core.Annual:    decimal.RequireFromString("0.0833"),
}

// EstimateMonthlyEquivalent converts an amount at the given cadence to an
// approximate monthly amount, rounded half-up to whole cents. Used for
// budget previews only; scheduling decisions never depend on it.
func EstimateMonthlyEquivalent(amount core.Money, freq core.Frequency) (core.Money, error) {
	mult, ok := monthlyMultipliers[freq]
	if !ok {
		return core.Money{}, core.ErrInvalidFrequency
	}
	cents := decimal.NewFromInt(amount.Cents).Mul(mult).Round(0)
	return core.Money{Cents: cents.IntPart()}, nil
}
