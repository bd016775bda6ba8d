// Package money converts between integer minor units, the storage and wire
// representation, and decimal display amounts.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const minorExponent = 2

// Cents is an amount in minor currency units.
type Cents int64

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -minorExponent)
}

// Display renders the amount with exactly two fraction digits, e.g. "12.30".
func (c Cents) Display() string {
	return c.Decimal().StringFixed(minorExponent)
}

// FromDecimal converts a major-unit amount to minor units, rounding half away from zero.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Shift(minorExponent).Round(0).IntPart())
}

// Parse reads a major-unit string such as "12.3" into minor units.
func Parse(value string) (Cents, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return FromDecimal(d), nil
}

// FeeSplit splits a total into the platform fee (basis points, rounded down)
// and the seller income. The two parts always sum to the total.
func FeeSplit(total Cents, feeBPS int) (fee Cents, income Cents) {
	if total <= 0 || feeBPS <= 0 {
		return 0, total
	}
	raw := decimal.NewFromInt(int64(total)).
		Mul(decimal.NewFromInt(int64(feeBPS))).
		Div(decimal.NewFromInt(10000)).
		Floor()
	fee = Cents(raw.IntPart())
	return fee, total - fee
}
