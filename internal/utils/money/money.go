// Package money converts between major currency units (rupees, as shown to
// users) and the minor units (paise) the ledger stores. The conversion lives
// at the HTTP boundary only; everything below it works on int64 minor units.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// minorPerMajor is the number of minor units in one major unit.
var minorPerMajor = decimal.NewFromInt(100)

// ToMinor converts a major-unit amount to minor units. Amounts with
// sub-minor precision are rejected rather than silently rounded.
func ToMinor(major decimal.Decimal) (int64, error) {
	shifted := major.Mul(minorPerMajor)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-paisa precision", major.String())
	}
	return shifted.IntPart(), nil
}

// ToMajor converts minor units to a major-unit decimal.
func ToMajor(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(minorPerMajor)
}
