// Package money converts between decimal currency units, as stored on
// restaurants and orders, and the integer subunits the payment provider uses.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var subunitsPerUnit = decimal.NewFromInt(100)

// ToSubunits converts an amount in currency units to subunits, rounding half
// away from zero. 150.00 becomes 15000 and 19.99 becomes 1999.
func ToSubunits(amount float64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("money: negative amount %v", amount)
	}
	return decimal.NewFromFloat(amount).Mul(subunitsPerUnit).Round(0).IntPart(), nil
}

// FromSubunits converts provider subunits back to currency units.
func FromSubunits(subunits int64) float64 {
	f, _ := decimal.NewFromInt(subunits).Div(subunitsPerUnit).Float64()
	return f
}
