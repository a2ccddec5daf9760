package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNTS - Currency values are decimal; never rounded before summation
// =============================================================================

// Fraction returns part/whole at millisecond resolution.
// A non-positive whole yields zero.
func Fraction(part, whole time.Duration) decimal.Decimal {
	if whole <= 0 || part <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part.Milliseconds()).Div(decimal.NewFromInt(whole.Milliseconds()))
}

// Sum adds amounts in order.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
