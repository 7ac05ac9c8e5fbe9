package cart

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var maxQuantity = decimal.NewFromInt(math.MaxInt)

// ParseQuantity reads a quantity from loosely typed input. Anything that is
// not a number, is negative, or does not fit in an int yields 0. Fractions
// are truncated.
func ParseQuantity(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return max(n, 0)
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0
	}
	d = d.Truncate(0)
	if d.GreaterThan(maxQuantity) {
		return 0
	}
	return int(d.IntPart())
}

// ParsePrice reads a unit price from loosely typed input, such as prices
// stored as strings by older writers. Malformed or negative values yield 0.
func ParsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}
