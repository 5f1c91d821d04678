// Package money holds the fixed-point rules every ledger amount follows.
//
// Amounts are shopspring decimals kept at two decimal places. Rounding is
// half away from zero, which is what decimal.Round does.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits stored for every amount.
const Places = 2

var (
	// Zero is the zero amount.
	Zero = decimal.Zero

	// Cent is the smallest representable amount.
	Cent = decimal.New(1, -Places)

	// SettleTolerance is the magnitude below which a balance counts as settled.
	SettleTolerance = decimal.New(5, -3)

	// SplitTolerance is the allowed gap between an expense total and the sum of its splits.
	SplitTolerance = Cent

	ErrInvalidAmount = errors.New("invalid money amount")
)

// Round rounds d to two decimals, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Sum adds amounts exactly.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// IsSettled reports whether a balance is close enough to zero to be treated as zero.
func IsSettled(balance decimal.Decimal) bool {
	return balance.Abs().LessThan(SettleTolerance)
}

// Normalize rounds a settled balance to exactly zero and every other balance to two decimals.
func Normalize(balance decimal.Decimal) decimal.Decimal {
	if IsSettled(balance) {
		return decimal.Zero
	}
	return Round(balance)
}

// WithinSplitTolerance reports whether two totals differ by less than one cent.
func WithinSplitTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(SplitTolerance)
}

// Parse reads a user-supplied amount string and requires it to fit in two decimals.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !d.Equal(Round(d)) {
		return decimal.Zero, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, Places)
	}
	return d, nil
}

// MustParse is Parse for literals in tests and defaults.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Format renders an amount with exactly two decimals.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
