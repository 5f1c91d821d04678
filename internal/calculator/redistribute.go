package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/money"
)

var ErrNoRemainingShares = errors.New("no remaining participants to absorb the share")

// Redistribute spreads an exiting participant's amount over the remaining shares.
//
//   - When the remaining shares sum to a positive R, each share s grows by exiting * s / R.
//   - Otherwise every remaining participant receives exiting / n.
//
// Each new amount is rounded to cents and the residual goes to the largest new
// amount, so the result sums to exactly R + exiting. Input order is preserved.
func Redistribute(exiting decimal.Decimal, remaining []Share) ([]Share, error) {
	if len(remaining) == 0 {
		return nil, ErrNoRemainingShares
	}

	current := make([]decimal.Decimal, len(remaining))
	for i, s := range remaining {
		current[i] = s.Amount
	}
	r := money.Sum(current...)
	target := r.Add(exiting)

	amounts := make([]decimal.Decimal, len(remaining))
	if r.IsPositive() {
		for i, s := range current {
			amounts[i] = money.Round(s.Add(exiting.Mul(s).Div(r)))
		}
	} else {
		each := exiting.Div(decimal.NewFromInt(int64(len(remaining))))
		for i, s := range current {
			amounts[i] = money.Round(s.Add(each))
		}
	}

	correctResidual(amounts, target)
	if got := money.Sum(amounts...); !got.Equal(target) {
		return nil, fmt.Errorf("%w: redistributed %s, expected %s", ErrInconsistentTotal, got, target)
	}

	out := make([]Share, len(remaining))
	for i, s := range remaining {
		out[i] = Share{UserID: s.UserID, Amount: amounts[i]}
	}
	return out, nil
}
