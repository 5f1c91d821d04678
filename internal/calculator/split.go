package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

var (
	ErrNoParticipants    = errors.New("must have at least one participant")
	ErrInvalidSplitPlan  = errors.New("invalid split plan")
	ErrInconsistentTotal = errors.New("split amounts do not add up to the total")
)

// Share is one participant's amount of an expense.
type Share struct {
	UserID string
	Amount decimal.Decimal
}

// PlanEntry is one participant's input to a split plan. Value means an
// amount for EXACT, a percentage for PERCENTAGE, a weight for SHARES and a
// signed adjustment for ADJUSTMENT. It is ignored for EQUAL.
type PlanEntry struct {
	UserID string
	Value  decimal.Decimal
}

// PlanSplits computes each participant's share of total according to splitType.
// The returned shares are rounded to cents and always sum to total exactly;
// the rounding residual goes to the largest share.
func PlanSplits(total decimal.Decimal, splitType models.SplitType, plan []PlanEntry) ([]Share, error) {
	if len(plan) == 0 {
		return nil, ErrNoParticipants
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("%w: total must be positive, got %s", ErrInvalidSplitPlan, total)
	}
	if !total.Equal(money.Round(total)) {
		return nil, fmt.Errorf("%w: total %s has more than %d decimals", ErrInvalidSplitPlan, total, money.Places)
	}
	seen := make(map[string]struct{}, len(plan))
	for _, p := range plan {
		if p.UserID == "" {
			return nil, fmt.Errorf("%w: empty participant id", ErrInvalidSplitPlan)
		}
		if _, dup := seen[p.UserID]; dup {
			return nil, fmt.Errorf("%w: duplicate participant %s", ErrInvalidSplitPlan, p.UserID)
		}
		seen[p.UserID] = struct{}{}
	}

	var amounts []decimal.Decimal
	switch splitType {
	case models.SplitEqual, "":
		amounts = equalCents(total, len(plan))

	case models.SplitExact:
		amounts = make([]decimal.Decimal, len(plan))
		for i, p := range plan {
			if p.Value.IsNegative() {
				return nil, fmt.Errorf("%w: negative amount for %s", ErrInvalidSplitPlan, p.UserID)
			}
			amounts[i] = money.Round(p.Value)
		}
		if !money.WithinSplitTolerance(money.Sum(amounts...), total) {
			return nil, fmt.Errorf("%w: exact amounts sum to %s, expected %s",
				ErrInconsistentTotal, money.Format(money.Sum(amounts...)), money.Format(total))
		}

	case models.SplitPercentage:
		weights, err := nonNegativeWeights(plan)
		if err != nil {
			return nil, err
		}
		if !money.Sum(weights...).Equal(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("%w: percentages sum to %s, expected 100", ErrInvalidSplitPlan, money.Sum(weights...))
		}
		amounts = proportional(total, weights)

	case models.SplitShares:
		weights, err := nonNegativeWeights(plan)
		if err != nil {
			return nil, err
		}
		if !money.Sum(weights...).IsPositive() {
			return nil, fmt.Errorf("%w: shares must not all be zero", ErrInvalidSplitPlan)
		}
		amounts = proportional(total, weights)

	case models.SplitAdjustment:
		adjusted := decimal.Zero
		for _, p := range plan {
			adjusted = adjusted.Add(money.Round(p.Value))
		}
		base := equalCents(total.Sub(adjusted), len(plan))
		amounts = make([]decimal.Decimal, len(plan))
		for i, p := range plan {
			amounts[i] = base[i].Add(money.Round(p.Value))
			if amounts[i].IsNegative() {
				return nil, fmt.Errorf("%w: adjustment leaves %s with a negative share", ErrInvalidSplitPlan, p.UserID)
			}
		}

	default:
		return nil, fmt.Errorf("%w: unknown split type %q", ErrInvalidSplitPlan, splitType)
	}

	correctResidual(amounts, total)
	if !money.Sum(amounts...).Equal(total) {
		return nil, ErrInconsistentTotal
	}

	shares := make([]Share, len(plan))
	for i, p := range plan {
		shares[i] = Share{UserID: p.UserID, Amount: amounts[i]}
	}
	return shares, nil
}

func nonNegativeWeights(plan []PlanEntry) ([]decimal.Decimal, error) {
	weights := make([]decimal.Decimal, len(plan))
	for i, p := range plan {
		if p.Value.IsNegative() {
			return nil, fmt.Errorf("%w: negative value for %s", ErrInvalidSplitPlan, p.UserID)
		}
		weights[i] = p.Value
	}
	return weights, nil
}

// equalCents divides total into n cent amounts that differ by at most one cent.
// Leading entries take the extra cents.
func equalCents(total decimal.Decimal, n int) []decimal.Decimal {
	cents := total.Shift(money.Places).IntPart()
	base := cents / int64(n)
	rem := cents % int64(n)
	out := make([]decimal.Decimal, n)
	for i := range out {
		c := base
		switch {
		case int64(i) < rem:
			c++
		case rem < 0 && int64(i) < -rem:
			c--
		}
		out[i] = decimal.New(c, -money.Places)
	}
	return out
}

// proportional divides total by weights and rounds each part to cents.
func proportional(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	sum := money.Sum(weights...)
	out := make([]decimal.Decimal, len(weights))
	for i, w := range weights {
		out[i] = money.Round(total.Mul(w).Div(sum))
	}
	return out
}

// correctResidual adds target minus the sum of amounts to the largest amount,
// the first one on ties.
func correctResidual(amounts []decimal.Decimal, target decimal.Decimal) {
	if len(amounts) == 0 {
		return
	}
	residual := target.Sub(money.Sum(amounts...))
	if residual.IsZero() {
		return
	}
	largest := 0
	for i := 1; i < len(amounts); i++ {
		if amounts[i].GreaterThan(amounts[largest]) {
			largest = i
		}
	}
	amounts[largest] = amounts[largest].Add(residual)
}
