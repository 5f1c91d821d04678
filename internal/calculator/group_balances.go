package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// MemberBalance represents the balance information for one group member.
type MemberBalance struct {
	UserID     string
	NetBalance decimal.Decimal // Positive = owed money, Negative = owes money
	TotalPaid  decimal.Decimal // Expenses paid plus payments sent
	TotalOwed  decimal.Decimal // Split shares plus payments received
}

// DebtEdge represents a suggested payment from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}

// CalculateGroupBalances computes member balances across expenses and payments
// and a greedy settle-up plan.
//
// Algorithm:
//   - For each expense: payer contributed +amount, each split owner owes their split
//   - For each payment: payer's balance improves, payee's balance decreases
//   - net_balance = total_paid - total_owed
//   - Settle-up: largest debtor pays largest creditor until one side is zero
//
// Members with no activity are still reported when listed in members.
// Output is sorted by user id so results are deterministic.
func CalculateGroupBalances(members []string, expenses []models.Expense, payments []models.Payment) ([]MemberBalance, []DebtEdge) {
	balances := make(map[string]*MemberBalance)
	get := func(id string) *MemberBalance {
		b, ok := balances[id]
		if !ok {
			b = &MemberBalance{UserID: id, TotalPaid: decimal.Zero, TotalOwed: decimal.Zero}
			balances[id] = b
		}
		return b
	}
	for _, m := range members {
		get(m)
	}

	for i := range expenses {
		e := &expenses[i]
		payer := get(e.PaidBy)
		payer.TotalPaid = payer.TotalPaid.Add(e.Amount)
		for _, s := range e.Splits {
			owner := get(s.UserID)
			owner.TotalOwed = owner.TotalOwed.Add(s.Amount)
		}
	}

	for _, p := range payments {
		from := get(p.PayerID)
		from.TotalPaid = from.TotalPaid.Add(p.Amount)
		to := get(p.PayeeID)
		to.TotalOwed = to.TotalOwed.Add(p.Amount)
	}

	memberBalances := make([]MemberBalance, 0, len(balances))
	for _, b := range balances {
		b.NetBalance = money.Normalize(b.TotalPaid.Sub(b.TotalOwed))
		memberBalances = append(memberBalances, *b)
	}
	sort.Slice(memberBalances, func(i, j int) bool {
		return memberBalances[i].UserID < memberBalances[j].UserID
	})

	return memberBalances, SettleUp(memberBalances)
}

// SettleUp matches debtors with creditors, largest first, to minimize the number of payments.
func SettleUp(balances []MemberBalance) []DebtEdge {
	type position struct {
		id     string
		amount decimal.Decimal
	}
	var creditors, debtors []position
	for _, b := range balances {
		switch {
		case money.IsSettled(b.NetBalance):
		case b.NetBalance.IsPositive():
			creditors = append(creditors, position{b.UserID, b.NetBalance})
		default:
			debtors = append(debtors, position{b.UserID, b.NetBalance.Neg()})
		}
	}
	byAmount := func(ps []position) func(i, j int) bool {
		return func(i, j int) bool {
			if c := ps[i].amount.Cmp(ps[j].amount); c != 0 {
				return c > 0
			}
			return ps[i].id < ps[j].id
		}
	}
	sort.Slice(creditors, byAmount(creditors))
	sort.Slice(debtors, byAmount(debtors))

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)
		if !money.IsSettled(amount) {
			edges = append(edges, DebtEdge{
				From:   debtors[i].id,
				To:     creditors[j].id,
				Amount: money.Round(amount),
			})
		}

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)

		if money.IsSettled(debtors[i].amount) {
			i++
		}
		if money.IsSettled(creditors[j].amount) {
			j++
		}
	}

	return edges
}
