package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
)

// ComputeBalance returns what userB owes userA: positive when B owes A,
// negative when A owes B.
//
// Without a group the balance covers personal rows and rows of active groups.
// Naming a group restricts it to that group, which also works for a
// soft-deleted group during its retention window.
func (e *Engine) ComputeBalance(ctx context.Context, userA, userB, groupID string) (_ decimal.Decimal, err error) {
	const op = "compute balance"
	start := time.Now()
	defer func() { e.metrics.ObserveOperation(op, start, err) }()

	for _, id := range []string{userA, userB} {
		if err := requireUser(ctx, e.store, op, id); err != nil {
			return decimal.Zero, classify(op, err)
		}
	}

	scope := calculator.AllRows()
	if groupID != "" {
		if _, err := loadGroup(ctx, e.store, op, groupID); err != nil {
			return decimal.Zero, classify(op, err)
		}
		scope = calculator.InGroup(groupID)
	}

	expenses, err := e.store.ListExpensesBetween(ctx, userA, userB, groupID)
	if err != nil {
		return decimal.Zero, classify(op, err)
	}
	payments, err := e.store.ListPaymentsBetween(ctx, userA, userB, groupID)
	if err != nil {
		return decimal.Zero, classify(op, err)
	}

	return calculator.Balance(userA, userB, expenses, payments, scope), nil
}

// GroupBalanceReport is every member's net position in a group plus the
// payments that would settle the group.
type GroupBalanceReport struct {
	GroupID     string
	Balances    []calculator.MemberBalance
	Settlements []calculator.DebtEdge
}

// GroupBalances computes net balances and settle-up suggestions for a group.
func (e *Engine) GroupBalances(ctx context.Context, groupID string) (_ *GroupBalanceReport, err error) {
	const op = "group balances"
	start := time.Now()
	defer func() { e.metrics.ObserveOperation(op, start, err) }()

	if _, err := loadGroup(ctx, e.store, op, groupID); err != nil {
		return nil, classify(op, err)
	}

	members, err := e.store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, classify(op, err)
	}
	expenses, err := e.store.ListExpensesByGroup(ctx, groupID)
	if err != nil {
		return nil, classify(op, err)
	}
	payments, err := e.store.ListPaymentsByGroup(ctx, groupID)
	if err != nil {
		return nil, classify(op, err)
	}

	balances, settlements := calculator.CalculateGroupBalances(memberIDs(members), expenses, payments)
	return &GroupBalanceReport{
		GroupID:     groupID,
		Balances:    balances,
		Settlements: settlements,
	}, nil
}
