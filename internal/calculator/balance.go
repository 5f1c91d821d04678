package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

type scopeKind int

const (
	scopeAll scopeKind = iota
	scopeGroup
	scopePersonal
)

// Scope restricts which expenses and payments a balance considers.
// The zero value considers every row.
type Scope struct {
	kind    scopeKind
	groupID string
}

// AllRows considers group-scoped and personal rows alike.
func AllRows() Scope { return Scope{kind: scopeAll} }

// InGroup considers only rows of one group.
func InGroup(groupID string) Scope { return Scope{kind: scopeGroup, groupID: groupID} }

// PersonalOnly considers only rows without a group.
func PersonalOnly() Scope { return Scope{kind: scopePersonal} }

// Includes reports whether a row with the given group id is in scope.
func (s Scope) Includes(groupID string) bool {
	switch s.kind {
	case scopeGroup:
		return groupID == s.groupID
	case scopePersonal:
		return groupID == ""
	default:
		return true
	}
}

// GroupID returns the scoped group id, or "" when the scope is not a single group.
func (s Scope) GroupID() string { return s.groupID }

// Balance returns what userB owes userA across the given rows.
// Positive means B owes A, negative means A owes B, and
// Balance(a, b) == -Balance(b, a) for every input.
//
// An expense paid by A adds B's split; one paid by B subtracts A's split.
// A payment from A to B adds its amount (A's debt shrinks), and one from B to A subtracts it.
// The result is rounded to cents and snapped to zero inside the settle tolerance.
func Balance(userA, userB string, expenses []models.Expense, payments []models.Payment, scope Scope) decimal.Decimal {
	if userA == userB {
		return decimal.Zero
	}

	total := decimal.Zero
	for i := range expenses {
		e := &expenses[i]
		if !scope.Includes(e.GroupID) {
			continue
		}
		switch e.PaidBy {
		case userA:
			if s, ok := e.SplitFor(userB); ok {
				total = total.Add(s.Amount)
			}
		case userB:
			if s, ok := e.SplitFor(userA); ok {
				total = total.Sub(s.Amount)
			}
		}
	}

	for _, p := range payments {
		if !scope.Includes(p.GroupID) {
			continue
		}
		switch {
		case p.PayerID == userA && p.PayeeID == userB:
			total = total.Add(p.Amount)
		case p.PayerID == userB && p.PayeeID == userA:
			total = total.Sub(p.Amount)
		}
	}

	return money.Normalize(total)
}

// Net returns a user's overall position: positive when others owe them.
// Paying an expense counts the total minus the user's own share; paying
// someone counts in their favor and receiving counts against.
func Net(userID string, expenses []models.Expense, payments []models.Payment, scope Scope) decimal.Decimal {
	total := decimal.Zero
	for i := range expenses {
		e := &expenses[i]
		if !scope.Includes(e.GroupID) {
			continue
		}
		share := decimal.Zero
		if s, ok := e.SplitFor(userID); ok {
			share = s.Amount
		}
		if e.PaidBy == userID {
			total = total.Add(e.Amount.Sub(share))
		} else {
			total = total.Sub(share)
		}
	}

	for _, p := range payments {
		if !scope.Includes(p.GroupID) {
			continue
		}
		if p.PayerID == userID {
			total = total.Add(p.Amount)
		}
		if p.PayeeID == userID {
			total = total.Sub(p.Amount)
		}
	}

	return money.Normalize(total)
}
