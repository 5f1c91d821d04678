package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SplitType names how an expense total was divided among participants.
type SplitType string

const (
	SplitEqual      SplitType = "EQUAL"
	SplitExact      SplitType = "EXACT"
	SplitPercentage SplitType = "PERCENTAGE"
	SplitShares     SplitType = "SHARES"
	SplitAdjustment SplitType = "ADJUSTMENT"
)

// Expense is an amount paid by one user and shared by the split participants.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	Description string

	// Amount is the authoritative total. The splits always add up to it.
	Amount decimal.Decimal

	Currency string

	// PaidBy is the user who paid the full amount.
	PaidBy string

	// GroupID is empty for personal expenses.
	GroupID string

	Category string

	Date time.Time

	SplitType SplitType

	// SplitVersion increments on every redistribution of this expense's splits.
	SplitVersion int64

	Splits []ExpenseSplit

	CreatedAt time.Time
}

// SplitFor returns the split of the given user, if any.
func (e *Expense) SplitFor(userID string) (ExpenseSplit, bool) {
	for _, s := range e.Splits {
		if s.UserID == userID {
			return s, true
		}
	}
	return ExpenseSplit{}, false
}

// SplitTotal returns the sum of all split amounts.
func (e *Expense) SplitTotal() decimal.Decimal {
	total := decimal.Zero
	for _, s := range e.Splits {
		total = total.Add(s.Amount)
	}
	return total
}

// ExpenseSplit is one participant's owed share of an expense.
type ExpenseSplit struct {
	ExpenseID string
	UserID    string
	Amount    decimal.Decimal
}

// Comment is a discussion entry on an expense.
type Comment struct {
	ID        string
	ExpenseID string
	UserID    string
	Content   string
	CreatedAt time.Time
}

// PurchaseItem is a receipt line attached to an expense.
type PurchaseItem struct {
	ID        string
	ExpenseID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
	Category  string
}
