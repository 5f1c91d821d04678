package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a transfer that settles debt between two users.
// Payments are immutable once recorded.
type Payment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID string

	// PayerID sent the money (the debtor settling up).
	PayerID string

	// PayeeID received the money.
	PayeeID string

	Amount decimal.Decimal

	Currency string

	Date time.Time

	// GroupID is empty for payments outside any group.
	GroupID string

	Notes string

	CreatedAt time.Time
}
