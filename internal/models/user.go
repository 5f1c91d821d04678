package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the ledger's view of an account. Authentication lives elsewhere.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// DisplayName is shown in notifications ("Bob has left the expense ...").
	DisplayName string

	CreatedAt time.Time
}

// NewUser creates a user with a generated ID.
func NewUser(displayName string) *User {
	return &User{
		ID:          uuid.New().String(),
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
}
