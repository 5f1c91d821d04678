package models

import "time"

// Notification is one delivered event for one user.
type Notification struct {
	ID     string
	UserID string
	Type   string
	// Payload is the protojson encoding of the event payload.
	Payload   []byte
	CreatedAt time.Time
	Read      bool
}
