package models

import (
	"fmt"
	"time"
)

// GroupState names the lifecycle position of a group.
type GroupState string

const (
	GroupActive      GroupState = "active"
	GroupSoftDeleted GroupState = "soft_deleted"
	// GroupPurged is never stored; a purged group has no row.
	GroupPurged GroupState = "purged"
)

// Lifecycle is the state of a group plus the deletion time when soft-deleted.
// The zero value is Active. A soft-deleted lifecycle always carries its timestamp,
// so "active with a deletion time" cannot be constructed.
type Lifecycle struct {
	deletedAt time.Time
	deleted   bool
}

// Active returns the lifecycle of a live group.
func Active() Lifecycle { return Lifecycle{} }

// SoftDeleted returns the lifecycle of a group deleted at the given time.
func SoftDeleted(at time.Time) Lifecycle {
	return Lifecycle{deletedAt: at.UTC(), deleted: true}
}

// State returns the lifecycle state.
func (l Lifecycle) State() GroupState {
	if l.deleted {
		return GroupSoftDeleted
	}
	return GroupActive
}

// IsActive reports whether the group accepts mutations.
func (l Lifecycle) IsActive() bool { return !l.deleted }

// DeletedAt returns the soft-delete time and whether the group is soft-deleted.
func (l Lifecycle) DeletedAt() (time.Time, bool) {
	return l.deletedAt, l.deleted
}

// PurgeDueAt returns when a soft-deleted group becomes eligible for purge.
func (l Lifecycle) PurgeDueAt(retention time.Duration) (time.Time, bool) {
	if !l.deleted {
		return time.Time{}, false
	}
	return l.deletedAt.Add(retention), true
}

// ParseLifecycle rebuilds a lifecycle from its stored columns.
func ParseLifecycle(state string, deletedAt *time.Time) (Lifecycle, error) {
	switch GroupState(state) {
	case GroupActive:
		if deletedAt != nil {
			return Lifecycle{}, fmt.Errorf("active group with deletion time %s", deletedAt)
		}
		return Active(), nil
	case GroupSoftDeleted:
		if deletedAt == nil {
			return Lifecycle{}, fmt.Errorf("soft-deleted group without deletion time")
		}
		return SoftDeleted(*deletedAt), nil
	default:
		return Lifecycle{}, fmt.Errorf("unknown group state %q", state)
	}
}

// Group is a set of members sharing expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string

	// CreatedBy is the creating user. Admin transfer rewrites it to the new admin.
	CreatedBy string

	Lifecycle Lifecycle

	CreatedAt time.Time
}

// Role is a member's role within a group.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// GroupMember links a user to a group.
type GroupMember struct {
	GroupID  string
	UserID   string
	Role     Role
	JoinedAt time.Time
}

// IsAdmin reports whether the member holds the admin role.
func (m GroupMember) IsAdmin() bool { return m.Role == RoleAdmin }

// DeletedGroup is a soft-deleted group as shown in the "recently deleted" list.
type DeletedGroup struct {
	ID            string
	Name          string
	DeletedAt     time.Time
	DaysRemaining int
}
