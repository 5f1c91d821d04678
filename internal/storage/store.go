// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentModification is returned when a compare-and-set on a
	// version column finds the row changed by another transaction.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

// Reader holds the read operations available both on the store and inside a transaction.
type Reader interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// GetGroup returns active and soft-deleted groups alike.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	GetMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error)
	ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)
	CountGroupsForUser(ctx context.Context, userID string) (int, error)

	// ListDeletedGroupsForUser returns soft-deleted groups the user is still a
	// member of, deleted strictly after since, newest first.
	ListDeletedGroupsForUser(ctx context.Context, userID string, since time.Time) ([]models.Group, error)

	// ListGroupsDeletedBefore returns ids of soft-deleted groups with deleted_at <= cutoff.
	ListGroupsDeletedBefore(ctx context.Context, cutoff time.Time) ([]string, error)

	// GetExpense returns the expense with its splits ordered by user id.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)
	ListExpensesByGroup(ctx context.Context, groupID string) ([]models.Expense, error)

	// ListExpenseIDsWithSplitFor returns expenses in the group carrying a split for the user.
	ListExpenseIDsWithSplitFor(ctx context.Context, groupID, userID string) ([]string, error)
	CountExpensesByGroup(ctx context.Context, groupID string) (int, error)
	CountExpensesPaidBy(ctx context.Context, userID string) (int, error)

	// ListExpensesBetween returns every expense where one user paid and the
	// other holds a split, excluding rows of soft-deleted groups unless
	// includeGroupID names that group.
	ListExpensesBetween(ctx context.Context, userA, userB, includeGroupID string) ([]models.Expense, error)

	// ListPaymentsBetween mirrors ListExpensesBetween for payments.
	ListPaymentsBetween(ctx context.Context, userA, userB, includeGroupID string) ([]models.Payment, error)
	ListPaymentsByGroup(ctx context.Context, groupID string) ([]models.Payment, error)

	// GetSetting returns ErrNotFound when the key has no stored value.
	GetSetting(ctx context.Context, key string) (string, error)
}

// Writer holds mutations. They are only available inside a transaction.
type Writer interface {
	CreateUser(ctx context.Context, user *models.User) error
	CreateGroup(ctx context.Context, group *models.Group) error
	AddMember(ctx context.Context, member *models.GroupMember) error
	UpdateMemberRole(ctx context.Context, groupID, userID string, role models.Role) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	SetGroupCreator(ctx context.Context, groupID, userID string) error

	// SoftDeleteGroup moves an active group to soft-deleted. It returns
	// ErrConcurrentModification when the group is no longer active.
	SoftDeleteGroup(ctx context.Context, groupID string, at time.Time) error

	// CreateExpense inserts the expense and its splits.
	CreateExpense(ctx context.Context, expense *models.Expense) error
	UpdateSplitAmount(ctx context.Context, expenseID, userID string, amount decimal.Decimal) error
	DeleteSplit(ctx context.Context, expenseID, userID string) error

	// BumpSplitVersion increments the expense's split version if it still
	// equals expected, and returns ErrConcurrentModification otherwise.
	BumpSplitVersion(ctx context.Context, expenseID string, expected int64) error

	CreateComment(ctx context.Context, comment *models.Comment) error
	CreatePurchaseItem(ctx context.Context, item *models.PurchaseItem) error
	CreatePayment(ctx context.Context, payment *models.Payment) error

	// The DeleteXByGroup operations return the number of rows removed.
	DeleteSplitsByGroup(ctx context.Context, groupID string) (int, error)
	DeleteCommentsByGroup(ctx context.Context, groupID string) (int, error)
	DeletePurchaseItemsByGroup(ctx context.Context, groupID string) (int, error)
	DeleteExpensesByGroup(ctx context.Context, groupID string) (int, error)
	DeletePaymentsByGroup(ctx context.Context, groupID string) (int, error)
	DeleteMembersByGroup(ctx context.Context, groupID string) (int, error)
	DeleteGroup(ctx context.Context, groupID string) error

	CreateNotifications(ctx context.Context, notifications []models.Notification) error
	PutSetting(ctx context.Context, key, value string) error
}

// Tx is a unit of work. Reads inside it observe its own writes.
type Tx interface {
	Reader
	Writer
}

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the ledger layer.
type Store interface {
	Reader

	// WithTx runs fn in a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any resources held by the store.
	Close() error
}
