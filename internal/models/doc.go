// Package models defines the records held by the ledger store.
//
// # Records
//
//   - User: opaque identity referenced by id; the ledger only reads the display name
//   - Group: a set of members sharing expenses, with an explicit Lifecycle
//   - GroupMember: membership row with a role (exactly one admin per group)
//   - Expense: an authoritative total paid by one user, optionally group-scoped
//   - ExpenseSplit: one participant's share of an expense
//   - Comment, PurchaseItem: rows that hang off an expense and are removed with it
//   - Payment: a settlement transfer between two users
//   - Notification: a delivered event row for one user
//
// # Conventions
//
//  1. Amounts are decimal.Decimal at two decimal places (see internal/money)
//  2. Relationships are ID strings, never pointers
//  3. An empty GroupID means the row is personal (not group-scoped)
//  4. Splits are owned by their Expense and never outlive it
package models
