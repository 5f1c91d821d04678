package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func mustTx(t *testing.T, store *SQLiteStore, fn func(tx storage.Tx) error) {
	t.Helper()
	require.NoError(t, store.WithTx(context.Background(), fn))
}

// seedGroup creates users and a group with the first user as admin.
func seedGroup(t *testing.T, store *SQLiteStore, users ...string) *models.Group {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	group := &models.Group{ID: uuid.New().String(), Name: "Roommates", CreatedBy: users[0], CreatedAt: now}

	mustTx(t, store, func(tx storage.Tx) error {
		for _, u := range users {
			if _, err := tx.GetUser(ctx, u); errors.Is(err, storage.ErrNotFound) {
				if err := tx.CreateUser(ctx, &models.User{ID: u, DisplayName: u, CreatedAt: now}); err != nil {
					return err
				}
			}
		}
		if err := tx.CreateGroup(ctx, group); err != nil {
			return err
		}
		for i, u := range users {
			role := models.RoleMember
			if i == 0 {
				role = models.RoleAdmin
			}
			if err := tx.AddMember(ctx, &models.GroupMember{GroupID: group.ID, UserID: u, Role: role, JoinedAt: now.Add(time.Duration(i) * time.Millisecond)}); err != nil {
				return err
			}
		}
		return nil
	})
	return group
}

func seedExpense(t *testing.T, store *SQLiteStore, groupID, paidBy string, splits map[string]string) *models.Expense {
	t.Helper()
	e := &models.Expense{
		ID:        uuid.New().String(),
		Currency:  "USD",
		PaidBy:    paidBy,
		GroupID:   groupID,
		Date:      time.Now().UTC(),
		SplitType: models.SplitExact,
		CreatedAt: time.Now().UTC(),
		Amount:    money.Zero,
	}
	for user, amount := range splits {
		e.Splits = append(e.Splits, models.ExpenseSplit{ExpenseID: e.ID, UserID: user, Amount: money.MustParse(amount)})
		e.Amount = e.Amount.Add(money.MustParse(amount))
	}
	mustTx(t, store, func(tx storage.Tx) error { return tx.CreateExpense(context.Background(), e) })
	return e
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("GetUser returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetUser(ctx, "nobody")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("CreateGroup and members round trip", func(t *testing.T) {
		group := seedGroup(t, store, "alice", "bob")

		got, err := store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, "Roommates", got.Name)
		assert.Equal(t, "alice", got.CreatedBy)
		assert.True(t, got.Lifecycle.IsActive())

		members, err := store.ListMembers(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, members, 2)
		assert.Equal(t, models.RoleAdmin, members[0].Role)
		assert.Equal(t, models.RoleMember, members[1].Role)

		n, err := store.CountGroupsForUser(ctx, "bob")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1)
	})

	t.Run("second admin is a conflict", func(t *testing.T) {
		group := seedGroup(t, store, "alice", "bob")

		err := store.WithTx(ctx, func(tx storage.Tx) error {
			return tx.UpdateMemberRole(ctx, group.ID, "bob", models.RoleAdmin)
		})
		assert.ErrorIs(t, err, storage.ErrConflict)

		mustTx(t, store, func(tx storage.Tx) error {
			if err := tx.UpdateMemberRole(ctx, group.ID, "alice", models.RoleMember); err != nil {
				return err
			}
			return tx.UpdateMemberRole(ctx, group.ID, "bob", models.RoleAdmin)
		})
		m, err := store.GetMember(ctx, group.ID, "bob")
		require.NoError(t, err)
		assert.True(t, m.IsAdmin())
	})

	t.Run("duplicate member is a conflict", func(t *testing.T) {
		group := seedGroup(t, store, "alice", "bob")
		err := store.WithTx(ctx, func(tx storage.Tx) error {
			return tx.AddMember(ctx, &models.GroupMember{GroupID: group.ID, UserID: "bob", Role: models.RoleMember, JoinedAt: time.Now()})
		})
		assert.ErrorIs(t, err, storage.ErrConflict)
	})

	t.Run("expense with splits round trip", func(t *testing.T) {
		group := seedGroup(t, store, "alice", "bob", "carol")
		e := seedExpense(t, store, group.ID, "alice", map[string]string{"alice": "30", "bob": "30", "carol": "30.01"})

		got, err := store.GetExpense(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, "90.01", money.Format(got.Amount))
		assert.Equal(t, group.ID, got.GroupID)
		require.Len(t, got.Splits, 3)
		assert.Equal(t, "alice", got.Splits[0].UserID)
		assert.True(t, got.SplitTotal().Equal(got.Amount))

		ids, err := store.ListExpenseIDsWithSplitFor(ctx, group.ID, "carol")
		require.NoError(t, err)
		assert.Equal(t, []string{e.ID}, ids)
	})

	t.Run("split version compare-and-set", func(t *testing.T) {
		group := seedGroup(t, store, "alice", "bob")
		e := seedExpense(t, store, group.ID, "alice", map[string]string{"alice": "5", "bob": "5"})

		mustTx(t, store, func(tx storage.Tx) error { return tx.BumpSplitVersion(ctx, e.ID, 0) })

		err := store.WithTx(ctx, func(tx storage.Tx) error { return tx.BumpSplitVersion(ctx, e.ID, 0) })
		assert.ErrorIs(t, err, storage.ErrConcurrentModification)

		got, err := store.GetExpense(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.SplitVersion)
	})

	t.Run("failed transaction rolls back", func(t *testing.T) {
		group := seedGroup(t, store, "alice", "bob")
		e := seedExpense(t, store, group.ID, "alice", map[string]string{"alice": "5", "bob": "5"})
		boom := errors.New("boom")

		err := store.WithTx(ctx, func(tx storage.Tx) error {
			if err := tx.UpdateSplitAmount(ctx, e.ID, "alice", money.MustParse("10")); err != nil {
				return err
			}
			if err := tx.DeleteSplit(ctx, e.ID, "bob"); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.GetExpense(ctx, e.ID)
		require.NoError(t, err)
		require.Len(t, got.Splits, 2)
		assert.Equal(t, "5.00", money.Format(got.Splits[0].Amount))
	})

	t.Run("soft delete and deleted listings", func(t *testing.T) {
		group := seedGroup(t, store, "dave", "erin")
		at := time.Now().UTC().Add(-time.Hour)

		mustTx(t, store, func(tx storage.Tx) error { return tx.SoftDeleteGroup(ctx, group.ID, at) })

		got, err := store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		deletedAt, ok := got.Lifecycle.DeletedAt()
		require.True(t, ok)
		assert.Equal(t, at.UnixMilli(), deletedAt.UnixMilli())

		err = store.WithTx(ctx, func(tx storage.Tx) error { return tx.SoftDeleteGroup(ctx, group.ID, at) })
		assert.ErrorIs(t, err, storage.ErrConcurrentModification)

		deleted, err := store.ListDeletedGroupsForUser(ctx, "erin", at.Add(-time.Minute))
		require.NoError(t, err)
		require.Len(t, deleted, 1)
		assert.Equal(t, group.ID, deleted[0].ID)

		deleted, err = store.ListDeletedGroupsForUser(ctx, "erin", at)
		require.NoError(t, err)
		assert.Empty(t, deleted)

		due, err := store.ListGroupsDeletedBefore(ctx, at)
		require.NoError(t, err)
		assert.Contains(t, due, group.ID)

		due, err = store.ListGroupsDeletedBefore(ctx, at.Add(-time.Millisecond))
		require.NoError(t, err)
		assert.NotContains(t, due, group.ID)
	})

	t.Run("lifecycle check rejects active with deletion time", func(t *testing.T) {
		group := seedGroup(t, store, "alice")
		_, err := store.DB().ExecContext(ctx, "UPDATE groups SET deleted_at = 1 WHERE id = ?", group.ID)
		assert.Error(t, err)
	})

	t.Run("balances exclude soft-deleted groups unless named", func(t *testing.T) {
		live := seedGroup(t, store, "frank", "gina")
		gone := seedGroup(t, store, "frank", "gina")
		seedExpense(t, store, live.ID, "frank", map[string]string{"gina": "10"})
		seedExpense(t, store, gone.ID, "frank", map[string]string{"gina": "20"})
		seedExpense(t, store, "", "gina", map[string]string{"frank": "4"})
		mustTx(t, store, func(tx storage.Tx) error {
			if err := tx.CreatePayment(ctx, &models.Payment{ID: uuid.New().String(), PayerID: "gina", PayeeID: "frank",
				Amount: money.MustParse("3"), Currency: "USD", GroupID: gone.ID, Date: time.Now(), CreatedAt: time.Now()}); err != nil {
				return err
			}
			return tx.SoftDeleteGroup(ctx, gone.ID, time.Now())
		})

		expenses, err := store.ListExpensesBetween(ctx, "frank", "gina", "")
		require.NoError(t, err)
		assert.Len(t, expenses, 2)

		expenses, err = store.ListExpensesBetween(ctx, "gina", "frank", gone.ID)
		require.NoError(t, err)
		assert.Len(t, expenses, 3)

		payments, err := store.ListPaymentsBetween(ctx, "frank", "gina", "")
		require.NoError(t, err)
		assert.Empty(t, payments)

		payments, err = store.ListPaymentsBetween(ctx, "frank", "gina", gone.ID)
		require.NoError(t, err)
		assert.Len(t, payments, 1)
	})

	t.Run("group cascade removes every dependent", func(t *testing.T) {
		group := seedGroup(t, store, "alice", "bob")
		e := seedExpense(t, store, group.ID, "alice", map[string]string{"alice": "5", "bob": "5"})
		mustTx(t, store, func(tx storage.Tx) error {
			if err := tx.CreateComment(ctx, &models.Comment{ID: uuid.New().String(), ExpenseID: e.ID, UserID: "bob", Content: "thanks", CreatedAt: time.Now()}); err != nil {
				return err
			}
			if err := tx.CreatePurchaseItem(ctx, &models.PurchaseItem{ID: uuid.New().String(), ExpenseID: e.ID, Name: "milk", Price: money.MustParse("5"), Quantity: 2}); err != nil {
				return err
			}
			return tx.CreatePayment(ctx, &models.Payment{ID: uuid.New().String(), PayerID: "bob", PayeeID: "alice",
				Amount: money.MustParse("5"), Currency: "USD", GroupID: group.ID, Date: time.Now(), CreatedAt: time.Now()})
		})

		// Deleting the expense before its splits violates the foreign key.
		err := store.WithTx(ctx, func(tx storage.Tx) error {
			_, err := tx.DeleteExpensesByGroup(ctx, group.ID)
			return err
		})
		assert.Error(t, err)

		counts := map[string]int{}
		mustTx(t, store, func(tx storage.Tx) error {
			steps := []struct {
				name string
				fn   func(context.Context, string) (int, error)
			}{
				{"splits", tx.DeleteSplitsByGroup},
				{"comments", tx.DeleteCommentsByGroup},
				{"items", tx.DeletePurchaseItemsByGroup},
				{"expenses", tx.DeleteExpensesByGroup},
				{"payments", tx.DeletePaymentsByGroup},
				{"members", tx.DeleteMembersByGroup},
			}
			for _, s := range steps {
				n, err := s.fn(ctx, group.ID)
				if err != nil {
					return err
				}
				counts[s.name] = n
			}
			return tx.DeleteGroup(ctx, group.ID)
		})

		assert.Equal(t, map[string]int{"splits": 2, "comments": 1, "items": 1, "expenses": 1, "payments": 1, "members": 2}, counts)
		_, err = store.GetGroup(ctx, group.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("settings upsert", func(t *testing.T) {
		_, err := store.GetSetting(ctx, "maintenance_mode")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		mustTx(t, store, func(tx storage.Tx) error { return tx.PutSetting(ctx, "maintenance_mode", "true") })
		mustTx(t, store, func(tx storage.Tx) error { return tx.PutSetting(ctx, "maintenance_mode", "false") })

		v, err := store.GetSetting(ctx, "maintenance_mode")
		require.NoError(t, err)
		assert.Equal(t, "false", v)
	})

	t.Run("notifications round trip", func(t *testing.T) {
		seedGroup(t, store, "hank")
		mustTx(t, store, func(tx storage.Tx) error {
			return tx.CreateNotifications(ctx, []models.Notification{
				{ID: uuid.New().String(), UserID: "hank", Type: "group_deleted", Payload: []byte(`{"groupId":"g"}`), CreatedAt: time.Now()},
			})
		})
		got, err := store.ListNotifications(ctx, "hank")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "group_deleted", got[0].Type)
		assert.JSONEq(t, `{"groupId":"g"}`, string(got[0].Payload))
		assert.False(t, got[0].Read)
	})
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
