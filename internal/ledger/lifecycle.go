package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// TransferAdmin hands the admin role from the current admin to another member.
// The group's creator is rewritten to the new admin as well.
func (e *Engine) TransferAdmin(ctx context.Context, groupID, fromUserID, toUserID string) error {
	const op = "transfer admin"

	if fromUserID == toUserID {
		return invalidArgument(op, "cannot transfer admin role to yourself")
	}

	var (
		group   *models.Group
		members []string
	)
	err := e.mutate(ctx, op, func(tx storage.Tx, _ Settings) error {
		var err error
		group, err = loadActiveGroup(ctx, tx, op, groupID)
		if err != nil {
			return err
		}

		current, err := membership(ctx, tx, groupID, fromUserID)
		if err != nil {
			return err
		}
		if current == nil || !current.IsAdmin() {
			return forbidden(op, "only the current admin can transfer admin role")
		}

		next, err := membership(ctx, tx, groupID, toUserID)
		if err != nil {
			return err
		}
		if next == nil {
			return notFound(op, "new admin %s must be a member of the group", toUserID)
		}

		// One admin per group: demote before promoting.
		if err := tx.UpdateMemberRole(ctx, groupID, fromUserID, models.RoleMember); err != nil {
			return err
		}
		if err := tx.UpdateMemberRole(ctx, groupID, toUserID, models.RoleAdmin); err != nil {
			return err
		}
		if err := tx.SetGroupCreator(ctx, groupID, toUserID); err != nil {
			return err
		}

		all, err := tx.ListMembers(ctx, groupID)
		if err != nil {
			return err
		}
		members = memberIDs(all)
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "Admin transferred", "group_id", groupID, "from", fromUserID, "to", toUserID)
	e.emit(ctx, events.AdminTransferred, members, map[string]any{
		"groupId":    groupID,
		"groupName":  group.Name,
		"oldAdminId": fromUserID,
		"newAdminId": toUserID,
	})
	return nil
}

// SoftDeleteGroup moves an active group with no expenses to soft-deleted.
// Memberships stay so members can still see the group until it is purged.
func (e *Engine) SoftDeleteGroup(ctx context.Context, groupID, actingUserID string) error {
	const op = "soft delete group"

	var (
		group   *models.Group
		members []string
		at      time.Time
	)
	err := e.mutate(ctx, op, func(tx storage.Tx, _ Settings) error {
		var err error
		group, err = loadGroup(ctx, tx, op, groupID)
		if err != nil {
			return err
		}

		admin, err := isGroupAdmin(ctx, tx, group, actingUserID)
		if err != nil {
			return err
		}
		if !admin {
			return forbidden(op, "only the group admin can delete the group")
		}
		if !group.Lifecycle.IsActive() {
			return invalidState(op, "group %s is already deleted", groupID)
		}

		n, err := tx.CountExpensesByGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if n > 0 {
			return &ExpensesRemainingError{GroupID: groupID, Remaining: n}
		}

		at = e.clock()
		if err := tx.SoftDeleteGroup(ctx, groupID, at); err != nil {
			return err
		}

		all, err := tx.ListMembers(ctx, groupID)
		if err != nil {
			return err
		}
		members = memberIDs(all)
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "Group soft-deleted", "group_id", groupID, "acting_user_id", actingUserID)
	e.emit(ctx, events.GroupSoftDeleted, members, map[string]any{
		"groupId":       groupID,
		"groupName":     group.Name,
		"deletedAt":     at.Format(time.RFC3339),
		"daysRemaining": daysRemaining(at, e.retention, at),
	})
	return nil
}

// DeleteAllExpenses removes every expense of an active group with its splits,
// comments and purchase items. It is the first step of a soft-delete.
func (e *Engine) DeleteAllExpenses(ctx context.Context, groupID, actingUserID string) (int, error) {
	const op = "delete all expenses"

	var deleted int
	err := e.mutate(ctx, op, func(tx storage.Tx, _ Settings) error {
		group, err := loadActiveGroup(ctx, tx, op, groupID)
		if err != nil {
			return err
		}
		admin, err := isGroupAdmin(ctx, tx, group, actingUserID)
		if err != nil {
			return err
		}
		if !admin {
			return forbidden(op, "only the group admin can delete all expenses")
		}

		deleted, err = deleteGroupExpenses(ctx, tx, groupID)
		return err
	})
	if err != nil {
		return 0, err
	}

	e.logger.InfoContext(ctx, "Group expenses deleted", "group_id", groupID, "count", deleted)
	return deleted, nil
}

// deleteGroupExpenses removes expenses and their dependents in dependency order.
func deleteGroupExpenses(ctx context.Context, tx storage.Tx, groupID string) (int, error) {
	if _, err := tx.DeleteCommentsByGroup(ctx, groupID); err != nil {
		return 0, err
	}
	if _, err := tx.DeletePurchaseItemsByGroup(ctx, groupID); err != nil {
		return 0, err
	}
	if _, err := tx.DeleteSplitsByGroup(ctx, groupID); err != nil {
		return 0, err
	}
	return tx.DeleteExpensesByGroup(ctx, groupID)
}

// cascadeGroup removes the group and every dependent row.
func cascadeGroup(ctx context.Context, tx storage.Tx, groupID string) error {
	if _, err := deleteGroupExpenses(ctx, tx, groupID); err != nil {
		return err
	}
	if _, err := tx.DeletePaymentsByGroup(ctx, groupID); err != nil {
		return err
	}
	if _, err := tx.DeleteMembersByGroup(ctx, groupID); err != nil {
		return err
	}
	return tx.DeleteGroup(ctx, groupID)
}

// DeleteGroup immediately and irreversibly deletes an active group and all
// of its data. Only the group's creator may do this.
func (e *Engine) DeleteGroup(ctx context.Context, groupID, actingUserID string) error {
	const op = "delete group"

	var (
		group   *models.Group
		members []string
	)
	err := e.mutate(ctx, op, func(tx storage.Tx, _ Settings) error {
		var err error
		group, err = loadGroup(ctx, tx, op, groupID)
		if err != nil {
			return err
		}
		if group.CreatedBy != actingUserID {
			return forbidden(op, "only the group creator can delete the group")
		}
		if !group.Lifecycle.IsActive() {
			return invalidState(op, "group %s is soft-deleted and awaits purge", groupID)
		}

		all, err := tx.ListMembers(ctx, groupID)
		if err != nil {
			return err
		}
		members = memberIDs(all)

		return cascadeGroup(ctx, tx, groupID)
	})
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "Group deleted", "group_id", groupID, "acting_user_id", actingUserID)
	e.emit(ctx, events.GroupDeleted, members, map[string]any{
		"groupId":   groupID,
		"groupName": group.Name,
	})
	return nil
}

// ListDeletedGroups returns the soft-deleted groups the user belongs to that
// are still inside the retention window, most recently deleted first.
func (e *Engine) ListDeletedGroups(ctx context.Context, userID string) ([]models.DeletedGroup, error) {
	const op = "list deleted groups"

	now := e.clock()
	groups, err := e.store.ListDeletedGroupsForUser(ctx, userID, now.Add(-e.retention))
	if err != nil {
		return nil, classify(op, err)
	}

	out := make([]models.DeletedGroup, 0, len(groups))
	for _, g := range groups {
		at, _ := g.Lifecycle.DeletedAt()
		out = append(out, models.DeletedGroup{
			ID:            g.ID,
			Name:          g.Name,
			DeletedAt:     at,
			DaysRemaining: daysRemaining(at, e.retention, now),
		})
	}
	return out, nil
}

// daysRemaining is ceil((deletedAt + retention - now) / 1 day), never negative.
func daysRemaining(deletedAt time.Time, retention time.Duration, now time.Time) int {
	left := deletedAt.Add(retention).Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + day - 1) / day)
}

// PurgeExpiredGroups permanently removes every soft-deleted group whose
// retention window has elapsed. Each group is purged in its own transaction;
// a failed group stays soft-deleted for the next run and the others proceed.
// It returns how many groups were purged and the joined per-group errors.
func (e *Engine) PurgeExpiredGroups(ctx context.Context) (int, error) {
	const op = "purge expired groups"
	start := time.Now()

	cutoff := e.clock().Add(-e.retention)
	ids, err := e.store.ListGroupsDeletedBefore(ctx, cutoff)
	if err != nil {
		err = classify(op, err)
		e.metrics.ObserveOperation(op, start, err)
		return 0, err
	}

	purged := 0
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		done, err := e.purgeGroup(ctx, id, cutoff)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to purge group", "group_id", id, "error", err)
			errs = append(errs, fmt.Errorf("group %s: %w", id, err))
			continue
		}
		if done {
			purged++
			e.logger.InfoContext(ctx, "Group purged", "group_id", id)
		}
	}

	err = errors.Join(errs...)
	e.metrics.PurgeCompleted(purged, len(errs))
	e.metrics.ObserveOperation(op, start, err)
	return purged, err
}

// purgeGroup re-checks the purge condition inside the transaction, so a group
// purged by a concurrent run is skipped rather than failed.
func (e *Engine) purgeGroup(ctx context.Context, groupID string, cutoff time.Time) (bool, error) {
	const op = "purge group"

	purged := false
	err := e.inTx(ctx, op, func(tx storage.Tx) error {
		purged = false

		group, err := tx.GetGroup(ctx, groupID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		at, deleted := group.Lifecycle.DeletedAt()
		if !deleted || at.After(cutoff) {
			return nil
		}

		if err := cascadeGroup(ctx, tx, groupID); err != nil {
			return err
		}
		purged = true
		return nil
	})
	return purged, err
}
