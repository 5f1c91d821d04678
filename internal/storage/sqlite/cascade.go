package sqlite

import (
	"context"
	"fmt"
)

// Group cascades run in dependency order inside the caller's transaction:
// splits, comments and purchase items, then expenses, payments, members, group.

const groupExpenseIDs = "SELECT id FROM expenses WHERE group_id = ?"

func (c *conn) deleteByGroup(ctx context.Context, what, query, groupID string) (int, error) {
	res, err := c.q.ExecContext(ctx, query, groupID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s: %w", what, err)
	}
	return affected(res)
}

// DeleteSplitsByGroup removes the splits of every expense in the group.
func (c *conn) DeleteSplitsByGroup(ctx context.Context, groupID string) (int, error) {
	return c.deleteByGroup(ctx, "expense splits",
		"DELETE FROM expense_splits WHERE expense_id IN ("+groupExpenseIDs+")", groupID)
}

// DeleteCommentsByGroup removes the comments of every expense in the group.
func (c *conn) DeleteCommentsByGroup(ctx context.Context, groupID string) (int, error) {
	return c.deleteByGroup(ctx, "comments",
		"DELETE FROM comments WHERE expense_id IN ("+groupExpenseIDs+")", groupID)
}

// DeletePurchaseItemsByGroup removes the purchase items of every expense in the group.
func (c *conn) DeletePurchaseItemsByGroup(ctx context.Context, groupID string) (int, error) {
	return c.deleteByGroup(ctx, "purchase items",
		"DELETE FROM purchase_items WHERE expense_id IN ("+groupExpenseIDs+")", groupID)
}

// DeleteExpensesByGroup removes the group's expenses. Their dependents must be gone.
func (c *conn) DeleteExpensesByGroup(ctx context.Context, groupID string) (int, error) {
	return c.deleteByGroup(ctx, "expenses", "DELETE FROM expenses WHERE group_id = ?", groupID)
}

// DeletePaymentsByGroup removes payments scoped to the group.
func (c *conn) DeletePaymentsByGroup(ctx context.Context, groupID string) (int, error) {
	return c.deleteByGroup(ctx, "payments", "DELETE FROM payments WHERE group_id = ?", groupID)
}

// DeleteMembersByGroup removes every membership of the group.
func (c *conn) DeleteMembersByGroup(ctx context.Context, groupID string) (int, error) {
	return c.deleteByGroup(ctx, "group members", "DELETE FROM group_members WHERE group_id = ?", groupID)
}
