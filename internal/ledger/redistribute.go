package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// ExitSummary describes one participant leaving one expense.
type ExitSummary struct {
	ExpenseID     string
	Description   string
	ExitingUserID string
	ExitingAmount decimal.Decimal

	// RedistributedTo is the number of remaining splits that absorbed the share.
	RedistributedTo int

	// NewSplits are the remaining participants' amounts after the exit.
	NewSplits []calculator.Share
}

// ExitExpense removes userID from an expense and spreads their share over
// the remaining participants in proportion to their current amounts.
//
// The user may remove themselves; otherwise the acting user must be the
// group's admin or creator. The last participant cannot leave.
func (e *Engine) ExitExpense(ctx context.Context, expenseID, userID, actingUserID string) (*ExitSummary, error) {
	const op = "exit expense"

	var summary *ExitSummary
	err := e.mutate(ctx, op, func(tx storage.Tx, _ Settings) error {
		exp, err := tx.GetExpense(ctx, expenseID)
		if errors.Is(err, storage.ErrNotFound) {
			return notFound(op, "expense %s not found", expenseID)
		}
		if err != nil {
			return err
		}

		if err := e.authorizeExit(ctx, tx, op, exp, userID, actingUserID); err != nil {
			return err
		}
		if err := checkExit(op, exp, userID); err != nil {
			return err
		}

		summary, err = redistributeExpense(ctx, tx, op, exp, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.metrics.SplitsRebalanced(summary.RedistributedTo)
	e.logger.InfoContext(ctx, "Member left expense",
		"expense_id", expenseID,
		"user_id", userID,
		"exiting_amount", money.Format(summary.ExitingAmount),
		"redistributed_to", summary.RedistributedTo,
	)
	e.emitExpenseExit(ctx, summary)
	return summary, nil
}

func (e *Engine) authorizeExit(ctx context.Context, r storage.Reader, op string, exp *models.Expense, userID, actingUserID string) error {
	if exp.GroupID == "" {
		if actingUserID != userID {
			return forbidden(op, "only the member themselves can leave a personal expense")
		}
		return nil
	}

	group, err := loadActiveGroup(ctx, r, op, exp.GroupID)
	if err != nil {
		return err
	}
	if actingUserID == userID {
		return nil
	}
	admin, err := isGroupAdmin(ctx, r, group, actingUserID)
	if err != nil {
		return err
	}
	if !admin {
		return forbidden(op, "only the member themselves or a group admin can remove from expense")
	}
	return nil
}

// checkExit validates that userID can leave exp without mutating anything.
func checkExit(op string, exp *models.Expense, userID string) error {
	if _, ok := exp.SplitFor(userID); !ok {
		return notFound(op, "user %s has no split on expense %s", userID, exp.ID)
	}
	if len(exp.Splits) < 2 {
		return invalidState(op, "cannot remove the last participant from expense %s", exp.ID)
	}
	return nil
}

// redistributeExpense rewrites the remaining splits of exp and deletes the
// exiting split last. exp must have passed checkExit.
func redistributeExpense(ctx context.Context, tx storage.Tx, op string, exp *models.Expense, userID string) (*ExitSummary, error) {
	exiting, _ := exp.SplitFor(userID)

	remaining := make([]calculator.Share, 0, len(exp.Splits)-1)
	for _, s := range exp.Splits {
		if s.UserID != userID {
			remaining = append(remaining, calculator.Share{UserID: s.UserID, Amount: s.Amount})
		}
	}

	updated, err := calculator.Redistribute(exiting.Amount, remaining)
	if err != nil {
		return nil, newError(ErrArithmeticInconsistency, op, "expense %s: %v", exp.ID, err)
	}

	before := exp.SplitTotal()
	after := decimal.Zero
	for _, s := range updated {
		after = after.Add(s.Amount)
	}
	if !after.Equal(before) {
		return nil, newError(ErrArithmeticInconsistency, op,
			"expense %s: splits sum to %s after redistribution, %s before", exp.ID, after, before)
	}

	// Claim the split set before writing so a concurrent exit retries on fresh state.
	if err := tx.BumpSplitVersion(ctx, exp.ID, exp.SplitVersion); err != nil {
		return nil, err
	}

	for i, s := range updated {
		if s.Amount.Equal(remaining[i].Amount) {
			continue
		}
		if err := tx.UpdateSplitAmount(ctx, exp.ID, s.UserID, s.Amount); err != nil {
			return nil, err
		}
	}

	if err := tx.DeleteSplit(ctx, exp.ID, userID); err != nil {
		return nil, err
	}

	return &ExitSummary{
		ExpenseID:       exp.ID,
		Description:     exp.Description,
		ExitingUserID:   userID,
		ExitingAmount:   exiting.Amount,
		RedistributedTo: len(updated),
		NewSplits:       updated,
	}, nil
}

func (e *Engine) emitExpenseExit(ctx context.Context, s *ExitSummary) {
	targets := make([]string, len(s.NewSplits))
	splits := make([]any, len(s.NewSplits))
	for i, share := range s.NewSplits {
		targets[i] = share.UserID
		splits[i] = map[string]any{"userId": share.UserID, "amount": money.Format(share.Amount)}
	}
	e.emit(ctx, events.MemberLeftExpense, targets, map[string]any{
		"expenseId":     s.ExpenseID,
		"description":   s.Description,
		"exitedUserId":  s.ExitingUserID,
		"exitingAmount": money.Format(s.ExitingAmount),
		"newSplits":     splits,
	})
}

// LeaveGroup redistributes the user's share of every group expense they
// participate in, then removes their membership. It returns the number of
// expenses redistributed.
//
// An admin with co-members must transfer the role first. The last member can
// always leave; expenses where they are the only participant keep their split.
// Payments are untouched.
func (e *Engine) LeaveGroup(ctx context.Context, groupID, userID, actingUserID string) (int, error) {
	return e.leaveGroup(ctx, "leave group", groupID, userID, actingUserID, false)
}

// RemoveMember is LeaveGroup initiated by the group's admin or creator.
func (e *Engine) RemoveMember(ctx context.Context, groupID, memberID, actingUserID string) (int, error) {
	return e.leaveGroup(ctx, "remove member", groupID, memberID, actingUserID, true)
}

func (e *Engine) leaveGroup(ctx context.Context, op, groupID, userID, actingUserID string, adminOnly bool) (int, error) {
	var (
		group     *models.Group
		summaries []*ExitSummary
		remaining []string
	)

	err := e.mutate(ctx, op, func(tx storage.Tx, _ Settings) error {
		summaries = nil

		var err error
		group, err = loadActiveGroup(ctx, tx, op, groupID)
		if err != nil {
			return err
		}

		if adminOnly || actingUserID != userID {
			admin, err := isGroupAdmin(ctx, tx, group, actingUserID)
			if err != nil {
				return err
			}
			if !admin {
				return forbidden(op, "only the member themselves or a group admin can remove from group")
			}
		}

		leaving, err := membership(ctx, tx, groupID, userID)
		if err != nil {
			return err
		}
		if leaving == nil {
			return notFound(op, "user %s is not a member of group %s", userID, groupID)
		}

		members, err := tx.ListMembers(ctx, groupID)
		if err != nil {
			return err
		}
		remaining = remaining[:0]
		for _, m := range members {
			if m.UserID != userID {
				remaining = append(remaining, m.UserID)
			}
		}
		if leaving.IsAdmin() && len(remaining) > 0 {
			return invalidState(op, "admin must transfer admin role to another member before leaving")
		}

		ids, err := tx.ListExpenseIDsWithSplitFor(ctx, groupID, userID)
		if err != nil {
			return err
		}
		expenses := make([]*models.Expense, 0, len(ids))
		for _, id := range ids {
			exp, err := tx.GetExpense(ctx, id)
			if err != nil {
				return err
			}
			// The last member keeps their solo expenses; there is nobody to absorb them.
			if len(remaining) == 0 && len(exp.Splits) == 1 {
				continue
			}
			if err := checkExit(op, exp, userID); err != nil {
				return err
			}
			expenses = append(expenses, exp)
		}

		for _, exp := range expenses {
			s, err := redistributeExpense(ctx, tx, op, exp, userID)
			if err != nil {
				return err
			}
			summaries = append(summaries, s)
		}

		return tx.RemoveMember(ctx, groupID, userID)
	})
	if err != nil {
		return 0, err
	}

	rebalanced := 0
	for _, s := range summaries {
		rebalanced += s.RedistributedTo
	}
	e.metrics.SplitsRebalanced(rebalanced)
	e.logger.InfoContext(ctx, "Member left group",
		"group_id", groupID,
		"user_id", userID,
		"acting_user_id", actingUserID,
		"redistributed_expenses", len(summaries),
	)

	for _, s := range summaries {
		e.emitExpenseExit(ctx, s)
	}
	e.emit(ctx, events.MemberLeftGroup, remaining, map[string]any{
		"groupId":               groupID,
		"groupName":             group.Name,
		"leftUserId":            userID,
		"redistributedExpenses": len(summaries),
	})

	return len(summaries), nil
}
