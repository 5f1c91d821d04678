package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

const expenseColumns = "e.id, e.description, e.amount, e.currency, e.paid_by, e.group_id, e.category, e.date, e.split_type, e.split_version, e.created_at"

// visibleIn keeps personal rows and rows of active groups, plus rows of the
// one group named by the extra parameter. g must be the joined groups table.
func visibleIn(alias string) string {
	return "(" + alias + ".group_id IS NULL OR g.state = 'active' OR " + alias + ".group_id = ?)"
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	e := &models.Expense{}
	var (
		groupID   sql.NullString
		splitType string
		date      int64
		createdAt int64
	)
	if err := row.Scan(&e.ID, &e.Description, &e.Amount, &e.Currency, &e.PaidBy, &groupID,
		&e.Category, &date, &splitType, &e.SplitVersion, &createdAt); err != nil {
		return nil, err
	}
	e.GroupID = groupID.String
	e.SplitType = models.SplitType(splitType)
	e.Date = fromMillis(date)
	e.CreatedAt = fromMillis(createdAt)
	return e, nil
}

// queryExpenses runs an expense query and attaches the splits of every result.
func (c *conn) queryExpenses(ctx context.Context, query string, args ...any) ([]models.Expense, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	if err := c.loadSplits(ctx, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// loadSplits fills Splits on each expense with one query.
func (c *conn) loadSplits(ctx context.Context, expenses []models.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	index := make(map[string]int, len(expenses))
	args := make([]any, len(expenses))
	for i := range expenses {
		index[expenses[i].ID] = i
		args[i] = expenses[i].ID
		expenses[i].Splits = nil
	}

	rows, err := c.q.QueryContext(ctx,
		"SELECT expense_id, user_id, amount FROM expense_splits WHERE expense_id IN ("+placeholders(len(args))+") ORDER BY expense_id, user_id",
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to get expense splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.ExpenseSplit
		if err := rows.Scan(&s.ExpenseID, &s.UserID, &s.Amount); err != nil {
			return fmt.Errorf("failed to scan expense split: %w", err)
		}
		i := index[s.ExpenseID]
		expenses[i].Splits = append(expenses[i].Splits, s)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate expense splits: %w", err)
	}
	return nil
}

// CreateExpense persists a new expense with its splits.
func (c *conn) CreateExpense(ctx context.Context, e *models.Expense) error {
	_, err := c.q.ExecContext(ctx,
		`INSERT INTO expenses (id, description, amount, currency, paid_by, group_id, category, date, split_type, split_version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Description, money.Format(e.Amount), e.Currency, e.PaidBy, nullIfEmpty(e.GroupID),
		e.Category, toMillis(e.Date), string(e.SplitType), e.SplitVersion, toMillis(e.CreatedAt),
	)
	if err != nil {
		return wrapConstraint(err, "insert expense")
	}

	for _, s := range e.Splits {
		_, err = c.q.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, user_id, amount) VALUES (?, ?, ?)",
			e.ID, s.UserID, money.Format(s.Amount),
		)
		if err != nil {
			return wrapConstraint(err, "insert expense split")
		}
	}
	return nil
}

// GetExpense retrieves an expense by ID, including its splits.
func (c *conn) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM expenses e WHERE e.id = ?", expenseID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	expenses := []models.Expense{*e}
	if err := c.loadSplits(ctx, expenses); err != nil {
		return nil, err
	}
	return &expenses[0], nil
}

// ListExpensesByGroup returns the group's expenses, oldest first.
func (c *conn) ListExpensesByGroup(ctx context.Context, groupID string) ([]models.Expense, error) {
	return c.queryExpenses(ctx,
		"SELECT "+expenseColumns+" FROM expenses e WHERE e.group_id = ? ORDER BY e.date, e.id",
		groupID,
	)
}

// ListExpensesBetween returns expenses where one user paid and the other has a split.
func (c *conn) ListExpensesBetween(ctx context.Context, userA, userB, includeGroupID string) ([]models.Expense, error) {
	return c.queryExpenses(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses e LEFT JOIN groups g ON g.id = e.group_id
		 WHERE ((e.paid_by = ? AND EXISTS (SELECT 1 FROM expense_splits s WHERE s.expense_id = e.id AND s.user_id = ?))
		     OR (e.paid_by = ? AND EXISTS (SELECT 1 FROM expense_splits s WHERE s.expense_id = e.id AND s.user_id = ?)))
		   AND `+visibleIn("e")+`
		 ORDER BY e.date, e.id`,
		userA, userB, userB, userA, includeGroupID,
	)
}

// ListExpenseIDsWithSplitFor returns the group's expenses on which the user has a split.
func (c *conn) ListExpenseIDsWithSplitFor(ctx context.Context, groupID, userID string) ([]string, error) {
	rows, err := c.q.QueryContext(ctx,
		`SELECT e.id FROM expenses e JOIN expense_splits s ON s.expense_id = e.id
		 WHERE e.group_id = ? AND s.user_id = ? ORDER BY e.date, e.id`,
		groupID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses for user: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan expense id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense ids: %w", err)
	}
	return ids, nil
}

// CountExpensesByGroup counts the group's expense rows.
func (c *conn) CountExpensesByGroup(ctx context.Context, groupID string) (int, error) {
	var n int
	if err := c.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses WHERE group_id = ?", groupID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count expenses: %w", err)
	}
	return n, nil
}

// CountExpensesPaidBy counts the expenses a user has paid.
func (c *conn) CountExpensesPaidBy(ctx context.Context, userID string) (int, error) {
	var n int
	if err := c.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses WHERE paid_by = ?", userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count expenses: %w", err)
	}
	return n, nil
}

// UpdateSplitAmount overwrites one participant's split.
func (c *conn) UpdateSplitAmount(ctx context.Context, expenseID, userID string, amount decimal.Decimal) error {
	res, err := c.q.ExecContext(ctx,
		"UPDATE expense_splits SET amount = ? WHERE expense_id = ? AND user_id = ?",
		money.Format(amount), expenseID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update split: %w", err)
	}
	return requireOneRow(res, fmt.Errorf("split of %s on expense %s: %w", userID, expenseID, storage.ErrNotFound))
}

// DeleteSplit removes one participant's split.
func (c *conn) DeleteSplit(ctx context.Context, expenseID, userID string) error {
	res, err := c.q.ExecContext(ctx,
		"DELETE FROM expense_splits WHERE expense_id = ? AND user_id = ?",
		expenseID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete split: %w", err)
	}
	return requireOneRow(res, fmt.Errorf("split of %s on expense %s: %w", userID, expenseID, storage.ErrNotFound))
}

// BumpSplitVersion is the compare-and-set guarding an expense's split set.
func (c *conn) BumpSplitVersion(ctx context.Context, expenseID string, expected int64) error {
	res, err := c.q.ExecContext(ctx,
		"UPDATE expenses SET split_version = split_version + 1 WHERE id = ? AND split_version = ?",
		expenseID, expected,
	)
	if err != nil {
		return fmt.Errorf("failed to bump split version: %w", err)
	}
	return requireOneRow(res, fmt.Errorf("expense %s split version %d: %w", expenseID, expected, storage.ErrConcurrentModification))
}

// CreateComment attaches a comment to an expense.
func (c *conn) CreateComment(ctx context.Context, comment *models.Comment) error {
	_, err := c.q.ExecContext(ctx,
		"INSERT INTO comments (id, expense_id, user_id, content, created_at) VALUES (?, ?, ?, ?, ?)",
		comment.ID, comment.ExpenseID, comment.UserID, comment.Content, toMillis(comment.CreatedAt),
	)
	if err != nil {
		return wrapConstraint(err, "insert comment")
	}
	return nil
}

// CreatePurchaseItem attaches a receipt line to an expense.
func (c *conn) CreatePurchaseItem(ctx context.Context, item *models.PurchaseItem) error {
	_, err := c.q.ExecContext(ctx,
		"INSERT INTO purchase_items (id, expense_id, name, price, quantity, category) VALUES (?, ?, ?, ?, ?, ?)",
		item.ID, item.ExpenseID, item.Name, money.Format(item.Price), item.Quantity, item.Category,
	)
	if err != nil {
		return wrapConstraint(err, "insert purchase item")
	}
	return nil
}
