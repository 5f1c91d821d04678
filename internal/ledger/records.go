package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

const defaultCurrency = "USD"

// CreateUser registers a ledger identity.
func (e *Engine) CreateUser(ctx context.Context, displayName string) (*models.User, error) {
	const op = "create user"

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, invalidArgument(op, "display name is required")
	}

	user := models.NewUser(displayName)
	user.CreatedAt = e.clock()
	err := e.mutate(ctx, op, func(tx storage.Tx, _ Settings) error {
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateGroup creates an active group. The creator becomes its admin and
// every other listed user a member.
func (e *Engine) CreateGroup(ctx context.Context, name, createdBy string, memberIDs []string) (*models.Group, error) {
	const op = "create group"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidArgument(op, "group name is required")
	}

	now := e.clock()
	group := &models.Group{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedBy: createdBy,
		Lifecycle: models.Active(),
		CreatedAt: now,
	}

	err := e.mutate(ctx, op, func(tx storage.Tx, s Settings) error {
		if err := requireUser(ctx, tx, op, createdBy); err != nil {
			return err
		}
		if s.MaxGroupsPerUser > 0 {
			n, err := tx.CountGroupsForUser(ctx, createdBy)
			if err != nil {
				return err
			}
			if n >= s.MaxGroupsPerUser {
				return invalidState(op, "group limit of %d reached", s.MaxGroupsPerUser)
			}
		}

		if err := tx.CreateGroup(ctx, group); err != nil {
			return err
		}
		if err := tx.AddMember(ctx, &models.GroupMember{GroupID: group.ID, UserID: createdBy, Role: models.RoleAdmin, JoinedAt: now}); err != nil {
			return err
		}

		seen := map[string]bool{createdBy: true}
		for _, id := range memberIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			if err := requireUser(ctx, tx, op, id); err != nil {
				return err
			}
			if err := tx.AddMember(ctx, &models.GroupMember{GroupID: group.ID, UserID: id, Role: models.RoleMember, JoinedAt: now}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "Group created", "group_id", group.ID, "created_by", createdBy)
	return group, nil
}

// AddMember adds a user to an active group. Any member may invite.
func (e *Engine) AddMember(ctx context.Context, groupID, userID, actingUserID string) error {
	const op = "add member"

	return e.mutate(ctx, op, func(tx storage.Tx, _ Settings) error {
		if _, err := loadActiveGroup(ctx, tx, op, groupID); err != nil {
			return err
		}
		actor, err := membership(ctx, tx, groupID, actingUserID)
		if err != nil {
			return err
		}
		if actor == nil {
			return forbidden(op, "only group members can add members")
		}
		if err := requireUser(ctx, tx, op, userID); err != nil {
			return err
		}

		err = tx.AddMember(ctx, &models.GroupMember{GroupID: groupID, UserID: userID, Role: models.RoleMember, JoinedAt: e.clock()})
		if errors.Is(err, storage.ErrConflict) {
			return invalidState(op, "user %s is already a member", userID)
		}
		return err
	})
}

// NewExpense is the input to CreateExpense.
type NewExpense struct {
	Description string
	Amount      decimal.Decimal
	Currency    string
	PaidBy      string
	GroupID     string
	Category    string
	Date        time.Time
	SplitType   models.SplitType
	Splits      []calculator.PlanEntry
}

// CreateExpense records an expense and its splits. The split plan is
// resolved to cent amounts that add up to the total exactly.
func (e *Engine) CreateExpense(ctx context.Context, in NewExpense, actingUserID string) (*models.Expense, error) {
	const op = "create expense"

	if strings.TrimSpace(in.Description) == "" {
		return nil, invalidArgument(op, "description is required")
	}
	if in.PaidBy == "" {
		in.PaidBy = actingUserID
	}

	shares, err := calculator.PlanSplits(in.Amount, in.SplitType, in.Splits)
	if err != nil {
		return nil, invalidArgument(op, "%v", err)
	}

	involved := in.PaidBy == actingUserID
	for _, s := range shares {
		if s.UserID == actingUserID {
			involved = true
		}
	}

	now := e.clock()
	exp := &models.Expense{
		ID:          uuid.New().String(),
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Currency:    in.Currency,
		PaidBy:      in.PaidBy,
		GroupID:     in.GroupID,
		Category:    in.Category,
		Date:        in.Date,
		SplitType:   in.SplitType,
		CreatedAt:   now,
	}
	if exp.Currency == "" {
		exp.Currency = defaultCurrency
	}
	if exp.SplitType == "" {
		exp.SplitType = models.SplitEqual
	}
	if exp.Date.IsZero() {
		exp.Date = now
	}
	for _, s := range shares {
		exp.Splits = append(exp.Splits, models.ExpenseSplit{ExpenseID: exp.ID, UserID: s.UserID, Amount: s.Amount})
	}

	err = e.mutate(ctx, op, func(tx storage.Tx, s Settings) error {
		if exp.GroupID != "" {
			if _, err := loadActiveGroup(ctx, tx, op, exp.GroupID); err != nil {
				return err
			}
			actor, err := membership(ctx, tx, exp.GroupID, actingUserID)
			if err != nil {
				return err
			}
			if actor == nil {
				return forbidden(op, "only group members can add group expenses")
			}
			for _, id := range append([]string{exp.PaidBy}, splitUsers(exp)...) {
				m, err := membership(ctx, tx, exp.GroupID, id)
				if err != nil {
					return err
				}
				if m == nil {
					return invalidArgument(op, "user %s is not a member of group %s", id, exp.GroupID)
				}
			}
		} else {
			if !involved {
				return forbidden(op, "acting user must pay for or share a personal expense")
			}
			for _, id := range append([]string{exp.PaidBy}, splitUsers(exp)...) {
				if err := requireUser(ctx, tx, op, id); err != nil {
					return err
				}
			}
		}

		if s.MaxExpensesPerUser > 0 {
			n, err := tx.CountExpensesPaidBy(ctx, exp.PaidBy)
			if err != nil {
				return err
			}
			if n >= s.MaxExpensesPerUser {
				return invalidState(op, "expense limit of %d reached", s.MaxExpensesPerUser)
			}
		}

		if !money.WithinSplitTolerance(exp.SplitTotal(), exp.Amount) {
			return newError(ErrArithmeticInconsistency, op, "splits sum to %s for total %s", exp.SplitTotal(), exp.Amount)
		}
		return tx.CreateExpense(ctx, exp)
	})
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "Expense created", "expense_id", exp.ID, "group_id", exp.GroupID, "amount", money.Format(exp.Amount))
	return exp, nil
}

func splitUsers(exp *models.Expense) []string {
	ids := make([]string, len(exp.Splits))
	for i, s := range exp.Splits {
		ids[i] = s.UserID
	}
	return ids
}

// NewPayment is the input to RecordPayment.
type NewPayment struct {
	PayerID  string
	PayeeID  string
	Amount   decimal.Decimal
	Currency string
	Date     time.Time
	GroupID  string
	Notes    string
}

// RecordPayment stores a settlement between two users. The acting user must
// be one of them.
func (e *Engine) RecordPayment(ctx context.Context, in NewPayment, actingUserID string) (*models.Payment, error) {
	const op = "record payment"

	switch {
	case in.PayerID == "" || in.PayeeID == "":
		return nil, invalidArgument(op, "payer and payee are required")
	case in.PayerID == in.PayeeID:
		return nil, invalidArgument(op, "cannot pay yourself")
	case !in.Amount.IsPositive():
		return nil, invalidArgument(op, "amount must be positive")
	case !in.Amount.Equal(money.Round(in.Amount)):
		return nil, invalidArgument(op, "amount %s has more than %d decimals", in.Amount, money.Places)
	case actingUserID != in.PayerID && actingUserID != in.PayeeID:
		return nil, forbidden(op, "only the payer or payee can record a payment")
	}

	now := e.clock()
	p := &models.Payment{
		ID:        uuid.New().String(),
		PayerID:   in.PayerID,
		PayeeID:   in.PayeeID,
		Amount:    in.Amount,
		Currency:  in.Currency,
		Date:      in.Date,
		GroupID:   in.GroupID,
		Notes:     in.Notes,
		CreatedAt: now,
	}
	if p.Currency == "" {
		p.Currency = defaultCurrency
	}
	if p.Date.IsZero() {
		p.Date = now
	}

	err := e.mutate(ctx, op, func(tx storage.Tx, _ Settings) error {
		if p.GroupID != "" {
			if _, err := loadActiveGroup(ctx, tx, op, p.GroupID); err != nil {
				return err
			}
			for _, id := range []string{p.PayerID, p.PayeeID} {
				m, err := membership(ctx, tx, p.GroupID, id)
				if err != nil {
					return err
				}
				if m == nil {
					return invalidArgument(op, "user %s is not a member of group %s", id, p.GroupID)
				}
			}
		} else {
			for _, id := range []string{p.PayerID, p.PayeeID} {
				if err := requireUser(ctx, tx, op, id); err != nil {
					return err
				}
			}
		}
		return tx.CreatePayment(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "Payment recorded", "payment_id", p.ID, "group_id", p.GroupID, "amount", money.Format(p.Amount))
	return p, nil
}

// AddComment attaches a comment to an expense of an active group, or to a
// personal expense the user takes part in.
func (e *Engine) AddComment(ctx context.Context, expenseID, userID, content string) (*models.Comment, error) {
	const op = "add comment"

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalidArgument(op, "comment is empty")
	}

	c := &models.Comment{ID: uuid.New().String(), ExpenseID: expenseID, UserID: userID, Content: content, CreatedAt: e.clock()}
	err := e.mutate(ctx, op, func(tx storage.Tx, _ Settings) error {
		if err := e.requireExpenseAccess(ctx, tx, op, expenseID, userID); err != nil {
			return err
		}
		return tx.CreateComment(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// AddPurchaseItem attaches a receipt line to an expense.
func (e *Engine) AddPurchaseItem(ctx context.Context, item models.PurchaseItem, actingUserID string) (*models.PurchaseItem, error) {
	const op = "add purchase item"

	switch {
	case strings.TrimSpace(item.Name) == "":
		return nil, invalidArgument(op, "item name is required")
	case item.Price.IsNegative():
		return nil, invalidArgument(op, "price must not be negative")
	case item.Quantity < 0:
		return nil, invalidArgument(op, "quantity must not be negative")
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	item.ID = uuid.New().String()

	err := e.mutate(ctx, op, func(tx storage.Tx, _ Settings) error {
		if err := e.requireExpenseAccess(ctx, tx, op, item.ExpenseID, actingUserID); err != nil {
			return err
		}
		return tx.CreatePurchaseItem(ctx, &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// requireExpenseAccess allows group members on group expenses and the payer
// or participants on personal ones. The expense's group must be active.
func (e *Engine) requireExpenseAccess(ctx context.Context, tx storage.Tx, op, expenseID, userID string) error {
	exp, err := tx.GetExpense(ctx, expenseID)
	if errors.Is(err, storage.ErrNotFound) {
		return notFound(op, "expense %s not found", expenseID)
	}
	if err != nil {
		return err
	}

	if exp.GroupID != "" {
		if _, err := loadActiveGroup(ctx, tx, op, exp.GroupID); err != nil {
			return err
		}
		m, err := membership(ctx, tx, exp.GroupID, userID)
		if err != nil {
			return err
		}
		if m == nil {
			return forbidden(op, "only group members can modify this expense")
		}
		return nil
	}

	if _, ok := exp.SplitFor(userID); ok || exp.PaidBy == userID {
		return nil
	}
	return forbidden(op, "only participants can modify this expense")
}
