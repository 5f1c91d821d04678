package service

import "time"

// Amounts travel as decimal strings with two fractional digits.

type Empty struct{}

type Split struct {
	UserID string `json:"userId"`
	Amount string `json:"amount"`
}

type SplitPlanEntry struct {
	UserID string `json:"userId"`
	// Value is an amount, percentage, share count or adjustment depending on the split type.
	Value string `json:"value,omitempty"`
}

type Group struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedBy string     `json:"createdBy"`
	State     string     `json:"state"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Expense struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	PaidBy      string    `json:"paidBy"`
	GroupID     string    `json:"groupId,omitempty"`
	Category    string    `json:"category,omitempty"`
	Date        time.Time `json:"date"`
	SplitType   string    `json:"splitType"`
	Splits      []Split   `json:"splits"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Payment struct {
	ID        string    `json:"id"`
	PayerID   string    `json:"payerId"`
	PayeeID   string    `json:"payeeId"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Date      time.Time `json:"date"`
	GroupID   string    `json:"groupId,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type MemberBalance struct {
	UserID     string `json:"userId"`
	NetBalance string `json:"netBalance"`
	TotalPaid  string `json:"totalPaid"`
	TotalOwed  string `json:"totalOwed"`
}

type Settlement struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type DeletedGroup struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	DeletedAt     time.Time `json:"deletedAt"`
	DaysRemaining int       `json:"daysRemaining"`
}

type ComputeBalanceRequest struct {
	UserA   string `json:"userA"`
	UserB   string `json:"userB"`
	GroupID string `json:"groupId,omitempty"`
}

type ComputeBalanceResponse struct {
	// Balance is positive when userB owes userA.
	Balance string `json:"balance"`
}

type GroupBalancesRequest struct {
	GroupID string `json:"groupId"`
}

type GroupBalancesResponse struct {
	Balances    []MemberBalance `json:"balances"`
	Settlements []Settlement    `json:"settlements"`
}

type ExitExpenseRequest struct {
	ExpenseID string `json:"expenseId"`
	// UserID defaults to the caller.
	UserID string `json:"userId,omitempty"`
}

type ExitExpenseResponse struct {
	ExpenseID       string  `json:"expenseId"`
	ExitingAmount   string  `json:"exitingAmount"`
	RedistributedTo int     `json:"redistributedTo"`
	NewSplits       []Split `json:"newSplits"`
}

type LeaveGroupRequest struct {
	GroupID string `json:"groupId"`
}

type RemoveMemberRequest struct {
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
}

type LeaveGroupResponse struct {
	RedistributedExpenses int `json:"redistributedExpenses"`
}

type TransferAdminRequest struct {
	GroupID    string `json:"groupId"`
	NewAdminID string `json:"newAdminId"`
}

type GroupRequest struct {
	GroupID string `json:"groupId"`
}

type DeleteAllExpensesResponse struct {
	Deleted int `json:"deleted"`
}

type ListDeletedGroupsResponse struct {
	Groups []DeletedGroup `json:"groups"`
}

type CreateGroupRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds,omitempty"`
}

type CreateGroupResponse struct {
	Group Group `json:"group"`
}

type AddMemberRequest struct {
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
}

type CreateExpenseRequest struct {
	Description string           `json:"description"`
	Amount      string           `json:"amount"`
	Currency    string           `json:"currency,omitempty"`
	PaidBy      string           `json:"paidBy,omitempty"`
	GroupID     string           `json:"groupId,omitempty"`
	Category    string           `json:"category,omitempty"`
	Date        *time.Time       `json:"date,omitempty"`
	SplitType   string           `json:"splitType,omitempty"`
	Splits      []SplitPlanEntry `json:"splits"`
}

type CreateExpenseResponse struct {
	Expense Expense `json:"expense"`
}

type RecordPaymentRequest struct {
	PayerID  string     `json:"payerId"`
	PayeeID  string     `json:"payeeId"`
	Amount   string     `json:"amount"`
	Currency string     `json:"currency,omitempty"`
	Date     *time.Time `json:"date,omitempty"`
	GroupID  string     `json:"groupId,omitempty"`
	Notes    string     `json:"notes,omitempty"`
}

type RecordPaymentResponse struct {
	Payment Payment `json:"payment"`
}
