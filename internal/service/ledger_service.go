// Package service exposes the ledger engine as a connect RPC service.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// LedgerService implements the connect LedgerService. The acting user of
// every call is the authenticated user on the context.
type LedgerService struct {
	engine *ledger.Engine
}

// NewLedgerService creates a LedgerService over the given engine.
func NewLedgerService(engine *ledger.Engine) *LedgerService {
	return &LedgerService{engine: engine}
}

func actingUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}
	return userID, nil
}

// toConnectError maps ledger error kinds onto connect codes. Unexpected
// failures are logged and reported without detail.
func toConnectError(ctx context.Context, procedure string, err error) error {
	var code connect.Code
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, ledger.ErrForbidden):
		code = connect.CodePermissionDenied
	case errors.Is(err, ledger.ErrInvalidArgument):
		code = connect.CodeInvalidArgument
	case errors.Is(err, ledger.ErrInvalidState):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, ledger.ErrUnavailable):
		code = connect.CodeUnavailable
	case ledger.IsRetryable(err):
		code = connect.CodeAborted
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	default:
		slog.ErrorContext(ctx, "Ledger operation failed", "procedure", procedure, "error", err)
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}
	return connect.NewError(code, err)
}

func invalidAmount(field string, err error) error {
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s: %w", field, err))
}

// ComputeBalance returns what userB owes userA.
func (s *LedgerService) ComputeBalance(ctx context.Context, req *connect.Request[ComputeBalanceRequest]) (*connect.Response[ComputeBalanceResponse], error) {
	if _, err := actingUser(ctx); err != nil {
		return nil, err
	}

	balance, err := s.engine.ComputeBalance(ctx, req.Msg.UserA, req.Msg.UserB, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, "ComputeBalance", err)
	}
	return connect.NewResponse(&ComputeBalanceResponse{Balance: money.Format(balance)}), nil
}

func (s *LedgerService) GroupBalances(ctx context.Context, req *connect.Request[GroupBalancesRequest]) (*connect.Response[GroupBalancesResponse], error) {
	if _, err := actingUser(ctx); err != nil {
		return nil, err
	}

	report, err := s.engine.GroupBalances(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, "GroupBalances", err)
	}

	resp := &GroupBalancesResponse{
		Balances:    make([]MemberBalance, len(report.Balances)),
		Settlements: make([]Settlement, len(report.Settlements)),
	}
	for i, b := range report.Balances {
		resp.Balances[i] = MemberBalance{
			UserID:     b.UserID,
			NetBalance: money.Format(b.NetBalance),
			TotalPaid:  money.Format(b.TotalPaid),
			TotalOwed:  money.Format(b.TotalOwed),
		}
	}
	for i, e := range report.Settlements {
		resp.Settlements[i] = Settlement{From: e.From, To: e.To, Amount: money.Format(e.Amount)}
	}
	return connect.NewResponse(resp), nil
}

// ExitExpense removes a participant from an expense.
func (s *LedgerService) ExitExpense(ctx context.Context, req *connect.Request[ExitExpenseRequest]) (*connect.Response[ExitExpenseResponse], error) {
	actor, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	userID := req.Msg.UserID
	if userID == "" {
		userID = actor
	}

	summary, err := s.engine.ExitExpense(ctx, req.Msg.ExpenseID, userID, actor)
	if err != nil {
		return nil, toConnectError(ctx, "ExitExpense", err)
	}
	return connect.NewResponse(&ExitExpenseResponse{
		ExpenseID:       summary.ExpenseID,
		ExitingAmount:   money.Format(summary.ExitingAmount),
		RedistributedTo: summary.RedistributedTo,
		NewSplits:       sharesToSplits(summary.NewSplits),
	}), nil
}

func (s *LedgerService) LeaveGroup(ctx context.Context, req *connect.Request[LeaveGroupRequest]) (*connect.Response[LeaveGroupResponse], error) {
	actor, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.engine.LeaveGroup(ctx, req.Msg.GroupID, actor, actor)
	if err != nil {
		return nil, toConnectError(ctx, "LeaveGroup", err)
	}
	return connect.NewResponse(&LeaveGroupResponse{RedistributedExpenses: n}), nil
}

func (s *LedgerService) RemoveMember(ctx context.Context, req *connect.Request[RemoveMemberRequest]) (*connect.Response[LeaveGroupResponse], error) {
	actor, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.engine.RemoveMember(ctx, req.Msg.GroupID, req.Msg.UserID, actor)
	if err != nil {
		return nil, toConnectError(ctx, "RemoveMember", err)
	}
	return connect.NewResponse(&LeaveGroupResponse{RedistributedExpenses: n}), nil
}

// TransferAdmin hands the caller's admin role to another member.
func (s *LedgerService) TransferAdmin(ctx context.Context, req *connect.Request[TransferAdminRequest]) (*connect.Response[Empty], error) {
	actor, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.engine.TransferAdmin(ctx, req.Msg.GroupID, actor, req.Msg.NewAdminID); err != nil {
		return nil, toConnectError(ctx, "TransferAdmin", err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *LedgerService) SoftDeleteGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[Empty], error) {
	actor, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.engine.SoftDeleteGroup(ctx, req.Msg.GroupID, actor); err != nil {
		return nil, toConnectError(ctx, "SoftDeleteGroup", err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *LedgerService) DeleteAllExpenses(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[DeleteAllExpensesResponse], error) {
	actor, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.engine.DeleteAllExpenses(ctx, req.Msg.GroupID, actor)
	if err != nil {
		return nil, toConnectError(ctx, "DeleteAllExpenses", err)
	}
	return connect.NewResponse(&DeleteAllExpensesResponse{Deleted: n}), nil
}

func (s *LedgerService) DeleteGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[Empty], error) {
	actor, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.engine.DeleteGroup(ctx, req.Msg.GroupID, actor); err != nil {
		return nil, toConnectError(ctx, "DeleteGroup", err)
	}
	return connect.NewResponse(&Empty{}), nil
}

// ListDeletedGroups lists the caller's soft-deleted groups still in their grace window.
func (s *LedgerService) ListDeletedGroups(ctx context.Context, _ *connect.Request[Empty]) (*connect.Response[ListDeletedGroupsResponse], error) {
	actor, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := s.engine.ListDeletedGroups(ctx, actor)
	if err != nil {
		return nil, toConnectError(ctx, "ListDeletedGroups", err)
	}

	resp := &ListDeletedGroupsResponse{Groups: make([]DeletedGroup, len(groups))}
	for i, g := range groups {
		resp.Groups[i] = DeletedGroup{ID: g.ID, Name: g.Name, DeletedAt: g.DeletedAt, DaysRemaining: g.DaysRemaining}
	}
	return connect.NewResponse(resp), nil
}

func (s *LedgerService) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	actor, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}

	group, err := s.engine.CreateGroup(ctx, req.Msg.Name, actor, req.Msg.MemberIDs)
	if err != nil {
		return nil, toConnectError(ctx, "CreateGroup", err)
	}
	return connect.NewResponse(&CreateGroupResponse{Group: groupToDTO(group)}), nil
}

func (s *LedgerService) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[Empty], error) {
	actor, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.engine.AddMember(ctx, req.Msg.GroupID, req.Msg.UserID, actor); err != nil {
		return nil, toConnectError(ctx, "AddMember", err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *LedgerService) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error) {
	actor, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}

	amount, err := money.Parse(req.Msg.Amount)
	if err != nil {
		return nil, invalidAmount("amount", err)
	}
	plan := make([]calculator.PlanEntry, len(req.Msg.Splits))
	for i, sp := range req.Msg.Splits {
		plan[i] = calculator.PlanEntry{UserID: sp.UserID, Value: money.Zero}
		if sp.Value == "" {
			continue
		}
		if plan[i].Value, err = money.Parse(sp.Value); err != nil {
			return nil, invalidAmount(fmt.Sprintf("splits[%d].value", i), err)
		}
	}

	in := ledger.NewExpense{
		Description: req.Msg.Description,
		Amount:      amount,
		Currency:    req.Msg.Currency,
		PaidBy:      req.Msg.PaidBy,
		GroupID:     req.Msg.GroupID,
		Category:    req.Msg.Category,
		SplitType:   models.SplitType(req.Msg.SplitType),
		Splits:      plan,
	}
	if req.Msg.Date != nil {
		in.Date = *req.Msg.Date
	}

	exp, err := s.engine.CreateExpense(ctx, in, actor)
	if err != nil {
		return nil, toConnectError(ctx, "CreateExpense", err)
	}
	return connect.NewResponse(&CreateExpenseResponse{Expense: expenseToDTO(exp)}), nil
}

func (s *LedgerService) RecordPayment(ctx context.Context, req *connect.Request[RecordPaymentRequest]) (*connect.Response[RecordPaymentResponse], error) {
	actor, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}

	amount, err := money.Parse(req.Msg.Amount)
	if err != nil {
		return nil, invalidAmount("amount", err)
	}
	in := ledger.NewPayment{
		PayerID:  req.Msg.PayerID,
		PayeeID:  req.Msg.PayeeID,
		Amount:   amount,
		Currency: req.Msg.Currency,
		GroupID:  req.Msg.GroupID,
		Notes:    req.Msg.Notes,
	}
	if req.Msg.Date != nil {
		in.Date = *req.Msg.Date
	}

	p, err := s.engine.RecordPayment(ctx, in, actor)
	if err != nil {
		return nil, toConnectError(ctx, "RecordPayment", err)
	}
	return connect.NewResponse(&RecordPaymentResponse{Payment: paymentToDTO(p)}), nil
}

func sharesToSplits(shares []calculator.Share) []Split {
	out := make([]Split, len(shares))
	for i, sh := range shares {
		out[i] = Split{UserID: sh.UserID, Amount: money.Format(sh.Amount)}
	}
	return out
}

func groupToDTO(g *models.Group) Group {
	out := Group{
		ID:        g.ID,
		Name:      g.Name,
		CreatedBy: g.CreatedBy,
		State:     string(g.Lifecycle.State()),
		CreatedAt: g.CreatedAt,
	}
	if at, ok := g.Lifecycle.DeletedAt(); ok {
		out.DeletedAt = &at
	}
	return out
}

func expenseToDTO(e *models.Expense) Expense {
	out := Expense{
		ID:          e.ID,
		Description: e.Description,
		Amount:      money.Format(e.Amount),
		Currency:    e.Currency,
		PaidBy:      e.PaidBy,
		GroupID:     e.GroupID,
		Category:    e.Category,
		Date:        e.Date,
		SplitType:   string(e.SplitType),
		Splits:      make([]Split, len(e.Splits)),
		CreatedAt:   e.CreatedAt,
	}
	for i, s := range e.Splits {
		out.Splits[i] = Split{UserID: s.UserID, Amount: money.Format(s.Amount)}
	}
	return out
}

func paymentToDTO(p *models.Payment) Payment {
	return Payment{
		ID:        p.ID,
		PayerID:   p.PayerID,
		PayeeID:   p.PayeeID,
		Amount:    money.Format(p.Amount),
		Currency:  p.Currency,
		Date:      p.Date,
		GroupID:   p.GroupID,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt,
	}
}
