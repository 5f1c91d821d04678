package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

type testEnv struct {
	client *LedgerServiceClient
	jwt    *auth.JWTManager
}

// setupTestServer serves the LedgerService over httptest with alice, bob
// and carol registered.
func setupTestServer(t *testing.T, opts ...ledger.Option) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.WithTx(ctx, func(tx storage.Tx) error {
		for _, id := range []string{"alice", "bob", "carol"} {
			if err := tx.CreateUser(ctx, &models.User{ID: id, DisplayName: id, CreatedAt: time.Now()}); err != nil {
				return err
			}
		}
		return nil
	}))

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	path, handler := NewLedgerServiceHandler(
		NewLedgerService(ledger.New(store, opts...)),
		connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor()),
	)

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		client: NewLedgerServiceClient(http.DefaultClient, server.URL),
		jwt:    jwtManager,
	}
}

// as builds a request authenticated as userID.
func as[T any](t *testing.T, env *testEnv, userID string, msg *T) *connect.Request[T] {
	t.Helper()
	token, err := env.jwt.Generate(userID)
	require.NoError(t, err)
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func createGroup(t *testing.T, env *testEnv, admin string, members ...string) string {
	t.Helper()
	resp, err := env.client.CreateGroup(context.Background(), as(t, env, admin, &CreateGroupRequest{Name: "Trip", MemberIDs: members}))
	require.NoError(t, err)
	return resp.Msg.Group.ID
}

func TestUnauthenticated(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	_, err := env.client.ListDeletedGroups(ctx, connect.NewRequest(&Empty{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	req := connect.NewRequest(&Empty{})
	req.Header().Set("Authorization", "Bearer nonsense")
	_, err = env.client.ListDeletedGroups(ctx, req)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestExpenseExitFlow(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	groupID := createGroup(t, env, "alice", "bob", "carol")

	created, err := env.client.CreateExpense(ctx, as(t, env, "alice", &CreateExpenseRequest{
		Description: "Dinner",
		Amount:      "90",
		GroupID:     groupID,
		Splits:      []SplitPlanEntry{{UserID: "alice"}, {UserID: "bob"}, {UserID: "carol"}},
	}))
	require.NoError(t, err)
	exp := created.Msg.Expense
	assert.Equal(t, "90.00", exp.Amount)
	assert.Equal(t, "EQUAL", exp.SplitType)
	assert.Len(t, exp.Splits, 3)

	balance, err := env.client.ComputeBalance(ctx, as(t, env, "bob", &ComputeBalanceRequest{UserA: "alice", UserB: "bob"}))
	require.NoError(t, err)
	assert.Equal(t, "30.00", balance.Msg.Balance)

	_, err = env.client.ExitExpense(ctx, as(t, env, "bob", &ExitExpenseRequest{ExpenseID: exp.ID, UserID: "carol"}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	exited, err := env.client.ExitExpense(ctx, as(t, env, "carol", &ExitExpenseRequest{ExpenseID: exp.ID}))
	require.NoError(t, err)
	assert.Equal(t, "30.00", exited.Msg.ExitingAmount)
	assert.Equal(t, []Split{{UserID: "alice", Amount: "45.00"}, {UserID: "bob", Amount: "45.00"}}, exited.Msg.NewSplits)

	report, err := env.client.GroupBalances(ctx, as(t, env, "alice", &GroupBalancesRequest{GroupID: groupID}))
	require.NoError(t, err)
	assert.Equal(t, []Settlement{{From: "bob", To: "alice", Amount: "45.00"}}, report.Msg.Settlements)

	left, err := env.client.LeaveGroup(ctx, as(t, env, "bob", &LeaveGroupRequest{GroupID: groupID}))
	require.NoError(t, err)
	assert.Equal(t, 1, left.Msg.RedistributedExpenses)

	_, err = env.client.ExitExpense(ctx, as(t, env, "alice", &ExitExpenseRequest{ExpenseID: exp.ID}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	_, err = env.client.ExitExpense(ctx, as(t, env, "alice", &ExitExpenseRequest{ExpenseID: "missing"}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestAdminAndMembers(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	groupID := createGroup(t, env, "alice", "bob")

	_, err := env.client.AddMember(ctx, as(t, env, "bob", &AddMemberRequest{GroupID: groupID, UserID: "carol"}))
	require.NoError(t, err)

	_, err = env.client.TransferAdmin(ctx, as(t, env, "bob", &TransferAdminRequest{GroupID: groupID, NewAdminID: "carol"}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	_, err = env.client.LeaveGroup(ctx, as(t, env, "alice", &LeaveGroupRequest{GroupID: groupID}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	_, err = env.client.TransferAdmin(ctx, as(t, env, "alice", &TransferAdminRequest{GroupID: groupID, NewAdminID: "carol"}))
	require.NoError(t, err)

	_, err = env.client.RemoveMember(ctx, as(t, env, "carol", &RemoveMemberRequest{GroupID: groupID, UserID: "bob"}))
	require.NoError(t, err)

	_, err = env.client.LeaveGroup(ctx, as(t, env, "alice", &LeaveGroupRequest{GroupID: groupID}))
	require.NoError(t, err)
}

func TestSoftDeleteFlow(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	groupID := createGroup(t, env, "alice", "bob")

	_, err := env.client.CreateExpense(ctx, as(t, env, "bob", &CreateExpenseRequest{
		Description: "Fuel",
		Amount:      "40",
		GroupID:     groupID,
		SplitType:   "EXACT",
		Splits:      []SplitPlanEntry{{UserID: "alice", Value: "10"}, {UserID: "bob", Value: "30"}},
	}))
	require.NoError(t, err)

	_, err = env.client.SoftDeleteGroup(ctx, as(t, env, "alice", &GroupRequest{GroupID: groupID}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
	assert.Contains(t, err.Error(), "1 remaining")

	deleted, err := env.client.DeleteAllExpenses(ctx, as(t, env, "alice", &GroupRequest{GroupID: groupID}))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted.Msg.Deleted)

	_, err = env.client.SoftDeleteGroup(ctx, as(t, env, "bob", &GroupRequest{GroupID: groupID}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	_, err = env.client.SoftDeleteGroup(ctx, as(t, env, "alice", &GroupRequest{GroupID: groupID}))
	require.NoError(t, err)

	list, err := env.client.ListDeletedGroups(ctx, as(t, env, "bob", &Empty{}))
	require.NoError(t, err)
	require.Len(t, list.Msg.Groups, 1)
	assert.Equal(t, groupID, list.Msg.Groups[0].ID)
	assert.Equal(t, 4, list.Msg.Groups[0].DaysRemaining)

	_, err = env.client.CreateExpense(ctx, as(t, env, "bob", &CreateExpenseRequest{
		Description: "Late",
		Amount:      "5",
		GroupID:     groupID,
		Splits:      []SplitPlanEntry{{UserID: "bob"}},
	}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	_, err = env.client.DeleteGroup(ctx, as(t, env, "alice", &GroupRequest{GroupID: groupID}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
}

func TestDeleteGroupImmediately(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	groupID := createGroup(t, env, "alice", "bob")

	_, err := env.client.DeleteGroup(ctx, as(t, env, "bob", &GroupRequest{GroupID: groupID}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	_, err = env.client.DeleteGroup(ctx, as(t, env, "alice", &GroupRequest{GroupID: groupID}))
	require.NoError(t, err)

	_, err = env.client.GroupBalances(ctx, as(t, env, "alice", &GroupBalancesRequest{GroupID: groupID}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestInvalidInput(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	_, err := env.client.CreateExpense(ctx, as(t, env, "alice", &CreateExpenseRequest{
		Description: "Coffee",
		Amount:      "1.234",
		Splits:      []SplitPlanEntry{{UserID: "alice"}},
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = env.client.CreateExpense(ctx, as(t, env, "alice", &CreateExpenseRequest{
		Description: "Coffee",
		Amount:      "4",
		SplitType:   "SHARES",
		Splits:      []SplitPlanEntry{{UserID: "alice", Value: "x"}},
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = env.client.RecordPayment(ctx, as(t, env, "alice", &RecordPaymentRequest{PayerID: "alice", PayeeID: "alice", Amount: "3"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	paid, err := env.client.RecordPayment(ctx, as(t, env, "alice", &RecordPaymentRequest{PayerID: "alice", PayeeID: "bob", Amount: "3"}))
	require.NoError(t, err)
	assert.Equal(t, "3.00", paid.Msg.Payment.Amount)

	balance, err := env.client.ComputeBalance(ctx, as(t, env, "alice", &ComputeBalanceRequest{UserA: "alice", UserB: "bob"}))
	require.NoError(t, err)
	assert.Equal(t, "3.00", balance.Msg.Balance)
}

func TestMaintenanceMode(t *testing.T) {
	env := setupTestServer(t, ledger.WithSettings(ledger.StaticSettings{MaintenanceMode: true}))
	ctx := context.Background()

	_, err := env.client.CreateGroup(ctx, as(t, env, "alice", &CreateGroupRequest{Name: "Trip"}))
	assert.Equal(t, connect.CodeUnavailable, connect.CodeOf(err))

	_, err = env.client.ComputeBalance(ctx, as(t, env, "alice", &ComputeBalanceRequest{UserA: "alice", UserB: "bob"}))
	require.NoError(t, err)
}

func TestToConnectError(t *testing.T) {
	tests := []struct {
		err  error
		want connect.Code
	}{
		{&ledger.Error{Kind: ledger.ErrNotFound}, connect.CodeNotFound},
		{&ledger.Error{Kind: ledger.ErrForbidden}, connect.CodePermissionDenied},
		{&ledger.Error{Kind: ledger.ErrInvalidArgument}, connect.CodeInvalidArgument},
		{&ledger.ExpensesRemainingError{GroupID: "g", Remaining: 2}, connect.CodeFailedPrecondition},
		{&ledger.Error{Kind: ledger.ErrUnavailable}, connect.CodeUnavailable},
		{fmt.Errorf("exit expense: %w", storage.ErrConcurrentModification), connect.CodeAborted},
		{context.DeadlineExceeded, connect.CodeDeadlineExceeded},
		{&ledger.Error{Kind: ledger.ErrArithmeticInconsistency, Msg: "splits drifted"}, connect.CodeInternal},
		{errors.New("disk on fire"), connect.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			err := toConnectError(context.Background(), "Test", tt.err)
			assert.Equal(t, tt.want, connect.CodeOf(err))
			if tt.want == connect.CodeInternal {
				assert.NotContains(t, err.Error(), tt.err.Error())
			}
		})
	}
}
