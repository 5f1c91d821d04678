package service

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// LedgerServiceName is the fully-qualified name of the LedgerService.
const LedgerServiceName = "splitledger.v1.LedgerService"

// Procedure paths of the LedgerService.
const (
	LedgerServiceComputeBalanceProcedure    = "/splitledger.v1.LedgerService/ComputeBalance"
	LedgerServiceGroupBalancesProcedure     = "/splitledger.v1.LedgerService/GroupBalances"
	LedgerServiceExitExpenseProcedure       = "/splitledger.v1.LedgerService/ExitExpense"
	LedgerServiceLeaveGroupProcedure        = "/splitledger.v1.LedgerService/LeaveGroup"
	LedgerServiceRemoveMemberProcedure      = "/splitledger.v1.LedgerService/RemoveMember"
	LedgerServiceTransferAdminProcedure     = "/splitledger.v1.LedgerService/TransferAdmin"
	LedgerServiceSoftDeleteGroupProcedure   = "/splitledger.v1.LedgerService/SoftDeleteGroup"
	LedgerServiceDeleteAllExpensesProcedure = "/splitledger.v1.LedgerService/DeleteAllExpenses"
	LedgerServiceDeleteGroupProcedure       = "/splitledger.v1.LedgerService/DeleteGroup"
	LedgerServiceListDeletedGroupsProcedure = "/splitledger.v1.LedgerService/ListDeletedGroups"
	LedgerServiceCreateGroupProcedure       = "/splitledger.v1.LedgerService/CreateGroup"
	LedgerServiceAddMemberProcedure         = "/splitledger.v1.LedgerService/AddMember"
	LedgerServiceCreateExpenseProcedure     = "/splitledger.v1.LedgerService/CreateExpense"
	LedgerServiceRecordPaymentProcedure     = "/splitledger.v1.LedgerService/RecordPayment"
)

// NewLedgerServiceHandler builds an HTTP handler serving every LedgerService
// procedure. It returns the path prefix to mount it on.
func NewLedgerServiceHandler(svc *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(LedgerServiceComputeBalanceProcedure, connect.NewUnaryHandler(LedgerServiceComputeBalanceProcedure, svc.ComputeBalance, opts...))
	mux.Handle(LedgerServiceGroupBalancesProcedure, connect.NewUnaryHandler(LedgerServiceGroupBalancesProcedure, svc.GroupBalances, opts...))
	mux.Handle(LedgerServiceExitExpenseProcedure, connect.NewUnaryHandler(LedgerServiceExitExpenseProcedure, svc.ExitExpense, opts...))
	mux.Handle(LedgerServiceLeaveGroupProcedure, connect.NewUnaryHandler(LedgerServiceLeaveGroupProcedure, svc.LeaveGroup, opts...))
	mux.Handle(LedgerServiceRemoveMemberProcedure, connect.NewUnaryHandler(LedgerServiceRemoveMemberProcedure, svc.RemoveMember, opts...))
	mux.Handle(LedgerServiceTransferAdminProcedure, connect.NewUnaryHandler(LedgerServiceTransferAdminProcedure, svc.TransferAdmin, opts...))
	mux.Handle(LedgerServiceSoftDeleteGroupProcedure, connect.NewUnaryHandler(LedgerServiceSoftDeleteGroupProcedure, svc.SoftDeleteGroup, opts...))
	mux.Handle(LedgerServiceDeleteAllExpensesProcedure, connect.NewUnaryHandler(LedgerServiceDeleteAllExpensesProcedure, svc.DeleteAllExpenses, opts...))
	mux.Handle(LedgerServiceDeleteGroupProcedure, connect.NewUnaryHandler(LedgerServiceDeleteGroupProcedure, svc.DeleteGroup, opts...))
	mux.Handle(LedgerServiceListDeletedGroupsProcedure, connect.NewUnaryHandler(LedgerServiceListDeletedGroupsProcedure, svc.ListDeletedGroups, opts...))
	mux.Handle(LedgerServiceCreateGroupProcedure, connect.NewUnaryHandler(LedgerServiceCreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(LedgerServiceAddMemberProcedure, connect.NewUnaryHandler(LedgerServiceAddMemberProcedure, svc.AddMember, opts...))
	mux.Handle(LedgerServiceCreateExpenseProcedure, connect.NewUnaryHandler(LedgerServiceCreateExpenseProcedure, svc.CreateExpense, opts...))
	mux.Handle(LedgerServiceRecordPaymentProcedure, connect.NewUnaryHandler(LedgerServiceRecordPaymentProcedure, svc.RecordPayment, opts...))
	return "/" + LedgerServiceName + "/", mux
}

// LedgerServiceClient calls a remote LedgerService.
type LedgerServiceClient struct {
	computeBalance    *connect.Client[ComputeBalanceRequest, ComputeBalanceResponse]
	groupBalances     *connect.Client[GroupBalancesRequest, GroupBalancesResponse]
	exitExpense       *connect.Client[ExitExpenseRequest, ExitExpenseResponse]
	leaveGroup        *connect.Client[LeaveGroupRequest, LeaveGroupResponse]
	removeMember      *connect.Client[RemoveMemberRequest, LeaveGroupResponse]
	transferAdmin     *connect.Client[TransferAdminRequest, Empty]
	softDeleteGroup   *connect.Client[GroupRequest, Empty]
	deleteAllExpenses *connect.Client[GroupRequest, DeleteAllExpensesResponse]
	deleteGroup       *connect.Client[GroupRequest, Empty]
	listDeletedGroups *connect.Client[Empty, ListDeletedGroupsResponse]
	createGroup       *connect.Client[CreateGroupRequest, CreateGroupResponse]
	addMember         *connect.Client[AddMemberRequest, Empty]
	createExpense     *connect.Client[CreateExpenseRequest, CreateExpenseResponse]
	recordPayment     *connect.Client[RecordPaymentRequest, RecordPaymentResponse]
}

// NewLedgerServiceClient creates a client for the service at baseURL.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)

	return &LedgerServiceClient{
		computeBalance:    connect.NewClient[ComputeBalanceRequest, ComputeBalanceResponse](httpClient, baseURL+LedgerServiceComputeBalanceProcedure, opts...),
		groupBalances:     connect.NewClient[GroupBalancesRequest, GroupBalancesResponse](httpClient, baseURL+LedgerServiceGroupBalancesProcedure, opts...),
		exitExpense:       connect.NewClient[ExitExpenseRequest, ExitExpenseResponse](httpClient, baseURL+LedgerServiceExitExpenseProcedure, opts...),
		leaveGroup:        connect.NewClient[LeaveGroupRequest, LeaveGroupResponse](httpClient, baseURL+LedgerServiceLeaveGroupProcedure, opts...),
		removeMember:      connect.NewClient[RemoveMemberRequest, LeaveGroupResponse](httpClient, baseURL+LedgerServiceRemoveMemberProcedure, opts...),
		transferAdmin:     connect.NewClient[TransferAdminRequest, Empty](httpClient, baseURL+LedgerServiceTransferAdminProcedure, opts...),
		softDeleteGroup:   connect.NewClient[GroupRequest, Empty](httpClient, baseURL+LedgerServiceSoftDeleteGroupProcedure, opts...),
		deleteAllExpenses: connect.NewClient[GroupRequest, DeleteAllExpensesResponse](httpClient, baseURL+LedgerServiceDeleteAllExpensesProcedure, opts...),
		deleteGroup:       connect.NewClient[GroupRequest, Empty](httpClient, baseURL+LedgerServiceDeleteGroupProcedure, opts...),
		listDeletedGroups: connect.NewClient[Empty, ListDeletedGroupsResponse](httpClient, baseURL+LedgerServiceListDeletedGroupsProcedure, opts...),
		createGroup:       connect.NewClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL+LedgerServiceCreateGroupProcedure, opts...),
		addMember:         connect.NewClient[AddMemberRequest, Empty](httpClient, baseURL+LedgerServiceAddMemberProcedure, opts...),
		createExpense:     connect.NewClient[CreateExpenseRequest, CreateExpenseResponse](httpClient, baseURL+LedgerServiceCreateExpenseProcedure, opts...),
		recordPayment:     connect.NewClient[RecordPaymentRequest, RecordPaymentResponse](httpClient, baseURL+LedgerServiceRecordPaymentProcedure, opts...),
	}
}

func (c *LedgerServiceClient) ComputeBalance(ctx context.Context, req *connect.Request[ComputeBalanceRequest]) (*connect.Response[ComputeBalanceResponse], error) {
	return c.computeBalance.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GroupBalances(ctx context.Context, req *connect.Request[GroupBalancesRequest]) (*connect.Response[GroupBalancesResponse], error) {
	return c.groupBalances.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ExitExpense(ctx context.Context, req *connect.Request[ExitExpenseRequest]) (*connect.Response[ExitExpenseResponse], error) {
	return c.exitExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) LeaveGroup(ctx context.Context, req *connect.Request[LeaveGroupRequest]) (*connect.Response[LeaveGroupResponse], error) {
	return c.leaveGroup.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) RemoveMember(ctx context.Context, req *connect.Request[RemoveMemberRequest]) (*connect.Response[LeaveGroupResponse], error) {
	return c.removeMember.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) TransferAdmin(ctx context.Context, req *connect.Request[TransferAdminRequest]) (*connect.Response[Empty], error) {
	return c.transferAdmin.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) SoftDeleteGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[Empty], error) {
	return c.softDeleteGroup.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) DeleteAllExpenses(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[DeleteAllExpensesResponse], error) {
	return c.deleteAllExpenses.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) DeleteGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[Empty], error) {
	return c.deleteGroup.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListDeletedGroups(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ListDeletedGroupsResponse], error) {
	return c.listDeletedGroups.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[Empty], error) {
	return c.addMember.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) RecordPayment(ctx context.Context, req *connect.Request[RecordPaymentRequest]) (*connect.Response[RecordPaymentResponse], error) {
	return c.recordPayment.CallUnary(ctx, req)
}
