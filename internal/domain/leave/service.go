package leave

import (
	"context"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/auth"
)

type LeaveService interface {
	CreateLeaveRequest(ctx context.Context, actor auth.Actor, req CreateLeaveRequestRequest) (LeaveRequestResponse, error)
	ResubmitLeaveRequest(ctx context.Context, actor auth.Actor, requestID string, req CreateLeaveRequestRequest) (LeaveRequestResponse, error)
	GetLeaveRequest(ctx context.Context, actor auth.Actor, requestID string) (LeaveRequestResponse, error)
	ListMyLeaveRequests(ctx context.Context, actor auth.Actor) ([]LeaveRequestResponse, error)
	ListPendingForApprover(ctx context.Context, actor auth.Actor) ([]LeaveRequestResponse, error)
	ListLeaveRequests(ctx context.Context, actor auth.Actor, filter LeaveRequestFilter) (ListLeaveRequestResponse, error)
	ApplyAction(ctx context.Context, actor auth.Actor, req ApprovalActionRequest) (LeaveRequestResponse, error)
	GetApprovalHistory(ctx context.Context, actor auth.Actor, requestID string) ([]ApprovalHistoryResponse, error)
}
