package leave

import (
	"context"
	"time"
)

// LeaveRequestRepository - interface for leave_requests table
type LeaveRequestRepository interface {
	Create(ctx context.Context, request LeaveRequest) (LeaveRequest, error)
	GetByID(ctx context.Context, id string) (LeaveRequest, error)
	GetByUserID(ctx context.Context, userID string) ([]LeaveRequest, error)
	GetPending(ctx context.Context) ([]LeaveRequest, error)
	// HasResubmission reports whether a request was already resubmitted from id
	HasResubmission(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter LeaveRequestFilter) ([]LeaveRequest, int64, error)
	// GetApprovedCovering returns approved requests whose date range includes date
	GetApprovedCovering(ctx context.Context, date time.Time) ([]LeaveRequest, error)
	// ApplyTransition writes the outcome only if the stored status and level
	// still match the transition's expected pre-state, otherwise it returns
	// ErrConcurrentModification.
	ApplyTransition(ctx context.Context, t Transition) error
}
