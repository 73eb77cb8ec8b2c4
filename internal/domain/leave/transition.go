package leave

import (
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/notification"
)

// Transition is the fully computed outcome of one reviewer action. It carries
// the pre-state the engine read so persistence can apply it conditionally.
type Transition struct {
	RequestID string

	ExpectedStatus Status
	ExpectedLevel  ApprovalLevel

	Action     Action
	ActorID    string
	ActorName  string
	ActorLevel ApprovalLevel

	Status     Status
	Level      ApprovalLevel
	ApprovedBy *string
	ApprovedAt *time.Time
	Remarks    *string

	OccurredAt time.Time

	Notification notification.CreateNotificationRequest
}

// IsFinal reports whether the transition ends the request's approval cycle
func (t Transition) IsFinal() bool {
	return t.Status != StatusPending
}

// Apply returns a copy of the request with the transition's mutable fields written
func (t Transition) Apply(r LeaveRequest) LeaveRequest {
	r.Status = t.Status
	r.CurrentApprovalLevel = t.Level.Ptr()
	if t.ApprovedBy != nil {
		r.ApprovedBy = t.ApprovedBy
		r.ApprovedAt = t.ApprovedAt
	}
	r.Remarks = t.Remarks
	r.UpdatedAt = t.OccurredAt
	return r
}
