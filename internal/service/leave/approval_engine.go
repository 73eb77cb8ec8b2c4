package leave

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/auth"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/notification"
)

// ApprovalEngine computes the outcome of a reviewer action. It holds no
// storage; the same request, actor, action and clock always give the same
// transition.
type ApprovalEngine struct {
	now func() time.Time
}

func NewApprovalEngine(now func() time.Time) *ApprovalEngine {
	if now == nil {
		now = time.Now
	}
	return &ApprovalEngine{now: now}
}

// Transition validates the action against the request's current state and
// returns the next state together with the requester notification. Nothing is
// returned on failure.
func (e *ApprovalEngine) Transition(req leave.LeaveRequest, actor auth.Actor, action leave.Action, remarks *string) (leave.Transition, error) {
	if !action.IsValid() {
		return leave.Transition{}, leave.ErrInvalidAction
	}

	if req.Status != leave.StatusPending {
		return leave.Transition{}, leave.ErrRequestNotPending
	}

	flow := req.Flow()
	current := req.EffectiveLevel()
	idx := current.IndexIn(flow)
	if idx < 0 {
		return leave.Transition{}, fmt.Errorf("%w: %q", leave.ErrUnknownApprovalLevel, current)
	}

	actorLevel, ok := leave.LevelForRole(actor.Role)
	if !ok {
		return leave.Transition{}, leave.ErrNotApprover
	}
	if actorLevel != current {
		return leave.Transition{}, leave.ErrNotCurrentApprover
	}

	if action.RequiresRemarks() && (remarks == nil || strings.TrimSpace(*remarks) == "") {
		return leave.Transition{}, leave.ErrRemarksRequired
	}

	now := e.now()
	t := leave.Transition{
		RequestID:      req.ID,
		ExpectedStatus: req.Status,
		ExpectedLevel:  current,
		Action:         action,
		ActorID:        actor.ID,
		ActorName:      actor.Name,
		ActorLevel:     actorLevel,
		Level:          current,
		Remarks:        remarks,
		OccurredAt:     now,
	}

	switch {
	case action == leave.ActionApprove && idx == len(flow)-1:
		approver := actor.Name
		if approver == "" {
			approver = actor.ID
		}
		t.Status = leave.StatusApproved
		t.ApprovedBy = &approver
		t.ApprovedAt = &now
	case action == leave.ActionApprove:
		t.Status = leave.StatusPending
		t.Level = flow[idx+1]
	default:
		t.Status = action.ResultStatus()
	}

	t.Notification = requesterNotification(req, t)
	return t, nil
}

func requesterNotification(req leave.LeaveRequest, t leave.Transition) notification.CreateNotificationRequest {
	var (
		severity notification.Severity
		message  string
		title    string
	)

	leaveName := req.LeaveType.DisplayName()
	switch {
	case t.Status == leave.StatusApproved:
		severity = notification.SeveritySuccess
		title = "Leave Request Approved"
		message = fmt.Sprintf("Your %s request has been approved by %s (%s)", leaveName, *t.ApprovedBy, t.ActorLevel)
	case t.Status == leave.StatusPending:
		severity = notification.SeveritySuccess
		title = "Leave Request Approved"
		message = fmt.Sprintf("Your %s request has been approved by %s and forwarded to %s", leaveName, t.ActorLevel, t.Level)
	case t.Status == leave.StatusRejected:
		severity = notification.SeverityError
		title = "Leave Request Rejected"
		message = fmt.Sprintf("Your %s request has been rejected", leaveName)
	default:
		severity = notification.SeverityWarning
		title = "Leave Request Returned"
		message = fmt.Sprintf("Your %s request has been returned for changes", leaveName)
	}

	if t.Remarks != nil && strings.TrimSpace(*t.Remarks) != "" {
		message += ": " + *t.Remarks
	}

	sender := t.ActorID
	return notification.CreateNotificationRequest{
		RecipientID:    req.UserID,
		SenderID:       &sender,
		Title:          title,
		Message:        message,
		Severity:       severity,
		Category:       notification.CategoryLeave,
		Priority:       notification.PriorityHigh,
		ActionRequired: t.Status == leave.StatusReturned,
		Data: map[string]interface{}{
			"leave_request_id": req.ID,
			"status":           string(t.Status),
			"approval_level":   string(t.Level),
		},
	}
}
