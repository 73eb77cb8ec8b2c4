package leave

import "errors"

var (
	ErrLeaveRequestNotFound = errors.New("leave request not found")

	// Precondition violations
	ErrNotApprover        = errors.New("your role does not act on leave approvals")
	ErrNotCurrentApprover = errors.New("you are not the current approver for this leave request")
	ErrRequestNotPending  = errors.New("this leave request is no longer pending")

	// Malformed data
	ErrUnknownApprovalLevel = errors.New("leave request has an approval level outside its approval flow")
	ErrRemarksRequired      = errors.New("remarks are required to reject or return a leave request")
	ErrInvalidAction        = errors.New("action must be one of approve, reject, return")

	ErrConcurrentModification = errors.New("leave request was modified by another reviewer")
	ErrUnauthorizedAccess     = errors.New("you are not allowed to view this leave request")
	ErrNotReturned            = errors.New("only returned leave requests can be resubmitted")
	ErrAlreadyResubmitted     = errors.New("this leave request has already been resubmitted")

	ErrAttachmentTooLarge       = errors.New("attachment exceeds the maximum allowed size")
	ErrAttachmentTypeNotAllowed = errors.New("attachment type is not allowed")
)
