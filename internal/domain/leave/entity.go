package leave

import (
	"time"
)

// LeaveType is the institution's fixed set of leave categories
type LeaveType string

const (
	LeaveTypeCasual       LeaveType = "CL"
	LeaveTypeEarned       LeaveType = "EL"
	LeaveTypeMedical      LeaveType = "ML"
	LeaveTypeWithoutPay   LeaveType = "LOP"
	LeaveTypeCompensatory LeaveType = "COH"
)

var leaveTypeNames = map[LeaveType]string{
	LeaveTypeCasual:       "Casual Leave",
	LeaveTypeEarned:       "Earned Leave",
	LeaveTypeMedical:      "Medical Leave",
	LeaveTypeWithoutPay:   "Leave without Pay",
	LeaveTypeCompensatory: "Compensatory Off",
}

// AllLeaveTypes returns every leave type in display order
func AllLeaveTypes() []LeaveType {
	return []LeaveType{
		LeaveTypeCasual,
		LeaveTypeEarned,
		LeaveTypeMedical,
		LeaveTypeWithoutPay,
		LeaveTypeCompensatory,
	}
}

func (t LeaveType) IsValid() bool {
	_, ok := leaveTypeNames[t]
	return ok
}

// DisplayName returns the human readable name, or the raw code when unknown
func (t LeaveType) DisplayName() string {
	if name, ok := leaveTypeNames[t]; ok {
		return name
	}
	return string(t)
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusReturned Status = "returned"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusReturned:
		return true
	}
	return false
}

// LeaveRequest entity
type LeaveRequest struct {
	ID         string
	UserID     string
	UserName   string
	Department string

	LeaveType LeaveType
	FromDate  time.Time
	ToDate    time.Time
	DaysCount int
	Reason    string

	Attachments []string

	Status               Status
	CurrentApprovalLevel *ApprovalLevel
	ApprovalFlow         []ApprovalLevel
	ApprovedBy           *string
	ApprovedAt           *time.Time
	Remarks              *string

	ResubmittedFrom *string

	SubmittedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EffectiveLevel is the level the request is waiting on, defaulting to HOD
// for records that never had one written.
func (r LeaveRequest) EffectiveLevel() ApprovalLevel {
	if r.CurrentApprovalLevel == nil || *r.CurrentApprovalLevel == "" {
		return LevelHOD
	}
	return *r.CurrentApprovalLevel
}

// Flow returns the request's own approval flow, or the canonical sequence
func (r LeaveRequest) Flow() []ApprovalLevel {
	if len(r.ApprovalFlow) == 0 {
		return ApprovalSequence()
	}
	return r.ApprovalFlow
}

// CountDays returns the inclusive number of calendar days between two dates
func CountDays(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours()/24) + 1
}
