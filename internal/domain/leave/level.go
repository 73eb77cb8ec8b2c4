package leave

import "github.com/cmlabs-hris/leave-portal-go/internal/domain/user"

// ApprovalLevel is one stage of the review hierarchy
type ApprovalLevel string

const (
	LevelHOD         ApprovalLevel = "HOD"
	LevelPrincipal   ApprovalLevel = "Principal"
	LevelRegistrar   ApprovalLevel = "Registrar"
	LevelHRExecutive ApprovalLevel = "HR Executive"
)

var approvalSequence = [...]ApprovalLevel{LevelHOD, LevelPrincipal, LevelRegistrar, LevelHRExecutive}

// ApprovalSequence returns a fresh copy of the ordered review hierarchy.
// Every request stores its own copy as its approval flow.
func ApprovalSequence() []ApprovalLevel {
	seq := make([]ApprovalLevel, len(approvalSequence))
	copy(seq, approvalSequence[:])
	return seq
}

func (l ApprovalLevel) IsValid() bool {
	for _, lvl := range approvalSequence {
		if lvl == l {
			return true
		}
	}
	return false
}

// IndexIn returns the position of the level in flow, or -1
func (l ApprovalLevel) IndexIn(flow []ApprovalLevel) int {
	for i, lvl := range flow {
		if lvl == l {
			return i
		}
	}
	return -1
}

func (l ApprovalLevel) Ptr() *ApprovalLevel {
	return &l
}

var roleLevels = map[user.Role]ApprovalLevel{
	user.RoleHOD:       LevelHOD,
	user.RolePrincipal: LevelPrincipal,
	user.RoleRegistrar: LevelRegistrar,
	user.RoleHR:        LevelHRExecutive,
}

// LevelForRole maps a reviewer role to the level it acts at. Non-reviewing
// roles, including director, report false.
func LevelForRole(role user.Role) (ApprovalLevel, bool) {
	lvl, ok := roleLevels[role]
	return lvl, ok
}

// Action is a reviewer's decision on a pending request
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionReturn  Action = "return"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionReturn:
		return true
	}
	return false
}

// RequiresRemarks reports whether the action must carry non-empty remarks
func (a Action) RequiresRemarks() bool {
	return a == ActionReject || a == ActionReturn
}

// ResultStatus is the status an action leads to when it does not advance the flow
func (a Action) ResultStatus() Status {
	switch a {
	case ActionReject:
		return StatusRejected
	case ActionReturn:
		return StatusReturned
	}
	return StatusApproved
}
