package audit

import "time"

// Target types recorded in the audit trail
const (
	TargetLeaveRequest = "leave_request"
	TargetAttendance   = "attendance"
	TargetUser         = "user"
)

// AuditLog records one state-changing action taken by a user
type AuditLog struct {
	ID         string
	ActorID    string
	ActorName  string
	Action     string
	TargetType string
	TargetID   string
	Details    map[string]interface{}
	CreatedAt  time.Time
}
