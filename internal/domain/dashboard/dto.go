package dashboard

import "time"

// Scope names how much of the institution a dashboard covers
type Scope string

const (
	ScopePersonal    Scope = "personal"
	ScopeDepartment  Scope = "department"
	ScopeInstitution Scope = "institution"
)

// ========== COMBINED DASHBOARD ==========

// DashboardResponse is the combined response for the dashboard endpoint.
// Sections outside the caller's scope are left out.
type DashboardResponse struct {
	Scope            Scope                     `json:"scope"`
	Month            string                    `json:"month"` // Format: "YYYY-MM"
	MyLeaves         LeaveSummaryResponse      `json:"my_leaves"`
	MyAttendance     AttendanceSummaryResponse `json:"my_attendance"`
	PendingApprovals *int64                    `json:"pending_approvals,omitempty"`
	Staff            *StaffSummaryResponse     `json:"staff,omitempty"`
	Today            *DailyAttendanceResponse  `json:"today,omitempty"`
	MonthlyLeaves    *LeaveSummaryResponse     `json:"monthly_leaves,omitempty"`
	RecentActivity   []ActivityItem            `json:"recent_activity"`
}

// ========== LEAVE SUMMARY ==========

// LeaveSummaryResponse counts leave requests by status
type LeaveSummaryResponse struct {
	Total        int64 `json:"total"`
	Pending      int64 `json:"pending"`
	Approved     int64 `json:"approved"`
	Rejected     int64 `json:"rejected"`
	Returned     int64 `json:"returned"`
	DaysApproved int64 `json:"days_approved"`
}

// ========== ATTENDANCE SUMMARY (month) ==========

// AttendanceSummaryResponse counts a month of attendance rows by status
type AttendanceSummaryResponse struct {
	Present           int64   `json:"present"`
	Late              int64   `json:"late"`
	HalfDay           int64   `json:"half_day"`
	Absent            int64   `json:"absent"`
	OnLeave           int64   `json:"on_leave"`
	Total             int64   `json:"total"`
	AttendancePercent float64 `json:"attendance_percent"`
}

// ========== STAFF ==========

type StaffSummaryResponse struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

// ========== TODAY ==========

// DailyAttendanceResponse is today's attendance against the active headcount
type DailyAttendanceResponse struct {
	Date           string  `json:"date"` // Format: "YYYY-MM-DD"
	Present        int64   `json:"present"`
	Late           int64   `json:"late"`
	HalfDay        int64   `json:"half_day"`
	Absent         int64   `json:"absent"`
	OnLeave        int64   `json:"on_leave"`
	NotMarked      int64   `json:"not_marked"`
	ActiveStaff    int64   `json:"active_staff"`
	PresentPercent float64 `json:"present_percent"`
}

// ========== RECENT ACTIVITY ==========

// ActivityItem is one audit entry either made by the user or made on one of
// the user's leave requests
type ActivityItem struct {
	ActorID    string                 `json:"actor_id"`
	ActorName  string                 `json:"actor_name"`
	Action     string                 `json:"action"`
	TargetType string                 `json:"target_type"`
	TargetID   string                 `json:"target_id"`
	Details    map[string]interface{} `json:"details,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}
