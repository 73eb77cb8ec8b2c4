package dashboard

import (
	"context"
	"time"
)

// Filter narrows the aggregate queries. Nil fields are not applied; From is
// inclusive and To exclusive.
type Filter struct {
	UserID     *string
	Department *string
	From       *time.Time
	To         *time.Time
}

// LeaveCounts combines per-status leave request counts
type LeaveCounts struct {
	Total        int64
	Pending      int64
	Approved     int64
	Rejected     int64
	Returned     int64
	DaysApproved int64
}

// AttendanceCounts combines per-status attendance counts
type AttendanceCounts struct {
	Present int64
	Late    int64
	HalfDay int64
	Absent  int64
	OnLeave int64
}

// Total is the number of attendance rows counted
func (c AttendanceCounts) Total() int64 {
	return c.Present + c.Late + c.HalfDay + c.Absent + c.OnLeave
}

// StaffCounts combines total and active user counts
type StaffCounts struct {
	Total  int64
	Active int64
}

// DashboardRepository defines the interface for dashboard data access
type DashboardRepository interface {
	// GetLeaveCounts counts leave requests submitted within the filter in single query
	GetLeaveCounts(ctx context.Context, filter Filter) (*LeaveCounts, error)

	// GetAttendanceCounts counts attendance rows dated within the filter in single query
	GetAttendanceCounts(ctx context.Context, filter Filter) (*AttendanceCounts, error)

	// CountPendingAtLevel counts pending requests waiting on level. A request
	// without a level counts as waiting on HOD.
	CountPendingAtLevel(ctx context.Context, level string) (int64, error)

	// GetStaffCounts returns total and active users, optionally for one department
	GetStaffCounts(ctx context.Context, department *string) (*StaffCounts, error)

	// GetRecentActivity returns the newest audit entries by or about userID
	GetRecentActivity(ctx context.Context, userID string, limit int) ([]ActivityItem, error)
}
