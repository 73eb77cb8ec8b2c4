package dashboard

import (
	"context"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/auth"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/dashboard"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/user"
	"golang.org/x/sync/errgroup"
)

const recentActivityLimit = 10

type DashboardServiceImpl struct {
	dashboard.DashboardRepository
	location *time.Location
	now      func() time.Time
}

// NewDashboardService reports months and "today" in loc
func NewDashboardService(repo dashboard.DashboardRepository, loc *time.Location) *DashboardServiceImpl {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardServiceImpl{
		DashboardRepository: repo,
		location:            loc,
		now:                 time.Now,
	}
}

// parseMonth parses YYYY-MM format, defaults to the month of now
func parseMonth(month string, now time.Time) (int, time.Month) {
	if month == "" {
		return now.Year(), now.Month()
	}

	parsed, err := time.Parse("2006-01", month)
	if err != nil {
		return now.Year(), now.Month()
	}
	return parsed.Year(), parsed.Month()
}

func scopeFor(role user.Role) dashboard.Scope {
	switch role.AccessLevel() {
	case user.AccessFull:
		return dashboard.ScopeInstitution
	case user.AccessApprover:
		return dashboard.ScopeDepartment
	default:
		return dashboard.ScopePersonal
	}
}

func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func leaveSummary(c *dashboard.LeaveCounts) dashboard.LeaveSummaryResponse {
	return dashboard.LeaveSummaryResponse{
		Total:        c.Total,
		Pending:      c.Pending,
		Approved:     c.Approved,
		Rejected:     c.Rejected,
		Returned:     c.Returned,
		DaysApproved: c.DaysApproved,
	}
}

// attended counts the days the user turned up, late and half days included
func attended(c *dashboard.AttendanceCounts) int64 {
	return c.Present + c.Late + c.HalfDay
}

// GetDashboard returns combined dashboard data using parallel goroutines, one
// query each
func (s *DashboardServiceImpl) GetDashboard(ctx context.Context, actor auth.Actor, month string) (*dashboard.DashboardResponse, error) {
	if actor.ID == "" {
		return nil, auth.ErrMissingActor
	}

	now := s.now().In(s.location)
	year, mon := parseMonth(month, now)
	monthStart := time.Date(year, mon, 1, 0, 0, 0, 0, s.location)
	monthEnd := monthStart.AddDate(0, 1, 0)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	tomorrow := today.AddDate(0, 0, 1)

	scope := scopeFor(actor.Role)
	var department *string
	if scope == dashboard.ScopeDepartment {
		department = &actor.Department
	}

	var (
		myLeaves      *dashboard.LeaveCounts
		myAttendance  *dashboard.AttendanceCounts
		activity      []dashboard.ActivityItem
		pending       *int64
		staff         *dashboard.StaffCounts
		todayCounts   *dashboard.AttendanceCounts
		monthlyLeaves *dashboard.LeaveCounts
	)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Own leave requests, all time
	g.Go(func() error {
		c, err := s.GetLeaveCounts(gCtx, dashboard.Filter{UserID: &actor.ID})
		myLeaves = c
		return err
	})

	// 2. Own attendance for the month
	g.Go(func() error {
		c, err := s.GetAttendanceCounts(gCtx, dashboard.Filter{UserID: &actor.ID, From: &monthStart, To: &monthEnd})
		myAttendance = c
		return err
	})

	// 3. Recent activity
	g.Go(func() error {
		items, err := s.GetRecentActivity(gCtx, actor.ID, recentActivityLimit)
		activity = items
		return err
	})

	// 4. Requests waiting on the reviewer's level
	if level, ok := leave.LevelForRole(actor.Role); ok {
		g.Go(func() error {
			n, err := s.CountPendingAtLevel(gCtx, string(level))
			if err != nil {
				return err
			}
			pending = &n
			return nil
		})
	}

	if scope != dashboard.ScopePersonal {
		// 5. Headcount
		g.Go(func() error {
			c, err := s.GetStaffCounts(gCtx, department)
			staff = c
			return err
		})

		// 6. Today's attendance
		g.Go(func() error {
			c, err := s.GetAttendanceCounts(gCtx, dashboard.Filter{Department: department, From: &today, To: &tomorrow})
			todayCounts = c
			return err
		})

		// 7. Leave requests submitted this month
		g.Go(func() error {
			c, err := s.GetLeaveCounts(gCtx, dashboard.Filter{Department: department, From: &monthStart, To: &monthEnd})
			monthlyLeaves = c
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &dashboard.DashboardResponse{
		Scope:    scope,
		Month:    monthStart.Format("2006-01"),
		MyLeaves: leaveSummary(myLeaves),
		MyAttendance: dashboard.AttendanceSummaryResponse{
			Present:           myAttendance.Present,
			Late:              myAttendance.Late,
			HalfDay:           myAttendance.HalfDay,
			Absent:            myAttendance.Absent,
			OnLeave:           myAttendance.OnLeave,
			Total:             myAttendance.Total(),
			AttendancePercent: percent(attended(myAttendance), myAttendance.Total()),
		},
		PendingApprovals: pending,
		RecentActivity:   activity,
	}
	if resp.RecentActivity == nil {
		resp.RecentActivity = []dashboard.ActivityItem{}
	}

	if scope != dashboard.ScopePersonal {
		resp.Staff = &dashboard.StaffSummaryResponse{Total: staff.Total, Active: staff.Active}

		notMarked := staff.Active - todayCounts.Total()
		if notMarked < 0 {
			notMarked = 0
		}
		resp.Today = &dashboard.DailyAttendanceResponse{
			Date:           today.Format("2006-01-02"),
			Present:        todayCounts.Present,
			Late:           todayCounts.Late,
			HalfDay:        todayCounts.HalfDay,
			Absent:         todayCounts.Absent,
			OnLeave:        todayCounts.OnLeave,
			NotMarked:      notMarked,
			ActiveStaff:    staff.Active,
			PresentPercent: percent(attended(todayCounts), staff.Active),
		}

		monthly := leaveSummary(monthlyLeaves)
		resp.MonthlyLeaves = &monthly
	}

	return resp, nil
}

var _ dashboard.DashboardService = (*DashboardServiceImpl)(nil)
