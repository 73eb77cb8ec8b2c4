package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/audit"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/dashboard"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/database"
)

type dashboardRepositoryImpl struct {
	db *database.DB
}

func NewDashboardRepository(db *database.DB) dashboard.DashboardRepository {
	return &dashboardRepositoryImpl{db: db}
}

// GetLeaveCounts returns total and per-status counts in single query
func (r *dashboardRepositoryImpl) GetLeaveCounts(ctx context.Context, filter dashboard.Filter) (*dashboard.LeaveCounts, error) {
	q := GetQuerier(ctx, r.db)

	var w whereBuilder
	if filter.UserID != nil {
		w.add("lr.user_id = $%d", *filter.UserID)
	}
	if filter.Department != nil {
		w.add("lr.department = $%d", *filter.Department)
	}
	if filter.From != nil {
		w.add("lr.submitted_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		w.add("lr.submitted_at < $%d", *filter.To)
	}

	query := `
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN lr.status = 'pending' THEN 1 ELSE 0 END), 0) as pending,
			COALESCE(SUM(CASE WHEN lr.status = 'approved' THEN 1 ELSE 0 END), 0) as approved,
			COALESCE(SUM(CASE WHEN lr.status = 'rejected' THEN 1 ELSE 0 END), 0) as rejected,
			COALESCE(SUM(CASE WHEN lr.status = 'returned' THEN 1 ELSE 0 END), 0) as returned,
			COALESCE(SUM(CASE WHEN lr.status = 'approved' THEN lr.days_count ELSE 0 END), 0) as days_approved
		FROM leave_requests lr` + w.sql()

	var c dashboard.LeaveCounts
	err := q.QueryRow(ctx, query, w.args...).Scan(
		&c.Total, &c.Pending, &c.Approved, &c.Rejected, &c.Returned, &c.DaysApproved,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get leave counts: %w", err)
	}
	return &c, nil
}

// GetAttendanceCounts returns per-status attendance counts in single query
func (r *dashboardRepositoryImpl) GetAttendanceCounts(ctx context.Context, filter dashboard.Filter) (*dashboard.AttendanceCounts, error) {
	q := GetQuerier(ctx, r.db)

	var w whereBuilder
	if filter.UserID != nil {
		w.add("a.user_id = $%d", *filter.UserID)
	}
	if filter.Department != nil {
		w.add("u.department = $%d", *filter.Department)
	}
	if filter.From != nil {
		w.add("a.date >= $%d", dateOnly(*filter.From))
	}
	if filter.To != nil {
		w.add("a.date < $%d", dateOnly(*filter.To))
	}

	query := `
		SELECT
			COALESCE(SUM(CASE WHEN a.status = 'present' THEN 1 ELSE 0 END), 0) as present,
			COALESCE(SUM(CASE WHEN a.status = 'late' THEN 1 ELSE 0 END), 0) as late,
			COALESCE(SUM(CASE WHEN a.status = 'half-day' THEN 1 ELSE 0 END), 0) as half_day,
			COALESCE(SUM(CASE WHEN a.status = 'absent' THEN 1 ELSE 0 END), 0) as absent,
			COALESCE(SUM(CASE WHEN a.status = 'leave' THEN 1 ELSE 0 END), 0) as on_leave
		FROM attendances a
		JOIN users u ON u.id = a.user_id` + w.sql()

	var c dashboard.AttendanceCounts
	err := q.QueryRow(ctx, query, w.args...).Scan(
		&c.Present, &c.Late, &c.HalfDay, &c.Absent, &c.OnLeave,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance counts: %w", err)
	}
	return &c, nil
}

// CountPendingAtLevel implements dashboard.DashboardRepository.
func (r *dashboardRepositoryImpl) CountPendingAtLevel(ctx context.Context, level string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COUNT(*)
		FROM leave_requests
		WHERE status = 'pending'
		AND COALESCE(NULLIF(current_approval_level, ''), $2) = $1
	`

	var count int64
	if err := q.QueryRow(ctx, query, level, string(leave.LevelHOD)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending requests: %w", err)
	}
	return count, nil
}

// GetStaffCounts implements dashboard.DashboardRepository.
func (r *dashboardRepositoryImpl) GetStaffCounts(ctx context.Context, department *string) (*dashboard.StaffCounts, error) {
	q := GetQuerier(ctx, r.db)

	var w whereBuilder
	if department != nil {
		w.add("department = $%d", *department)
	}

	query := `
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) as active
		FROM users` + w.sql()

	var c dashboard.StaffCounts
	if err := q.QueryRow(ctx, query, w.args...).Scan(&c.Total, &c.Active); err != nil {
		return nil, fmt.Errorf("failed to get staff counts: %w", err)
	}
	return &c, nil
}

// GetRecentActivity returns entries the user made plus entries on the user's
// own leave requests, newest first
func (r *dashboardRepositoryImpl) GetRecentActivity(ctx context.Context, userID string, limit int) ([]dashboard.ActivityItem, error) {
	q := GetQuerier(ctx, r.db)

	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT al.actor_id, al.actor_name, al.action, al.target_type, al.target_id, al.details, al.created_at
		FROM audit_logs al
		WHERE al.actor_id = $1
		OR (
			al.target_type = $2
			AND al.target_id IN (SELECT id::text FROM leave_requests WHERE user_id = $3)
		)
		ORDER BY al.created_at DESC
		LIMIT $4
	`

	rows, err := q.Query(ctx, query, userID, audit.TargetLeaveRequest, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent activity: %w", err)
	}
	defer rows.Close()

	items := []dashboard.ActivityItem{}
	for rows.Next() {
		var item dashboard.ActivityItem
		var details []byte
		if err := rows.Scan(&item.ActorID, &item.ActorName, &item.Action, &item.TargetType, &item.TargetID, &details, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recent activity: %w", err)
		}
		if details != nil {
			if err := json.Unmarshal(details, &item.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal activity details: %w", err)
			}
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
