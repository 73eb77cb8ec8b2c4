package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type leaveRequestRepositoryImpl struct {
	db *database.DB
}

func NewLeaveRequestRepository(db *database.DB) leave.LeaveRequestRepository {
	return &leaveRequestRepositoryImpl{db: db}
}

const leaveRequestColumns = `
	lr.id, lr.user_id, lr.user_name, lr.department, lr.leave_type,
	lr.from_date, lr.to_date, lr.days_count, lr.reason, lr.attachments,
	lr.status, lr.current_approval_level, lr.approval_flow,
	lr.approved_by, lr.approved_at, lr.remarks, lr.resubmitted_from,
	lr.submitted_at, lr.created_at, lr.updated_at
`

func scanLeaveRequest(row pgx.Row) (leave.LeaveRequest, error) {
	var (
		lr    leave.LeaveRequest
		level *string
		flow  []string
	)
	err := row.Scan(
		&lr.ID,
		&lr.UserID,
		&lr.UserName,
		&lr.Department,
		&lr.LeaveType,
		&lr.FromDate,
		&lr.ToDate,
		&lr.DaysCount,
		&lr.Reason,
		&lr.Attachments,
		&lr.Status,
		&level,
		&flow,
		&lr.ApprovedBy,
		&lr.ApprovedAt,
		&lr.Remarks,
		&lr.ResubmittedFrom,
		&lr.SubmittedAt,
		&lr.CreatedAt,
		&lr.UpdatedAt,
	)
	if err != nil {
		return leave.LeaveRequest{}, err
	}

	if level != nil {
		lr.CurrentApprovalLevel = leave.ApprovalLevel(*level).Ptr()
	}
	lr.ApprovalFlow = make([]leave.ApprovalLevel, len(flow))
	for i, l := range flow {
		lr.ApprovalFlow[i] = leave.ApprovalLevel(l)
	}

	return lr, nil
}

func collectLeaveRequests(rows pgx.Rows) ([]leave.LeaveRequest, error) {
	defer rows.Close()

	requests := []leave.LeaveRequest{}
	for rows.Next() {
		lr, err := scanLeaveRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave request: %w", err)
		}
		requests = append(requests, lr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return requests, nil
}

// dateOnly drops the clock so DATE comparisons use the calendar day of t
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func levelsToStrings(levels []leave.ApprovalLevel) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = string(l)
	}
	return out
}

func (r *leaveRequestRepositoryImpl) Create(ctx context.Context, request leave.LeaveRequest) (leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	var level *string
	if request.CurrentApprovalLevel != nil {
		s := string(*request.CurrentApprovalLevel)
		level = &s
	}

	attachments := request.Attachments
	if attachments == nil {
		attachments = []string{}
	}

	query := `
		INSERT INTO leave_requests AS lr (
			user_id, user_name, department, leave_type, from_date, to_date,
			days_count, reason, attachments, status, current_approval_level,
			approval_flow, resubmitted_from, submitted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + leaveRequestColumns

	created, err := scanLeaveRequest(q.QueryRow(ctx, query,
		request.UserID,
		request.UserName,
		request.Department,
		request.LeaveType,
		request.FromDate,
		request.ToDate,
		request.DaysCount,
		request.Reason,
		attachments,
		request.Status,
		level,
		levelsToStrings(request.Flow()),
		request.ResubmittedFrom,
		request.SubmittedAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "idx_leave_requests_resubmitted_from" {
			return leave.LeaveRequest{}, leave.ErrAlreadyResubmitted
		}
		return leave.LeaveRequest{}, fmt.Errorf("failed to create leave request: %w", err)
	}

	return created, nil
}

func (r *leaveRequestRepositoryImpl) GetByID(ctx context.Context, id string) (leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leaveRequestColumns + ` FROM leave_requests lr WHERE lr.id = $1`

	lr, err := scanLeaveRequest(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
		}
		return leave.LeaveRequest{}, fmt.Errorf("failed to get leave request: %w", err)
	}

	return lr, nil
}

func (r *leaveRequestRepositoryImpl) GetByUserID(ctx context.Context, userID string) ([]leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + leaveRequestColumns + `
		FROM leave_requests lr
		WHERE lr.user_id = $1
		ORDER BY lr.submitted_at DESC
	`

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave requests: %w", err)
	}
	return collectLeaveRequests(rows)
}

// HasResubmission implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) HasResubmission(ctx context.Context, id string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leave_requests WHERE resubmitted_from = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check resubmission: %w", err)
	}
	return exists, nil
}

// GetPending returns every pending request; level filtering happens in the service
func (r *leaveRequestRepositoryImpl) GetPending(ctx context.Context) ([]leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + leaveRequestColumns + `
		FROM leave_requests lr
		WHERE lr.status = 'pending'
		ORDER BY lr.submitted_at DESC
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending leave requests: %w", err)
	}
	return collectLeaveRequests(rows)
}

func (r *leaveRequestRepositoryImpl) GetApprovedCovering(ctx context.Context, date time.Time) ([]leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + leaveRequestColumns + `
		FROM leave_requests lr
		WHERE lr.status = 'approved' AND lr.from_date <= $1 AND lr.to_date >= $1
	`

	rows, err := q.Query(ctx, query, dateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("failed to query approved leave: %w", err)
	}
	return collectLeaveRequests(rows)
}

func (r *leaveRequestRepositoryImpl) List(ctx context.Context, filter leave.LeaveRequestFilter) ([]leave.LeaveRequest, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery := ` FROM leave_requests lr`
	args := []interface{}{}
	argIdx := 1
	whereClauses := []string{}

	if filter.Status != nil && *filter.Status != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("lr.status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.Department != nil && *filter.Department != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("lr.department ILIKE $%d", argIdx))
		args = append(args, *filter.Department)
		argIdx++
	}

	if filter.LeaveType != nil && *filter.LeaveType != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("lr.leave_type = $%d", argIdx))
		args = append(args, *filter.LeaveType)
		argIdx++
	}

	if filter.UserID != nil && *filter.UserID != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("lr.user_id = $%d", argIdx))
		args = append(args, *filter.UserID)
		argIdx++
	}

	if len(whereClauses) > 0 {
		baseQuery += " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*)"+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count leave requests: %w", err)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}

	selectQuery := "SELECT " + leaveRequestColumns + baseQuery +
		fmt.Sprintf(" ORDER BY lr.submitted_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, filter.Offset())

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query leave requests: %w", err)
	}

	requests, err := collectLeaveRequests(rows)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// ApplyTransition writes the engine's outcome guarded by the pre-state it was
// computed from. Zero affected rows means another reviewer got there first.
func (r *leaveRequestRepositoryImpl) ApplyTransition(ctx context.Context, t leave.Transition) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE leave_requests
		SET status = $1,
			current_approval_level = $2,
			approved_by = COALESCE($3, approved_by),
			approved_at = COALESCE($4, approved_at),
			remarks = $5,
			updated_at = $6
		WHERE id = $7
			AND status = $8
			AND COALESCE(NULLIF(current_approval_level, ''), 'HOD') = $9
	`

	tag, err := q.Exec(ctx, query,
		t.Status,
		string(t.Level),
		t.ApprovedBy,
		t.ApprovedAt,
		t.Remarks,
		t.OccurredAt,
		t.RequestID,
		t.ExpectedStatus,
		string(t.ExpectedLevel),
	)
	if err != nil {
		return fmt.Errorf("failed to apply transition to leave request %s: %w", t.RequestID, err)
	}

	if tag.RowsAffected() == 0 {
		return leave.ErrConcurrentModification
	}

	return nil
}
