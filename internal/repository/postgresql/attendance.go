package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/attendance"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

const attendanceColumns = `
	a.id, a.user_id, a.date, a.clock_in, a.clock_out, a.status,
	a.working_minutes, a.late_minutes, a.location, a.notes, a.source, a.device_id,
	a.created_at, a.updated_at
`

func scanAttendance(row pgx.Row, extra ...interface{}) (attendance.Attendance, error) {
	var att attendance.Attendance
	dest := []interface{}{
		&att.ID, &att.UserID, &att.Date, &att.ClockIn, &att.ClockOut, &att.Status,
		&att.WorkingMinutes, &att.LateMinutes, &att.Location, &att.Notes, &att.Source, &att.DeviceID,
		&att.CreatedAt, &att.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return att, err
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO attendances AS a (
			user_id, date, clock_in, clock_out, status, working_minutes,
			late_minutes, location, notes, source, device_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, date) DO NOTHING
		RETURNING ` + attendanceColumns

	created, err := scanAttendance(q.QueryRow(ctx, query,
		att.UserID,
		dateOnly(att.Date),
		att.ClockIn,
		att.ClockOut,
		att.Status,
		att.WorkingMinutes,
		att.LateMinutes,
		att.Location,
		att.Notes,
		att.Source,
		att.DeviceID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attendance{}, attendance.ErrAlreadyCheckedIn
		}
		return attendance.Attendance{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return created, nil
}

// GetByUserAndDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + ` FROM attendances a WHERE a.user_id = $1 AND a.date = $2`

	att, err := scanAttendance(q.QueryRow(ctx, query, userID, dateOnly(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}

	return &att, nil
}

// Update implements attendance.AttendanceRepository.
func (a *attendanceRepository) Update(ctx context.Context, att attendance.Attendance) error {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendances
		SET clock_out = $1,
			status = $2,
			working_minutes = $3,
			notes = COALESCE($4, notes),
			updated_at = NOW()
		WHERE id = $5
	`

	tag, err := q.Exec(ctx, query, att.ClockOut, att.Status, att.WorkingMinutes, att.Notes, att.ID)
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrAttendanceNotFound
	}

	return nil
}

// whereBuilder collects AND-ed conditions with positional arguments
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

func (w *whereBuilder) add(clause string, arg interface{}) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(clause, len(w.args)))
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func parseFilterDate(s *string) (time.Time, bool) {
	if s == nil || *s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", *s)
	return t, err == nil
}

func (a *attendanceRepository) page(ctx context.Context, where whereBuilder, order string, page, limit int) ([]attendance.Attendance, int64, error) {
	q := GetQuerier(ctx, a.db)

	baseQuery := ` FROM attendances a JOIN users u ON u.id = a.user_id` + where.sql()

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*)"+baseQuery, where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance: %w", err)
	}

	if limit <= 0 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	args := append(where.args, limit, (page-1)*limit)
	selectQuery := "SELECT " + attendanceColumns + ", u.name, u.department" + baseQuery +
		fmt.Sprintf(" ORDER BY a.date %s, a.clock_in %s LIMIT $%d OFFSET $%d", order, order, len(args)-1, len(args))

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	records := []attendance.Attendance{}
	for rows.Next() {
		var name, department string
		att, err := scanAttendance(rows, &name, &department)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance: %w", err)
		}
		att.UserName = &name
		att.Department = &department
		records = append(records, att)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, total, nil
}

// List implements attendance.AttendanceRepository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	var where whereBuilder

	if filter.UserID != nil && *filter.UserID != "" {
		where.add("a.user_id = $%d", *filter.UserID)
	}
	if filter.Department != nil && *filter.Department != "" {
		where.add("u.department ILIKE $%d", *filter.Department)
	}
	if d, ok := parseFilterDate(filter.Date); ok {
		where.add("a.date = $%d", d)
	}
	if d, ok := parseFilterDate(filter.StartDate); ok {
		where.add("a.date >= $%d", d)
	}
	if d, ok := parseFilterDate(filter.EndDate); ok {
		where.add("a.date <= $%d", d)
	}
	if filter.Status != nil && *filter.Status != "" {
		where.add("a.status = $%d", *filter.Status)
	}

	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}

	return a.page(ctx, where, order, filter.Page, filter.Limit)
}

// GetMyAttendance implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetMyAttendance(ctx context.Context, userID string, filter attendance.MyAttendanceFilter) ([]attendance.Attendance, int64, error) {
	var where whereBuilder

	where.add("a.user_id = $%d", userID)
	if d, ok := parseFilterDate(filter.StartDate); ok {
		where.add("a.date >= $%d", d)
	}
	if d, ok := parseFilterDate(filter.EndDate); ok {
		where.add("a.date <= $%d", d)
	}
	if filter.Status != nil && *filter.Status != "" {
		where.add("a.status = $%d", *filter.Status)
	}

	return a.page(ctx, where, "DESC", filter.Page, filter.Limit)
}

// BulkInsert streams records through COPY into a temporary table and then
// merges them, skipping user/date pairs that already have a record.
func (a *attendanceRepository) BulkInsert(ctx context.Context, records []attendance.Attendance) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var inserted int64
	err := WithTransaction(ctx, a.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, a.db)

		if _, err := q.Exec(ctx, `
			CREATE TEMP TABLE attendance_import
			(LIKE attendances INCLUDING DEFAULTS) ON COMMIT DROP
		`); err != nil {
			return fmt.Errorf("failed to create import table: %w", err)
		}

		columns := []string{
			"user_id", "date", "clock_in", "clock_out", "status", "working_minutes",
			"late_minutes", "location", "notes", "source", "device_id",
		}
		_, err := q.CopyFrom(ctx, pgx.Identifier{"attendance_import"}, columns,
			pgx.CopyFromSlice(len(records), func(i int) ([]interface{}, error) {
				r := records[i]
				return []interface{}{
					r.UserID, dateOnly(r.Date), r.ClockIn, r.ClockOut, string(r.Status), r.WorkingMinutes,
					r.LateMinutes, r.Location, r.Notes, string(r.Source), r.DeviceID,
				}, nil
			}))
		if err != nil {
			return fmt.Errorf("failed to copy attendance records: %w", err)
		}

		tag, err := q.Exec(ctx, `
			INSERT INTO attendances (
				user_id, date, clock_in, clock_out, status, working_minutes,
				late_minutes, location, notes, source, device_id
			)
			SELECT DISTINCT ON (i.user_id, i.date)
				i.user_id, i.date, i.clock_in, i.clock_out, i.status, i.working_minutes,
				i.late_minutes, i.location, i.notes, i.source, i.device_id
			FROM attendance_import i
			JOIN users u ON u.id = i.user_id
			ORDER BY i.user_id, i.date, i.clock_in
			ON CONFLICT (user_id, date) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("failed to merge attendance records: %w", err)
		}

		inserted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// GetOpenSessionsBefore implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetOpenSessionsBefore(ctx context.Context, date time.Time) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances a
		WHERE a.clock_in IS NOT NULL AND a.clock_out IS NULL AND a.date < $1
		ORDER BY a.date
	`

	rows, err := q.Query(ctx, query, dateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("failed to query open sessions: %w", err)
	}
	defer rows.Close()

	sessions := []attendance.Attendance{}
	for rows.Next() {
		att, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		sessions = append(sessions, att)
	}

	return sessions, rows.Err()
}
