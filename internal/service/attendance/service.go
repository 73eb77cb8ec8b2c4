package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/attendance"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/audit"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/auth"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/notification"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/user"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/metrics"
)

const autoClockOutNote = "auto clock-out: session left open"

type AttendanceServiceImpl struct {
	attendanceRepo      attendance.AttendanceRepository
	userRepo            user.UserRepository
	leaveRequestRepo    leave.LeaveRequestRepository
	auditRepo           audit.AuditLogRepository
	notificationService notification.Service
	policy              Policy
	closeStaleAfter     time.Duration
	metrics             *metrics.Metrics
	now                 func() time.Time
}

// Options configures an AttendanceServiceImpl
type Options struct {
	Policy          Policy
	CloseStaleAfter time.Duration
	Metrics         *metrics.Metrics
	Now             func() time.Time
}

func NewAttendanceService(
	attendanceRepo attendance.AttendanceRepository,
	userRepo user.UserRepository,
	leaveRequestRepo leave.LeaveRequestRepository,
	auditRepo audit.AuditLogRepository,
	notificationService notification.Service,
	opts Options,
) *AttendanceServiceImpl {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CloseStaleAfter <= 0 {
		opts.CloseStaleAfter = 8 * time.Hour
	}
	if opts.Policy.Location == nil {
		opts.Policy.Location = time.UTC
	}
	return &AttendanceServiceImpl{
		attendanceRepo:      attendanceRepo,
		userRepo:            userRepo,
		leaveRequestRepo:    leaveRequestRepo,
		auditRepo:           auditRepo,
		notificationService: notificationService,
		policy:              opts.Policy,
		closeStaleAfter:     opts.CloseStaleAfter,
		metrics:             opts.Metrics,
		now:                 opts.Now,
	}
}

// ClockIn implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ClockIn(ctx context.Context, actor auth.Actor, req attendance.ClockInRequest) (attendance.AttendanceResponse, error) {
	if !actor.Can(user.PermissionAttendanceCreate) {
		return attendance.AttendanceResponse{}, attendance.ErrUnauthorized
	}
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	now := s.now()
	date := s.policy.LocalDate(now)

	existing, err := s.attendanceRepo.GetByUserAndDate(ctx, actor.ID, date)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to check today's attendance: %w", err)
	}
	if existing != nil {
		return attendance.AttendanceResponse{}, attendance.ErrAlreadyCheckedIn
	}

	status, lateMinutes := s.policy.ClockInStatus(now)

	created, err := s.attendanceRepo.Create(ctx, attendance.Attendance{
		UserID:      actor.ID,
		Date:        date,
		ClockIn:     &now,
		Status:      status,
		LateMinutes: lateMinutes,
		Location:    req.Location,
		Notes:       req.Notes,
		Source:      attendance.SourceWeb,
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	return created.ToResponse(s.policy.Location), nil
}

// ClockOut implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ClockOut(ctx context.Context, actor auth.Actor, req attendance.ClockOutRequest) (attendance.AttendanceResponse, error) {
	if !actor.Can(user.PermissionAttendanceCreate) {
		return attendance.AttendanceResponse{}, attendance.ErrUnauthorized
	}
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	now := s.now()
	record, err := s.attendanceRepo.GetByUserAndDate(ctx, actor.ID, s.policy.LocalDate(now))
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to get today's attendance: %w", err)
	}
	if record == nil || record.ClockIn == nil {
		return attendance.AttendanceResponse{}, attendance.ErrNotCheckedIn
	}
	if record.ClockOut != nil {
		return attendance.AttendanceResponse{}, attendance.ErrAlreadyCheckedOut
	}
	if now.Before(*record.ClockIn) {
		return attendance.AttendanceResponse{}, attendance.ErrClockOutBeforeIn
	}

	status, minutes := s.policy.ClockOutStatus(record.Status, *record.ClockIn, now)
	record.ClockOut = &now
	record.Status = status
	record.WorkingMinutes = &minutes
	if req.Notes != nil {
		record.Notes = req.Notes
	}

	if err := s.attendanceRepo.Update(ctx, *record); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	return record.ToResponse(s.policy.Location), nil
}

func (s *AttendanceServiceImpl) listResponse(records []attendance.Attendance, total int64, page, limit int) attendance.ListAttendanceResponse {
	responses := make([]attendance.AttendanceResponse, 0, len(records))
	for _, r := range records {
		responses = append(responses, r.ToResponse(s.policy.Location))
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	showing := fmt.Sprintf("%d-%d of %d", (page-1)*limit+1, min(page*limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		Showing:     showing,
		Attendances: responses,
	}
}

// GetMyAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetMyAttendance(ctx context.Context, actor auth.Actor, filter attendance.MyAttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	records, total, err := s.attendanceRepo.GetMyAttendance(ctx, actor.ID, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to get my attendance: %w", err)
	}

	return s.listResponse(records, total, filter.Page, filter.Limit), nil
}

// ListAttendance implements attendance.AttendanceService. HODs only see
// their own department.
func (s *AttendanceServiceImpl) ListAttendance(ctx context.Context, actor auth.Actor, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if !actor.Can(user.PermissionAttendanceViewAll) {
		return attendance.ListAttendanceResponse{}, attendance.ErrUnauthorized
	}
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}
	if actor.Role == user.RoleHOD {
		dept := actor.Department
		filter.Department = &dept
	}

	records, total, err := s.attendanceRepo.List(ctx, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	return s.listResponse(records, total, filter.Page, filter.Limit), nil
}

// ListToday implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListToday(ctx context.Context, actor auth.Actor, page, limit int) (attendance.ListAttendanceResponse, error) {
	today := s.policy.LocalDate(s.now()).Format("2006-01-02")
	return s.ListAttendance(ctx, actor, attendance.AttendanceFilter{
		Date:      &today,
		Page:      page,
		Limit:     limit,
		SortOrder: "asc",
	})
}

// ImportBiometric converts device punches into attendance rows and loads
// them in one COPY. Rows for a user/date that already has a record are skipped.
func (s *AttendanceServiceImpl) ImportBiometric(ctx context.Context, actor auth.Actor, req attendance.ImportBiometricRequest) (attendance.ImportBiometricResponse, error) {
	if !actor.Can(user.PermissionAttendanceImport) {
		return attendance.ImportBiometricResponse{}, attendance.ErrUnauthorized
	}
	if len(req.Records) == 0 {
		return attendance.ImportBiometricResponse{}, attendance.ErrEmptyImport
	}
	if err := req.Validate(); err != nil {
		return attendance.ImportBiometricResponse{}, err
	}

	deviceDefault := attendance.DefaultBiometricDevice
	if req.DeviceID != nil && *req.DeviceID != "" {
		deviceDefault = *req.DeviceID
	}
	locationDefault := attendance.DefaultBiometricLocation
	if req.Location != nil && *req.Location != "" {
		locationDefault = *req.Location
	}

	var resp attendance.ImportBiometricResponse
	seen := make(map[string]struct{}, len(req.Records))
	records := make([]attendance.Attendance, 0, len(req.Records))

	for i, rec := range req.Records {
		key := rec.UserID + "|" + rec.Date
		if _, dup := seen[key]; dup {
			return attendance.ImportBiometricResponse{}, fmt.Errorf("%w: row %d (%s on %s)", attendance.ErrDuplicateImportRow, i, rec.UserID, rec.Date)
		}
		seen[key] = struct{}{}

		row, err := s.biometricRow(rec, deviceDefault, locationDefault)
		if err != nil {
			return attendance.ImportBiometricResponse{}, fmt.Errorf("row %d: %w", i, err)
		}

		switch row.Status {
		case attendance.StatusLate:
			resp.Late++
		case attendance.StatusHalfDay:
			resp.HalfDay++
		}
		records = append(records, row)
	}

	imported, err := s.attendanceRepo.BulkInsert(ctx, records)
	if err != nil {
		return attendance.ImportBiometricResponse{}, fmt.Errorf("failed to import biometric records: %w", err)
	}
	resp.Imported = imported
	s.metrics.AttendanceImported(imported)

	if s.auditRepo != nil {
		if _, err := s.auditRepo.Create(ctx, audit.AuditLog{
			ActorID:    actor.ID,
			ActorName:  actor.Name,
			Action:     "import_biometric",
			TargetType: audit.TargetAttendance,
			TargetID:   deviceDefault,
			Details: map[string]interface{}{
				"submitted": len(records),
				"imported":  imported,
			},
		}); err != nil {
			slog.Error("failed to audit biometric import", "actor_id", actor.ID, "error", err)
		}
	}

	return resp, nil
}

func parseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

func (s *AttendanceServiceImpl) biometricRow(rec attendance.BiometricRecord, device, location string) (attendance.Attendance, error) {
	date, err := time.Parse("2006-01-02", rec.Date)
	if err != nil {
		return attendance.Attendance{}, err
	}

	h, m, err := parseClock(rec.ClockIn)
	if err != nil {
		return attendance.Attendance{}, err
	}
	clockIn := s.policy.At(date, h, m)
	status, late := s.policy.ClockInStatus(clockIn)

	row := attendance.Attendance{
		UserID:      rec.UserID,
		Date:        date,
		ClockIn:     &clockIn,
		Status:      status,
		LateMinutes: late,
		Source:      attendance.SourceBiometric,
		DeviceID:    &device,
		Location:    &location,
	}
	if rec.DeviceID != nil && *rec.DeviceID != "" {
		row.DeviceID = rec.DeviceID
	}
	if rec.Location != nil && *rec.Location != "" {
		row.Location = rec.Location
	}

	if rec.ClockOut != nil {
		h, m, err := parseClock(*rec.ClockOut)
		if err != nil {
			return attendance.Attendance{}, err
		}
		clockOut := s.policy.At(date, h, m)
		if clockOut.Before(clockIn) {
			return attendance.Attendance{}, attendance.ErrClockOutBeforeIn
		}
		st, minutes := s.policy.ClockOutStatus(status, clockIn, clockOut)
		row.ClockOut = &clockOut
		row.Status = st
		row.WorkingMinutes = &minutes
	}

	return row, nil
}

// CloseStaleSessions clocks out sessions left open on earlier days at
// clock-in plus the configured session length and tells the owner.
func (s *AttendanceServiceImpl) CloseStaleSessions(ctx context.Context) (int, error) {
	today := s.policy.LocalDate(s.now())

	open, err := s.attendanceRepo.GetOpenSessionsBefore(ctx, today)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, rec := range open {
		clockOut := rec.ClockIn.Add(s.closeStaleAfter)
		status, minutes := s.policy.ClockOutStatus(rec.Status, *rec.ClockIn, clockOut)
		note := autoClockOutNote
		rec.ClockOut = &clockOut
		rec.Status = status
		rec.WorkingMinutes = &minutes
		rec.Notes = &note

		if err := s.attendanceRepo.Update(ctx, rec); err != nil {
			slog.Error("failed to close stale attendance session", "attendance_id", rec.ID, "error", err)
			continue
		}
		closed++

		if s.notificationService == nil {
			continue
		}
		if err := s.notificationService.QueueNotification(ctx, notification.CreateNotificationRequest{
			RecipientID: rec.UserID,
			Title:       "Missing Clock-out",
			Message:     fmt.Sprintf("You did not clock out on %s. Your session was closed automatically.", rec.Date.Format("2006-01-02")),
			Severity:    notification.SeverityWarning,
			Category:    notification.CategoryAttendance,
			Priority:    notification.PriorityMedium,
			Data:        map[string]interface{}{"attendance_id": rec.ID},
		}); err != nil {
			slog.Error("failed to queue clock-out notification", "user_id", rec.UserID, "error", err)
		}
	}

	return closed, nil
}

// MarkAbsences writes a system row for every active user without a record on
// date: "leave" when an approved request covers the day, otherwise "absent".
func (s *AttendanceServiceImpl) MarkAbsences(ctx context.Context, date time.Time) (int64, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	users, err := s.userRepo.List(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	onLeave := map[string]struct{}{}
	if s.leaveRequestRepo != nil {
		approved, err := s.leaveRequestRepo.GetApprovedCovering(ctx, day)
		if err != nil {
			return 0, fmt.Errorf("failed to load approved leave: %w", err)
		}
		for _, r := range approved {
			onLeave[r.UserID] = struct{}{}
		}
	}

	records := make([]attendance.Attendance, 0, len(users))
	for _, u := range users {
		if !u.IsActive {
			continue
		}
		status := attendance.StatusAbsent
		if _, ok := onLeave[u.ID]; ok {
			status = attendance.StatusLeave
		}
		records = append(records, attendance.Attendance{
			UserID: u.ID,
			Date:   day,
			Status: status,
			Source: attendance.SourceSystem,
		})
	}

	return s.attendanceRepo.BulkInsert(ctx, records)
}

var _ attendance.AttendanceService = (*AttendanceServiceImpl)(nil)
