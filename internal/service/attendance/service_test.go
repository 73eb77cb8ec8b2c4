package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/attendance"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/auth"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	teacherID = "0b9f0d5e-7a61-4d7a-9c1e-2f4b8c1d0a01"
	otherID   = "0b9f0d5e-7a61-4d7a-9c1e-2f4b8c1d0a02"
)

type memoryAttendanceRepo struct {
	mu      sync.Mutex
	records map[string]attendance.Attendance
	seq     int
}

func newMemoryAttendanceRepo() *memoryAttendanceRepo {
	return &memoryAttendanceRepo{records: map[string]attendance.Attendance{}}
}

func key(userID string, date time.Time) string {
	return userID + "|" + date.Format("2006-01-02")
}

func (r *memoryAttendanceRepo) Create(_ context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[key(a.UserID, a.Date)]; ok {
		return attendance.Attendance{}, attendance.ErrAlreadyCheckedIn
	}
	r.seq++
	a.ID = fmt.Sprintf("att-%d", r.seq)
	r.records[key(a.UserID, a.Date)] = a
	return a, nil
}

func (r *memoryAttendanceRepo) GetByUserAndDate(_ context.Context, userID string, date time.Time) (*attendance.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.records[key(userID, date)]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *memoryAttendanceRepo) Update(_ context.Context, a attendance.Attendance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(a.UserID, a.Date)
	if _, ok := r.records[k]; !ok {
		return attendance.ErrAttendanceNotFound
	}
	r.records[k] = a
	return nil
}

func (r *memoryAttendanceRepo) all() []attendance.Attendance {
	out := make([]attendance.Attendance, 0, len(r.records))
	for _, a := range r.records {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (r *memoryAttendanceRepo) List(_ context.Context, f attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []attendance.Attendance
	for _, a := range r.all() {
		if f.Date != nil && a.Date.Format("2006-01-02") != *f.Date {
			continue
		}
		out = append(out, a)
	}
	return out, int64(len(out)), nil
}

func (r *memoryAttendanceRepo) GetMyAttendance(_ context.Context, userID string, _ attendance.MyAttendanceFilter) ([]attendance.Attendance, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []attendance.Attendance
	for _, a := range r.all() {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryAttendanceRepo) BulkInsert(_ context.Context, records []attendance.Attendance) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range records {
		k := key(a.UserID, a.Date)
		if _, ok := r.records[k]; ok {
			continue
		}
		r.records[k] = a
		n++
	}
	return n, nil
}

func (r *memoryAttendanceRepo) GetOpenSessionsBefore(_ context.Context, date time.Time) ([]attendance.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []attendance.Attendance
	for _, a := range r.records {
		if a.IsOpen() && a.Date.Before(date) {
			out = append(out, a)
		}
	}
	return out, nil
}

type stubUserRepo struct {
	users []user.User
}

func (s stubUserRepo) GetByEmail(context.Context, string) (user.User, error) {
	return user.User{}, user.ErrUserNotFound
}
func (s stubUserRepo) GetByID(context.Context, string) (user.User, error) {
	return user.User{}, user.ErrUserNotFound
}
func (s stubUserRepo) Create(_ context.Context, u user.User) (user.User, error) { return u, nil }
func (s stubUserRepo) List(context.Context, *user.Role) ([]user.User, error)  { return s.users, nil }
func (s stubUserRepo) RecordLogin(context.Context, string) error              { return nil }
func (s stubUserRepo) Update(context.Context, string, user.UpdateUserRequest) error {
	return nil
}

type stubLeaveRepo struct {
	leave.LeaveRequestRepository
	approved []leave.LeaveRequest
}

func (s stubLeaveRepo) GetApprovedCovering(context.Context, time.Time) ([]leave.LeaveRequest, error) {
	return s.approved, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(t *testing.T, c *clock, repo *memoryAttendanceRepo) *AttendanceServiceImpl {
	return NewAttendanceService(repo, stubUserRepo{}, nil, nil, nil, Options{
		Policy:          testPolicy(t),
		CloseStaleAfter: 8 * time.Hour,
		Now:             c.now,
	})
}

var teacher = auth.Actor{ID: teacherID, Name: "Asha", Role: user.RoleTeacher, Department: "Physics"}

func TestClockInOut(t *testing.T) {
	p := testPolicy(t)
	day := time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC)
	c := &clock{t: p.At(day, 9, 20)}
	repo := newMemoryAttendanceRepo()
	svc := newTestService(t, c, repo)
	ctx := context.Background()

	_, err := svc.ClockOut(ctx, teacher, attendance.ClockOutRequest{})
	assert.ErrorIs(t, err, attendance.ErrNotCheckedIn)

	in, err := svc.ClockIn(ctx, teacher, attendance.ClockInRequest{})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusLate, in.Status)
	require.NotNil(t, in.LateMinutes)
	assert.Equal(t, 20, *in.LateMinutes)
	assert.Equal(t, "2026-04-06", in.Date)
	assert.Equal(t, "---", in.WorkingHours)

	_, err = svc.ClockIn(ctx, teacher, attendance.ClockInRequest{})
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedIn)

	c.t = p.At(day, 12, 0)
	out, err := svc.ClockOut(ctx, teacher, attendance.ClockOutRequest{})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusLate, out.Status, "late stays late even on a short day")
	require.NotNil(t, out.WorkingMinutes)
	assert.Equal(t, 160, *out.WorkingMinutes)
	assert.Equal(t, "2h 40m", out.WorkingHours)

	_, err = svc.ClockOut(ctx, teacher, attendance.ClockOutRequest{})
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedOut)
}

func TestClockOut_ShortDayIsHalfDay(t *testing.T) {
	p := testPolicy(t)
	day := time.Date(2026, 4, 7, 0, 0, 0, 0, time.UTC)
	c := &clock{t: p.At(day, 8, 55)}
	svc := newTestService(t, c, newMemoryAttendanceRepo())
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, teacher, attendance.ClockInRequest{})
	require.NoError(t, err)

	c.t = p.At(day, 11, 0)
	out, err := svc.ClockOut(ctx, teacher, attendance.ClockOutRequest{})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusHalfDay, out.Status)
}

func TestListAttendance_Permissions(t *testing.T) {
	c := &clock{t: time.Date(2026, 4, 6, 6, 0, 0, 0, time.UTC)}
	svc := newTestService(t, c, newMemoryAttendanceRepo())

	_, err := svc.ListAttendance(context.Background(), teacher, attendance.AttendanceFilter{})
	assert.ErrorIs(t, err, attendance.ErrUnauthorized)

	resp, err := svc.ListToday(context.Background(), auth.Actor{ID: "hod", Role: user.RoleHOD, Department: "Physics"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "0 of 0", resp.Showing)
	assert.Equal(t, 20, resp.Limit)
}

func TestImportBiometric(t *testing.T) {
	c := &clock{t: time.Date(2026, 4, 10, 6, 0, 0, 0, time.UTC)}
	repo := newMemoryAttendanceRepo()
	svc := newTestService(t, c, repo)
	ctx := context.Background()
	hr := auth.Actor{ID: "hr", Name: "HR", Role: user.RoleHR}
	out := func(s string) *string { return &s }

	_, err := svc.ImportBiometric(ctx, teacher, attendance.ImportBiometricRequest{})
	assert.ErrorIs(t, err, attendance.ErrUnauthorized)

	_, err = svc.ImportBiometric(ctx, hr, attendance.ImportBiometricRequest{})
	assert.ErrorIs(t, err, attendance.ErrEmptyImport)

	resp, err := svc.ImportBiometric(ctx, hr, attendance.ImportBiometricRequest{
		Records: []attendance.BiometricRecord{
			{UserID: teacherID, Date: "2026-04-08", ClockIn: "08:50", ClockOut: out("17:00")},
			{UserID: teacherID, Date: "2026-04-09", ClockIn: "09:30", ClockOut: out("17:00")},
			{UserID: otherID, Date: "2026-04-09", ClockIn: "09:00", ClockOut: out("11:00")},
			{UserID: otherID, Date: "2026-04-08", ClockIn: "09:00"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), resp.Imported)
	assert.Equal(t, 1, resp.Late)
	assert.Equal(t, 1, resp.HalfDay)

	rec, err := repo.GetByUserAndDate(ctx, teacherID, time.Date(2026, 4, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, attendance.SourceBiometric, rec.Source)
	require.NotNil(t, rec.DeviceID)
	assert.Equal(t, attendance.DefaultBiometricDevice, *rec.DeviceID)
	require.NotNil(t, rec.Location)
	assert.Equal(t, attendance.DefaultBiometricLocation, *rec.Location)
	require.NotNil(t, rec.WorkingMinutes)
	assert.Equal(t, 490, *rec.WorkingMinutes)

	_, err = svc.ImportBiometric(ctx, hr, attendance.ImportBiometricRequest{
		Records: []attendance.BiometricRecord{
			{UserID: teacherID, Date: "2026-04-08", ClockIn: "09:00"},
			{UserID: teacherID, Date: "2026-04-08", ClockIn: "09:05"},
		},
	})
	assert.ErrorIs(t, err, attendance.ErrDuplicateImportRow)

	_, err = svc.ImportBiometric(ctx, hr, attendance.ImportBiometricRequest{
		Records: []attendance.BiometricRecord{
			{UserID: teacherID, Date: "2026-04-01", ClockIn: "17:00", ClockOut: out("09:00")},
		},
	})
	assert.ErrorIs(t, err, attendance.ErrClockOutBeforeIn)
}

func TestCloseStaleSessions(t *testing.T) {
	p := testPolicy(t)
	yesterday := time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC)
	c := &clock{t: p.At(yesterday, 9, 0)}
	repo := newMemoryAttendanceRepo()
	svc := newTestService(t, c, repo)
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, teacher, attendance.ClockInRequest{})
	require.NoError(t, err)

	closed, err := svc.CloseStaleSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, closed, "today's open session stays open")

	c.t = p.At(yesterday.AddDate(0, 0, 1), 1, 0)
	closed, err = svc.CloseStaleSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	rec, _ := repo.GetByUserAndDate(ctx, teacherID, yesterday)
	require.NotNil(t, rec)
	require.NotNil(t, rec.ClockOut)
	assert.Equal(t, 480, *rec.WorkingMinutes)
	assert.Equal(t, autoClockOutNote, *rec.Notes)
}

func TestMarkAbsences(t *testing.T) {
	day := time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC)
	repo := newMemoryAttendanceRepo()
	in := day.Add(4 * time.Hour)
	_, err := repo.Create(context.Background(), attendance.Attendance{UserID: "present", Date: day, ClockIn: &in, Status: attendance.StatusPresent})
	require.NoError(t, err)

	svc := NewAttendanceService(repo,
		stubUserRepo{users: []user.User{
			{ID: "present", IsActive: true},
			{ID: "absent", IsActive: true},
			{ID: "on-leave", IsActive: true},
			{ID: "inactive", IsActive: false},
		}},
		stubLeaveRepo{approved: []leave.LeaveRequest{{UserID: "on-leave"}}},
		nil, nil,
		Options{Policy: testPolicy(t)},
	)

	n, err := svc.MarkAbsences(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	absent, _ := repo.GetByUserAndDate(context.Background(), "absent", day)
	require.NotNil(t, absent)
	assert.Equal(t, attendance.StatusAbsent, absent.Status)
	assert.Equal(t, attendance.SourceSystem, absent.Source)

	onLeave, _ := repo.GetByUserAndDate(context.Background(), "on-leave", day)
	require.NotNil(t, onLeave)
	assert.Equal(t, attendance.StatusLeave, onLeave.Status)

	inactive, _ := repo.GetByUserAndDate(context.Background(), "inactive", day)
	assert.Nil(t, inactive)
}
