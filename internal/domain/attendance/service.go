package attendance

import (
	"context"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/auth"
)

// AttendanceService defines business logic for attendance operations
type AttendanceService interface {
	ClockIn(ctx context.Context, actor auth.Actor, req ClockInRequest) (AttendanceResponse, error)
	ClockOut(ctx context.Context, actor auth.Actor, req ClockOutRequest) (AttendanceResponse, error)

	// GetMyAttendance retrieves attendance records for the actor
	GetMyAttendance(ctx context.Context, actor auth.Actor, filter MyAttendanceFilter) (ListAttendanceResponse, error)

	// ListAttendance retrieves attendance records with filters (reviewers)
	ListAttendance(ctx context.Context, actor auth.Actor, filter AttendanceFilter) (ListAttendanceResponse, error)

	// ListToday lists today's records in the portal timezone (reviewers)
	ListToday(ctx context.Context, actor auth.Actor, page, limit int) (ListAttendanceResponse, error)

	// ImportBiometric loads a batch of biometric device punches
	ImportBiometric(ctx context.Context, actor auth.Actor, req ImportBiometricRequest) (ImportBiometricResponse, error)

	// CloseStaleSessions clocks out records left open on previous days
	CloseStaleSessions(ctx context.Context) (int, error)

	// MarkAbsences records absent or on-leave rows for users with no record on date
	MarkAbsences(ctx context.Context, date time.Time) (int64, error)
}
