package attendance

import (
	"context"
	"time"
)

// AttendanceRepository defines data access methods for attendance records.
type AttendanceRepository interface {
	// Create creates a new attendance record
	Create(ctx context.Context, attendance Attendance) (Attendance, error)

	// GetByUserAndDate returns nil when the user has no record on that date
	GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*Attendance, error)

	// Update writes clock-out, status and working time
	Update(ctx context.Context, attendance Attendance) error

	// List retrieves attendance records with filters and pagination
	List(ctx context.Context, filter AttendanceFilter) ([]Attendance, int64, error)

	// GetMyAttendance retrieves attendance records for a specific user
	GetMyAttendance(ctx context.Context, userID string, filter MyAttendanceFilter) ([]Attendance, int64, error)

	// BulkInsert copies pre-computed records in one round trip
	BulkInsert(ctx context.Context, records []Attendance) (int64, error)

	// GetOpenSessionsBefore returns clocked-in records dated before the given day
	GetOpenSessionsBefore(ctx context.Context, date time.Time) ([]Attendance, error)
}
