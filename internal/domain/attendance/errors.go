package attendance

import "errors"

// Attendance domain errors
var (
	// Clock-in errors
	ErrAlreadyCheckedIn  = errors.New("you have already checked in today")
	ErrNotCheckedIn      = errors.New("you have not checked in yet")
	ErrAlreadyCheckedOut = errors.New("you have already checked out")

	// Import errors
	ErrEmptyImport        = errors.New("no attendance records to import")
	ErrClockOutBeforeIn   = errors.New("clock out must be after clock in")
	ErrDuplicateImportRow = errors.New("duplicate attendance record for user and date")

	// General errors
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrUnauthorized       = errors.New("unauthorized to access attendance records")
)
