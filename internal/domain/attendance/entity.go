package attendance

import (
	"time"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusLeave   Status = "leave"
	StatusHalfDay Status = "half-day"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusLeave, StatusHalfDay:
		return true
	}
	return false
}

// Source records how an attendance row entered the system
type Source string

const (
	SourceWeb       Source = "web"
	SourceBiometric Source = "esl_biometric"
	SourceSystem    Source = "system"
)

const (
	DefaultBiometricDevice   = "ESL_Biometric"
	DefaultBiometricLocation = "Main Gate"
)

type Attendance struct {
	ID             string
	UserID         string
	Date           time.Time
	ClockIn        *time.Time
	ClockOut       *time.Time
	Status         Status
	WorkingMinutes *int
	LateMinutes    *int
	Location       *string
	Notes          *string
	Source         Source
	DeviceID       *string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// DTO
	UserName   *string
	Department *string
}

// IsOpen reports whether the user clocked in without clocking out
func (a Attendance) IsOpen() bool {
	return a.ClockIn != nil && a.ClockOut == nil
}
