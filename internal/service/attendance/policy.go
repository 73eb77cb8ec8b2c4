package attendance

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/attendance"
)

// Policy decides late and half-day status in the portal's timezone
type Policy struct {
	Location         *time.Location
	ExpectedHour     int
	ExpectedMinute   int
	HalfDayThreshold time.Duration
}

// NewPolicy parses the expected clock-in ("HH:MM") and timezone name
func NewPolicy(expectedClockIn, timezone string, halfDayThreshold time.Duration) (Policy, error) {
	expected, err := time.Parse("15:04", expectedClockIn)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid expected clock-in %q: %w", expectedClockIn, err)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	if halfDayThreshold <= 0 {
		halfDayThreshold = 4 * time.Hour
	}
	return Policy{
		Location:         loc,
		ExpectedHour:     expected.Hour(),
		ExpectedMinute:   expected.Minute(),
		HalfDayThreshold: halfDayThreshold,
	}, nil
}

// LocalDate returns midnight of t's calendar day in the policy timezone,
// expressed as a UTC date for storage.
func (p Policy) LocalDate(t time.Time) time.Time {
	y, m, d := t.In(p.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// At combines a stored date with a wall-clock time in the policy timezone
func (p Policy) At(date time.Time, hour, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, p.Location)
}

// ClockInStatus reports late when clockIn is after the expected time that day
func (p Policy) ClockInStatus(clockIn time.Time) (attendance.Status, *int) {
	expected := p.At(p.LocalDate(clockIn), p.ExpectedHour, p.ExpectedMinute)
	if !clockIn.After(expected) {
		return attendance.StatusPresent, nil
	}
	late := int(clockIn.Sub(expected).Minutes())
	if late == 0 {
		return attendance.StatusPresent, nil
	}
	return attendance.StatusLate, &late
}

// ClockOutStatus computes working minutes. Short days become half-day
// unless the record is already late.
func (p Policy) ClockOutStatus(current attendance.Status, clockIn, clockOut time.Time) (attendance.Status, int) {
	minutes := int(clockOut.Sub(clockIn).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	if current != attendance.StatusLate && time.Duration(minutes)*time.Minute < p.HalfDayThreshold {
		return attendance.StatusHalfDay, minutes
	}
	return current, minutes
}
