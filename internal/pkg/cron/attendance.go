package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// AttendanceService is the slice of the attendance service the nightly jobs drive
type AttendanceService interface {
	CloseStaleSessions(ctx context.Context) (int, error)
	MarkAbsences(ctx context.Context, date time.Time) (int64, error)
}

type AttendanceJobs struct {
	attendanceService AttendanceService
	location          *time.Location
	runHour           int
	now               func() time.Time
}

// NewAttendanceJobs runs the nightly jobs during runHour in loc. The scheduler
// ticks hourly so each job fires once per day.
func NewAttendanceJobs(attendanceService AttendanceService, loc *time.Location, runHour int) *AttendanceJobs {
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceJobs{
		attendanceService: attendanceService,
		location:          loc,
		runHour:           runHour,
		now:               time.Now,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("auto_close_stale_attendances", 1*time.Hour, j.AutoCloseStaleAttendances)
	scheduler.AddJob("mark_absent_users", 1*time.Hour, j.MarkAbsentUsers)
}

func (j *AttendanceJobs) due() bool {
	return j.now().In(j.location).Hour() == j.runHour
}

func (j *AttendanceJobs) AutoCloseStaleAttendances(ctx context.Context) error {
	if !j.due() {
		return nil
	}

	slog.Info("Cron: Starting auto-close stale attendances job")

	closed, err := j.attendanceService.CloseStaleSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to close stale sessions: %w", err)
	}

	slog.Info("Cron: Auto-closed stale attendances", "count", closed)
	return nil
}

// MarkAbsentUsers records yesterday's absences. Yesterday is complete by the
// time this runs, so every real clock-in is already in place.
func (j *AttendanceJobs) MarkAbsentUsers(ctx context.Context) error {
	if !j.due() {
		return nil
	}

	local := j.now().In(j.location).AddDate(0, 0, -1)
	yesterday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	slog.Info("Cron: Starting mark absent users job", "date", yesterday.Format("2006-01-02"))

	marked, err := j.attendanceService.MarkAbsences(ctx, yesterday)
	if err != nil {
		return fmt.Errorf("failed to mark absences: %w", err)
	}

	slog.Info("Cron: Marked absent users", "count", marked)
	return nil
}
