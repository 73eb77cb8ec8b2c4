package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/validator"
)

// MaxImportRecords bounds a single biometric upload
const MaxImportRecords = 5000

type ClockInRequest struct {
	Location *string `json:"location,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

func (r *ClockInRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Location != nil && len(*r.Location) > 255 {
		errs = append(errs, validator.ValidationError{
			Field:   "location",
			Message: "location must not exceed 255 characters",
		})
	}
	if r.Notes != nil && len(*r.Notes) > 1000 {
		errs = append(errs, validator.ValidationError{
			Field:   "notes",
			Message: "notes must not exceed 1000 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ClockOutRequest struct {
	Notes *string `json:"notes,omitempty"`
}

func (r *ClockOutRequest) Validate() error {
	if r.Notes != nil && len(*r.Notes) > 1000 {
		return validator.ValidationErrors{{
			Field:   "notes",
			Message: "notes must not exceed 1000 characters",
		}}
	}
	return nil
}

var validStatuses = []string{"present", "absent", "late", "leave", "half-day"}

func validatePaging(page, limit *int, errs validator.ValidationErrors) validator.ValidationErrors {
	if *page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if *page == 0 {
		*page = 1
	}

	if *limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if *limit == 0 {
		*limit = 20
	}
	if *limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}
	return errs
}

func validateDates(errs validator.ValidationErrors, fields map[string]*string) validator.ValidationErrors {
	for _, name := range []string{"date", "start_date", "end_date"} {
		v, ok := fields[name]
		if !ok || v == nil || *v == "" {
			continue
		}
		if _, valid := validator.IsValidDate(*v); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   name,
				Message: name + " must be in YYYY-MM-DD format",
			})
		}
	}
	return errs
}

type AttendanceFilter struct {
	UserID     *string `json:"user_id,omitempty"`
	Department *string `json:"department,omitempty"`
	Date       *string `json:"date,omitempty"`       // YYYY-MM-DD
	StartDate  *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate    *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status     *string `json:"status,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	SortOrder string `json:"sort_order"` // asc, desc
}

func (f *AttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	errs = validatePaging(&f.Page, &f.Limit, errs)

	if f.Status != nil && !validator.IsInSlice(*f.Status, validStatuses) {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: " + strings.Join(validStatuses, ", "),
		})
	}

	errs = validateDates(errs, map[string]*string{
		"date":       f.Date,
		"start_date": f.StartDate,
		"end_date":   f.EndDate,
	})

	if f.SortOrder != "" {
		if !validator.IsInSlice(strings.ToLower(f.SortOrder), []string{"asc", "desc"}) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_order",
				Message: "sort_order must be one of: asc, desc",
			})
		}
		f.SortOrder = strings.ToLower(f.SortOrder)
	} else {
		f.SortOrder = "desc"
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type MyAttendanceFilter struct {
	StartDate *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate   *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status    *string `json:"status,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (f *MyAttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	errs = validatePaging(&f.Page, &f.Limit, errs)

	if f.Status != nil && !validator.IsInSlice(*f.Status, validStatuses) {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: " + strings.Join(validStatuses, ", "),
		})
	}

	errs = validateDates(errs, map[string]*string{
		"start_date": f.StartDate,
		"end_date":   f.EndDate,
	})

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// BiometricRecord is one punch pair exported from a thumb scanner
type BiometricRecord struct {
	UserID   string  `json:"user_id"`
	Date     string  `json:"date"`      // YYYY-MM-DD
	ClockIn  string  `json:"clock_in"`  // HH:MM
	ClockOut *string `json:"clock_out"` // HH:MM
	DeviceID *string `json:"device_id,omitempty"`
	Location *string `json:"location,omitempty"`
}

type ImportBiometricRequest struct {
	DeviceID *string           `json:"device_id,omitempty"`
	Location *string           `json:"location,omitempty"`
	Records  []BiometricRecord `json:"records"`
}

func (r *ImportBiometricRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.Records) == 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "records",
			Message: "at least one record is required",
		})
	}
	if len(r.Records) > MaxImportRecords {
		errs = append(errs, validator.ValidationError{
			Field:   "records",
			Message: fmt.Sprintf("records must not exceed %d entries", MaxImportRecords),
		})
	}

	for i, rec := range r.Records {
		field := fmt.Sprintf("records[%d]", i)
		if validator.IsEmpty(rec.UserID) {
			errs = append(errs, validator.ValidationError{
				Field:   field + ".user_id",
				Message: "user_id is required",
			})
		} else if !validator.IsValidUUID(rec.UserID) {
			errs = append(errs, validator.ValidationError{
				Field:   field + ".user_id",
				Message: "user_id must be a valid UUID",
			})
		}
		if _, ok := validator.IsValidDate(rec.Date); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   field + ".date",
				Message: "date must be in YYYY-MM-DD format",
			})
		}
		if !validator.IsValidClock(rec.ClockIn) {
			errs = append(errs, validator.ValidationError{
				Field:   field + ".clock_in",
				Message: "clock_in must be in HH:MM format",
			})
		}
		if rec.ClockOut != nil && !validator.IsValidClock(*rec.ClockOut) {
			errs = append(errs, validator.ValidationError{
				Field:   field + ".clock_out",
				Message: "clock_out must be in HH:MM format",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ImportBiometricResponse struct {
	Imported int64 `json:"imported"`
	Late     int   `json:"late"`
	HalfDay  int   `json:"half_day"`
}

type AttendanceResponse struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	UserName       *string `json:"user_name,omitempty"`
	Department     *string `json:"department,omitempty"`
	Date           string  `json:"date"`
	ClockIn        *string `json:"clock_in,omitempty"`
	ClockOut       *string `json:"clock_out,omitempty"`
	Status         Status  `json:"status"`
	WorkingMinutes *int    `json:"working_minutes,omitempty"`
	WorkingHours   string  `json:"working_hours"`
	LateMinutes    *int    `json:"late_minutes,omitempty"`
	Location       *string `json:"location,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	Source         Source  `json:"source"`
	DeviceID       *string `json:"device_id,omitempty"`
}

// FormatWorkingHours renders minutes as "7h 30m"; unknown durations render as "---"
func FormatWorkingHours(minutes *int) string {
	if minutes == nil {
		return "---"
	}
	return fmt.Sprintf("%dh %dm", *minutes/60, *minutes%60)
}

// ToResponse maps the entity to its API shape using loc for wall-clock times
func (a Attendance) ToResponse(loc *time.Location) AttendanceResponse {
	resp := AttendanceResponse{
		ID:             a.ID,
		UserID:         a.UserID,
		UserName:       a.UserName,
		Department:     a.Department,
		Date:           a.Date.Format("2006-01-02"),
		Status:         a.Status,
		WorkingMinutes: a.WorkingMinutes,
		WorkingHours:   FormatWorkingHours(a.WorkingMinutes),
		LateMinutes:    a.LateMinutes,
		Location:       a.Location,
		Notes:          a.Notes,
		Source:         a.Source,
		DeviceID:       a.DeviceID,
	}
	if a.ClockIn != nil {
		s := a.ClockIn.In(loc).Format(time.RFC3339)
		resp.ClockIn = &s
	}
	if a.ClockOut != nil {
		s := a.ClockOut.In(loc).Format(time.RFC3339)
		resp.ClockOut = &s
	}
	return resp
}

type ListAttendanceResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Showing     string               `json:"showing"`
	Attendances []AttendanceResponse `json:"attendances"`
}
