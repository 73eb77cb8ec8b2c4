package leave

import (
	"io"
	"strings"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/validator"
)

// MinReasonLength is the shortest accepted leave reason
const MinReasonLength = 20

// Attachment is an uploaded supporting document, read from a multipart form
type Attachment struct {
	Filename string
	Size     int64
	Content  io.Reader
}

type CreateLeaveRequestRequest struct {
	LeaveType   string       `json:"leave_type"`
	FromDate    string       `json:"from_date"` // YYYY-MM-DD
	ToDate      string       `json:"to_date"`   // YYYY-MM-DD
	Reason      string       `json:"reason"`
	Attachments []Attachment `json:"-"`

	// Parsed by Validate
	From time.Time `json:"-"`
	To   time.Time `json:"-"`
}

// LeaveTypeOption is one entry of the leave type picker
type LeaveTypeOption struct {
	Code LeaveType `json:"code"`
	Name string    `json:"name"`
}

// LeaveTypeOptions lists every leave type with its display name
func LeaveTypeOptions() []LeaveTypeOption {
	types := AllLeaveTypes()
	out := make([]LeaveTypeOption, 0, len(types))
	for _, t := range types {
		out = append(out, LeaveTypeOption{Code: t, Name: t.DisplayName()})
	}
	return out
}

func leaveTypeCodes() string {
	types := AllLeaveTypes()
	codes := make([]string, 0, len(types))
	for _, t := range types {
		codes = append(codes, string(t))
	}
	return strings.Join(codes, ", ")
}

func (r *CreateLeaveRequestRequest) Validate() error {
	var errs validator.ValidationErrors

	if !LeaveType(r.LeaveType).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "leave_type",
			Message: "leave_type must be one of: " + leaveTypeCodes(),
		})
	}

	from, fromOK := validator.IsValidDate(r.FromDate)
	if !fromOK {
		errs = append(errs, validator.ValidationError{
			Field:   "from_date",
			Message: "from_date must be in YYYY-MM-DD format",
		})
	}
	to, toOK := validator.IsValidDate(r.ToDate)
	if !toOK {
		errs = append(errs, validator.ValidationError{
			Field:   "to_date",
			Message: "to_date must be in YYYY-MM-DD format",
		})
	}
	if fromOK && toOK {
		if to.Before(from) {
			errs = append(errs, validator.ValidationError{
				Field:   "to_date",
				Message: "to_date must not be before from_date",
			})
		}
		r.From, r.To = from, to
	}

	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason is required",
		})
	} else if !validator.MinLength(r.Reason, MinReasonLength) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason must be at least 20 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ApprovalActionRequest is a reviewer's decision on a leave request
type ApprovalActionRequest struct {
	RequestID string  `json:"-"`
	Action    string  `json:"action"`
	Remarks   *string `json:"remarks,omitempty"`
}

// Validate checks request shape only. Remarks rules belong to the approval
// engine so the same check guards every caller.
func (r *ApprovalActionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.RequestID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "leave request id is required",
		})
	}

	if !Action(strings.ToLower(r.Action)).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "action",
			Message: "action must be one of: approve, reject, return",
		})
	} else {
		r.Action = strings.ToLower(r.Action)
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type LeaveRequestFilter struct {
	Status     *string `json:"status,omitempty"`
	Department *string `json:"department,omitempty"`
	LeaveType  *string `json:"leave_type,omitempty"`
	UserID     *string `json:"user_id,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (f *LeaveRequestFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	if f.Status != nil && !Status(*f.Status).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: pending, approved, rejected, returned",
		})
	}

	if f.LeaveType != nil && !LeaveType(*f.LeaveType).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "leave_type",
			Message: "leave_type must be one of: CL, EL, ML, LOP, COH",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Offset is the row offset for the filter's page
func (f LeaveRequestFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

type LeaveRequestResponse struct {
	ID                   string          `json:"id"`
	UserID               string          `json:"user_id"`
	UserName             string          `json:"user_name"`
	Department           string          `json:"department"`
	LeaveType            LeaveType       `json:"leave_type"`
	LeaveTypeName        string          `json:"leave_type_name"`
	FromDate             string          `json:"from_date"`
	ToDate               string          `json:"to_date"`
	DaysCount            int             `json:"days_count"`
	Reason               string          `json:"reason"`
	Attachments          []string        `json:"attachments"`
	Status               Status          `json:"status"`
	CurrentApprovalLevel ApprovalLevel   `json:"current_approval_level"`
	ApprovalFlow         []ApprovalLevel `json:"approval_flow"`
	ApprovedBy           *string         `json:"approved_by,omitempty"`
	ApprovedAt           *time.Time      `json:"approved_at,omitempty"`
	Remarks              *string         `json:"remarks,omitempty"`
	ResubmittedFrom      *string         `json:"resubmitted_from,omitempty"`
	SubmittedAt          time.Time       `json:"submitted_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// ToResponse maps the entity to its API shape
func (r LeaveRequest) ToResponse() LeaveRequestResponse {
	attachments := r.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return LeaveRequestResponse{
		ID:                   r.ID,
		UserID:               r.UserID,
		UserName:             r.UserName,
		Department:           r.Department,
		LeaveType:            r.LeaveType,
		LeaveTypeName:        r.LeaveType.DisplayName(),
		FromDate:             r.FromDate.Format("2006-01-02"),
		ToDate:               r.ToDate.Format("2006-01-02"),
		DaysCount:            r.DaysCount,
		Reason:               r.Reason,
		Attachments:          attachments,
		Status:               r.Status,
		CurrentApprovalLevel: r.EffectiveLevel(),
		ApprovalFlow:         r.Flow(),
		ApprovedBy:           r.ApprovedBy,
		ApprovedAt:           r.ApprovedAt,
		Remarks:              r.Remarks,
		ResubmittedFrom:      r.ResubmittedFrom,
		SubmittedAt:          r.SubmittedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

type ListLeaveRequestResponse struct {
	TotalCount    int64                  `json:"total_count"`
	Page          int                    `json:"page"`
	Limit         int                    `json:"limit"`
	TotalPages    int                    `json:"total_pages"`
	LeaveRequests []LeaveRequestResponse `json:"leave_requests"`
}

// ApprovalHistoryResponse is one recorded reviewer action
type ApprovalHistoryResponse struct {
	ActorID   string                 `json:"actor_id"`
	ActorName string                 `json:"actor_name"`
	Action    string                 `json:"action"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
