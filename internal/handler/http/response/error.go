package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/attendance"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/auth"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/notification"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/user"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, "Invalid email or password")
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrRefreshTokenRevoked):
		Unauthorized(w, "Refresh token revoked")
	case errors.Is(err, auth.ErrMissingActor):
		Unauthorized(w, "Unauthorized")
	case errors.Is(err, auth.ErrAccountInactive):
		Forbidden(w, "Account is inactive")
	case errors.Is(err, auth.ErrUserNotFound):
		NotFound(w, "User not found")

	// User domain errors
	case errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "User not found")
	case errors.Is(err, user.ErrUserEmailExists):
		Conflict(w, "Email already registered")
	case errors.Is(err, user.ErrUserInactive):
		Conflict(w, "User account is already inactive")
	case errors.Is(err, user.ErrSelfDeactivation):
		BadRequest(w, "You cannot deactivate your own account", nil)
	case errors.Is(err, user.ErrInvalidRole):
		BadRequest(w, "Invalid role", nil)
	case errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, "Insufficient permissions")

	// Leave domain errors
	case errors.Is(err, leave.ErrLeaveRequestNotFound):
		NotFound(w, "Leave request not found")
	case errors.Is(err, leave.ErrNotCurrentApprover):
		Forbidden(w, "You are not the current approver for this request")
	case errors.Is(err, leave.ErrNotApprover):
		Forbidden(w, "Your role does not approve leave requests")
	case errors.Is(err, leave.ErrUnauthorizedAccess):
		Forbidden(w, "You are not allowed to view this leave request")
	case errors.Is(err, leave.ErrRequestNotPending):
		Conflict(w, "This leave request is no longer pending")
	case errors.Is(err, leave.ErrConcurrentModification):
		Conflict(w, "This leave request was just updated by another reviewer, reload and try again")
	case errors.Is(err, leave.ErrNotReturned):
		Conflict(w, "Only returned leave requests can be resubmitted")
	case errors.Is(err, leave.ErrAlreadyResubmitted):
		Conflict(w, "This leave request has already been resubmitted")
	case errors.Is(err, leave.ErrRemarksRequired):
		ValidationError(w, map[string]string{"remarks": "remarks are required to reject or return a request"})
	case errors.Is(err, leave.ErrUnknownApprovalLevel):
		UnprocessableEntity(w, "Leave request has an invalid approval level")
	case errors.Is(err, leave.ErrInvalidAction):
		BadRequest(w, "Action must be one of approve, reject, return", nil)
	case errors.Is(err, leave.ErrAttachmentTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, Response{
			Success: false,
			Error:   &ErrorDetail{Code: "PAYLOAD_TOO_LARGE", Message: "Attachment exceeds the maximum allowed size"},
		})
	case errors.Is(err, leave.ErrAttachmentTypeNotAllowed):
		writeJSON(w, http.StatusUnsupportedMediaType, Response{
			Success: false,
			Error:   &ErrorDetail{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Attachment must be a PDF, Word document, JPEG or PNG"},
		})

	// Attendance domain errors
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		Conflict(w, "You have already checked in today")
	case errors.Is(err, attendance.ErrAlreadyCheckedOut):
		Conflict(w, "You have already checked out")
	case errors.Is(err, attendance.ErrNotCheckedIn):
		BadRequest(w, "You have not checked in yet", nil)
	case errors.Is(err, attendance.ErrClockOutBeforeIn):
		BadRequest(w, "Clock out must be after clock in", nil)
	case errors.Is(err, attendance.ErrDuplicateImportRow):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrEmptyImport):
		BadRequest(w, "No attendance records to import", nil)
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrUnauthorized):
		Forbidden(w, "You are not allowed to access these attendance records")

	// Notification domain errors
	case errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, "Notification not found")
	case errors.Is(err, notification.ErrInvalidSeverity):
		BadRequest(w, "Invalid notification severity", nil)

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
