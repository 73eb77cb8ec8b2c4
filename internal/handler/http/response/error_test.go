package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/attendance"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/auth"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not current approver", leave.ErrNotCurrentApprover, http.StatusForbidden, "FORBIDDEN"},
		{"not pending", leave.ErrRequestNotPending, http.StatusConflict, "CONFLICT"},
		{"wrapped concurrent modification", fmt.Errorf("apply: %w", leave.ErrConcurrentModification), http.StatusConflict, "CONFLICT"},
		{"already resubmitted", leave.ErrAlreadyResubmitted, http.StatusConflict, "CONFLICT"},
		{"remarks required", leave.ErrRemarksRequired, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"unknown level", fmt.Errorf("%w: Dean", leave.ErrUnknownApprovalLevel), http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY"},
		{"not found", leave.ErrLeaveRequestNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"attachment too large", leave.ErrAttachmentTooLarge, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{"invalid credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"already checked in", attendance.ErrAlreadyCheckedIn, http.StatusConflict, "CONFLICT"},
		{"unknown", errors.New("database exploded"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestHandleError_ValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(rec, fmt.Errorf("create: %w", validator.ValidationErrors{
		{Field: "reason", Message: "reason is required"},
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "reason is required", body.Error.Details["reason"])
}
