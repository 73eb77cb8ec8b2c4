package leave

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/leave"
	"github.com/stretchr/testify/assert"
)

func TestFilterByApprovalLevel(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mk := func(id string, level *leave.ApprovalLevel, status leave.Status, offset time.Duration) leave.LeaveRequest {
		return leave.LeaveRequest{ID: id, Status: status, CurrentApprovalLevel: level, SubmittedAt: base.Add(offset)}
	}
	empty := leave.ApprovalLevel("")

	requests := []leave.LeaveRequest{
		mk("hod", leave.LevelHOD.Ptr(), leave.StatusPending, 1*time.Hour),
		mk("principal", leave.LevelPrincipal.Ptr(), leave.StatusPending, 2*time.Hour),
		mk("registrar", leave.LevelRegistrar.Ptr(), leave.StatusPending, 3*time.Hour),
		mk("hr", leave.LevelHRExecutive.Ptr(), leave.StatusPending, 4*time.Hour),
		mk("undefined", nil, leave.StatusPending, 5*time.Hour),
		mk("blank", &empty, leave.StatusPending, 30*time.Minute),
		mk("returned-hod", leave.LevelHOD.Ptr(), leave.StatusReturned, 6*time.Hour),
	}

	tests := []struct {
		level leave.ApprovalLevel
		want  []string
	}{
		{leave.LevelHOD, []string{"undefined", "hod", "blank"}},
		{leave.LevelPrincipal, []string{"principal"}},
		{leave.LevelRegistrar, []string{"registrar"}},
		{leave.LevelHRExecutive, []string{"hr"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			got := FilterByApprovalLevel(requests, tt.level)
			SortBySubmittedDesc(got)

			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFilterByApprovalLevel_DoesNotMutateInput(t *testing.T) {
	requests := []leave.LeaveRequest{
		{ID: "a", Status: leave.StatusPending, SubmittedAt: time.Unix(1, 0)},
		{ID: "b", Status: leave.StatusPending, SubmittedAt: time.Unix(2, 0)},
	}

	got := FilterByApprovalLevel(requests, leave.LevelHOD)
	SortBySubmittedDesc(got)

	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", requests[0].ID)
}
