package leave

import (
	"sort"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/leave"
)

// FilterByApprovalLevel keeps the pending requests awaiting level. Requests
// without a level count as HOD.
func FilterByApprovalLevel(requests []leave.LeaveRequest, level leave.ApprovalLevel) []leave.LeaveRequest {
	out := make([]leave.LeaveRequest, 0, len(requests))
	for _, r := range requests {
		if r.Status == leave.StatusPending && r.EffectiveLevel() == level {
			out = append(out, r)
		}
	}
	return out
}

// SortBySubmittedDesc orders requests newest submission first
func SortBySubmittedDesc(requests []leave.LeaveRequest) {
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].SubmittedAt.After(requests[j].SubmittedAt)
	})
}
