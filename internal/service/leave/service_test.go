package leave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/audit"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/auth"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/notification"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/user"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeLeaveRepo keeps requests in memory and applies transitions with the
// same status+level guard as the database.
type fakeLeaveRepo struct {
	mu       sync.Mutex
	requests map[string]leave.LeaveRequest
	seq      int
}

func newFakeLeaveRepo(requests ...leave.LeaveRequest) *fakeLeaveRepo {
	r := &fakeLeaveRepo{requests: map[string]leave.LeaveRequest{}}
	for _, req := range requests {
		r.requests[req.ID] = req
	}
	return r
}

func (r *fakeLeaveRepo) Create(_ context.Context, req leave.LeaveRequest) (leave.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	req.ID = "new-" + string(rune('0'+r.seq))
	r.requests[req.ID] = req
	return req, nil
}

func (r *fakeLeaveRepo) GetByID(_ context.Context, id string) (leave.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
	}
	return req, nil
}

func (r *fakeLeaveRepo) GetByUserID(_ context.Context, userID string) ([]leave.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []leave.LeaveRequest
	for _, req := range r.requests {
		if req.UserID == userID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *fakeLeaveRepo) GetPending(_ context.Context) ([]leave.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []leave.LeaveRequest
	for _, req := range r.requests {
		if req.Status == leave.StatusPending {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *fakeLeaveRepo) HasResubmission(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.ResubmittedFrom != nil && *req.ResubmittedFrom == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeLeaveRepo) List(_ context.Context, _ leave.LeaveRequestFilter) ([]leave.LeaveRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []leave.LeaveRequest
	for _, req := range r.requests {
		out = append(out, req)
	}
	return out, int64(len(out)), nil
}

func (r *fakeLeaveRepo) GetApprovedCovering(_ context.Context, _ time.Time) ([]leave.LeaveRequest, error) {
	return nil, nil
}

func (r *fakeLeaveRepo) ApplyTransition(_ context.Context, t leave.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[t.RequestID]
	if !ok || req.Status != t.ExpectedStatus || req.EffectiveLevel() != t.ExpectedLevel {
		return leave.ErrConcurrentModification
	}
	r.requests[t.RequestID] = t.Apply(req)
	return nil
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []audit.AuditLog
}

func (r *fakeAuditRepo) Create(_ context.Context, log audit.AuditLog) (audit.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.CreatedAt = fixedNow
	r.logs = append(r.logs, log)
	return log, nil
}

func (r *fakeAuditRepo) ListByTarget(_ context.Context, targetType, targetID string) ([]audit.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.AuditLog
	for _, l := range r.logs {
		if l.TargetType == targetType && l.TargetID == targetID {
			out = append(out, l)
		}
	}
	return out, nil
}

// mockNotificationService only records queued notifications
type mockNotificationService struct {
	notification.Service
	mock.Mock
}

func (m *mockNotificationService) QueueNotification(ctx context.Context, req notification.CreateNotificationRequest) error {
	return m.Called(ctx, req).Error(0)
}

func newTestService(repo *fakeLeaveRepo, notifier notification.Service) (*LeaveServiceImpl, *fakeAuditRepo) {
	auditRepo := &fakeAuditRepo{}
	return NewLeaveService(passthroughTx{}, repo, auditRepo, notifier, nil, testEngine(), metrics.New()), auditRepo
}

func TestApplyAction_PersistsAuditsAndNotifies(t *testing.T) {
	repo := newFakeLeaveRepo(pendingAt(leave.LevelHOD.Ptr()))
	notifier := &mockNotificationService{}
	notifier.On("QueueNotification", mock.Anything, mock.MatchedBy(func(req notification.CreateNotificationRequest) bool {
		return req.RecipientID == "teacher-1" && req.Severity == notification.SeveritySuccess && !req.ActionRequired
	})).Return(nil).Once()

	svc, auditRepo := newTestService(repo, notifier)

	resp, err := svc.ApplyAction(context.Background(), actorFor(leave.LevelHOD), leave.ApprovalActionRequest{RequestID: "req-1", Action: "APPROVE"})
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, resp.Status)
	assert.Equal(t, leave.LevelPrincipal, resp.CurrentApprovalLevel)

	stored, _ := repo.GetByID(context.Background(), "req-1")
	assert.Equal(t, leave.LevelPrincipal, stored.EffectiveLevel())

	require.Len(t, auditRepo.logs, 1)
	assert.Equal(t, "approve", auditRepo.logs[0].Action)
	assert.Equal(t, "HOD", auditRepo.logs[0].Details["from_level"])
	assert.Equal(t, "Principal", auditRepo.logs[0].Details["to_level"])

	notifier.AssertExpectations(t)
}

func TestApplyAction_NotificationFailureDoesNotUndoTransition(t *testing.T) {
	repo := newFakeLeaveRepo(pendingAt(leave.LevelHRExecutive.Ptr()))
	notifier := &mockNotificationService{}
	notifier.On("QueueNotification", mock.Anything, mock.Anything).Return(errors.New("notification queue full")).Once()

	svc, _ := newTestService(repo, notifier)

	resp, err := svc.ApplyAction(context.Background(), actorFor(leave.LevelHRExecutive), leave.ApprovalActionRequest{
		RequestID: "req-1",
		Action:    "approve",
		Remarks:   strPtr("Final sign-off"),
	})
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, resp.Status)

	stored, _ := repo.GetByID(context.Background(), "req-1")
	assert.Equal(t, leave.StatusApproved, stored.Status)
	require.NotNil(t, stored.ApprovedBy)
	notifier.AssertExpectations(t)
}

func TestApplyAction_RefusalsLeaveStateUntouched(t *testing.T) {
	tests := []struct {
		name    string
		actor   auth.Actor
		req     leave.ApprovalActionRequest
		wantErr error
	}{
		{"wrong level", actorFor(leave.LevelRegistrar), leave.ApprovalActionRequest{RequestID: "req-1", Action: "approve"}, leave.ErrNotCurrentApprover},
		{"missing remarks", actorFor(leave.LevelHOD), leave.ApprovalActionRequest{RequestID: "req-1", Action: "reject"}, leave.ErrRemarksRequired},
		{"director", auth.Actor{ID: "d", Role: user.RoleDirector}, leave.ApprovalActionRequest{RequestID: "req-1", Action: "approve"}, leave.ErrNotApprover},
		{"missing request", actorFor(leave.LevelHOD), leave.ApprovalActionRequest{RequestID: "nope", Action: "approve"}, leave.ErrLeaveRequestNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeLeaveRepo(pendingAt(leave.LevelHOD.Ptr()))
			notifier := &mockNotificationService{}
			svc, auditRepo := newTestService(repo, notifier)

			_, err := svc.ApplyAction(context.Background(), tt.actor, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)

			stored, _ := repo.GetByID(context.Background(), "req-1")
			assert.Equal(t, pendingAt(leave.LevelHOD.Ptr()), stored)
			assert.Empty(t, auditRepo.logs)
			notifier.AssertNotCalled(t, "QueueNotification", mock.Anything, mock.Anything)
		})
	}
}

func TestApplyAction_RefusalsAreLoggedAtWarn(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	approved := pendingAt(leave.LevelHRExecutive.Ptr())
	approved.Status = leave.StatusApproved

	tests := []struct {
		name    string
		stored  leave.LeaveRequest
		actor   auth.Actor
		wantErr error
	}{
		{"not current approver", pendingAt(leave.LevelHOD.Ptr()), actorFor(leave.LevelPrincipal), leave.ErrNotCurrentApprover},
		{"no longer pending", approved, actorFor(leave.LevelHRExecutive), leave.ErrRequestNotPending},
		{"role without level", pendingAt(leave.LevelHOD.Ptr()), auth.Actor{ID: "d-1", Role: user.RoleDirector}, leave.ErrNotApprover},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			svc, _ := newTestService(newFakeLeaveRepo(tt.stored), &mockNotificationService{})

			_, err := svc.ApplyAction(context.Background(), tt.actor, leave.ApprovalActionRequest{RequestID: "req-1", Action: "approve"})
			require.ErrorIs(t, err, tt.wantErr)

			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, "WARN", entry["level"])
			assert.Equal(t, "req-1", entry["leave_request_id"])
			assert.Equal(t, tt.actor.ID, entry["actor_id"])
		})
	}
}

func TestApplyAction_ConcurrentApprovalsApplyOnce(t *testing.T) {
	repo := newFakeLeaveRepo(pendingAt(leave.LevelHOD.Ptr()))
	notifier := &mockNotificationService{}
	notifier.On("QueueNotification", mock.Anything, mock.Anything).Return(nil)
	svc, auditRepo := newTestService(repo, notifier)

	// Both reviewers read the request before either writes.
	req, _ := repo.GetByID(context.Background(), "req-1")
	first, err := svc.engine.Transition(req, actorFor(leave.LevelHOD), leave.ActionApprove, nil)
	require.NoError(t, err)
	second, err := svc.engine.Transition(req, actorFor(leave.LevelHOD), leave.ActionReject, strPtr("no"))
	require.NoError(t, err)

	require.NoError(t, repo.ApplyTransition(context.Background(), first))
	assert.ErrorIs(t, repo.ApplyTransition(context.Background(), second), leave.ErrConcurrentModification)

	// Through the service the loser sees the precondition error.
	_, err = svc.ApplyAction(context.Background(), actorFor(leave.LevelHOD), leave.ApprovalActionRequest{RequestID: "req-1", Action: "approve"})
	assert.ErrorIs(t, err, leave.ErrNotCurrentApprover)
	assert.Empty(t, auditRepo.logs)
}

func TestCreateAndResubmit(t *testing.T) {
	repo := newFakeLeaveRepo()
	svc, auditRepo := newTestService(repo, &mockNotificationService{})
	teacher := auth.Actor{ID: "teacher-1", Name: "Asha", Role: user.RoleTeacher, Department: "Physics"}
	ctx := context.Background()

	created, err := svc.CreateLeaveRequest(ctx, teacher, leave.CreateLeaveRequestRequest{
		LeaveType: "CL",
		FromDate:  "2026-03-09",
		ToDate:    "2026-03-11",
		Reason:    "Attending my sister's wedding",
	})
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, created.Status)
	assert.Equal(t, leave.LevelHOD, created.CurrentApprovalLevel)
	assert.Equal(t, 3, created.DaysCount)
	assert.Equal(t, leave.ApprovalSequence(), created.ApprovalFlow)
	assert.Equal(t, fixedNow, created.SubmittedAt)

	_, err = svc.ResubmitLeaveRequest(ctx, teacher, created.ID, leave.CreateLeaveRequestRequest{})
	assert.ErrorIs(t, err, leave.ErrNotReturned)

	notifier := &mockNotificationService{}
	notifier.On("QueueNotification", mock.Anything, mock.Anything).Return(nil)
	svc.notificationService = notifier
	_, err = svc.ApplyAction(ctx, actorFor(leave.LevelHOD), leave.ApprovalActionRequest{RequestID: created.ID, Action: "return", Remarks: strPtr("add dates")})
	require.NoError(t, err)

	other := auth.Actor{ID: "teacher-2", Role: user.RoleTeacher}
	_, err = svc.ResubmitLeaveRequest(ctx, other, created.ID, leave.CreateLeaveRequestRequest{})
	assert.ErrorIs(t, err, leave.ErrUnauthorizedAccess)

	again, err := svc.ResubmitLeaveRequest(ctx, teacher, created.ID, leave.CreateLeaveRequestRequest{
		LeaveType: "CL",
		FromDate:  "2026-03-10",
		ToDate:    "2026-03-11",
		Reason:    "Attending my sister's wedding, corrected dates",
	})
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, again.ID)
	require.NotNil(t, again.ResubmittedFrom)
	assert.Equal(t, created.ID, *again.ResubmittedFrom)
	assert.Equal(t, leave.LevelHOD, again.CurrentApprovalLevel)

	_, err = svc.ResubmitLeaveRequest(ctx, teacher, created.ID, leave.CreateLeaveRequestRequest{
		LeaveType: "CL",
		FromDate:  "2026-03-10",
		ToDate:    "2026-03-11",
		Reason:    "Attending my sister's wedding, corrected dates",
	})
	assert.ErrorIs(t, err, leave.ErrAlreadyResubmitted)
	pending, _ := repo.GetPending(ctx)
	assert.Len(t, pending, 1, "only the first resubmission is pending")

	history, err := svc.GetApprovalHistory(ctx, teacher, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "submit", history[0].Action)
	assert.Equal(t, "return", history[1].Action)
	assert.Len(t, auditRepo.logs, 3)
}

func TestCreateLeaveRequest_Validation(t *testing.T) {
	svc, _ := newTestService(newFakeLeaveRepo(), &mockNotificationService{})

	_, err := svc.CreateLeaveRequest(context.Background(), auth.Actor{ID: "t", Role: user.RoleTeacher}, leave.CreateLeaveRequestRequest{
		LeaveType: "XX",
		FromDate:  "2026-03-11",
		ToDate:    "2026-03-09",
		Reason:    "short",
	})
	require.Error(t, err)

	var verrs interface{ ToMap() map[string]string }
	require.True(t, errors.As(err, &verrs))
	fields := verrs.ToMap()
	assert.Contains(t, fields, "leave_type")
	assert.Contains(t, fields, "to_date")
	assert.Contains(t, fields, "reason")
}

func TestListings(t *testing.T) {
	base := fixedNow.Add(-48 * time.Hour)
	mk := func(id, userID string, level *leave.ApprovalLevel, offset time.Duration) leave.LeaveRequest {
		r := pendingAt(level)
		r.ID, r.UserID, r.SubmittedAt = id, userID, base.Add(offset)
		return r
	}
	repo := newFakeLeaveRepo(
		mk("a", "teacher-1", nil, time.Hour),
		mk("b", "teacher-1", leave.LevelHOD.Ptr(), 2*time.Hour),
		mk("c", "teacher-2", leave.LevelPrincipal.Ptr(), 3*time.Hour),
	)
	svc, _ := newTestService(repo, &mockNotificationService{})
	ctx := context.Background()

	pending, err := svc.ListPendingForApprover(ctx, actorFor(leave.LevelHOD))
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "b", pending[0].ID)
	assert.Equal(t, "a", pending[1].ID)

	_, err = svc.ListPendingForApprover(ctx, auth.Actor{Role: user.RoleDirector})
	assert.ErrorIs(t, err, leave.ErrNotApprover)

	mine, err := svc.ListMyLeaveRequests(ctx, auth.Actor{ID: "teacher-1", Role: user.RoleTeacher})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "b", mine[0].ID)

	_, err = svc.ListLeaveRequests(ctx, auth.Actor{ID: "teacher-1", Role: user.RoleTeacher}, leave.LeaveRequestFilter{})
	assert.ErrorIs(t, err, leave.ErrUnauthorizedAccess)

	all, err := svc.ListLeaveRequests(ctx, auth.Actor{ID: "dir", Role: user.RoleDirector}, leave.LeaveRequestFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.TotalCount)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, 20, all.Limit)
	assert.Equal(t, 1, all.TotalPages)

	_, err = svc.GetLeaveRequest(ctx, auth.Actor{ID: "teacher-2", Role: user.RoleTeacher}, "a")
	assert.ErrorIs(t, err, leave.ErrUnauthorizedAccess)

	got, err := svc.GetLeaveRequest(ctx, auth.Actor{ID: "dir", Role: user.RoleDirector}, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
}
