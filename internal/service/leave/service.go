package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/audit"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/auth"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/notification"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/user"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/leave-portal-go/internal/service/file"
)

// TxManager runs fn in a single database transaction
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type LeaveServiceImpl struct {
	tx                  TxManager
	leaveRequestRepo    leave.LeaveRequestRepository
	auditRepo           audit.AuditLogRepository
	notificationService notification.Service
	fileService         file.FileService
	engine              *ApprovalEngine
	metrics             *metrics.Metrics
	now                 func() time.Time
}

func NewLeaveService(
	tx TxManager,
	leaveRequestRepo leave.LeaveRequestRepository,
	auditRepo audit.AuditLogRepository,
	notificationService notification.Service,
	fileService file.FileService,
	engine *ApprovalEngine,
	m *metrics.Metrics,
) *LeaveServiceImpl {
	if engine == nil {
		engine = NewApprovalEngine(nil)
	}
	return &LeaveServiceImpl{
		tx:                  tx,
		leaveRequestRepo:    leaveRequestRepo,
		auditRepo:           auditRepo,
		notificationService: notificationService,
		fileService:         fileService,
		engine:              engine,
		metrics:             m,
		now:                 engine.now,
	}
}

// CreateLeaveRequest implements leave.LeaveService.
func (s *LeaveServiceImpl) CreateLeaveRequest(ctx context.Context, actor auth.Actor, req leave.CreateLeaveRequestRequest) (leave.LeaveRequestResponse, error) {
	if !actor.Can(user.PermissionLeaveCreate) {
		return leave.LeaveRequestResponse{}, user.ErrInsufficientPermissions
	}
	return s.submit(ctx, actor, req, nil)
}

// ResubmitLeaveRequest implements leave.LeaveService.
func (s *LeaveServiceImpl) ResubmitLeaveRequest(ctx context.Context, actor auth.Actor, requestID string, req leave.CreateLeaveRequestRequest) (leave.LeaveRequestResponse, error) {
	original, err := s.leaveRequestRepo.GetByID(ctx, requestID)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	if original.UserID != actor.ID {
		return leave.LeaveRequestResponse{}, leave.ErrUnauthorizedAccess
	}
	if original.Status != leave.StatusReturned {
		return leave.LeaveRequestResponse{}, leave.ErrNotReturned
	}
	resubmitted, err := s.leaveRequestRepo.HasResubmission(ctx, original.ID)
	if err != nil {
		return leave.LeaveRequestResponse{}, fmt.Errorf("failed to check resubmission: %w", err)
	}
	if resubmitted {
		return leave.LeaveRequestResponse{}, leave.ErrAlreadyResubmitted
	}

	return s.submit(ctx, actor, req, &original.ID)
}

func (s *LeaveServiceImpl) submit(ctx context.Context, actor auth.Actor, req leave.CreateLeaveRequestRequest, resubmittedFrom *string) (leave.LeaveRequestResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	attachments, err := s.storeAttachments(ctx, actor.ID, req.Attachments)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	now := s.now()
	request := leave.LeaveRequest{
		UserID:               actor.ID,
		UserName:             actor.Name,
		Department:           actor.Department,
		LeaveType:            leave.LeaveType(req.LeaveType),
		FromDate:             req.From,
		ToDate:               req.To,
		DaysCount:            leave.CountDays(req.From, req.To),
		Reason:               req.Reason,
		Attachments:          attachments,
		Status:               leave.StatusPending,
		CurrentApprovalLevel: leave.LevelHOD.Ptr(),
		ApprovalFlow:         leave.ApprovalSequence(),
		ResubmittedFrom:      resubmittedFrom,
		SubmittedAt:          now,
	}

	action := "submit"
	if resubmittedFrom != nil {
		action = "resubmit"
	}

	var created leave.LeaveRequest
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.leaveRequestRepo.Create(ctx, request)
		if err != nil {
			return err
		}

		details := map[string]interface{}{
			"leave_type": string(created.LeaveType),
			"days_count": created.DaysCount,
		}
		if resubmittedFrom != nil {
			details["resubmitted_from"] = *resubmittedFrom
		}
		_, err = s.auditRepo.Create(ctx, audit.AuditLog{
			ActorID:    actor.ID,
			ActorName:  actor.Name,
			Action:     action,
			TargetType: audit.TargetLeaveRequest,
			TargetID:   created.ID,
			Details:    details,
		})
		return err
	})
	if err != nil {
		s.discardAttachments(ctx, attachments)
		return leave.LeaveRequestResponse{}, fmt.Errorf("failed to create leave request: %w", err)
	}

	s.metrics.LeaveSubmitted(string(created.LeaveType))
	return created.ToResponse(), nil
}

func (s *LeaveServiceImpl) storeAttachments(ctx context.Context, userID string, files []leave.Attachment) ([]string, error) {
	paths := make([]string, 0, len(files))
	if len(files) > 0 && s.fileService == nil {
		return nil, errors.New("attachments are not supported without file storage")
	}
	for _, f := range files {
		path, err := s.fileService.UploadLeaveAttachment(ctx, userID, f.Content, f.Filename)
		if err != nil {
			s.discardAttachments(ctx, paths)
			switch {
			case errors.Is(err, file.ErrFileTooLarge):
				return nil, leave.ErrAttachmentTooLarge
			case errors.Is(err, file.ErrFileTypeNotAllowed), errors.Is(err, file.ErrEmptyFile):
				return nil, leave.ErrAttachmentTypeNotAllowed
			}
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *LeaveServiceImpl) discardAttachments(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := s.fileService.DeleteFile(ctx, p); err != nil {
			slog.Warn("failed to remove orphaned leave attachment", "path", p, "error", err)
		}
	}
}

func canView(actor auth.Actor, r leave.LeaveRequest) bool {
	return r.UserID == actor.ID ||
		actor.Can(user.PermissionLeaveApprove) ||
		actor.Can(user.PermissionLeaveViewAll)
}

// GetLeaveRequest implements leave.LeaveService.
func (s *LeaveServiceImpl) GetLeaveRequest(ctx context.Context, actor auth.Actor, requestID string) (leave.LeaveRequestResponse, error) {
	request, err := s.leaveRequestRepo.GetByID(ctx, requestID)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	if !canView(actor, request) {
		return leave.LeaveRequestResponse{}, leave.ErrUnauthorizedAccess
	}

	return s.withAttachmentURLs(ctx, request.ToResponse()), nil
}

func (s *LeaveServiceImpl) withAttachmentURLs(ctx context.Context, resp leave.LeaveRequestResponse) leave.LeaveRequestResponse {
	if s.fileService == nil {
		return resp
	}
	urls := make([]string, 0, len(resp.Attachments))
	for _, path := range resp.Attachments {
		url, err := s.fileService.GetFileURL(ctx, path, 0)
		if err != nil {
			slog.Warn("failed to resolve attachment url", "path", path, "error", err)
			continue
		}
		urls = append(urls, url)
	}
	resp.Attachments = urls
	return resp
}

// ListMyLeaveRequests implements leave.LeaveService.
func (s *LeaveServiceImpl) ListMyLeaveRequests(ctx context.Context, actor auth.Actor) ([]leave.LeaveRequestResponse, error) {
	requests, err := s.leaveRequestRepo.GetByUserID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get leave requests: %w", err)
	}
	SortBySubmittedDesc(requests)
	return toResponses(requests), nil
}

// ListPendingForApprover returns the pending requests awaiting the actor's level
func (s *LeaveServiceImpl) ListPendingForApprover(ctx context.Context, actor auth.Actor) ([]leave.LeaveRequestResponse, error) {
	level, ok := leave.LevelForRole(actor.Role)
	if !ok {
		return nil, leave.ErrNotApprover
	}

	requests, err := s.GetByApprovalLevel(ctx, level)
	if err != nil {
		return nil, err
	}
	return toResponses(requests), nil
}

// GetByApprovalLevel loads every pending request and keeps those at level
func (s *LeaveServiceImpl) GetByApprovalLevel(ctx context.Context, level leave.ApprovalLevel) ([]leave.LeaveRequest, error) {
	pending, err := s.leaveRequestRepo.GetPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending leave requests: %w", err)
	}

	requests := FilterByApprovalLevel(pending, level)
	SortBySubmittedDesc(requests)
	return requests, nil
}

// ListLeaveRequests implements leave.LeaveService.
func (s *LeaveServiceImpl) ListLeaveRequests(ctx context.Context, actor auth.Actor, filter leave.LeaveRequestFilter) (leave.ListLeaveRequestResponse, error) {
	if !actor.Can(user.PermissionLeaveViewAll) {
		return leave.ListLeaveRequestResponse{}, leave.ErrUnauthorizedAccess
	}
	if err := filter.Validate(); err != nil {
		return leave.ListLeaveRequestResponse{}, err
	}

	requests, total, err := s.leaveRequestRepo.List(ctx, filter)
	if err != nil {
		return leave.ListLeaveRequestResponse{}, fmt.Errorf("failed to list leave requests: %w", err)
	}

	totalPages := 0
	if filter.Limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(filter.Limit)))
	}

	return leave.ListLeaveRequestResponse{
		TotalCount:    total,
		Page:          filter.Page,
		Limit:         filter.Limit,
		TotalPages:    totalPages,
		LeaveRequests: toResponses(requests),
	}, nil
}

// ApplyAction runs the approval engine and persists its outcome conditionally.
// The requester notification is queued after commit and its failure never
// undoes the transition.
func (s *LeaveServiceImpl) ApplyAction(ctx context.Context, actor auth.Actor, req leave.ApprovalActionRequest) (leave.LeaveRequestResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	request, err := s.leaveRequestRepo.GetByID(ctx, req.RequestID)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	t, err := s.engine.Transition(request, actor, leave.Action(req.Action), req.Remarks)
	if err != nil {
		slog.Warn("leave transition refused",
			"leave_request_id", request.ID,
			"actor_id", actor.ID,
			"action", req.Action,
			"error", err,
		)
		return leave.LeaveRequestResponse{}, err
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.leaveRequestRepo.ApplyTransition(ctx, t); err != nil {
			return err
		}

		details := map[string]interface{}{
			"from_level": string(t.ExpectedLevel),
			"to_level":   string(t.Level),
			"status":     string(t.Status),
		}
		if t.Remarks != nil {
			details["remarks"] = *t.Remarks
		}
		_, err := s.auditRepo.Create(ctx, audit.AuditLog{
			ActorID:    actor.ID,
			ActorName:  actor.Name,
			Action:     string(t.Action),
			TargetType: audit.TargetLeaveRequest,
			TargetID:   t.RequestID,
			Details:    details,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, leave.ErrConcurrentModification) {
			s.metrics.LeaveConflict()
			return leave.LeaveRequestResponse{}, err
		}
		return leave.LeaveRequestResponse{}, fmt.Errorf("failed to apply leave transition: %w", err)
	}

	s.metrics.LeaveTransition(string(t.Action), string(t.ExpectedLevel), string(t.Status))

	if s.notificationService != nil {
		if err := s.notificationService.QueueNotification(ctx, t.Notification); err != nil {
			slog.Error("failed to queue leave notification",
				"leave_request_id", t.RequestID,
				"recipient_id", t.Notification.RecipientID,
				"error", err,
			)
		}
	}

	return t.Apply(request).ToResponse(), nil
}

// GetApprovalHistory implements leave.LeaveService.
func (s *LeaveServiceImpl) GetApprovalHistory(ctx context.Context, actor auth.Actor, requestID string) ([]leave.ApprovalHistoryResponse, error) {
	request, err := s.leaveRequestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, request) {
		return nil, leave.ErrUnauthorizedAccess
	}

	logs, err := s.auditRepo.ListByTarget(ctx, audit.TargetLeaveRequest, request.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get approval history: %w", err)
	}

	history := make([]leave.ApprovalHistoryResponse, 0, len(logs))
	for _, l := range logs {
		history = append(history, leave.ApprovalHistoryResponse{
			ActorID:   l.ActorID,
			ActorName: l.ActorName,
			Action:    l.Action,
			Details:   l.Details,
			CreatedAt: l.CreatedAt,
		})
	}
	return history, nil
}

func toResponses(requests []leave.LeaveRequest) []leave.LeaveRequestResponse {
	out := make([]leave.LeaveRequestResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, r.ToResponse())
	}
	return out
}

var _ leave.LeaveService = (*LeaveServiceImpl)(nil)
