package http

import (
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-portal-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

const (
	maxLeaveFormMemory = 10 << 20
	maxAttachments     = 5
)

type LeaveHandler interface {
	CreateRequest(w http.ResponseWriter, r *http.Request)
	ResubmitRequest(w http.ResponseWriter, r *http.Request)
	GetRequest(w http.ResponseWriter, r *http.Request)
	GetMyRequests(w http.ResponseWriter, r *http.Request)
	GetPendingRequests(w http.ResponseWriter, r *http.Request)
	ListRequests(w http.ResponseWriter, r *http.Request)
	GetHistory(w http.ResponseWriter, r *http.Request)
	ListLeaveTypes(w http.ResponseWriter, r *http.Request)

	ApplyAction(w http.ResponseWriter, r *http.Request)
	ApproveRequest(w http.ResponseWriter, r *http.Request)
	RejectRequest(w http.ResponseWriter, r *http.Request)
	ReturnRequest(w http.ResponseWriter, r *http.Request)
}

type LeaveHandlerImpl struct {
	leaveService leave.LeaveService
}

func NewLeaveHandler(leaveService leave.LeaveService) LeaveHandler {
	return &LeaveHandlerImpl{leaveService: leaveService}
}

// decodeLeaveForm reads a leave request either from a JSON body or from a
// multipart form with the JSON in field "data" and files in "attachments".
// The returned closer releases the multipart temp files.
func decodeLeaveForm(r *http.Request) (leave.CreateLeaveRequestRequest, func(), error) {
	var req leave.CreateLeaveRequestRequest
	noop := func() {}

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, noop, err
		}
		return req, noop, nil
	}

	if err := r.ParseMultipartForm(maxLeaveFormMemory); err != nil {
		return req, noop, err
	}
	cleanup := func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.Warn("failed to remove multipart temp files", "error", err)
		}
	}

	if err := json.Unmarshal([]byte(r.FormValue("data")), &req); err != nil {
		return req, cleanup, err
	}

	headers := r.MultipartForm.File["attachments"]
	if len(headers) > maxAttachments {
		headers = headers[:maxAttachments]
	}

	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
		cleanup()
	}

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return req, closeAll, err
		}
		opened = append(opened, f)
		req.Attachments = append(req.Attachments, leave.Attachment{
			Filename: fh.Filename,
			Size:     fh.Size,
			Content:  f,
		})
	}

	return req, closeAll, nil
}

// CreateRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) CreateRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	req, done, err := decodeLeaveForm(r)
	defer done()
	if err != nil {
		slog.Error("CreateRequest decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	leaveRequest, err := l.leaveService.CreateLeaveRequest(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Leave request submitted successfully", leaveRequest)
}

// ResubmitRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) ResubmitRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	req, done, err := decodeLeaveForm(r)
	defer done()
	if err != nil {
		slog.Error("ResubmitRequest decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	leaveRequest, err := l.leaveService.ResubmitLeaveRequest(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Leave request resubmitted successfully", leaveRequest)
}

// GetRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) GetRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Leave request ID is required", nil)
		return
	}

	leaveRequest, err := l.leaveService.GetLeaveRequest(r.Context(), actor, id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, leaveRequest)
}

// GetMyRequests implements LeaveHandler.
func (l *LeaveHandlerImpl) GetMyRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	requests, err := l.leaveService.ListMyLeaveRequests(r.Context(), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, requests)
}

// GetPendingRequests lists what is waiting at the caller's approval level
func (l *LeaveHandlerImpl) GetPendingRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	requests, err := l.leaveService.ListPendingForApprover(r.Context(), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, requests)
}

// ListRequests implements LeaveHandler.
func (l *LeaveHandlerImpl) ListRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	filter := leave.LeaveRequestFilter{
		Status:     optionalQuery(r, "status"),
		Department: optionalQuery(r, "department"),
		LeaveType:  optionalQuery(r, "leave_type"),
		UserID:     optionalQuery(r, "user_id"),
		Page:       getIntQueryParam(r, "page", 1),
		Limit:      getIntQueryParam(r, "limit", 20),
	}

	result, err := l.leaveService.ListLeaveRequests(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.LeaveRequests, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

// GetHistory implements LeaveHandler.
func (l *LeaveHandlerImpl) GetHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	history, err := l.leaveService.GetApprovalHistory(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, history)
}

// ApplyAction takes {"action": ..., "remarks": ...} for the request in the URL
func (l *LeaveHandlerImpl) ApplyAction(w http.ResponseWriter, r *http.Request) {
	var req leave.ApprovalActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("ApplyAction decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	l.applyAction(w, r, req)
}

// ApproveRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	l.fixedAction(w, r, leave.ActionApprove)
}

// RejectRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) RejectRequest(w http.ResponseWriter, r *http.Request) {
	l.fixedAction(w, r, leave.ActionReject)
}

// ReturnRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) ReturnRequest(w http.ResponseWriter, r *http.Request) {
	l.fixedAction(w, r, leave.ActionReturn)
}

func (l *LeaveHandlerImpl) fixedAction(w http.ResponseWriter, r *http.Request, action leave.Action) {
	var req leave.ApprovalActionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Error("ApplyAction decode error", "error", err)
			response.BadRequest(w, "Invalid request format", nil)
			return
		}
	}
	req.Action = string(action)
	l.applyAction(w, r, req)
}

func (l *LeaveHandlerImpl) applyAction(w http.ResponseWriter, r *http.Request, req leave.ApprovalActionRequest) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	req.RequestID = chi.URLParam(r, "id")

	updated, err := l.leaveService.ApplyAction(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, actionMessage(updated.Status), updated)
}

// ListLeaveTypes handles GET /leave-requests/types
func (h *LeaveHandlerImpl) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	response.Success(w, leave.LeaveTypeOptions())
}

func actionMessage(status leave.Status) string {
	switch status {
	case leave.StatusApproved:
		return "Leave request approved"
	case leave.StatusRejected:
		return "Leave request rejected"
	case leave.StatusReturned:
		return "Leave request returned for changes"
	default:
		return "Leave request forwarded to the next approver"
	}
}
