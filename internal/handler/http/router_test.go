package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/attendance"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/auth"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/dashboard"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/notification"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/user"
	"github.com/cmlabs-hris/leave-portal-go/internal/handler/http/response"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

type mockLeaveService struct {
	mock.Mock
}

func (m *mockLeaveService) CreateLeaveRequest(ctx context.Context, actor auth.Actor, req leave.CreateLeaveRequestRequest) (leave.LeaveRequestResponse, error) {
	args := m.Called(ctx, actor, req)
	return args.Get(0).(leave.LeaveRequestResponse), args.Error(1)
}

func (m *mockLeaveService) ResubmitLeaveRequest(ctx context.Context, actor auth.Actor, id string, req leave.CreateLeaveRequestRequest) (leave.LeaveRequestResponse, error) {
	args := m.Called(ctx, actor, id, req)
	return args.Get(0).(leave.LeaveRequestResponse), args.Error(1)
}

func (m *mockLeaveService) GetLeaveRequest(ctx context.Context, actor auth.Actor, id string) (leave.LeaveRequestResponse, error) {
	args := m.Called(ctx, actor, id)
	return args.Get(0).(leave.LeaveRequestResponse), args.Error(1)
}

func (m *mockLeaveService) ListMyLeaveRequests(ctx context.Context, actor auth.Actor) ([]leave.LeaveRequestResponse, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).([]leave.LeaveRequestResponse), args.Error(1)
}

func (m *mockLeaveService) ListPendingForApprover(ctx context.Context, actor auth.Actor) ([]leave.LeaveRequestResponse, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).([]leave.LeaveRequestResponse), args.Error(1)
}

func (m *mockLeaveService) ListLeaveRequests(ctx context.Context, actor auth.Actor, filter leave.LeaveRequestFilter) (leave.ListLeaveRequestResponse, error) {
	args := m.Called(ctx, actor, filter)
	return args.Get(0).(leave.ListLeaveRequestResponse), args.Error(1)
}

func (m *mockLeaveService) ApplyAction(ctx context.Context, actor auth.Actor, req leave.ApprovalActionRequest) (leave.LeaveRequestResponse, error) {
	args := m.Called(ctx, actor, req)
	return args.Get(0).(leave.LeaveRequestResponse), args.Error(1)
}

func (m *mockLeaveService) GetApprovalHistory(ctx context.Context, actor auth.Actor, id string) ([]leave.ApprovalHistoryResponse, error) {
	args := m.Called(ctx, actor, id)
	return args.Get(0).([]leave.ApprovalHistoryResponse), args.Error(1)
}

type stubAuthService struct {
	auth.AuthService
	logins      int
	deactivated []string
}

func (s *stubAuthService) DeactivateUser(_ context.Context, _ auth.Actor, id string) (user.UserResponse, error) {
	s.deactivated = append(s.deactivated, id)
	return user.UserResponse{ID: id, IsActive: false}, nil
}

func (s *stubAuthService) Login(context.Context, auth.LoginRequest, auth.SessionTrackingRequest) (auth.TokenResponse, error) {
	s.logins++
	return auth.TokenResponse{AccessToken: "a", RefreshToken: "r", RefreshTokenExpiresIn: time.Now().Add(time.Hour).Unix()}, nil
}

type stubAttendanceService struct {
	attendance.AttendanceService
}

type stubNotificationService struct {
	notification.Service
	filters    []notification.ListFilter
	categories []*notification.Category
}

func (s *stubNotificationService) List(_ context.Context, actor auth.Actor, filter notification.ListFilter) (*notification.NotificationListResponse, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	s.filters = append(s.filters, filter)
	return &notification.NotificationListResponse{
		Notifications: []notification.NotificationResponse{{ID: "n1", Severity: notification.SeverityWarning, Category: notification.CategoryLeave, ActionRequired: true}},
		TotalCount:    41,
		Page:          filter.Page,
		Limit:         filter.Limit,
		TotalPages:    5,
	}, nil
}

func (s *stubNotificationService) MarkAllAsRead(_ context.Context, _ auth.Actor, category *notification.Category) error {
	s.categories = append(s.categories, category)
	return nil
}

type stubDashboardService struct {
	actors []auth.Actor
}

func (s *stubDashboardService) GetDashboard(_ context.Context, actor auth.Actor, month string) (*dashboard.DashboardResponse, error) {
	s.actors = append(s.actors, actor)
	return &dashboard.DashboardResponse{Scope: dashboard.ScopePersonal, Month: month, RecentActivity: []dashboard.ActivityItem{}}, nil
}

type testServer struct {
	router http.Handler
	jwt    *jwt.JWTService
	leave  *mockLeaveService
	auth   *stubAuthService
	dash   *stubDashboardService
	notif  *stubNotificationService
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	jwtService := jwt.NewJWTService(handlerTestSecret, time.Hour, 24*time.Hour, false)
	leaveSvc := &mockLeaveService{}
	authSvc := &stubAuthService{}
	dashSvc := &stubDashboardService{}
	notifSvc := &stubNotificationService{}

	router := NewRouter(RouterConfig{
		CORSOrigins:      []string{"http://localhost:5173"},
		LoginRatePerSec:  0.001,
		LoginBurst:       2,
		MetricsCollector: metrics.New(),
	}, jwtService, Handlers{
		Auth:         NewAuthHandler(jwtService, authSvc),
		User:         NewUserHandler(authSvc),
		Leave:        NewLeaveHandler(leaveSvc),
		Attendance:   NewAttendanceHandler(stubAttendanceService{}),
		Notification: NewNotificationHandler(notifSvc, jwtService),
		Dashboard:    NewDashboardHandler(dashSvc),
	})

	return testServer{router: router, jwt: jwtService, leave: leaveSvc, auth: authSvc, dash: dashSvc, notif: notifSvc}
}

func (s testServer) token(t *testing.T, actor auth.Actor) string {
	t.Helper()
	token, _, err := s.jwt.GenerateAccessToken(jwt.AccessClaims{
		UserID:     actor.ID,
		Name:       actor.Name,
		Role:       actor.Role,
		Department: actor.Department,
	})
	require.NoError(t, err)
	return token
}

func (s testServer) do(t *testing.T, req *http.Request, actor *auth.Actor) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	if actor != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(t, *actor))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var body response.Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

var (
	hod     = auth.Actor{ID: "hod-1", Name: "Meera", Role: user.RoleHOD, Department: "Physics"}
	teacher = auth.Actor{ID: "t-1", Name: "Asha", Role: user.RoleTeacher, Department: "Physics"}
)

func TestLeaveRoutes_RequireAuthentication(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/leave-requests/my", nil), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, body.Success)

	refresh, _, err := s.jwt.GenerateRefreshToken(teacher.ID)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leave-requests/my", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec, _ = s.do(t, req, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "refresh tokens are not access tokens")

	s.leave.AssertNotCalled(t, "ListMyLeaveRequests", mock.Anything, mock.Anything)
}

func TestListLeaveTypes(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/leave-requests/types", nil), &teacher)
	require.Equal(t, http.StatusOK, rec.Code)

	options, ok := body.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, options, 5)
	first := options[0].(map[string]interface{})
	assert.Equal(t, "CL", first["code"])
	assert.Equal(t, "Casual Leave", first["name"])
}

func TestApproveRequest_PassesActorAndAction(t *testing.T) {
	s := newTestServer(t)

	s.leave.On("ApplyAction", mock.Anything, hod, leave.ApprovalActionRequest{
		RequestID: "req-1",
		Action:    "approve",
	}).Return(leave.LeaveRequestResponse{
		ID:                   "req-1",
		Status:               leave.StatusPending,
		CurrentApprovalLevel: leave.LevelPrincipal,
	}, nil).Once()

	rec, body := s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/leave-requests/req-1/approve", nil), &hod)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "Leave request forwarded to the next approver", body.Message)
	s.leave.AssertExpectations(t)
}

func TestApplyAction_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"wrong level", leave.ErrNotCurrentApprover, http.StatusForbidden},
		{"already decided", leave.ErrRequestNotPending, http.StatusConflict},
		{"lost race", leave.ErrConcurrentModification, http.StatusConflict},
		{"missing remarks", leave.ErrRemarksRequired, http.StatusUnprocessableEntity},
		{"missing request", leave.ErrLeaveRequestNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			remarks := "needs a medical certificate"
			s.leave.On("ApplyAction", mock.Anything, hod, leave.ApprovalActionRequest{
				RequestID: "req-9",
				Action:    "return",
				Remarks:   &remarks,
			}).Return(leave.LeaveRequestResponse{}, tt.err).Once()

			req := httptest.NewRequest(http.MethodPost, "/api/v1/leave-requests/req-9/action",
				strings.NewReader(`{"action":"return","remarks":"needs a medical certificate"}`))
			req.Header.Set("Content-Type", "application/json")

			rec, body := s.do(t, req, &hod)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.False(t, body.Success)
		})
	}
}

func TestReviewerRoutes_ForbiddenForTeachers(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/leave-requests/req-1/approve", nil), &teacher)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/leave-requests/pending", nil), &teacher)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	s.leave.AssertNotCalled(t, "ApplyAction", mock.Anything, mock.Anything, mock.Anything)
	s.leave.AssertNotCalled(t, "ListPendingForApprover", mock.Anything, mock.Anything)
}

func TestCreateRequest_Multipart(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("data", `{"leave_type":"ML","from_date":"2026-04-06","to_date":"2026-04-08","reason":"Recovering from surgery at the hospital"}`))
	part, err := mw.CreateFormFile("attachments", "certificate.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 medical certificate"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	var captured leave.CreateLeaveRequestRequest
	s.leave.On("CreateLeaveRequest", mock.Anything, teacher, mock.AnythingOfType("leave.CreateLeaveRequestRequest")).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).(leave.CreateLeaveRequestRequest)
			require.Len(t, captured.Attachments, 1)
			content, err := io.ReadAll(captured.Attachments[0].Content)
			require.NoError(t, err)
			assert.Equal(t, "%PDF-1.4 medical certificate", string(content))
		}).
		Return(leave.LeaveRequestResponse{ID: "new-1", Status: leave.StatusPending, CurrentApprovalLevel: leave.LevelHOD}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/leave-requests/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec, body := s.do(t, req, &teacher)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "ML", captured.LeaveType)
	assert.Equal(t, "certificate.pdf", captured.Attachments[0].Filename)
	s.leave.AssertExpectations(t)
}

func TestListRequests_Meta(t *testing.T) {
	s := newTestServer(t)
	principal := auth.Actor{ID: "p-1", Name: "Principal", Role: user.RolePrincipal}
	status := "pending"

	s.leave.On("ListLeaveRequests", mock.Anything, principal, leave.LeaveRequestFilter{
		Status: &status,
		Page:   2,
		Limit:  5,
	}).Return(leave.ListLeaveRequestResponse{
		TotalCount:    7,
		Page:          2,
		Limit:         5,
		TotalPages:    2,
		LeaveRequests: []leave.LeaveRequestResponse{{ID: "a"}, {ID: "b"}},
	}, nil).Once()

	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/leave-requests/?status=pending&page=2&limit=5", nil), &principal)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, body.Meta)
	assert.Equal(t, int64(7), body.Meta.TotalItems)
	assert.Equal(t, 2, body.Meta.TotalPages)
}

func TestLogin_RateLimitedPerIP(t *testing.T) {
	s := newTestServer(t)

	login := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@campus.edu","password":"password123"}`))
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, login("10.0.0.1"))
	assert.Equal(t, http.StatusCreated, login("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, login("10.0.0.1"))
	assert.Equal(t, http.StatusCreated, login("10.0.0.2"))
	assert.Equal(t, 3, s.auth.logins)
}

func TestNotificationStream_RejectsMissingOrWrongToken(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	access := s.token(t, teacher)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream?token="+access, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "only SSE tokens open a stream")
}

func TestListNotifications_FiltersAndMeta(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, httptest.NewRequest(http.MethodGet,
		"/api/v1/notifications/?page=2&limit=8&unread_only=true&severity=warning&category=leave&action_required=true", nil), &hod)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, s.notif.filters, 1)
	got := s.notif.filters[0]
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 8, got.Limit)
	assert.True(t, got.UnreadOnly)
	require.NotNil(t, got.Severity)
	assert.Equal(t, notification.SeverityWarning, *got.Severity)
	require.NotNil(t, got.Category)
	assert.Equal(t, notification.CategoryLeave, *got.Category)
	require.NotNil(t, got.ActionRequired)
	assert.True(t, *got.ActionRequired)

	require.NotNil(t, body.Meta)
	assert.Equal(t, 2, body.Meta.Page)
	assert.Equal(t, int64(41), body.Meta.TotalItems)
	assert.Equal(t, 5, body.Meta.TotalPages)

	items, ok := body.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "warning", first["severity"])
	assert.Equal(t, "leave", first["category"])
	assert.Equal(t, true, first["action_required"])
}

func TestListNotifications_RejectsUnknownSeverity(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/notifications/?severity=urgent", nil), &teacher)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, body.Error)
	assert.Contains(t, body.Error.Details, "severity")
	assert.Empty(t, s.notif.filters)

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/notifications/", nil), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMarkAllNotificationsRead_OptionalCategory(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all", nil), &teacher)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all?category=leave", nil), &teacher)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, s.notif.categories, 2)
	assert.Nil(t, s.notif.categories[0])
	require.NotNil(t, s.notif.categories[1])
	assert.Equal(t, notification.CategoryLeave, *s.notif.categories[1])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	_, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/leave-requests/my", nil), nil)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "leave_portal_http_requests_total")
}

func TestRouteParamsReachHandlers(t *testing.T) {
	s := newTestServer(t)

	s.leave.On("GetApprovalHistory", mock.Anything, hod, "req-42").
		Return([]leave.ApprovalHistoryResponse{{ActorID: "hod-1", Action: "approve"}}, nil).Once()

	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/leave-requests/req-42/history", nil), &hod)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	s.leave.AssertExpectations(t)
}

func TestDashboard_PassesActorAndMonth(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard?month=2026-03", nil), &teacher)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	require.Len(t, s.dash.actors, 1)
	assert.Equal(t, teacher, s.dash.actors[0])

	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2026-03", data["month"])
}

func TestDeactivateUser_RequiresUserManagement(t *testing.T) {
	s := newTestServer(t)
	hr := auth.Actor{ID: "hr-1", Name: "Farah", Role: user.RoleHR, Department: "Administration"}

	rec, _ := s.do(t, httptest.NewRequest(http.MethodPatch, "/api/v1/users/t-1/deactivate", nil), &teacher)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, s.auth.deactivated)

	rec, body := s.do(t, httptest.NewRequest(http.MethodPatch, "/api/v1/users/t-1/deactivate", nil), &hr)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User deactivated successfully", body.Message)
	assert.Equal(t, []string{"t-1"}, s.auth.deactivated)
}
