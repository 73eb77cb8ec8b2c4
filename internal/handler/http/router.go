package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/user"
	"github.com/cmlabs-hris/leave-portal-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"golang.org/x/time/rate"
)

// RouterConfig carries the settings the router needs from configuration
type RouterConfig struct {
	Logger           *slog.Logger
	CORSOrigins      []string
	LoginRatePerSec  float64
	LoginBurst       int
	UploadsDir       string
	RequestLogLevel  slog.Level
	MetricsCollector *metrics.Metrics
}

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Auth         AuthHandler
	User         UserHandler
	Leave        LeaveHandler
	Attendance   AttendanceHandler
	Notification NotificationHandler
	Dashboard    DashboardHandler
}

var reviewerRoles = []user.Role{user.RoleHOD, user.RolePrincipal, user.RoleRegistrar, user.RoleHR}

func NewRouter(cfg RouterConfig, jwtService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.RequestLogLevel,
		Schema: httplog.SchemaECS,
	}))
	if cfg.MetricsCollector != nil {
		r.Use(middleware.Metrics(cfg.MetricsCollector))
	}

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if cfg.MetricsCollector != nil {
		r.Handle("/metrics", cfg.MetricsCollector.Handler())
	}
	if cfg.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir))))
	}

	loginLimit := cfg.LoginBurst
	if loginLimit < 1 {
		loginLimit = 5
	}
	loginRate := rate.Limit(cfg.LoginRatePerSec)
	if loginRate <= 0 {
		loginRate = 1
	}

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimitByIP(loginRate, loginLimit)).Post("/login", h.Auth.Login)
			r.Post("/refresh", h.Auth.RefreshToken)
			r.Post("/logout", h.Auth.Logout)
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Get("/auth/me", h.Auth.Me)
			r.Get("/dashboard", h.Dashboard.GetDashboard)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.User.List)
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionUserManage))
					r.Post("/", h.User.Create)
					r.Patch("/{id}", h.User.Update)
					r.Patch("/{id}/deactivate", h.User.Deactivate)
				})
			})

			r.Route("/leave-requests", func(r chi.Router) {
				r.Post("/", h.Leave.CreateRequest)
				r.Get("/", h.Leave.ListRequests)
				r.Get("/my", h.Leave.GetMyRequests)
				r.Get("/types", h.Leave.ListLeaveTypes)
				r.With(middleware.RequireRoles(reviewerRoles...)).Get("/pending", h.Leave.GetPendingRequests)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Leave.GetRequest)
					r.Get("/history", h.Leave.GetHistory)
					r.Post("/resubmit", h.Leave.ResubmitRequest)

					// Reviewer actions
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionLeaveApprove))
						r.Post("/action", h.Leave.ApplyAction)
						r.Post("/approve", h.Leave.ApproveRequest)
						r.Post("/reject", h.Leave.RejectRequest)
						r.Post("/return", h.Leave.ReturnRequest)
					})
				})
			})

			r.Route("/attendance", func(r chi.Router) {
				r.Post("/clock-in", h.Attendance.ClockIn)
				r.Post("/clock-out", h.Attendance.ClockOut)
				r.Get("/my", h.Attendance.GetMyAttendance)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionAttendanceViewAll))
					r.Get("/", h.Attendance.List)
					r.Get("/today", h.Attendance.Today)
				})
				r.With(middleware.RequirePermission(user.PermissionAttendanceImport)).Post("/import", h.Attendance.ImportBiometric)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			// SSE authenticates with a short-lived query token
			r.Get("/stream", h.Notification.Stream)

			r.Group(func(r chi.Router) {
				r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
				r.Use(middleware.AuthRequired)

				r.Get("/", h.Notification.List)
				r.Get("/unread-count", h.Notification.UnreadCount)
				r.Post("/read", h.Notification.MarkAsRead)
				r.Post("/read-all", h.Notification.MarkAllAsRead)
				r.Delete("/{id}", h.Notification.Delete)
				r.Get("/sse-token", h.Notification.GetSSEToken)
			})
		})
	})
	return r
}
