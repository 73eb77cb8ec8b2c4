package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/config"
	appHTTP "github.com/cmlabs-hris/leave-portal-go/internal/handler/http"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/cron"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/database"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/sse"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/storage"
	"github.com/cmlabs-hris/leave-portal-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/leave-portal-go/internal/service/attendance"
	serviceAuth "github.com/cmlabs-hris/leave-portal-go/internal/service/auth"
	dashboardService "github.com/cmlabs-hris/leave-portal-go/internal/service/dashboard"
	"github.com/cmlabs-hris/leave-portal-go/internal/service/file"
	"github.com/cmlabs-hris/leave-portal-go/internal/service/leave"
	notificationService "github.com/cmlabs-hris/leave-portal-go/internal/service/notification"
	"github.com/cmlabs-hris/leave-portal-go/migrations"
	"github.com/go-chi/httplog/v3"
	"golang.org/x/sync/errgroup"
)

// nightly attendance jobs run during this local hour
const attendanceJobHour = 0

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "leave-portal"),
		slog.String("version", cfg.App.Version),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolConfig{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	userRepo := postgresql.NewUserRepository(db)
	refreshTokenRepo := postgresql.NewRefreshTokenRepository(db)
	leaveRequestRepo := postgresql.NewLeaveRequestRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)
	auditRepo := postgresql.NewAuditLogRepository(db)
	dashboardRepo := postgresql.NewDashboardRepository(db)
	txManager := postgresql.NewTxManager(db)

	m := metrics.New()
	hub := sse.NewHub()
	hub.OnDrop = m.SSEDropped

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration, cfg.JWT.RefreshExpiration, cfg.App.IsProduction())

	var fileStorage storage.FileStorage
	switch cfg.Storage.Type {
	case "local":
		fileStorage, err = storage.NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.BaseURL)
		if err != nil {
			return fmt.Errorf("initialize local storage: %w", err)
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
	fileService := file.NewFileService(fileStorage, cfg.Storage.MaxUploadSize)

	notifSvc := notificationService.NewNotificationService(notificationRepo, hub, notificationService.Config{
		BatchSize:     cfg.Notification.BatchSize,
		FlushInterval: cfg.Notification.FlushInterval,
		WorkerCount:   cfg.Notification.WorkerCount,
		QueueSize:     cfg.Notification.QueueSize,
	}, m)
	defer notifSvc.Stop()

	leaveSvc := leave.NewLeaveService(
		txManager,
		leaveRequestRepo,
		auditRepo,
		notifSvc,
		fileService,
		leave.NewApprovalEngine(time.Now),
		m,
	)

	policy, err := attendanceService.NewPolicy(cfg.Attendance.ExpectedClockIn, cfg.Attendance.Timezone, cfg.Attendance.HalfDayThreshold)
	if err != nil {
		return fmt.Errorf("attendance policy: %w", err)
	}
	attendanceSvc := attendanceService.NewAttendanceService(
		attendanceRepo,
		userRepo,
		leaveRequestRepo,
		auditRepo,
		notifSvc,
		attendanceService.Options{
			Policy:          policy,
			CloseStaleAfter: cfg.Attendance.CloseStaleAfter,
			Metrics:         m,
		},
	)

	authSvc := serviceAuth.NewAuthService(txManager, userRepo, refreshTokenRepo, jwtService)
	dashboardSvc := dashboardService.NewDashboardService(dashboardRepo, policy.Location)

	router := appHTTP.NewRouter(appHTTP.RouterConfig{
		Logger:           logger,
		CORSOrigins:      cfg.App.CORSOrigins,
		LoginRatePerSec:  cfg.RateLimit.LoginPerSecond,
		LoginBurst:       cfg.RateLimit.LoginBurst,
		UploadsDir:       cfg.Storage.BasePath,
		RequestLogLevel:  cfg.SlogLevel(),
		MetricsCollector: m,
	}, jwtService, appHTTP.Handlers{
		Auth:         appHTTP.NewAuthHandler(jwtService, authSvc),
		User:         appHTTP.NewUserHandler(authSvc),
		Leave:        appHTTP.NewLeaveHandler(leaveSvc),
		Attendance:   appHTTP.NewAttendanceHandler(attendanceSvc),
		Notification: appHTTP.NewNotificationHandler(notifSvc, jwtService),
		Dashboard:    appHTTP.NewDashboardHandler(dashboardSvc),
	})

	scheduler := cron.NewScheduler()
	scheduler.OnRun = m.CronRun
	cron.NewAttendanceJobs(attendanceSvc, policy.Location, attendanceJobHour).RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		// closing the hub first ends long-lived SSE streams
		hub.Close()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
