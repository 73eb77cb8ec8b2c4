package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // timezone database for minimal containers

	"github.com/joho/godotenv"
)

type Config struct {
	Database     DatabaseConfig
	JWT          JWTConfig
	App          AppConfig
	Notification NotificationConfig
	Attendance   AttendanceConfig
	Storage      StorageConfig
	RateLimit    RateLimitConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	AutoMigrate     bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret            string
	RefreshExpiration time.Duration
	AccessExpiration  time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port            int
	Env             string
	Version         string
	LogLevel        string
	FrontendURL     string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// NotificationConfig tunes the async notification pipeline
type NotificationConfig struct {
	WorkerCount   int
	BatchSize     int
	FlushInterval time.Duration
	QueueSize     int
}

// AttendanceConfig holds the working-day policy
type AttendanceConfig struct {
	ExpectedClockIn  string // HH:MM
	Timezone         string
	HalfDayThreshold time.Duration
	CloseStaleAfter  time.Duration
}

type StorageConfig struct {
	Type          string
	BasePath      string
	BaseURL       string
	MaxUploadSize int64
}

type RateLimitConfig struct {
	LoginPerSecond float64
	LoginBurst     int
}

// Load reads .env when present, then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds and validates configuration from environment variables
func FromEnv() (*Config, error) {
	var errs []error
	config := &Config{}

	config.Database = DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432, &errs),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		Name:            getEnv("DB_NAME", "leave_portal"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		MaxConns:        int32(getEnvInt("DB_MAX_CONNS", 25, &errs)),
		MinConns:        int32(getEnvInt("DB_MIN_CONNS", 5, &errs)),
		MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour, &errs),
		AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", false, &errs),
	}

	config.App = AppConfig{
		Port:            getEnvInt("APP_PORT", 8080, &errs),
		Env:             getEnv("APP_ENV", "development"),
		Version:         getEnv("APP_VERSION", "dev"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
		CORSOrigins:     getEnvSlice("CORS_ALLOWED_ORIGINS"),
		ShutdownTimeout: getEnvDuration("APP_SHUTDOWN_TIMEOUT", 15*time.Second, &errs),
	}
	if len(config.App.CORSOrigins) == 0 {
		config.App.CORSOrigins = []string{config.App.FrontendURL}
	}

	config.JWT = JWTConfig{
		Secret:            getEnv("JWT_SECRET_KEY", ""),
		RefreshExpiration: getEnvDuration("JWT_REFRESH_EXPIRATION_TIME", 168*time.Hour, &errs),
		AccessExpiration:  getEnvDuration("JWT_ACCESS_EXPIRATION_TIME", time.Hour, &errs),
	}

	config.Notification = NotificationConfig{
		WorkerCount:   getEnvInt("NOTIFICATION_WORKER_COUNT", 3, &errs),
		BatchSize:     getEnvInt("NOTIFICATION_BATCH_SIZE", 100, &errs),
		FlushInterval: getEnvDuration("NOTIFICATION_FLUSH_INTERVAL", 500*time.Millisecond, &errs),
		QueueSize:     getEnvInt("NOTIFICATION_QUEUE_SIZE", 10000, &errs),
	}

	config.Attendance = AttendanceConfig{
		ExpectedClockIn:  getEnv("ATTENDANCE_EXPECTED_CLOCK_IN", "09:00"),
		Timezone:         getEnv("ATTENDANCE_TIMEZONE", "Asia/Kolkata"),
		HalfDayThreshold: getEnvDuration("ATTENDANCE_HALF_DAY_THRESHOLD", 4*time.Hour, &errs),
		CloseStaleAfter:  getEnvDuration("ATTENDANCE_CLOSE_STALE_AFTER", 8*time.Hour, &errs),
	}

	config.Storage = StorageConfig{
		Type:          getEnv("STORAGE_TYPE", "local"),
		BasePath:      getEnv("STORAGE_BASE_PATH", "./uploads"),
		BaseURL:       getEnv("STORAGE_BASE_URL", "http://localhost:8080/uploads"),
		MaxUploadSize: int64(getEnvInt("STORAGE_MAX_UPLOAD_SIZE", 5<<20, &errs)),
	}

	config.RateLimit = RateLimitConfig{
		LoginPerSecond: getEnvFloat("RATE_LIMIT_LOGIN_PER_SECOND", 1, &errs),
		LoginBurst:     getEnvInt("RATE_LIMIT_LOGIN_BURST", 5, &errs),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.App.IsProduction() && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters in production")
	}
	if _, err := time.Parse("15:04", c.Attendance.ExpectedClockIn); err != nil {
		return fmt.Errorf("ATTENDANCE_EXPECTED_CLOCK_IN must be HH:MM: %w", err)
	}
	if _, err := time.LoadLocation(c.Attendance.Timezone); err != nil {
		return fmt.Errorf("ATTENDANCE_TIMEZONE is invalid: %w", err)
	}
	if c.Notification.WorkerCount < 1 || c.Notification.BatchSize < 1 || c.Notification.QueueSize < 1 {
		return fmt.Errorf("NOTIFICATION_WORKER_COUNT, NOTIFICATION_BATCH_SIZE and NOTIFICATION_QUEUE_SIZE must be positive")
	}
	if c.Storage.Type != "local" {
		return fmt.Errorf("unsupported STORAGE_TYPE: %s", c.Storage.Type)
	}
	if c.RateLimit.LoginPerSecond <= 0 || c.RateLimit.LoginBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_LOGIN_PER_SECOND and RATE_LIMIT_LOGIN_BURST must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64, errs *[]error) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return d
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
