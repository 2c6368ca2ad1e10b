package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/arrivapp-go-api/internal/attendance"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Supported notification queue backends.
const (
	QueueMemory = "memory"
	QueueRedis  = "redis"
	QueueNATS   = "nats"
)

// SMTPConfig describes the outgoing mail relay. An empty host selects the
// logging mailer.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromName    string
	FromAddress string
}

// NotificationConfig controls how e-mail intents are queued and delivered.
type NotificationConfig struct {
	Backend        string
	QueueKey       string
	QueueSubject   string
	BufferSize     int
	Workers        int
	InlineDispatch bool
	MailTimeout    time.Duration
	EnqueueTimeout time.Duration
	MaxAttempts    int
	RetryBackoff   time.Duration
}

// Config holds runtime configuration values for the API and worker processes.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseDriver    string
	DatabaseURL       string
	RedisURL          string
	NATSURL           string
	JWTSecret         string
	CORSAllowOrigins  string
	SMTP              SMTPConfig
	AdminEmail        string
	Notification      NotificationConfig
	FeedChannel       string
	DefaultTimezone   string
	Location          *time.Location
	Policy            attendance.Policy
	KitchenSnapshotAt attendance.ClockTime
	ScanRateLimit     int
	ScanRateWindow    time.Duration
	LookupRateLimit   int
	LookupRateWindow  time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ARRIVAPP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ArrivApp API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from_name", "ArrivApp")
	v.SetDefault("notification.backend", QueueMemory)
	v.SetDefault("notification.queue_key", "arrivapp:notifications:queue")
	v.SetDefault("notification.queue_subject", "arrivapp.notifications.queue")
	v.SetDefault("notification.buffer_size", 512)
	v.SetDefault("notification.workers", 4)
	v.SetDefault("notification.inline_dispatch", true)
	v.SetDefault("notification.mail_timeout", "10s")
	v.SetDefault("notification.enqueue_timeout", "2s")
	v.SetDefault("notification.max_attempts", 3)
	v.SetDefault("notification.retry_backoff", "500ms")
	v.SetDefault("feed.channel", "arrivapp:attendance")
	v.SetDefault("timezone", "Europe/Madrid")
	v.SetDefault("attendance.late_threshold", "09:01")
	v.SetDefault("attendance.absence_cutoff", "09:10")
	v.SetDefault("attendance.kitchen_snapshot", "10:00")
	v.SetDefault("attendance.duplicate_window_minutes", attendance.DefaultDuplicateWindowMinutes)
	v.SetDefault("attendance.minimum_stay_minutes", attendance.DefaultMinimumStayMinutes)
	v.SetDefault("attendance.early_dismissal_hour", attendance.DefaultEarlyDismissalHour)
	v.SetDefault("scan.rate_limit", 60)
	v.SetDefault("scan.rate_window", "1m")
	v.SetDefault("lookup.rate_limit", 10)
	v.SetDefault("lookup.rate_window", "1m")
}

func fromViper(v *viper.Viper) (Config, error) {
	mailTimeout, err := parseDuration(v, "notification.mail_timeout")
	if err != nil {
		return Config{}, err
	}
	enqueueTimeout, err := parseDuration(v, "notification.enqueue_timeout")
	if err != nil {
		return Config{}, err
	}
	retryBackoff, err := parseDuration(v, "notification.retry_backoff")
	if err != nil {
		return Config{}, err
	}
	lookupWindow, err := parseDuration(v, "lookup.rate_window")
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDuration(v, "scan.rate_window")
	if err != nil {
		return Config{}, err
	}

	lateThreshold, err := attendance.ParseClockTime(v.GetString("attendance.late_threshold"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid late threshold: %w", err)
	}
	cutoff, err := attendance.ParseClockTime(v.GetString("attendance.absence_cutoff"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid absence cutoff: %w", err)
	}
	kitchenAt, err := attendance.ParseClockTime(v.GetString("attendance.kitchen_snapshot"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid kitchen snapshot time: %w", err)
	}

	policy := attendance.Policy{
		LateThreshold:          lateThreshold,
		AbsenceCutoff:          cutoff,
		DuplicateWindowMinutes: v.GetInt("attendance.duplicate_window_minutes"),
		MinimumStayMinutes:     v.GetInt("attendance.minimum_stay_minutes"),
		EarlyDismissalHour:     v.GetInt("attendance.early_dismissal_hour"),
	}
	if err := policy.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid attendance policy: %w", err)
	}

	timezone := strings.TrimSpace(v.GetString("timezone"))
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseDriver:   strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		CORSAllowOrigins: v.GetString("cors.allow_origins"),
		SMTP: SMTPConfig{
			Host:        v.GetString("smtp.host"),
			Port:        v.GetInt("smtp.port"),
			Username:    v.GetString("smtp.user"),
			Password:    v.GetString("smtp.password"),
			FromName:    v.GetString("smtp.from_name"),
			FromAddress: v.GetString("smtp.from_address"),
		},
		AdminEmail: v.GetString("admin.email"),
		Notification: NotificationConfig{
			Backend:        strings.ToLower(v.GetString("notification.backend")),
			QueueKey:       v.GetString("notification.queue_key"),
			QueueSubject:   v.GetString("notification.queue_subject"),
			BufferSize:     v.GetInt("notification.buffer_size"),
			Workers:        v.GetInt("notification.workers"),
			InlineDispatch: v.GetBool("notification.inline_dispatch"),
			MailTimeout:    mailTimeout,
			EnqueueTimeout: enqueueTimeout,
			MaxAttempts:    v.GetInt("notification.max_attempts"),
			RetryBackoff:   retryBackoff,
		},
		FeedChannel:       v.GetString("feed.channel"),
		DefaultTimezone:   timezone,
		Location:          location,
		Policy:            policy,
		KitchenSnapshotAt: kitchenAt,
		ScanRateLimit:     v.GetInt("scan.rate_limit"),
		ScanRateWindow:    rateWindow,
		LookupRateLimit:   v.GetInt("lookup.rate_limit"),
		LookupRateWindow:  lookupWindow,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	switch cfg.Notification.Backend {
	case QueueMemory:
	case QueueRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("redis queue backend requires a redis url")
		}
	case QueueNATS:
		if cfg.NATSURL == "" {
			return Config{}, fmt.Errorf("nats queue backend requires a nats url")
		}
	default:
		return Config{}, fmt.Errorf("unsupported notification backend %q", cfg.Notification.Backend)
	}

	if cfg.Notification.Workers <= 0 {
		cfg.Notification.Workers = 4
	}
	if cfg.ScanRateLimit <= 0 {
		cfg.ScanRateLimit = 60
	}
	if cfg.LookupRateLimit <= 0 {
		cfg.LookupRateLimit = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	value := v.GetString(key)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return duration, nil
}
