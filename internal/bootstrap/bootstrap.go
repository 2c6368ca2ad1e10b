package bootstrap

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/arrivapp-go-api/internal/config"
	"github.com/noah-isme/arrivapp-go-api/internal/database"
	"github.com/noah-isme/arrivapp-go-api/internal/handler"
	"github.com/noah-isme/arrivapp-go-api/internal/notification"
	"github.com/noah-isme/arrivapp-go-api/internal/repository"
	"github.com/noah-isme/arrivapp-go-api/internal/service"
	"github.com/noah-isme/arrivapp-go-api/pkg/mailer"
)

// Infra holds the shared connections of a process. Redis and NATS are nil
// when not configured.
type Infra struct {
	DB    *gorm.DB
	Redis *redis.Client
	NATS  *nats.Conn
}

// Connect opens the database and the optional redis and NATS connections.
func Connect(cfg config.Config, name string) (*Infra, error) {
	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	infra := &Infra{DB: db}

	if cfg.RedisURL != "" {
		client, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.Redis = client
	}
	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, name)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.NATS = conn
	}
	return infra, nil
}

// HealthProbes checks each open connection for the health endpoint.
func (i *Infra) HealthProbes() map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := i.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if i.Redis != nil {
		probes["redis"] = func(ctx context.Context) error {
			return i.Redis.Ping(ctx).Err()
		}
	}
	if i.NATS != nil {
		probes["nats"] = func(context.Context) error {
			if !i.NATS.IsConnected() {
				return fmt.Errorf("nats %s", i.NATS.Status())
			}
			return nil
		}
	}
	return probes
}

// Close releases every open connection.
func (i *Infra) Close() {
	if i.NATS != nil {
		_ = i.NATS.Drain()
	}
	if i.Redis != nil {
		_ = i.Redis.Close()
	}
	if i.DB != nil {
		if sqlDB, err := i.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// NewMailer returns the SMTP mailer, or the logging mailer when no relay
// host is configured.
func NewMailer(cfg config.Config, logger zerolog.Logger) (mailer.Mailer, error) {
	if cfg.SMTP.Host == "" {
		logger.Warn().Msg("smtp host not configured, e-mails will only be logged")
		return mailer.NewLogMailer(logger), nil
	}
	return mailer.New(mailer.Config{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		FromName:    cfg.SMTP.FromName,
		FromAddress: cfg.SMTP.FromAddress,
		Timeout:     cfg.Notification.MailTimeout,
	}, logger)
}

// NewQueue selects the notification queue backend.
func NewQueue(cfg config.Config, infra *Infra, logger zerolog.Logger) (notification.Queue, error) {
	switch cfg.Notification.Backend {
	case config.QueueRedis:
		if infra.Redis == nil {
			return nil, fmt.Errorf("redis queue backend requires a redis connection")
		}
		return notification.NewRedisQueue(infra.Redis, cfg.Notification.QueueKey, logger), nil
	case config.QueueNATS:
		if infra.NATS == nil {
			return nil, fmt.Errorf("nats queue backend requires a nats connection")
		}
		return notification.NewNATSQueue(infra.NATS, cfg.Notification.QueueSubject, logger), nil
	default:
		return notification.NewMemoryQueue(cfg.Notification.BufferSize), nil
	}
}

// NewDispatcher builds the dispatcher writing outcomes back to the store.
func NewDispatcher(cfg config.Config, infra *Infra, queue notification.Queue, m mailer.Mailer, logger zerolog.Logger) *notification.Dispatcher {
	recorder := service.NewDeliveryRecorder(
		repository.NewAttendanceRepository(infra.DB),
		repository.NewAbsenceRepository(infra.DB),
	)
	return notification.NewDispatcher(queue, m, recorder, notification.DispatcherConfig{
		Workers:        cfg.Notification.Workers,
		SendTimeout:    cfg.Notification.MailTimeout,
		EnqueueTimeout: cfg.Notification.EnqueueTimeout,
		MaxAttempts:    cfg.Notification.MaxAttempts,
		RetryBackoff:   cfg.Notification.RetryBackoff,
	}, logger)
}
