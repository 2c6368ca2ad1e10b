package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arrivapp-go-api/internal/attendance"
	"github.com/noah-isme/arrivapp-go-api/internal/bootstrap"
	"github.com/noah-isme/arrivapp-go-api/internal/config"
	"github.com/noah-isme/arrivapp-go-api/internal/database"
	"github.com/noah-isme/arrivapp-go-api/internal/handler"
	"github.com/noah-isme/arrivapp-go-api/internal/middleware"
	"github.com/noah-isme/arrivapp-go-api/internal/notification"
	"github.com/noah-isme/arrivapp-go-api/internal/repository"
	"github.com/noah-isme/arrivapp-go-api/internal/router"
	"github.com/noah-isme/arrivapp-go-api/internal/scheduler"
	"github.com/noah-isme/arrivapp-go-api/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	infra, err := bootstrap.Connect(cfg, cfg.AppName+" api")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect infrastructure")
	}
	defer infra.Close()

	if err := database.Migrate(infra.DB); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue, err := bootstrap.NewQueue(cfg, infra, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build notification queue")
	}
	mail, err := bootstrap.NewMailer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build mailer")
	}
	dispatcher := bootstrap.NewDispatcher(cfg, infra, queue, mail, logger)

	// The in-memory queue only exists in this process, so it is always drained here.
	dispatchDone := make(chan struct{})
	if cfg.Notification.Backend == config.QueueMemory || cfg.Notification.InlineDispatch {
		go func() {
			defer close(dispatchDone)
			if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("notification dispatcher stopped")
			}
		}()
	} else {
		close(dispatchDone)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	settings := service.Settings{
		Policy:     cfg.Policy,
		Location:   cfg.Location,
		Clock:      attendance.SystemClock{},
		AdminEmail: cfg.AdminEmail,
	}

	studentRepo := repository.NewStudentRepository(infra.DB)
	schoolRepo := repository.NewSchoolRepository(infra.DB)
	userRepo := repository.NewUserRepository(infra.DB)
	attendanceRepo := repository.NewAttendanceRepository(infra.DB)
	absenceRepo := repository.NewAbsenceRepository(infra.DB)
	justificationRepo := repository.NewJustificationRepository(infra.DB)
	kitchenRepo := repository.NewKitchenRepository(infra.DB)

	feedService := service.NewFeedService(infra.Redis, cfg.FeedChannel, infra.NATS, logger)
	feedService.Start(ctx)

	var notifier notification.Enqueuer = dispatcher
	scanService := service.NewScanService(studentRepo, schoolRepo, attendanceRepo, settings, notifier, feedService, logger)
	justificationService := service.NewJustificationService(justificationRepo, studentRepo, validate, settings, notifier, logger)
	absenceService := service.NewAbsenceService(studentRepo, schoolRepo, attendanceRepo, absenceRepo, justificationService, userRepo, settings, notifier, logger)
	kitchenService := service.NewKitchenService(kitchenRepo, studentRepo, schoolRepo, attendanceRepo, absenceRepo, settings, logger)

	jobs := scheduler.New(cfg.Location, logger)
	for _, job := range []scheduler.Job{
		{Name: scheduler.JobAbsenceCheck, Spec: cfg.Policy.AbsenceCutoff.CronSpec(), Run: absenceService.RunAll},
		// Later per-school cutoffs are picked up by the hourly sweep; reruns only notify newly absent students.
		{Name: scheduler.JobAbsenceSweep, Spec: "@hourly", Run: absenceService.RunAll},
		{Name: scheduler.JobKitchenSnapshot, Spec: cfg.KitchenSnapshotAt.CronSpec(), Run: kitchenService.RunAll},
	} {
		if err := jobs.Register(job); err != nil {
			logger.Fatal().Err(err).Str("job", job.Name).Msg("failed to register job")
		}
	}
	jobs.Start()

	feedHandler := handler.NewFeedHandler(feedService, 0, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		ScanHandler:          handler.NewScanHandler(scanService, validate, logger),
		AttendanceHandler:    handler.NewAttendanceHandler(absenceService, logger),
		JustificationHandler: handler.NewJustificationHandler(justificationService, logger),
		KitchenHandler:       handler.NewKitchenHandler(kitchenService, logger),
		FeedHandler:          feedHandler,
		JWTMiddleware:        middleware.JWTProtected(cfg.JWTSecret),
		ScanLimiter:          middleware.RateLimit("scan", cfg.ScanRateLimit, cfg.ScanRateWindow),
		LookupLimiter:        middleware.RateLimit("parent_lookup", cfg.LookupRateLimit, cfg.LookupRateWindow),
		HealthProbes:         infra.HealthProbes(),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	logger.Info().Str("address", cfg.HTTPAddress()).Str("timezone", cfg.DefaultTimezone).Str("queue", cfg.Notification.Backend).Msg("api started")

	<-ctx.Done()
	shutdown(app, feedHandler, jobs, dispatchDone, logger)
}

func shutdown(app *fiber.App, feed *handler.FeedHandler, jobs *scheduler.Scheduler, dispatchDone <-chan struct{}, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	feed.Close()
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := jobs.Stop(ctx); err != nil {
		logger.Warn().Err(err).Msg("scheduler did not stop in time")
	}

	select {
	case <-dispatchDone:
	case <-ctx.Done():
		logger.Warn().Msg("notification dispatcher did not stop in time")
	}

	logger.Info().Msg("server stopped")
}
