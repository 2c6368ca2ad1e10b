package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/noah-isme/arrivapp-go-api/internal/bootstrap"
	"github.com/noah-isme/arrivapp-go-api/internal/config"
)

// The worker delivers e-mails from a shared redis or NATS queue so delivery
// scales apart from the API.
func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "worker").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Notification.Backend == config.QueueMemory {
		logger.Fatal().Msg("worker requires the redis or nats notification backend")
	}

	infra, err := bootstrap.Connect(cfg, cfg.AppName+" worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect infrastructure")
	}
	defer infra.Close()

	queue, err := bootstrap.NewQueue(cfg, infra, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build notification queue")
	}
	mail, err := bootstrap.NewMailer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build mailer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("queue", cfg.Notification.Backend).Int("workers", cfg.Notification.Workers).Msg("worker started")
	dispatcher := bootstrap.NewDispatcher(cfg, infra, queue, mail, logger)
	if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("dispatcher stopped")
	}
	logger.Info().Msg("worker stopped")
}
