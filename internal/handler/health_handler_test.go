package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arrivapp-go-api/internal/config"
	"github.com/noah-isme/arrivapp-go-api/internal/handler"
)

func TestHealthCheck(t *testing.T) {
	cfg := config.Config{
		AppName:         "ArrivApp API",
		AppEnv:          "test",
		DefaultTimezone: "Europe/Madrid",
		Notification:    config.NotificationConfig{Backend: config.QueueMemory},
	}

	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(cfg, nil))

	resp := doJSON(t, app, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope[handler.HealthResponse]
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, "ok", body.Data.Status)
	require.Equal(t, cfg.AppName, body.Data.Service)
	require.Equal(t, "Europe/Madrid", body.Data.Timezone)
	require.Equal(t, config.QueueMemory, body.Data.Queue)
	require.WithinDuration(t, time.Now().UTC(), body.Data.Timestamp, 2*time.Second)
}

func TestHealthCheckReportsDegradedComponents(t *testing.T) {
	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(config.Config{AppName: "ArrivApp API"}, map[string]handler.HealthProbe{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}))

	resp := doJSON(t, app, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var body envelope[handler.HealthResponse]
	decodeResponse(t, resp, &body)
	require.False(t, body.Success)
	require.Equal(t, "degraded", body.Data.Status)
	require.Equal(t, "ok", body.Data.Components["database"])
	require.Equal(t, "connection refused", body.Data.Components["redis"])
}
