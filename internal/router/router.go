package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/arrivapp-go-api/internal/config"
	"github.com/noah-isme/arrivapp-go-api/internal/handler"
	"github.com/noah-isme/arrivapp-go-api/internal/middleware"
	"github.com/noah-isme/arrivapp-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ScanHandler          *handler.ScanHandler
	AttendanceHandler    *handler.AttendanceHandler
	JustificationHandler *handler.JustificationHandler
	KitchenHandler       *handler.KitchenHandler
	FeedHandler          *handler.FeedHandler
	JWTMiddleware        fiber.Handler
	ScanLimiter          fiber.Handler
	LookupLimiter        fiber.Handler
	HealthProbes         map[string]handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}
	staffOnly := middleware.RequireRole(middleware.StaffRoles...)

	// Kiosk
	if deps.ScanHandler != nil {
		deps.ScanHandler.Register(api.Group("/checkin"), deps.ScanLimiter)
	}

	// Parents submit without an account; staff review.
	if deps.JustificationHandler != nil {
		justifications := api.Group("/justifications")
		deps.JustificationHandler.RegisterPublic(justifications, deps.LookupLimiter)
		deps.JustificationHandler.RegisterStaff(justifications, jwtMiddleware, staffOnly)
	}

	if deps.AttendanceHandler != nil || deps.FeedHandler != nil {
		attendance := api.Group("/attendance", jwtMiddleware, staffOnly)
		if deps.FeedHandler != nil {
			deps.FeedHandler.Register(attendance)
		}
		if deps.AttendanceHandler != nil {
			deps.AttendanceHandler.Register(attendance)
		}
	}

	if deps.KitchenHandler != nil {
		deps.KitchenHandler.Register(api.Group("/kitchen", jwtMiddleware, staffOnly))
	}
}
