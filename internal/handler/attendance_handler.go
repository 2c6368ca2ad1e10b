package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arrivapp-go-api/internal/dto"
	"github.com/noah-isme/arrivapp-go-api/internal/models"
	"github.com/noah-isme/arrivapp-go-api/internal/middleware"
	"github.com/noah-isme/arrivapp-go-api/internal/service"
	"github.com/noah-isme/arrivapp-go-api/internal/utils"
)

// AttendanceHandler serves the staff attendance views.
type AttendanceHandler struct {
	service service.AbsenceService
	logger  zerolog.Logger
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(service service.AbsenceService, logger zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		logger:  logger.With().Str("component", "attendance_handler").Logger(),
	}
}

// Register wires attendance routes. The router must already require a staff role.
func (h *AttendanceHandler) Register(router fiber.Router) {
	router.Get("/dashboard", h.dashboard)
	router.Get("/records", h.records)
	router.Get("/classes", h.classes)
	router.Get("/summary", h.summary)
	router.Post("/classify", middleware.RequireRole(models.RoleAdmin, models.RoleDirector), h.classify)
}

func (h *AttendanceHandler) dashboard(c *fiber.Ctx) error {
	schoolID, ok, err := schoolFromQuery(c, false)
	if !ok {
		return err
	}

	resp, err := h.service.Dashboard(c.UserContext(), schoolID, c.Query("date"), c.Query("class"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load dashboard")
	}
	return utils.SendSuccess(c, "dashboard retrieved", resp)
}

func (h *AttendanceHandler) records(c *fiber.Ctx) error {
	schoolID, ok, err := schoolFromQuery(c, false)
	if !ok {
		return err
	}

	logs, err := h.service.Records(c.UserContext(), schoolID, c.Query("date"), c.Query("class"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load attendance records")
	}
	return utils.SendSuccess(c, "attendance records retrieved", logs)
}

func (h *AttendanceHandler) classes(c *fiber.Ctx) error {
	schoolID, ok, err := schoolFromQuery(c, false)
	if !ok {
		return err
	}

	classes, err := h.service.Classes(c.UserContext(), schoolID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list classes")
	}
	return utils.SendSuccess(c, "classes retrieved", dto.ClassListResponse{SchoolID: schoolID, Classes: classes})
}

func (h *AttendanceHandler) summary(c *fiber.Ctx) error {
	schoolID, ok, err := schoolFromQuery(c, false)
	if !ok {
		return err
	}

	resp, err := h.service.Summarize(c.UserContext(), schoolID, c.Query("date"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to classify attendance")
	}
	return utils.SendSuccess(c, "attendance classified", resp)
}

func (h *AttendanceHandler) classify(c *fiber.Ctx) error {
	schoolID, ok, err := schoolFromQuery(c, false)
	if !ok {
		return err
	}

	resp, err := h.service.ClassifyDay(c.UserContext(), schoolID, c.Query("date"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to run absence check")
	}

	requestLogger(h.logger, c).Info().
		Uint("school_id", schoolID).
		Str("date", resp.Date).
		Int("newly_absent", resp.NewlyAbsent).
		Uint("requested_by", middleware.UserID(c)).
		Msg("absence check run on demand")
	return utils.SendSuccess(c, "absence check completed", resp)
}
