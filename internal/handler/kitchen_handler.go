package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arrivapp-go-api/internal/service"
	"github.com/noah-isme/arrivapp-go-api/internal/utils"
)

// KitchenHandler serves meal-planning counts.
type KitchenHandler struct {
	service service.KitchenService
	logger  zerolog.Logger
}

// NewKitchenHandler constructs a kitchen handler.
func NewKitchenHandler(service service.KitchenService, logger zerolog.Logger) *KitchenHandler {
	return &KitchenHandler{
		service: service,
		logger:  logger.With().Str("component", "kitchen_handler").Logger(),
	}
}

// Register wires kitchen routes.
func (h *KitchenHandler) Register(router fiber.Router) {
	router.Get("/today", h.today)
	router.Post("/snapshot", h.snapshot)
	router.Get("/history", h.history)
	router.Get("/dietary-summary", h.dietarySummary)
}

func (h *KitchenHandler) today(c *fiber.Ctx) error {
	schoolID, ok, err := schoolFromQuery(c, false)
	if !ok {
		return err
	}

	resp, err := h.service.Today(c.UserContext(), schoolID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load kitchen counts")
	}
	return utils.SendSuccess(c, "kitchen counts retrieved", resp)
}

func (h *KitchenHandler) snapshot(c *fiber.Ctx) error {
	schoolID, ok, err := schoolFromQuery(c, false)
	if !ok {
		return err
	}

	resp, err := h.service.Snapshot(c.UserContext(), schoolID, c.Query("date"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to capture kitchen snapshot")
	}
	return utils.SendSuccess(c, "kitchen snapshot captured", resp)
}

func (h *KitchenHandler) history(c *fiber.Ctx) error {
	schoolID, ok, err := schoolFromQuery(c, false)
	if !ok {
		return err
	}
	days, err := parseQueryInt(c, "days")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid days")
	}

	resp, err := h.service.History(c.UserContext(), schoolID, days)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load kitchen history")
	}
	return utils.SendSuccess(c, "kitchen history retrieved", resp)
}

func (h *KitchenHandler) dietarySummary(c *fiber.Ctx) error {
	schoolID, ok, err := schoolFromQuery(c, false)
	if !ok {
		return err
	}

	resp, err := h.service.DietarySummary(c.UserContext(), schoolID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load dietary summary")
	}
	return utils.SendSuccess(c, "dietary summary retrieved", resp)
}
