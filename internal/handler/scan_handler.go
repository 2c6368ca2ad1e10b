package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arrivapp-go-api/internal/dto"
	"github.com/noah-isme/arrivapp-go-api/internal/service"
	"github.com/noah-isme/arrivapp-go-api/internal/utils"
)

// ScanHandler serves the public kiosk scan endpoint.
type ScanHandler struct {
	service   service.ScanService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewScanHandler constructs a scan handler.
func NewScanHandler(service service.ScanService, validator *validator.Validate, logger zerolog.Logger) *ScanHandler {
	return &ScanHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "scan_handler").Logger(),
	}
}

// Register wires scan routes. The limiter, when given, guards the scan.
func (h *ScanHandler) Register(router fiber.Router, limiter fiber.Handler) {
	if limiter != nil {
		router.Post("/scan", limiter, h.scan)
		return
	}
	router.Post("/scan", h.scan)
}

func (h *ScanHandler) scan(c *fiber.Ctx) error {
	req := dto.ScanRequest{StudentCode: strings.TrimSpace(c.Query("student_id"))}
	if req.StudentCode == "" && len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "student code is required")
	}

	result, err := h.service.Scan(c.UserContext(), req.StudentCode)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to register scan")
	}

	if result.Outcome == service.OutcomeStudentNotFound {
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	}

	resp := newScanResponse(result)
	switch result.Outcome {
	case service.OutcomeCheckin:
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, resp.Message, resp)
	case service.OutcomeCheckout:
		return utils.SendSuccess(c, resp.Message, resp)
	default:
		return utils.SendRejection(c, resp.Action, resp.Message, resp)
	}
}

func newScanResponse(result service.ScanResult) dto.ScanResponse {
	resp := dto.ScanResponse{
		Action:      string(result.Outcome),
		StudentCode: result.Code,
		ScannedAt:   result.ScannedAt,
	}
	name := result.Code
	if result.Student != nil {
		name = result.Student.Name
		resp.StudentName = result.Student.Name
		resp.ClassName = result.Student.ClassName
	}

	switch result.Outcome {
	case service.OutcomeCheckin:
		in := result.Checkin
		resp.Message = fmt.Sprintf("Welcome, %s!", name)
		resp.CheckinAt = timePtr(in.CheckinAt)
		resp.IsLate = boolPtr(in.IsLate)
		resp.EmailSent = boolPtr(in.EmailSent)
	case service.OutcomeCheckout:
		out := result.Checkout
		resp.Message = fmt.Sprintf("See you later, %s!", name)
		if out.IsEarlyDismissal {
			resp.Message += " Early dismissal."
		}
		resp.CheckinAt = timePtr(out.CheckinAt)
		resp.CheckoutAt = timePtr(out.CheckoutAt)
		resp.DurationMinutes = intPtr(out.DurationMinutes)
		resp.IsEarlyDismissal = boolPtr(out.IsEarlyDismissal)
		resp.EmailSent = boolPtr(out.EmailSent)
	case service.OutcomeDuplicate:
		dup := result.Duplicate
		resp.Message = fmt.Sprintf("%s already checked in %d minutes ago", name, dup.MinutesAgo)
		resp.CheckinAt = timePtr(dup.CheckinAt)
		resp.MinutesAgo = intPtr(dup.MinutesAgo)
	case service.OutcomeTooEarly:
		early := result.TooEarly
		resp.Message = fmt.Sprintf("Checkout is allowed in %d minutes (checked in at %s)", early.MinutesRemaining, early.CheckinAt.Format("15:04"))
		resp.CheckinAt = timePtr(early.CheckinAt)
		resp.MinutesSinceCheckin = intPtr(early.MinutesSinceCheckin)
		resp.MinutesRemaining = intPtr(early.MinutesRemaining)
	case service.OutcomeAlreadyCompleted:
		done := result.Completed
		resp.Message = fmt.Sprintf("%s already checked in at %s and out at %s today", name, done.CheckinAt.Format("15:04"), done.CheckoutAt.Format("15:04"))
		resp.CheckinAt = timePtr(done.CheckinAt)
		resp.CheckoutAt = timePtr(done.CheckoutAt)
	}
	return resp
}

func timePtr(t time.Time) *time.Time { return &t }

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }
