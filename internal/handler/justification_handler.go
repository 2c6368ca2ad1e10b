package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arrivapp-go-api/internal/dto"
	"github.com/noah-isme/arrivapp-go-api/internal/middleware"
	"github.com/noah-isme/arrivapp-go-api/internal/models"
	"github.com/noah-isme/arrivapp-go-api/internal/service"
	"github.com/noah-isme/arrivapp-go-api/internal/utils"
)

// JustificationHandler serves parent submissions and staff review.
type JustificationHandler struct {
	service service.JustificationService
	logger  zerolog.Logger
}

// NewJustificationHandler constructs a justification handler.
func NewJustificationHandler(service service.JustificationService, logger zerolog.Logger) *JustificationHandler {
	return &JustificationHandler{
		service: service,
		logger:  logger.With().Str("component", "justification_handler").Logger(),
	}
}

// RegisterPublic wires the parent routes. The limiter, when given, guards
// the lookups that disclose students by parent address.
func (h *JustificationHandler) RegisterPublic(router fiber.Router, limiter fiber.Handler) {
	router.Post("", h.submit)
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	router.Get("/validate-email", limiter, h.validateEmail)
	router.Get("/student/:studentID/pending", limiter, h.pendingForStudent)
}

// RegisterStaff wires the staff listing and review routes behind guards.
// It must run after RegisterPublic so the public lookups win over /:id.
func (h *JustificationHandler) RegisterStaff(router fiber.Router, guards ...fiber.Handler) {
	guarded := func(handler fiber.Handler) []fiber.Handler {
		return append(guards[:len(guards):len(guards)], handler)
	}
	router.Get("", guarded(h.list)...)
	router.Get("/:id", guarded(h.get)...)
	router.Delete("/:id", guarded(h.delete)...)
	router.Put("/:id/review", guarded(h.review)...)
}

func (h *JustificationHandler) submit(c *fiber.Ctx) error {
	var payload dto.JustificationCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.service.Submit(c.UserContext(), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to submit justification")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "justification submitted", resp)
}

func (h *JustificationHandler) validateEmail(c *fiber.Ctx) error {
	resp, err := h.service.ParentStudents(c.UserContext(), c.Query("email"))
	if errors.Is(err, service.ErrStudentNotFound) {
		return utils.SendError(c, fiber.StatusNotFound, "no students found for this email address")
	}
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to look up parent email")
	}
	return utils.SendSuccess(c, "students retrieved", resp)
}

func (h *JustificationHandler) pendingForStudent(c *fiber.Ctx) error {
	studentID, err := strconv.ParseUint(c.Params("studentID"), 10, 64)
	if err != nil || studentID == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}

	items, err := h.service.PendingForStudent(c.UserContext(), uint(studentID), c.Query("email"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list pending justifications")
	}
	return utils.SendSuccess(c, "pending justifications retrieved", items)
}

func (h *JustificationHandler) get(c *fiber.Ctx) error {
	id, ok := justificationID(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid justification id")
	}
	scope, ok := staffScope(c)
	if !ok {
		return utils.SendError(c, fiber.StatusForbidden, "school outside of your scope")
	}

	resp, err := h.service.Get(c.UserContext(), id, scope)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load justification")
	}
	return utils.SendSuccess(c, "justification retrieved", resp)
}

func (h *JustificationHandler) delete(c *fiber.Ctx) error {
	id, ok := justificationID(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid justification id")
	}
	scope, ok := staffScope(c)
	if !ok {
		return utils.SendError(c, fiber.StatusForbidden, "school outside of your scope")
	}

	if err := h.service.Delete(c.UserContext(), id, scope); err != nil {
		return sendServiceError(c, h.logger, err, "failed to delete justification")
	}

	requestLogger(h.logger, c).Info().
		Uint("justification_id", id).
		Uint("deleted_by", middleware.UserID(c)).
		Msg("justification deleted")
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *JustificationHandler) list(c *fiber.Ctx) error {
	var query dto.JustificationListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}

	schoolID, ok, err := schoolFromQuery(c, true)
	if !ok {
		return err
	}
	query.SchoolID = schoolID

	items, err := h.service.List(c.UserContext(), query)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list justifications")
	}
	return utils.SendSuccess(c, "justifications retrieved", items)
}

func (h *JustificationHandler) review(c *fiber.Ctx) error {
	id, ok := justificationID(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid justification id")
	}

	var payload dto.JustificationReviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	scope, ok := staffScope(c)
	if !ok {
		return utils.SendError(c, fiber.StatusForbidden, "school outside of your scope")
	}

	resp, err := h.service.Review(c.UserContext(), id, middleware.UserID(c), scope, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to review justification")
	}
	return utils.SendSuccess(c, "justification reviewed", resp)
}

func justificationID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// staffScope is 0 for admins, who act across schools, and the caller's
// school claim otherwise.
func staffScope(c *fiber.Ctx) (uint, bool) {
	if middleware.UserRole(c) == models.RoleAdmin {
		return 0, true
	}
	scope := middleware.SchoolID(c)
	return scope, scope != 0
}
