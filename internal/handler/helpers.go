package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arrivapp-go-api/internal/middleware"
	"github.com/noah-isme/arrivapp-go-api/internal/service"
	"github.com/noah-isme/arrivapp-go-api/internal/utils"
)

var errMissingSchool = errors.New("school_id is required")

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseQueryUint(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}

// schoolFromQuery resolves the school_id query parameter against the
// caller's scope and writes the error response when it cannot.
func schoolFromQuery(c *fiber.Ctx, allowAll bool) (uint, bool, error) {
	requested, err := parseQueryUint(c, "school_id")
	if err != nil {
		return 0, false, utils.SendError(c, fiber.StatusBadRequest, "invalid school_id")
	}

	schoolID, ok := middleware.ResolveSchool(c, requested)
	if !ok {
		return 0, false, utils.SendError(c, fiber.StatusForbidden, "school outside of your scope")
	}
	if schoolID == 0 && !allowAll {
		return 0, false, utils.SendError(c, fiber.StatusBadRequest, errMissingSchool.Error())
	}
	return schoolID, true, nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// sendServiceError maps service sentinels to HTTP statuses. Anything
// unrecognised is logged and reported as a 500 with fallback as message.
func sendServiceError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidScanCode),
		errors.Is(err, service.ErrInvalidDay),
		errors.Is(err, service.ErrInvalidHistoryRange),
		errors.Is(err, service.ErrJustificationEmpty):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSchoolNotFound),
		errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrJustificationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrJustificationForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrJustificationReviewed),
		errors.Is(err, service.ErrScanContention):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		requestLogger(logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
