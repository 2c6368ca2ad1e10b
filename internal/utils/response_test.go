package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arrivapp-go-api/internal/utils"
)

type payload struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Data    map[string]string `json:"data"`
}

func perform(t *testing.T, handler fiber.Handler) (*http.Response, payload) {
	t.Helper()
	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body payload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestSendSuccessDefaults(t *testing.T) {
	resp, body := perform(t, func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "", map[string]string{"hello": "world"})
	})

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, body.Success)
	require.Equal(t, "success", body.Message)
	require.Equal(t, "world", body.Data["hello"])
}

func TestSendSuccessWithStatus(t *testing.T) {
	resp, body := perform(t, func(c *fiber.Ctx) error {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "created", nil)
	})

	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "created", body.Message)
	require.Nil(t, body.Data)
}

func TestSendError(t *testing.T) {
	resp, body := perform(t, func(c *fiber.Ctx) error {
		return utils.SendError(c, fiber.StatusConflict, "")
	})

	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.False(t, body.Success)
	require.Equal(t, "error", body.Message)
}

func TestSendRejection(t *testing.T) {
	resp, body := perform(t, func(c *fiber.Ctx) error {
		return utils.SendRejection(c, "duplicate", "Ana already checked in 4 minutes ago", map[string]string{"action": "duplicate"})
	})

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.False(t, body.Success)
	require.Equal(t, "duplicate", body.Error)
	require.Equal(t, "Ana already checked in 4 minutes ago", body.Message)
	require.Equal(t, "duplicate", body.Data["action"])

	_, body = perform(t, func(c *fiber.Ctx) error {
		return utils.SendRejection(c, "too_early", "", nil)
	})
	require.Equal(t, "request rejected", body.Message)
	require.Empty(t, body.Data)
}
