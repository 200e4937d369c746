package handlers

import (
	applog "buttergolf/internal/log"
	"buttergolf/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AccountHandler serves the signed-in user's own profile.
type AccountHandler struct {
	Users *services.UserService
}

// GET /api/me
func (h *AccountHandler) Me(c *fiber.Ctx) error {
	u, err := h.Users.Me(currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(u)
}

// PUT /api/me/push-token {token}; an empty token unregisters the device.
func (h *AccountHandler) PushToken(c *fiber.Ctx) error {
	var in struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body")
	}
	if err := h.Users.SetPushToken(currentUser(c), in.Token); err != nil {
		return fail(c, err)
	}
	applog.Info(c, "push.token.set", map[string]any{"cleared": in.Token == ""})
	return c.JSON(fiber.Map{"ok": true})
}
