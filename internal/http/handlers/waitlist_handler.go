package handlers

import (
	applog "buttergolf/internal/log"
	"buttergolf/internal/services"

	"github.com/gofiber/fiber/v2"
)

type WaitlistHandler struct {
	Waitlist *services.WaitlistService
}

// POST /api/waitlist {email, source?}
func (h *WaitlistHandler) Join(c *fiber.Ctx) error {
	var in struct {
		Email  string `json:"email"`
		Source string `json:"source"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body")
	}
	added, err := h.Waitlist.Join(in.Email, in.Source)
	if err != nil {
		return fail(c, err)
	}
	applog.Info(c, "waitlist.join", map[string]any{"new": added, "source": in.Source})
	status := fiber.StatusOK
	if added {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"joined": true, "alreadyJoined": !added})
}
