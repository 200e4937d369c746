package handlers

import (
	"buttergolf/internal/jobs"
	applog "buttergolf/internal/log"
	"buttergolf/internal/repos"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler serves the API-key protected internal endpoints.
type AdminHandler struct {
	Jobs     *jobs.Runner
	Waitlist *repos.WaitlistRepo
}

// POST /api/internal/jobs/run
func (h *AdminHandler) RunJobs(c *fiber.Ctx) error {
	res, err := h.Jobs.RunOnce(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.jobs.run", err, map[string]any{"released": res.Released, "expired": res.Expired})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": internalMsg, "result": res})
	}
	applog.Audit(c, "admin.jobs.run", map[string]any{"released": res.Released, "expired": res.Expired})
	return c.JSON(res)
}

// GET /api/internal/stats
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	n, err := h.Waitlist.Count()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"waitlist": n})
}
