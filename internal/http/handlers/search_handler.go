package handlers

import (
	"strings"

	applog "buttergolf/internal/log"
	"buttergolf/internal/services"
	"buttergolf/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type SearchHandler struct {
	Catalog *services.CatalogService
}

// GET /api/search?q=
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	rawQ := c.Query("q")
	if strings.TrimSpace(rawQ) == "" {
		return c.JSON(fiber.Map{"products": []any{}})
	}
	if _, ok := validate.Q(rawQ); !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "q"})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "enter a valid keyword"})
	}
	page := validate.Int(c.Query("page"), 1, 500)
	size := validate.Int(c.Query("pageSize"), 24, 60)
	products, err := h.Catalog.Search(rawQ, page, size)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"products": products})
}
