package handlers

import (
	"buttergolf/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CategoryHandler serves the catalog reference data: categories, brands
// and club models.
type CategoryHandler struct {
	Catalog *services.CatalogService
}

func (h *CategoryHandler) Categories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"categories": h.Catalog.ListCategories()})
}

func (h *CategoryHandler) Brands(c *fiber.Ctx) error {
	brands, err := h.Catalog.ListBrands()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"brands": brands})
}

func (h *CategoryHandler) Models(c *fiber.Ctx) error {
	models, err := h.Catalog.ListModels(c.Params("slug"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"models": models})
}
