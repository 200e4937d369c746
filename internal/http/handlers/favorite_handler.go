package handlers

import (
	applog "buttergolf/internal/log"
	"buttergolf/internal/services"
	"buttergolf/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type FavoriteHandler struct {
	Favs *services.FavoriteService
}

func (h *FavoriteHandler) List(c *fiber.Ctx) error {
	v, err := h.Favs.List(currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(v)
}

// POST /api/favorites {productId}; repeating it is harmless.
func (h *FavoriteHandler) Add(c *fiber.Ctx) error {
	var in struct {
		ProductID string `json:"productId"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body")
	}
	pid, ok := validate.ID(in.ProductID)
	if !ok {
		return badRequest(c, "productId")
	}
	added, err := h.Favs.Add(currentUser(c), pid)
	if err != nil {
		return fail(c, err)
	}
	applog.Info(c, "favorite.add", map[string]any{"product_id": pid, "new": added})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"productId": pid, "favorited": true})
}

// DELETE /api/favorites/:productId
func (h *FavoriteHandler) Remove(c *fiber.Ctx) error {
	pid := c.Params("productId")
	if err := h.Favs.Remove(currentUser(c), pid); err != nil {
		return fail(c, err)
	}
	applog.Info(c, "favorite.remove", map[string]any{"product_id": pid})
	return c.JSON(fiber.Map{"productId": pid, "favorited": false})
}
