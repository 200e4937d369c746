package handlers

import (
	applog "buttergolf/internal/log"
	"buttergolf/internal/services"

	"github.com/gofiber/fiber/v2"
)

type AddressHandler struct {
	Addrs *services.AddressService
}

func (h *AddressHandler) List(c *fiber.Ctx) error {
	list, err := h.Addrs.List(currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"addresses": list})
}

func (h *AddressHandler) Create(c *fiber.Ctx) error {
	var in services.AddressInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body")
	}
	a, err := h.Addrs.Create(currentUser(c), in)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "address.create", map[string]any{"address_id": a.ID, "default": a.IsDefault})
	return c.Status(fiber.StatusCreated).JSON(a)
}

func (h *AddressHandler) Update(c *fiber.Ctx) error {
	var in services.AddressInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body")
	}
	a, err := h.Addrs.Update(currentUser(c), c.Params("id"), in)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "address.update", map[string]any{"address_id": a.ID, "default": a.IsDefault})
	return c.JSON(a)
}

func (h *AddressHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Addrs.Delete(currentUser(c), id); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "address.delete", map[string]any{"address_id": id})
	return c.JSON(fiber.Map{"deleted": true})
}

// POST /api/addresses/:id/default
func (h *AddressHandler) SetDefault(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Addrs.SetDefault(currentUser(c), id); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "address.default", map[string]any{"address_id": id})
	return c.JSON(fiber.Map{"id": id, "isDefault": true})
}
