package handlers

import (
	applog "buttergolf/internal/log"
	"buttergolf/internal/services"

	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	Orders *services.OrderService
}

// GET /api/orders?role=buyer|seller
func (h *OrderHandler) List(c *fiber.Ctx) error {
	list, err := h.Orders.List(currentUser(c), c.Query("role"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"orders": list})
}

func (h *OrderHandler) View(c *fiber.Ctx) error {
	o, err := h.Orders.Get(currentUser(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(o)
}

// POST /api/orders/:id/ship {carrier, trackingNumber}
func (h *OrderHandler) Ship(c *fiber.Ctx) error {
	var in struct {
		Carrier        string `json:"carrier"`
		TrackingNumber string `json:"trackingNumber"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body")
	}
	o, err := h.Orders.Ship(c.UserContext(), currentUser(c), c.Params("id"), in.Carrier, in.TrackingNumber)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "order.ship", map[string]any{"order_id": o.ID, "carrier": o.Carrier})
	return c.JSON(o)
}

// POST /api/orders/:id/confirm-delivery
func (h *OrderHandler) ConfirmDelivery(c *fiber.Ctx) error {
	o, err := h.Orders.ConfirmDelivery(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "order.deliver", map[string]any{"order_id": o.ID, "status": o.Status, "hold": o.HoldStatus})
	return c.JSON(o)
}

// POST /api/orders/:id/cancel
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	o, err := h.Orders.Cancel(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "order.cancel", map[string]any{"order_id": o.ID, "hold": o.HoldStatus})
	return c.JSON(o)
}

// GET /api/orders/:id/tracking; carriers update slowly so clients may reuse
// the answer for five minutes.
func (h *OrderHandler) Tracking(c *fiber.Ctx) error {
	tr, err := h.Orders.Tracking(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderCacheControl, "private, max-age=300")
	return c.JSON(tr)
}
