package handlers

import (
	"context"

	"buttergolf/internal/domain"
	applog "buttergolf/internal/log"
	"buttergolf/internal/services"

	"github.com/gofiber/fiber/v2"
)

type OfferHandler struct {
	Offers *services.OfferService
}

type amountBody struct {
	Amount float64 `json:"amount"`
}

// GET /api/products/:id/offers
func (h *OfferHandler) List(c *fiber.Ctx) error {
	list, err := h.Offers.List(currentUser(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"offers": list})
}

// POST /api/products/:id/offers {amount}
func (h *OfferHandler) Make(c *fiber.Ctx) error {
	var in amountBody
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body")
	}
	o, err := h.Offers.Make(c.UserContext(), currentUser(c), c.Params("id"), in.Amount)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "offer.make", map[string]any{"offer_id": o.ID, "product_id": o.ProductID, "amount": o.Amount})
	return c.Status(fiber.StatusCreated).JSON(o)
}

// GET /api/offers/:id
func (h *OfferHandler) View(c *fiber.Ctx) error {
	o, err := h.Offers.Get(currentUser(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(o)
}

type offerAction func(ctx context.Context, u *domain.User, id string) (domain.Offer, error)

func (h *OfferHandler) act(action string, fn offerAction) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := fn(c.UserContext(), currentUser(c), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		applog.Audit(c, action, map[string]any{"offer_id": o.ID, "status": o.Status})
		return c.JSON(o)
	}
}

func (h *OfferHandler) Accept() fiber.Handler   { return h.act("offer.accept", h.Offers.Accept) }
func (h *OfferHandler) Reject() fiber.Handler   { return h.act("offer.reject", h.Offers.Reject) }
func (h *OfferHandler) Withdraw() fiber.Handler { return h.act("offer.withdraw", h.Offers.Withdraw) }

// POST /api/offers/:id/counter {amount}
func (h *OfferHandler) Counter(c *fiber.Ctx) error {
	var in amountBody
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body")
	}
	o, err := h.Offers.Counter(c.UserContext(), currentUser(c), c.Params("id"), in.Amount)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "offer.counter", map[string]any{"offer_id": o.ID, "amount": o.CounterAmount})
	return c.JSON(o)
}
