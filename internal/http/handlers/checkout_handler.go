package handlers

import (
	applog "buttergolf/internal/log"
	"buttergolf/internal/services"

	"github.com/gofiber/fiber/v2"
)

type CheckoutHandler struct {
	Checkout *services.CheckoutService
}

// POST /api/checkout/create-session {productId, addressId?}
func (h *CheckoutHandler) CreateSession(c *fiber.Ctx) error {
	var in struct {
		ProductID string `json:"productId"`
		AddressID string `json:"addressId"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body")
	}
	if in.ProductID == "" {
		return badRequest(c, "productId")
	}
	res, err := h.Checkout.CreateSession(c.UserContext(), currentUser(c), in.ProductID, in.AddressID)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "checkout.create", map[string]any{"order_id": res.OrderID, "product_id": in.ProductID})
	return c.JSON(res)
}

// POST /api/stripe/connect/account
func (h *CheckoutHandler) ConnectAccount(c *fiber.Ctx) error {
	id, err := h.Checkout.ConnectAccount(c.UserContext(), currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "connect.account", map[string]any{"account_id": id})
	return c.JSON(fiber.Map{"accountId": id})
}

// POST /api/stripe/connect/account-session
func (h *CheckoutHandler) AccountSession(c *fiber.Ctx) error {
	secret, err := h.Checkout.AccountSession(c.UserContext(), currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"clientSecret": secret})
}

// POST /api/stripe/connect/onboarding-link
func (h *CheckoutHandler) OnboardingLink(c *fiber.Ctx) error {
	url, err := h.Checkout.OnboardingLink(c.UserContext(), currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}
