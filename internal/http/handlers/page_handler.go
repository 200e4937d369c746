package handlers

import (
	"html/template"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PageHandler renders the browser landing pages the payment provider
// redirects back to. The mobile app deep-links from them.
type PageHandler struct {
	AppScheme string
}

// appLink marks the deep link as trusted; html/template would otherwise
// rewrite the custom scheme to #ZgotmplZ.
func (h *PageHandler) appLink(path string) template.URL {
	return template.URL(h.AppScheme + "://" + path)
}

func (h *PageHandler) CheckoutSuccess(c *fiber.Ctx) error {
	return render(c, "checkout_success", fiber.Map{
		"SessionID": c.Query("session_id"),
		"AppLink":   h.appLink("orders"),
	})
}

func (h *PageHandler) CheckoutCancel(c *fiber.Ctx) error {
	return render(c, "checkout_cancel", fiber.Map{
		"OrderID": c.Query("order_id"),
		"AppLink": h.appLink(""),
	})
}

func (h *PageHandler) ConnectReturn(c *fiber.Ctx) error {
	return render(c, "connect_return", fiber.Map{"AppLink": h.appLink("sell")})
}

func (h *PageHandler) ConnectRefresh(c *fiber.Ctx) error {
	return render(c, "connect_refresh", fiber.Map{"AppLink": h.appLink("sell/onboarding")})
}

// NotFound is the catch-all: JSON under /api, an HTML page elsewhere.
func (h *PageHandler) NotFound(c *fiber.Ctx) error {
	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	return notFoundPage(c, "Page not found")
}
