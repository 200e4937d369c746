package handlers

import (
	"errors"
	"net/http"

	applog "buttergolf/internal/log"
	"buttergolf/internal/metrics"
	"buttergolf/internal/payments"
	"buttergolf/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SignatureVerifier checks a svix-signed delivery.
type SignatureVerifier interface {
	Verify(payload []byte, headers http.Header) error
}

type EventParser interface {
	ParseWebhook(payload []byte, signature string) (payments.Event, error)
}

type WebhookHandler struct {
	Clerk  SignatureVerifier
	Stripe EventParser
	Users  *services.UserService
	Events *services.StripeEvents
}

// POST /api/webhooks/clerk
func (h *WebhookHandler) ClerkEvent(c *fiber.Ctx) error {
	if h.Clerk == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "webhook not configured"})
	}
	payload := c.Body()
	hdr := http.Header{}
	for _, k := range []string{"svix-id", "svix-timestamp", "svix-signature"} {
		hdr.Set(k, c.Get(k))
	}
	if err := h.Clerk.Verify(payload, hdr); err != nil {
		applog.Security(c, "webhook.clerk.signature", map[string]any{"svix_id": hdr.Get("svix-id")})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid signature"})
	}
	typ, err := h.Users.SyncFromWebhook(payload)
	metrics.WebhookEvents.WithLabelValues("clerk", typ).Inc()
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "webhook.clerk", map[string]any{"type": typ})
	return c.JSON(fiber.Map{"received": true})
}

// POST /api/webhooks/stripe
func (h *WebhookHandler) StripeEvent(c *fiber.Ctx) error {
	ev, err := h.Stripe.ParseWebhook(c.Body(), c.Get("Stripe-Signature"))
	if errors.Is(err, payments.ErrNotConfigured) {
		return fail(c, err)
	}
	if err != nil {
		applog.Security(c, "webhook.stripe.signature", nil)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid signature"})
	}
	metrics.WebhookEvents.WithLabelValues("stripe", ev.Type).Inc()

	err = h.Events.Handle(c.UserContext(), ev)
	switch {
	case errors.Is(err, services.ErrNotFound):
		// not ours (another integration on the same account); stop the retries
		applog.Info(c, "webhook.stripe.ignored", map[string]any{"event_id": ev.ID, "type": ev.Type})
		return c.JSON(fiber.Map{"received": true, "ignored": true})
	case err != nil:
		applog.Error(c, "webhook.stripe", err, map[string]any{"event_id": ev.ID, "type": ev.Type})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": internalMsg})
	}
	applog.Audit(c, "webhook.stripe", map[string]any{"event_id": ev.ID, "type": ev.Type})
	return c.JSON(fiber.Map{"received": true})
}
