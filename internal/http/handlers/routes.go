package handlers

import (
	"time"

	applog "buttergolf/internal/log"
	"buttergolf/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func limitReached(action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		applog.Security(c, action, nil)
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
	}
}

// Register mounts every route. The caller installs the global middleware
// chain first.
func Register(app *fiber.App, d *Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/metrics", metrics.Handler())

	// Landing pages
	app.Get("/checkout/success", d.PageHandler.CheckoutSuccess)
	app.Get("/checkout/cancel", d.PageHandler.CheckoutCancel)
	app.Get("/connect/return", d.PageHandler.ConnectReturn)
	app.Get("/connect/refresh", d.PageHandler.ConnectRefresh)

	api := app.Group("/api")

	// Webhooks authenticate by signature, not by user
	api.Post("/webhooks/clerk", d.WebhookHandler.ClerkEvent)
	api.Post("/webhooks/stripe", d.WebhookHandler.StripeEvent)

	internal := api.Group("/internal", RequireAPIKey(d.Keys))
	internal.Post("/jobs/run", d.AdminHandler.RunJobs)
	internal.Get("/stats", d.AdminHandler.Stats)

	api.Use(Attach(d.Auth))
	user := RequireUser()

	// Catalog (public)
	api.Get("/categories", d.CategoryHandler.Categories)
	api.Get("/brands", d.CategoryHandler.Brands)
	api.Get("/brands/:slug/models", d.CategoryHandler.Models)
	api.Get("/products", d.ProductHandler.List)
	api.Get("/products/:id", d.ProductHandler.Detail)
	api.Get("/search", limiter.New(limiter.Config{
		Max:          30,
		Expiration:   time.Minute,
		LimitReached: limitReached("rate.search.hit"),
	}), d.SearchHandler.Search)
	api.Post("/waitlist", limiter.New(limiter.Config{
		Max:          5,
		Expiration:   10 * time.Minute,
		LimitReached: limitReached("rate.waitlist.hit"),
	}), d.WaitlistHandler.Join)

	// Listings
	api.Post("/products", user, d.ProductHandler.Create)
	api.Patch("/products/:id", user, d.ProductHandler.Update)
	api.Delete("/products/:id", user, d.ProductHandler.Delete)
	api.Get("/products/:id/offers", user, d.OfferHandler.List)
	api.Post("/products/:id/offers", user, d.OfferHandler.Make)

	// Account
	api.Get("/me", user, d.AccountHandler.Me)
	api.Put("/me/push-token", user, d.AccountHandler.PushToken)

	api.Get("/favorites", user, d.FavoriteHandler.List)
	api.Post("/favorites", user, d.FavoriteHandler.Add)
	api.Delete("/favorites/:productId", user, d.FavoriteHandler.Remove)

	api.Get("/addresses", user, d.AddressHandler.List)
	api.Post("/addresses", user, d.AddressHandler.Create)
	api.Patch("/addresses/:id", user, d.AddressHandler.Update)
	api.Delete("/addresses/:id", user, d.AddressHandler.Delete)
	api.Post("/addresses/:id/default", user, d.AddressHandler.SetDefault)

	// Payments
	api.Post("/checkout/create-session", user, d.CheckoutHandler.CreateSession)
	api.Post("/stripe/connect/account", user, d.CheckoutHandler.ConnectAccount)
	api.Post("/stripe/connect/account-session", user, d.CheckoutHandler.AccountSession)
	api.Post("/stripe/connect/onboarding-link", user, d.CheckoutHandler.OnboardingLink)

	// Orders
	api.Get("/orders", user, d.OrderHandler.List)
	api.Get("/orders/:id", user, d.OrderHandler.View)
	api.Post("/orders/:id/ship", user, d.OrderHandler.Ship)
	api.Post("/orders/:id/confirm-delivery", user, d.OrderHandler.ConfirmDelivery)
	api.Post("/orders/:id/cancel", user, d.OrderHandler.Cancel)
	api.Get("/orders/:id/tracking", user, d.OrderHandler.Tracking)
	api.Get("/orders/:id/messages", user, d.MessageHandler.List)
	api.Post("/orders/:id/messages", user, d.MessageHandler.Send)
	api.Get("/orders/:id/messages/stream", user, d.MessageHandler.Stream)

	// Offers
	api.Get("/offers/:id", user, d.OfferHandler.View)
	api.Post("/offers/:id/accept", user, d.OfferHandler.Accept())
	api.Post("/offers/:id/reject", user, d.OfferHandler.Reject())
	api.Post("/offers/:id/counter", user, d.OfferHandler.Counter)
	api.Post("/offers/:id/withdraw", user, d.OfferHandler.Withdraw())

	app.Use(d.PageHandler.NotFound)
}
