package handlers

import (
	"errors"
	"strings"

	"buttergolf/internal/auth"
	"buttergolf/internal/domain"
	applog "buttergolf/internal/log"
	"buttergolf/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
)

// Attach resolves the caller from the bearer token or the session cookie.
// Anonymous requests pass through; RequireUser rejects them where needed.
func Attach(svc *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := svc.Resolve(auth.BearerToken(c.Get(fiber.HeaderAuthorization)), c.Cookies(auth.SessionCookie))
		switch {
		case errors.Is(err, services.ErrUnauthorized):
			c.Locals("authErr", err)
			applog.Security(c, "auth.token.invalid", nil)
		case err != nil:
			return fail(c, err)
		case u != nil:
			c.Locals("user", u)
			c.Locals("uid", u.ID)
		}
		return c.Next()
	}
}

// RequireUser answers 401 unless Attach found a valid identity.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) == nil {
			reason := "missing credentials"
			if c.Locals("authErr") != nil {
				reason = "invalid credentials"
			}
			applog.Security(c, "access.denied.auth", map[string]any{"reason": reason, "status": fiber.StatusUnauthorized})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
		}
		return c.Next()
	}
}

type KeyChecker interface {
	Valid(key string) bool
}

// RequireAPIKey guards internal endpoints with the X-API-Key header.
func RequireAPIKey(keys KeyChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if keys == nil || !keys.Valid(c.Get("X-API-Key")) {
			applog.Security(c, "access.denied.apikey", nil)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid api key"})
		}
		return c.Next()
	}
}

// CSRF is the double-submit check for cookie sessions: the csrf_ cookie
// handed out on a safe request must come back in X-Csrf-Token.
func CSRF() fiber.Handler {
	return csrf.New(csrf.Config{
		KeyLookup:      "header:X-Csrf-Token",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   true,
		Next:           SkipCSRF,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"status": fiber.StatusForbidden})
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "security check failed, refresh and try again"})
		},
	})
}

// SkipCSRF exempts requests that can't ride on a browser session: bearer
// calls, signed webhooks, internal calls and anything without the cookie.
func SkipCSRF(c *fiber.Ctx) bool {
	if auth.BearerToken(c.Get(fiber.HeaderAuthorization)) != "" {
		return true
	}
	p := c.Path()
	if strings.HasPrefix(p, "/api/webhooks/") || strings.HasPrefix(p, "/api/internal/") {
		return true
	}
	return c.Cookies(auth.SessionCookie) == ""
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}
