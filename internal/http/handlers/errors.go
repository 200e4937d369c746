package handlers

import (
	"errors"

	applog "buttergolf/internal/log"
	"buttergolf/internal/payments"
	"buttergolf/internal/services"

	"github.com/gofiber/fiber/v2"
)

const internalMsg = "Something went wrong. Please try again."

func statusOf(err error) int {
	var fe *fiber.Error
	switch {
	case errors.Is(err, services.ErrInvalid):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, payments.ErrNotConfigured):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &fe):
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// fail writes the JSON error body for err. Only service errors and fiber
// errors below 500 carry their message to the client.
func fail(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	msg := err.Error()
	switch {
	case status >= 500 && status != fiber.StatusServiceUnavailable:
		applog.Error(c, "request.fail", err, map[string]any{"status": status})
		msg = internalMsg
	case status == fiber.StatusServiceUnavailable:
		msg = "payments are not available right now"
	case status == fiber.StatusUnauthorized || status == fiber.StatusForbidden:
		applog.Security(c, "access.denied", map[string]any{"reason": msg, "status": status})
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func badRequest(c *fiber.Ctx, field string) error {
	applog.Security(c, "validation.fail", map[string]any{"field": field})
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid " + field})
}

// ErrorHandler is the app-wide fallback for errors no handler mapped,
// including recovered panics.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < 500 {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	applog.Error(c, "server.error", err, map[string]any{"status": fiber.StatusInternalServerError})
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": internalMsg})
}
